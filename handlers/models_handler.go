package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/upb/hydra-router/internal/catalog"
	"github.com/upb/hydra-router/services"
	"github.com/upb/hydra-router/utils"
	"go.uber.org/zap"
)

// ModelCatalog is the availability snapshot served over HTTP
type ModelCatalog interface {
	Snapshot() catalog.Snapshot
	Stale(maxAge time.Duration) bool
	Refresh(ctx context.Context) error
}

// CatalogView is the response of GET /models
type CatalogView struct {
	catalog.Snapshot
	Stale bool `json:"stale"`
}

// ModelsHandler serves and refreshes the model catalog
type ModelsHandler struct {
	catalog      ModelCatalog
	maxStaleness time.Duration
	logger       *zap.Logger
}

// NewModelsHandler creates a new ModelsHandler
func NewModelsHandler(c ModelCatalog, maxStaleness time.Duration, logger *zap.Logger) *ModelsHandler {
	return &ModelsHandler{
		catalog:      c,
		maxStaleness: maxStaleness,
		logger:       logger,
	}
}

// HandleList handles GET /api/v1/models
func (h *ModelsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, h.view())
}

// HandleRefresh handles POST /api/v1/models/refresh
func (h *ModelsHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Refresh(r.Context()); err != nil {
		HandleServiceError(w, services.WrapExternal("failed to refresh model catalog", err), h.logger)
		return
	}
	_ = utils.WriteOK(w, h.view())
}

func (h *ModelsHandler) view() CatalogView {
	return CatalogView{
		Snapshot: h.catalog.Snapshot(),
		Stale:    h.maxStaleness > 0 && h.catalog.Stale(h.maxStaleness),
	}
}
