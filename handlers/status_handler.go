package handlers

import (
	"net/http"
	"time"

	"github.com/upb/hydra-router/utils"
)

// Version is stamped at build time with -ldflags "-X .../handlers.Version=..."
var Version = "dev"

// StatusResponse describes the running router
type StatusResponse struct {
	Service       string    `json:"service"`
	Version       string    `json:"version"`
	Environment   string    `json:"environment"`
	StartedAt     time.Time `json:"started_at"`
	Uptime        string    `json:"uptime"`
	CatalogSource string    `json:"catalog_source"`
	CatalogModels int       `json:"catalog_models"`
	DecisionLog   bool      `json:"decision_log"`
	Auth          bool      `json:"auth"`
}

// StatusHandler serves GET /api/v1/status
type StatusHandler struct {
	environment string
	startedAt   time.Time
	catalog     ModelCatalog
	decisionLog bool
	auth        bool
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(environment string, c ModelCatalog, decisionLog, auth bool) *StatusHandler {
	return &StatusHandler{
		environment: environment,
		startedAt:   time.Now().UTC(),
		catalog:     c,
		decisionLog: decisionLog,
		auth:        auth,
	}
}

// HandleStatus handles GET /api/v1/status
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	snap := h.catalog.Snapshot()
	_ = utils.WriteOK(w, StatusResponse{
		Service:       "hydra-router",
		Version:       Version,
		Environment:   h.environment,
		StartedAt:     h.startedAt,
		Uptime:        time.Since(h.startedAt).Truncate(time.Second).String(),
		CatalogSource: snap.Source,
		CatalogModels: len(snap.Models),
		DecisionLog:   h.decisionLog,
		Auth:          h.auth,
	})
}
