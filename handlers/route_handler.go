package handlers

import (
	"context"
	"net/http"

	"github.com/upb/hydra-router/internal/observability"
	router "github.com/upb/hydra-router/internal/routing"
	"github.com/upb/hydra-router/middleware"
	routingsvc "github.com/upb/hydra-router/services/routing"
	"github.com/upb/hydra-router/utils"
	"go.uber.org/zap"
)

// RouteRequest is the body of every /route endpoint. Prompts are capped
// at 256 KiB each.
type RouteRequest struct {
	Prompt        string `json:"prompt" validate:"max=262144"`
	SystemPrompt  string `json:"system_prompt,omitempty" validate:"max=262144"`
	PreferQuality bool   `json:"prefer_quality,omitempty"`
	PreferSpeed   bool   `json:"prefer_speed,omitempty"`

	// Only read by /route/fallback. Omit to use the live catalog.
	AvailableModels []string `json:"available_models,omitempty" validate:"omitempty,max=1000,dive,required,max=256"`
}

// RoutingService defines the routing operations used by the HTTP layer
type RoutingService interface {
	Models() router.TierModelMap
	Route(ctx context.Context, in routingsvc.RouteInput) (*routingsvc.RouteResult, error)
	RouteWithFallback(ctx context.Context, in routingsvc.RouteInput) (*routingsvc.RouteResult, error)
	SelectModel(ctx context.Context, in routingsvc.RouteInput) (string, error)
}

// ModelSelection is the response of POST /route/model
type ModelSelection struct {
	Model string `json:"model"`
}

// RouteHandler handles routing HTTP requests
type RouteHandler struct {
	service RoutingService
	logger  *zap.Logger
}

// NewRouteHandler creates a new RouteHandler
func NewRouteHandler(service RoutingService, logger *zap.Logger) *RouteHandler {
	return &RouteHandler{
		service: service,
		logger:  logger,
	}
}

// HandleRoute handles POST /api/v1/route
func (h *RouteHandler) HandleRoute(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	in.AvailableModels = nil

	result, err := h.service.Route(r.Context(), in)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, result)
}

// HandleRouteWithFallback handles POST /api/v1/route/fallback
func (h *RouteHandler) HandleRouteWithFallback(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}

	result, err := h.service.RouteWithFallback(r.Context(), in)
	if err != nil {
		HandleServiceError(w, err, observability.LoggerFromContext(r.Context(), h.logger))
		return
	}
	_ = utils.WriteOK(w, result)
}

// HandleSelectModel handles POST /api/v1/route/model
func (h *RouteHandler) HandleSelectModel(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decode(w, r)
	if !ok {
		return
	}
	in.AvailableModels = nil

	model, err := h.service.SelectModel(r.Context(), in)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, ModelSelection{Model: model})
}

// HandleTiers handles GET /api/v1/tiers
func (h *RouteHandler) HandleTiers(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, h.service.Models())
}

func (h *RouteHandler) decode(w http.ResponseWriter, r *http.Request) (routingsvc.RouteInput, bool) {
	requestID := middleware.GetRequestIDFromContext(r.Context())

	var req RouteRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return routingsvc.RouteInput{}, false
	}

	if err := utils.ValidateStruct(&req); err != nil {
		h.logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return routingsvc.RouteInput{}, false
	}

	return routingsvc.RouteInput{
		Prompt:          req.Prompt,
		SystemPrompt:    req.SystemPrompt,
		PreferQuality:   req.PreferQuality,
		PreferSpeed:     req.PreferSpeed,
		AvailableModels: req.AvailableModels,
		RequestID:       requestID,
	}, true
}
