package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/upb/hydra-router/models"
	routingsvc "github.com/upb/hydra-router/services/routing"
	"github.com/upb/hydra-router/utils"
	"go.uber.org/zap"
)

// DefaultStatsWindow is used when /decisions/stats has no since parameter
const DefaultStatsWindow = 24 * time.Hour

// DecisionService defines the decision log queries used by the HTTP layer
type DecisionService interface {
	ListDecisions(ctx context.Context, f routingsvc.ListFilter) ([]*models.RoutingDecisionRecord, error)
	GetDecision(ctx context.Context, id uuid.UUID) (*models.RoutingDecisionRecord, error)
	TierStats(ctx context.Context, since time.Time) ([]models.TierCount, error)
}

// DecisionList is the response of GET /decisions
type DecisionList struct {
	Decisions []*models.RoutingDecisionRecord `json:"decisions"`
	Limit     int                             `json:"limit"`
	Offset    int                             `json:"offset"`
}

// DecisionStats is the response of GET /decisions/stats
type DecisionStats struct {
	Since time.Time          `json:"since"`
	Tiers []models.TierCount `json:"tiers"`
}

// DecisionHandler serves the routing decision log
type DecisionHandler struct {
	service DecisionService
	logger  *zap.Logger
	now     func() time.Time
}

// NewDecisionHandler creates a new DecisionHandler
func NewDecisionHandler(service DecisionService, logger *zap.Logger) *DecisionHandler {
	return &DecisionHandler{
		service: service,
		logger:  logger,
		now:     time.Now,
	}
}

// HandleList handles GET /api/v1/decisions
func (h *DecisionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fields := map[string]string{}

	filter := routingsvc.ListFilter{Tier: q.Get("tier")}

	if v := q.Get("substituted"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			fields["substituted"] = "substituted must be true or false"
		} else {
			filter.Substituted = &b
		}
	}
	if v := q.Get("since"); v != "" {
		since, err := h.parseSince(v)
		if err != nil {
			fields["since"] = err.Error()
		}
		filter.Since = since
	}
	filter.Limit = intParam(q.Get("limit"), "limit", fields)
	filter.Offset = intParam(q.Get("offset"), "offset", fields)

	if len(fields) > 0 {
		HandleValidationError(w, &utils.ValidationError{Message: "Validation failed", Fields: fields}, h.logger)
		return
	}

	recs, err := h.service.ListDecisions(r.Context(), filter)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	limit := filter.Limit
	if limit == 0 {
		limit = routingsvc.DefaultListLimit
	}
	_ = utils.WriteOK(w, DecisionList{Decisions: recs, Limit: limit, Offset: filter.Offset})
}

// HandleGet handles GET /api/v1/decisions/{id}
func (h *DecisionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseUUID(chi.URLParam(r, "id"), "id")
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	rec, err := h.service.GetDecision(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, rec)
}

// HandleStats handles GET /api/v1/decisions/stats
func (h *DecisionHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	since := h.now().Add(-DefaultStatsWindow)
	if v := r.URL.Query().Get("since"); v != "" {
		parsed, err := h.parseSince(v)
		if err != nil {
			HandleValidationError(w, &utils.ValidationError{
				Message: "Validation failed",
				Fields:  map[string]string{"since": err.Error()},
			}, h.logger)
			return
		}
		since = parsed
	}

	counts, err := h.service.TierStats(r.Context(), since)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, DecisionStats{Since: since.UTC(), Tiers: counts})
}

// parseSince accepts an RFC 3339 timestamp or a lookback duration such as 1h
func (h *DecisionHandler) parseSince(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return h.now().Add(-d), nil
	}
	return time.Time{}, fmt.Errorf("since must be an RFC 3339 time or a positive duration")
}

func intParam(v, name string, fields map[string]string) int {
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		fields[name] = fmt.Sprintf("%s must be an integer", name)
		return 0
	}
	return n
}
