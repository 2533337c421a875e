package routing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/upb/hydra-router/internal/observability"
	router "github.com/upb/hydra-router/internal/routing"
	"github.com/upb/hydra-router/models"
	"github.com/upb/hydra-router/repositories"
	"github.com/upb/hydra-router/services"
	"go.uber.org/zap"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Recorder persists decisions off the request path
type Recorder interface {
	Record(rec *models.RoutingDecisionRecord) error
}

// Availability supplies the current model snapshot
type Availability interface {
	Available() router.ModelSet
}

// RouteInput is a routing request as received from a caller
type RouteInput struct {
	Prompt        string `json:"prompt"`
	SystemPrompt  string `json:"system_prompt,omitempty"`
	PreferQuality bool   `json:"prefer_quality,omitempty"`
	PreferSpeed   bool   `json:"prefer_speed,omitempty"`

	// AvailableModels overrides the catalog for fallback routing. nil means
	// use the catalog; an empty slice means nothing is available.
	AvailableModels []string `json:"available_models,omitempty"`

	RequestID string `json:"-"`
}

func (in RouteInput) request() router.RoutingRequest {
	return router.RoutingRequest{
		Prompt:        in.Prompt,
		SystemPrompt:  in.SystemPrompt,
		PreferQuality: in.PreferQuality,
		PreferSpeed:   in.PreferSpeed,
	}
}

// RouteResult is a decision plus the ID it was recorded under
type RouteResult struct {
	ID uuid.UUID `json:"id"`
	router.RoutingDecision
}

// Service wraps the classifier with availability lookup, metrics and the
// decision log
type Service struct {
	classifier *router.Classifier
	catalog    Availability
	recorder   Recorder
	decisions  repositories.DecisionRepository
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewService creates a routing service. catalog, recorder, decisions and
// metrics may be nil.
func NewService(
	classifier *router.Classifier,
	catalog Availability,
	recorder Recorder,
	decisions repositories.DecisionRepository,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Service {
	if classifier == nil {
		classifier = router.DefaultClassifier()
	}
	return &Service{
		classifier: classifier,
		catalog:    catalog,
		recorder:   recorder,
		decisions:  decisions,
		metrics:    metrics,
		logger:     logger,
	}
}

// Models returns the configured tier models
func (s *Service) Models() router.TierModelMap {
	return s.classifier.Models()
}

// Route classifies a prompt without checking availability
func (s *Service) Route(ctx context.Context, in RouteInput) (*RouteResult, error) {
	req := in.request()
	decision := s.classifier.Route(req)
	return s.finish(ctx, in, req, decision), nil
}

// RouteWithFallback classifies a prompt and substitutes an available model
// when the chosen one is missing from the availability set
func (s *Service) RouteWithFallback(ctx context.Context, in RouteInput) (*RouteResult, error) {
	available, err := s.availability(in)
	if err != nil {
		return nil, err
	}

	req := in.request()
	decision, err := s.classifier.RouteWithFallback(req, available)
	if err != nil {
		var nam *router.NoAvailableModelError
		if errors.As(err, &nam) {
			s.metrics.ObserveNoModel(nam.AttemptedTier.String())
		}
		observability.LoggerFromContext(ctx, s.logger).Warn("no available model for prompt",
			zap.String("request_id", in.RequestID),
			zap.Int("available", available.Len()),
			zap.Error(err))
		return nil, services.NewNoAvailableModelError(err)
	}

	return s.finish(ctx, in, req, decision), nil
}

// SelectModel returns only the model name
func (s *Service) SelectModel(ctx context.Context, in RouteInput) (string, error) {
	res, err := s.Route(ctx, in)
	if err != nil {
		return "", err
	}
	return res.Model, nil
}

func (s *Service) availability(in RouteInput) (router.ModelSet, error) {
	if in.AvailableModels != nil {
		return router.NewModelSet(in.AvailableModels...), nil
	}
	if s.catalog == nil {
		return nil, services.ErrCatalogUnavailable
	}
	return s.catalog.Available(), nil
}

func (s *Service) finish(ctx context.Context, in RouteInput, req router.RoutingRequest, decision router.RoutingDecision) *RouteResult {
	rec := models.NewRoutingDecisionRecord(req, decision).WithRequestID(in.RequestID)

	s.metrics.ObserveDecision(decision.Tier.String(), decision.Substituted, decision.Complexity, decision.Confidence)

	logger := observability.LoggerFromContext(ctx, s.logger)
	logger.Info("routing decision",
		zap.String("decision_id", rec.ID.String()),
		zap.String("request_id", in.RequestID),
		zap.String("tier", decision.Tier.String()),
		zap.String("model", decision.Model),
		zap.Float64("complexity", decision.Complexity),
		zap.Float64("confidence", decision.Confidence),
		zap.Bool("substituted", decision.Substituted),
		zap.String("reason", decision.Reason))

	if s.recorder != nil {
		if err := s.recorder.Record(rec); err != nil {
			logger.Debug("decision not recorded", zap.Error(err))
		}
	}

	return &RouteResult{ID: rec.ID, RoutingDecision: decision}
}

// ListFilter selects decisions from the log
type ListFilter struct {
	Tier        string
	Substituted *bool
	Since       time.Time
	Limit       int
	Offset      int
}

// ListDecisions returns recorded decisions newest first
func (s *Service) ListDecisions(ctx context.Context, f ListFilter) ([]*models.RoutingDecisionRecord, error) {
	if s.decisions == nil {
		return nil, services.ErrDecisionLogMissing
	}

	if f.Limit == 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit < 0 || f.Limit > MaxListLimit || f.Offset < 0 {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "invalid pagination parameters", nil).
			WithDetail("limit", f.Limit).
			WithDetail("offset", f.Offset).
			WithDetail("max_limit", MaxListLimit)
	}

	filter := repositories.DecisionFilter{Substituted: f.Substituted, Since: f.Since}
	if f.Tier != "" {
		tier, err := router.ParseModelTier(f.Tier)
		if err != nil {
			return nil, services.NewDomainError(services.ErrorTypeValidation, "invalid model tier", err).
				WithDetail("tier", f.Tier)
		}
		filter.Tier = tier.String()
	}

	recs, err := s.decisions.List(ctx, filter, f.Limit, f.Offset)
	if err != nil {
		return nil, services.WrapInternal("failed to list routing decisions", err)
	}
	if recs == nil {
		recs = []*models.RoutingDecisionRecord{}
	}
	return recs, nil
}

// GetDecision returns a single recorded decision
func (s *Service) GetDecision(ctx context.Context, id uuid.UUID) (*models.RoutingDecisionRecord, error) {
	if s.decisions == nil {
		return nil, services.ErrDecisionLogMissing
	}

	rec, err := s.decisions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.NewDomainError(services.ErrorTypeNotFound, "routing decision not found", err).
				WithDetail("id", id.String())
		}
		return nil, services.WrapInternal("failed to get routing decision", err)
	}
	return rec, nil
}

// TierStats counts decisions per tier since the given time. Every tier is
// present in the result, in FAST, QUALITY, CODE order.
func (s *Service) TierStats(ctx context.Context, since time.Time) ([]models.TierCount, error) {
	if s.decisions == nil {
		return nil, services.ErrDecisionLogMissing
	}

	counts, err := s.decisions.CountByTier(ctx, since)
	if err != nil {
		return nil, services.WrapInternal("failed to count routing decisions", err)
	}

	byTier := make(map[string]models.TierCount, len(counts))
	for _, c := range counts {
		byTier[c.Tier] = c
	}

	out := make([]models.TierCount, 0, len(router.AllTiers))
	for _, tier := range router.AllTiers {
		c := byTier[tier.String()]
		c.Tier = tier.String()
		out = append(out, c)
	}
	return out, nil
}
