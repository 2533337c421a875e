package routing

import (
	"fmt"
)

// Classifier routes prompts to model tiers. It is immutable after
// construction and safe for concurrent use.
type Classifier struct {
	cfg       RouterConfig
	extractor *Extractor
	scorer    Scorer
	selector  Selector
}

// NewClassifier validates cfg and compiles its keyword lists
func NewClassifier(cfg RouterConfig) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid router config: %w", err)
	}
	cfg = cfg.clone()

	extractor, err := NewExtractor(cfg.CodeKeywords, cfg.ComplexMarkers)
	if err != nil {
		return nil, err
	}

	return &Classifier{
		cfg:       cfg,
		extractor: extractor,
		scorer:    NewScorer(cfg.Weights, cfg.QualityThreshold),
		selector:  NewSelector(cfg.QualityThreshold, cfg.BoundaryMargin),
	}, nil
}

// Config returns a copy of the classifier's configuration
func (c *Classifier) Config() RouterConfig {
	return c.cfg.clone()
}

// Models returns a copy of the tier model map
func (c *Classifier) Models() TierModelMap {
	return c.cfg.Models.Clone()
}

// Route classifies a request. It never fails.
func (c *Classifier) Route(req RoutingRequest) RoutingDecision {
	signals := c.extractor.Extract(req.Prompt, req.SystemPrompt)
	assessment := c.scorer.Score(signals, req)
	tier, reason := c.selector.Select(assessment, req)

	return RoutingDecision{
		Tier:       tier,
		Model:      c.cfg.Models.ModelFor(tier),
		Confidence: assessment.Confidence,
		Reason:     reason,
		Complexity: assessment.Complexity,
		Signals:    signals,
	}
}

// RouteWithFallback classifies a request and then makes sure the chosen
// model is in available, substituting when it is not. It returns a
// *NoAvailableModelError when nothing can serve the request.
func (c *Classifier) RouteWithFallback(req RoutingRequest, available ModelSet) (RoutingDecision, error) {
	return resolve(c.Route(req), c.cfg.Models, available, c.cfg.SubstitutionPenalty)
}

// Resolve applies fallback resolution to an existing decision
func (c *Classifier) Resolve(decision RoutingDecision, available ModelSet) (RoutingDecision, error) {
	return resolve(decision, c.cfg.Models, available, c.cfg.SubstitutionPenalty)
}

// SelectModel returns only the model name for a request
func (c *Classifier) SelectModel(req RoutingRequest) string {
	return c.Route(req).Model
}

var defaultClassifier = mustClassifier(DefaultRouterConfig())

func mustClassifier(cfg RouterConfig) *Classifier {
	c, err := NewClassifier(cfg)
	if err != nil {
		panic(err)
	}
	return c
}

// DefaultClassifier returns the shared classifier built from DefaultRouterConfig
func DefaultClassifier() *Classifier {
	return defaultClassifier
}

// Route classifies req with the default classifier
func Route(req RoutingRequest) RoutingDecision {
	return defaultClassifier.Route(req)
}

// RouteWithFallback classifies req with the default classifier and resolves
// it against available
func RouteWithFallback(req RoutingRequest, available ModelSet) (RoutingDecision, error) {
	return defaultClassifier.RouteWithFallback(req, available)
}

// SelectModel returns the model name the default classifier picks for prompt
func SelectModel(prompt string) string {
	return defaultClassifier.SelectModel(RoutingRequest{Prompt: prompt})
}
