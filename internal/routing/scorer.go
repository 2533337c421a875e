package routing

import (
	"math"
)

// Assessment is the scorer's view of a request
type Assessment struct {
	Signals       Signals
	RawComplexity float64 // before preference adjustment
	Complexity    float64
	Confidence    float64
	WantsCodeTier bool
}

// Scorer maps Signals to a complexity score and a confidence
type Scorer struct {
	weights   ScoringWeights
	threshold float64
}

// NewScorer creates a scorer for the given weights and quality threshold
func NewScorer(weights ScoringWeights, threshold float64) Scorer {
	return Scorer{weights: weights, threshold: threshold}
}

// Score computes complexity and confidence. Complexity is non-decreasing in
// WordCount with every other signal held fixed and always lies in [0,1].
func (s Scorer) Score(signals Signals, req RoutingRequest) Assessment {
	a := Assessment{
		Signals:       signals,
		WantsCodeTier: signals.HasCodeSignal(),
	}

	if signals.IsEmpty {
		a.Confidence = s.weights.EmptyConfidence
		return a
	}

	a.RawComplexity = s.baseComplexity(signals)
	a.Complexity = s.adjustForPreference(a.RawComplexity, req)

	if a.WantsCodeTier {
		a.Confidence = s.codeConfidence(signals)
	} else {
		a.Confidence = s.boundaryConfidence(a.Complexity)
	}
	return a
}

func (s Scorer) baseComplexity(signals Signals) float64 {
	w := s.weights
	c := w.Base
	c += w.LengthWeight * (1 - math.Exp(-float64(signals.WordCount)/w.LengthScale))
	c += math.Min(w.MarkerWeight*float64(len(signals.ComplexMarkers)), w.MarkerCap)
	if signals.IsSimpleGreetingOrFactoid {
		c -= w.SimplePenalty
	}
	return clamp01(c)
}

// adjustForPreference applies the bounded quality/speed bonus. Setting both
// flags cancels out.
func (s Scorer) adjustForPreference(c float64, req RoutingRequest) float64 {
	if req.PreferQuality {
		c += s.weights.PreferenceBonus
	}
	if req.PreferSpeed {
		c -= s.weights.PreferenceBonus
	}
	return clamp01(c)
}

// boundaryConfidence grows with the distance from the quality threshold,
// normalised by the widest possible distance on either side
func (s Scorer) boundaryConfidence(c float64) float64 {
	span := math.Max(s.threshold, 1-s.threshold)
	dist := math.Min(1, math.Abs(c-s.threshold)/span)
	return clamp01(s.weights.MinConfidence + (1-s.weights.MinConfidence)*dist)
}

func (s Scorer) codeConfidence(signals Signals) float64 {
	w := s.weights
	conf := w.CodeBaseConfidence
	extra := len(signals.CodeIndicators) - 1
	if signals.HasCodeFence {
		conf += w.CodeFenceBonus
		extra--
	}
	if extra > 0 {
		conf += w.CodeIndicatorBonus * float64(extra)
	}
	return clamp01(math.Min(conf, w.CodeMaxConfidence))
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
