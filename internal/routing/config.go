package routing

import (
	"fmt"
)

// ScoringWeights tunes the complexity score and the confidence curve
type ScoringWeights struct {
	Base          float64 `yaml:"base"`
	LengthWeight  float64 `yaml:"length_weight"`
	LengthScale   float64 `yaml:"length_scale"` // words at which ~63% of LengthWeight is reached
	MarkerWeight  float64 `yaml:"marker_weight"`
	MarkerCap     float64 `yaml:"marker_cap"`
	SimplePenalty float64 `yaml:"simple_penalty"`

	PreferenceBonus float64 `yaml:"preference_bonus"`

	MinConfidence      float64 `yaml:"min_confidence"`
	EmptyConfidence    float64 `yaml:"empty_confidence"`
	CodeBaseConfidence float64 `yaml:"code_base_confidence"`
	CodeFenceBonus     float64 `yaml:"code_fence_bonus"`
	CodeIndicatorBonus float64 `yaml:"code_indicator_bonus"`
	CodeMaxConfidence  float64 `yaml:"code_max_confidence"`
}

// RouterConfig is the full, read-only configuration of a Classifier
type RouterConfig struct {
	QualityThreshold    float64
	BoundaryMargin      float64
	SubstitutionPenalty float64
	Weights             ScoringWeights
	CodeKeywords        []string
	ComplexMarkers      []string
	Models              TierModelMap
}

// DefaultCodeKeywords are the words that mark a prompt as a code task
var DefaultCodeKeywords = []string{
	"debug", "fix", "implement", "refactor", "bug", "compile",
	"stack trace", "unit test", "script", "regex",
	"python", "golang", "javascript", "typescript", "rust", "java", "kotlin",
	"swift", "ruby", "php", "bash", "sql", "haskell", "c++", "c#",
}

// DefaultComplexMarkers are the words and phrases that raise complexity
var DefaultComplexMarkers = []string{
	"analyze", "analyse", "analysis", "compare", "comparing", "comparison",
	"contrast", "evaluate", "assess", "comprehensive", "implication", "complex",
	"trade-off", "tradeoff", "pros and cons", "in-depth", "thorough", "critique",
	"justify", "synthesize", "elaborate", "explain why",
}

// DefaultWeights returns the stock scoring weights
func DefaultWeights() ScoringWeights {
	return ScoringWeights{
		Base:          0.10,
		LengthWeight:  0.35,
		LengthScale:   40,
		MarkerWeight:  0.30,
		MarkerCap:     0.60,
		SimplePenalty: 0.15,

		PreferenceBonus: 0.20,

		MinConfidence:      0.20,
		EmptyConfidence:    0.10,
		CodeBaseConfidence: 0.70,
		CodeFenceBonus:     0.15,
		CodeIndicatorBonus: 0.05,
		CodeMaxConfidence:  0.95,
	}
}

// DefaultRouterConfig returns the stock configuration
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		QualityThreshold:    0.60,
		BoundaryMargin:      0.05,
		SubstitutionPenalty: 0.80,
		Weights:             DefaultWeights(),
		CodeKeywords:        append([]string(nil), DefaultCodeKeywords...),
		ComplexMarkers:      append([]string(nil), DefaultComplexMarkers...),
		Models:              DefaultTierModelMap(),
	}
}

// Validate checks that the configuration is internally consistent
func (c RouterConfig) Validate() error {
	if c.QualityThreshold <= 0 || c.QualityThreshold >= 1 {
		return fmt.Errorf("quality threshold must be in (0,1), got %.2f", c.QualityThreshold)
	}
	if c.BoundaryMargin < 0 || c.BoundaryMargin >= 0.5 {
		return fmt.Errorf("boundary margin must be in [0,0.5), got %.2f", c.BoundaryMargin)
	}
	if c.SubstitutionPenalty <= 0 || c.SubstitutionPenalty > 1 {
		return fmt.Errorf("substitution penalty must be in (0,1], got %.2f", c.SubstitutionPenalty)
	}
	w := c.Weights
	if w.LengthScale <= 0 {
		return fmt.Errorf("length scale must be positive")
	}
	for name, v := range map[string]float64{
		"base":                 w.Base,
		"length_weight":        w.LengthWeight,
		"marker_weight":        w.MarkerWeight,
		"marker_cap":           w.MarkerCap,
		"simple_penalty":       w.SimplePenalty,
		"preference_bonus":     w.PreferenceBonus,
		"min_confidence":       w.MinConfidence,
		"empty_confidence":     w.EmptyConfidence,
		"code_base_confidence": w.CodeBaseConfidence,
		"code_fence_bonus":     w.CodeFenceBonus,
		"code_indicator_bonus": w.CodeIndicatorBonus,
		"code_max_confidence":  w.CodeMaxConfidence,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("weight %s must be in [0,1], got %.2f", name, v)
		}
	}
	if len(c.CodeKeywords) == 0 {
		return fmt.Errorf("at least one code keyword is required")
	}
	if err := c.Models.Validate(); err != nil {
		return err
	}
	return nil
}

// clone deep-copies the slices and maps so a Classifier never shares
// mutable state with its caller
func (c RouterConfig) clone() RouterConfig {
	out := c
	out.CodeKeywords = append([]string(nil), c.CodeKeywords...)
	out.ComplexMarkers = append([]string(nil), c.ComplexMarkers...)
	out.Models = c.Models.Clone()
	return out
}
