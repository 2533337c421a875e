package routing

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rules is the on-disk override format for a RouterConfig. Unset fields keep
// the value of the config they are applied to.
//
//	quality_threshold: 0.65
//	extra_code_keywords: [terraform, dockerfile]
//	tiers:
//	  QUALITY:
//	    model: midnight-miqu-70b
//	    substitutes: [llama3.1-70b]
type Rules struct {
	QualityThreshold    *float64 `yaml:"quality_threshold"`
	BoundaryMargin      *float64 `yaml:"boundary_margin"`
	SubstitutionPenalty *float64 `yaml:"substitution_penalty"`

	// Weights is decoded lazily over the base config so partial blocks work
	Weights yaml.Node `yaml:"weights"`

	// CodeKeywords and ComplexMarkers replace the lists; the Extra variants append
	CodeKeywords        []string `yaml:"code_keywords"`
	ExtraCodeKeywords   []string `yaml:"extra_code_keywords"`
	ComplexMarkers      []string `yaml:"complex_markers"`
	ExtraComplexMarkers []string `yaml:"extra_complex_markers"`

	Tiers map[string]TierModels `yaml:"tiers"`
}

// LoadRules reads and parses a rules file
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules parses rules from YAML
func ParseRules(data []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	return &r, nil
}

// Apply overlays the rules on cfg and validates the result
func (r *Rules) Apply(cfg RouterConfig) (RouterConfig, error) {
	out := cfg.clone()

	if r.QualityThreshold != nil {
		out.QualityThreshold = *r.QualityThreshold
	}
	if r.BoundaryMargin != nil {
		out.BoundaryMargin = *r.BoundaryMargin
	}
	if r.SubstitutionPenalty != nil {
		out.SubstitutionPenalty = *r.SubstitutionPenalty
	}
	if !r.Weights.IsZero() {
		if err := r.Weights.Decode(&out.Weights); err != nil {
			return RouterConfig{}, fmt.Errorf("parse weights: %w", err)
		}
	}

	if len(r.CodeKeywords) > 0 {
		out.CodeKeywords = append([]string(nil), r.CodeKeywords...)
	}
	out.CodeKeywords = append(out.CodeKeywords, r.ExtraCodeKeywords...)
	if len(r.ComplexMarkers) > 0 {
		out.ComplexMarkers = append([]string(nil), r.ComplexMarkers...)
	}
	out.ComplexMarkers = append(out.ComplexMarkers, r.ExtraComplexMarkers...)

	for name, tm := range r.Tiers {
		tier, err := ParseModelTier(name)
		if err != nil {
			return RouterConfig{}, err
		}
		current := out.Models[tier]
		if tm.Model != "" {
			current.Model = tm.Model
		}
		if tm.Substitutes != nil {
			current.Substitutes = append([]string(nil), tm.Substitutes...)
		}
		out.Models[tier] = current
	}

	if err := out.Validate(); err != nil {
		return RouterConfig{}, fmt.Errorf("rules produce invalid config: %w", err)
	}
	return out, nil
}
