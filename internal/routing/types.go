package routing

import (
	"fmt"
	"sort"
	"strings"
)

// ModelTier is a coarse model class that the gateway can serve
type ModelTier string

const (
	TierFast    ModelTier = "FAST"
	TierQuality ModelTier = "QUALITY"
	TierCode    ModelTier = "CODE"
)

// AllTiers lists every tier in declaration order
var AllTiers = []ModelTier{TierFast, TierQuality, TierCode}

// String implements fmt.Stringer
func (t ModelTier) String() string {
	return string(t)
}

// IsValid reports whether t is one of the known tiers
func (t ModelTier) IsValid() bool {
	switch t {
	case TierFast, TierQuality, TierCode:
		return true
	}
	return false
}

// ParseModelTier parses a tier name, case-insensitively
func ParseModelTier(s string) (ModelTier, error) {
	t := ModelTier(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("unknown model tier: %q", s)
	}
	return t, nil
}

// RoutingRequest is the input to a routing decision
type RoutingRequest struct {
	Prompt        string `json:"prompt"`
	SystemPrompt  string `json:"system_prompt,omitempty"`
	PreferQuality bool   `json:"prefer_quality"`
	PreferSpeed   bool   `json:"prefer_speed"`
}

// HasPreference reports whether either preference flag is set
func (r RoutingRequest) HasPreference() bool {
	return r.PreferQuality || r.PreferSpeed
}

// RoutingDecision is the outcome of classifying a request.
// Tier, Model, Confidence and Reason are always set; the rest is diagnostic.
type RoutingDecision struct {
	Tier       ModelTier `json:"tier"`
	Model      string    `json:"model"`
	Confidence float64   `json:"confidence"`
	Reason     string    `json:"reason"`

	Complexity float64 `json:"complexity"`
	Signals    Signals `json:"signals"`

	// Set only when the fallback resolver swapped the model
	Substituted   bool      `json:"substituted"`
	OriginalTier  ModelTier `json:"original_tier,omitempty"`
	OriginalModel string    `json:"original_model,omitempty"`
}

// TierModels holds the canonical model of a tier and its ordered substitutes
type TierModels struct {
	Model       string   `json:"model" yaml:"model"`
	Substitutes []string `json:"substitutes,omitempty" yaml:"substitutes"`
}

// TierModelMap maps each tier to the models that can serve it
type TierModelMap map[ModelTier]TierModels

// DefaultTierModelMap returns the stock tier assignments
func DefaultTierModelMap() TierModelMap {
	return TierModelMap{
		TierFast: {
			Model:       "qwen2.5-7b",
			Substitutes: []string{"mistral", "llama3.1-8b", "gpt-3.5-turbo"},
		},
		TierQuality: {
			Model:       "midnight-miqu-70b",
			Substitutes: []string{"llama3.1-70b", "qwen2.5-72b", "gpt-4o"},
		},
		TierCode: {
			Model:       "qwen2.5-coder-7b",
			Substitutes: []string{"deepseek-coder-v2", "codellama-13b"},
		},
	}
}

// ModelFor returns the canonical model for a tier
func (m TierModelMap) ModelFor(tier ModelTier) string {
	return m[tier].Model
}

// Clone returns a deep copy of the map
func (m TierModelMap) Clone() TierModelMap {
	out := make(TierModelMap, len(m))
	for tier, tm := range m {
		out[tier] = TierModels{
			Model:       tm.Model,
			Substitutes: append([]string(nil), tm.Substitutes...),
		}
	}
	return out
}

// Validate checks that every tier has a canonical model
func (m TierModelMap) Validate() error {
	for _, tier := range AllTiers {
		tm, ok := m[tier]
		if !ok || strings.TrimSpace(tm.Model) == "" {
			return fmt.Errorf("no model configured for tier %s", tier)
		}
	}
	return nil
}

// ModelSet is a set of model identifiers
type ModelSet map[string]struct{}

// NewModelSet builds a set from the given names, skipping blanks
func NewModelSet(names ...string) ModelSet {
	s := make(ModelSet, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		s[n] = struct{}{}
	}
	return s
}

// Contains reports whether name is in the set. A nil set contains nothing.
func (s ModelSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Len returns the number of models in the set
func (s ModelSet) Len() int {
	return len(s)
}

// Sorted returns the members in lexical order
func (s ModelSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
