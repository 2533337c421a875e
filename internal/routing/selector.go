package routing

import (
	"fmt"
	"math"
	"strings"
)

// ReasonEmptyPrompt is the reason attached to every empty-prompt decision
const ReasonEmptyPrompt = "empty or trivial prompt"

// maxCitedIndicators caps how many code indicators a reason lists
const maxCitedIndicators = 3

// boundaryEpsilon absorbs float error so both edges of the zone are inclusive
const boundaryEpsilon = 1e-9

// Selector turns an Assessment into a tier and a human-readable reason
type Selector struct {
	threshold float64
	margin    float64
}

// NewSelector creates a selector for the given quality threshold and tie-break margin
func NewSelector(threshold, margin float64) Selector {
	return Selector{threshold: threshold, margin: margin}
}

// Select picks the tier. Rules apply in order: empty prompt, code signal,
// boundary tie-break (only without preference flags), threshold comparison.
func (s Selector) Select(a Assessment, req RoutingRequest) (ModelTier, string) {
	if a.Signals.IsEmpty {
		return TierFast, ReasonEmptyPrompt
	}

	if a.WantsCodeTier {
		return TierCode, "code task detected: " + citeIndicators(a.Signals.CodeIndicators)
	}

	if !req.HasPreference() && s.inBoundaryZone(a.Complexity) {
		return TierFast, fmt.Sprintf(
			"complexity %.2f within %.2f of quality threshold %.2f; favoring latency",
			a.Complexity, s.margin, s.threshold)
	}

	if a.Complexity >= s.threshold {
		reason := fmt.Sprintf("complexity %.2f >= quality threshold %.2f", a.Complexity, s.threshold)
		if len(a.Signals.ComplexMarkers) > 0 {
			reason += " (markers: " + strings.Join(a.Signals.ComplexMarkers, ", ") + ")"
		}
		if req.PreferQuality && a.RawComplexity < s.threshold {
			reason += "; raised by quality preference"
		}
		return TierQuality, reason
	}

	if a.Signals.IsSimpleGreetingOrFactoid {
		return TierFast, fmt.Sprintf("simple greeting or factoid (complexity %.2f)", a.Complexity)
	}

	reason := fmt.Sprintf("complexity %.2f below quality threshold %.2f", a.Complexity, s.threshold)
	if req.PreferSpeed && a.RawComplexity >= s.threshold {
		reason += "; lowered by speed preference"
	}
	return TierFast, reason
}

// inBoundaryZone reports whether c is within ±margin of the threshold
func (s Selector) inBoundaryZone(c float64) bool {
	return math.Abs(c-s.threshold) <= s.margin+boundaryEpsilon
}

func citeIndicators(indicators []string) string {
	if len(indicators) == 0 {
		return "code signal"
	}
	if len(indicators) > maxCitedIndicators {
		return strings.Join(indicators[:maxCitedIndicators], ", ") +
			fmt.Sprintf(" (+%d more)", len(indicators)-maxCitedIndicators)
	}
	return strings.Join(indicators, ", ")
}
