package routing

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNoAvailableModel matches every *NoAvailableModelError via errors.Is
var ErrNoAvailableModel = errors.New("no available model")

// NoAvailableModelError is returned when neither the chosen model nor any
// substitute is in the availability set
type NoAvailableModelError struct {
	AttemptedTier  ModelTier
	AttemptedModel string
	Unavailable    []string // every candidate that was tried, sorted
}

// Error implements the error interface
func (e *NoAvailableModelError) Error() string {
	return fmt.Sprintf("no available model for tier %s (tried: %s)",
		e.AttemptedTier, strings.Join(e.Unavailable, ", "))
}

// Is implements errors.Is
func (e *NoAvailableModelError) Is(target error) bool {
	return target == ErrNoAvailableModel
}

// substitutionOrder is the fixed cross-tier search order
var substitutionOrder = []ModelTier{TierQuality, TierCode, TierFast}

type candidate struct {
	tier  ModelTier
	model string
}

// candidates lists substitutes for an unavailable pick: the same tier's
// substitutes first, then every other tier in substitutionOrder
func candidates(models TierModelMap, original ModelTier) []candidate {
	var out []candidate
	for _, m := range models[original].Substitutes {
		out = append(out, candidate{tier: original, model: m})
	}
	for _, tier := range substitutionOrder {
		if tier == original {
			continue
		}
		tm := models[tier]
		out = append(out, candidate{tier: tier, model: tm.Model})
		for _, m := range tm.Substitutes {
			out = append(out, candidate{tier: tier, model: m})
		}
	}
	return out
}

// resolve swaps decision's model for the first available candidate. A
// decision whose model is already available is returned unchanged.
func resolve(decision RoutingDecision, models TierModelMap, available ModelSet, penalty float64) (RoutingDecision, error) {
	if available.Contains(decision.Model) {
		return decision, nil
	}

	tried := map[string]struct{}{decision.Model: {}}
	for _, c := range candidates(models, decision.Tier) {
		if _, seen := tried[c.model]; seen {
			continue
		}
		if !available.Contains(c.model) {
			tried[c.model] = struct{}{}
			continue
		}

		out := decision
		out.Tier = c.tier
		out.Model = c.model
		out.Confidence = clamp01(decision.Confidence * penalty)
		out.Substituted = true
		out.OriginalTier = decision.Tier
		out.OriginalModel = decision.Model
		out.Reason = fmt.Sprintf("substituted %s (%s) for unavailable %s (%s); original reason: %s",
			c.model, c.tier, decision.Model, decision.Tier, decision.Reason)
		return out, nil
	}

	unavailable := make([]string, 0, len(tried))
	for m := range tried {
		unavailable = append(unavailable, m)
	}
	sort.Strings(unavailable)

	return RoutingDecision{}, &NoAvailableModelError{
		AttemptedTier:  decision.Tier,
		AttemptedModel: decision.Model,
		Unavailable:    unavailable,
	}
}
