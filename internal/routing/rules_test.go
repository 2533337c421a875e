package routing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRules = `
quality_threshold: 0.7
boundary_margin: 0.02
weights:
  marker_weight: 0.25
extra_code_keywords: [terraform, dockerfile]
complex_markers: [root cause, postmortem]
tiers:
  fast:
    model: phi-3-mini
  QUALITY:
    substitutes: [claude-3-haiku]
`

func TestParseRules_Apply(t *testing.T) {
	rules, err := ParseRules([]byte(sampleRules))
	require.NoError(t, err)

	base := DefaultRouterConfig()
	cfg, err := rules.Apply(base)
	require.NoError(t, err)

	assert.Equal(t, 0.7, cfg.QualityThreshold)
	assert.Equal(t, 0.02, cfg.BoundaryMargin)
	assert.Equal(t, base.SubstitutionPenalty, cfg.SubstitutionPenalty)

	assert.Equal(t, 0.25, cfg.Weights.MarkerWeight)
	assert.Equal(t, base.Weights.LengthScale, cfg.Weights.LengthScale, "unset weights keep their value")

	assert.Contains(t, cfg.CodeKeywords, "debug")
	assert.Contains(t, cfg.CodeKeywords, "terraform")
	assert.Equal(t, []string{"root cause", "postmortem"}, cfg.ComplexMarkers)

	assert.Equal(t, "phi-3-mini", cfg.Models[TierFast].Model)
	assert.Equal(t, base.Models[TierFast].Substitutes, cfg.Models[TierFast].Substitutes)
	assert.Equal(t, "midnight-miqu-70b", cfg.Models[TierQuality].Model)
	assert.Equal(t, []string{"claude-3-haiku"}, cfg.Models[TierQuality].Substitutes)

	// base is untouched
	assert.Equal(t, "qwen2.5-7b", base.Models[TierFast].Model)

	c, err := NewClassifier(cfg)
	require.NoError(t, err)
	assert.Equal(t, TierCode, c.Route(RoutingRequest{Prompt: "Review this Dockerfile"}).Tier)
}

func TestRules_Errors(t *testing.T) {
	t.Run("malformed yaml", func(t *testing.T) {
		_, err := ParseRules([]byte("quality_threshold: [oops"))
		assert.Error(t, err)
	})

	t.Run("unknown tier", func(t *testing.T) {
		rules, err := ParseRules([]byte("tiers:\n  turbo:\n    model: x\n"))
		require.NoError(t, err)
		_, err = rules.Apply(DefaultRouterConfig())
		assert.ErrorContains(t, err, "unknown model tier")
	})

	t.Run("out of range threshold", func(t *testing.T) {
		rules, err := ParseRules([]byte("quality_threshold: 1.5\n"))
		require.NoError(t, err)
		_, err = rules.Apply(DefaultRouterConfig())
		assert.ErrorContains(t, err, "quality threshold")
	})

	t.Run("bad weights block", func(t *testing.T) {
		rules, err := ParseRules([]byte("weights:\n  base: [1, 2]\n"))
		require.NoError(t, err)
		_, err = rules.Apply(DefaultRouterConfig())
		assert.Error(t, err)
	})
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleRules), 0o600))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	require.NotNil(t, rules.QualityThreshold)
	assert.Equal(t, 0.7, *rules.QualityThreshold)

	_, err = LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
