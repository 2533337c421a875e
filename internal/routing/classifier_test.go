package routing

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var samplePrompts = []string{
	"",
	"Hello!",
	"hi there",
	"What is the capital of France?",
	"Summarise this paragraph about gardening in two sentences.",
	"Analyze the implications of quantum computing on modern cryptography, comparing pros and cons of mitigation strategies.",
	"Analyze this complex problem",
	"```python\ndef f(): pass\n```\nFix this function",
	"Refactor the billing module so it is easier to test",
	"Write a haiku about autumn",
	"Give a thorough, in-depth critique of the novel; contrast its themes with the author's earlier work, and justify your view.",
	strings.Repeat("lorem ipsum dolor sit amet ", 80),
}

func TestRoute_Scenarios(t *testing.T) {
	tests := []struct {
		name      string
		req       RoutingRequest
		wantTier  ModelTier
		wantModel string
	}{
		{
			name:      "greeting goes to the fast tier",
			req:       RoutingRequest{Prompt: "Hello!"},
			wantTier:  TierFast,
			wantModel: "qwen2.5-7b",
		},
		{
			name:      "analytical question goes to the quality tier",
			req:       RoutingRequest{Prompt: "Analyze the implications of quantum computing on modern cryptography, comparing pros and cons of mitigation strategies."},
			wantTier:  TierQuality,
			wantModel: "midnight-miqu-70b",
		},
		{
			name:      "fenced code goes to the code tier",
			req:       RoutingRequest{Prompt: "```python\ndef f(): pass\n```\nFix this function"},
			wantTier:  TierCode,
			wantModel: "qwen2.5-coder-7b",
		},
		{
			name:      "fenced code ignores the speed preference",
			req:       RoutingRequest{Prompt: "```python\ndef f(): pass\n```\nFix this function", PreferSpeed: true},
			wantTier:  TierCode,
			wantModel: "qwen2.5-coder-7b",
		},
		{
			name:      "empty prompt",
			req:       RoutingRequest{},
			wantTier:  TierFast,
			wantModel: "qwen2.5-7b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Route(tt.req)
			assert.Equal(t, tt.wantTier, d.Tier)
			assert.Equal(t, tt.wantModel, d.Model)
			assert.NotEmpty(t, d.Reason)
			assert.False(t, d.Substituted)
		})
	}
}

func TestRoute_EmptyPrompt(t *testing.T) {
	d := Route(RoutingRequest{Prompt: "  ", PreferQuality: true})
	assert.Equal(t, TierFast, d.Tier)
	assert.Equal(t, ReasonEmptyPrompt, d.Reason)
	assert.Less(t, d.Confidence, 0.5)
}

func TestRoute_EverydayWordsStayOffTheCodeTier(t *testing.T) {
	for _, prompt := range []string{
		"What is the function of the liver?",
		"What is the dress code?",
		"Thanks for your help\nfrom Alice",
	} {
		d := Route(RoutingRequest{Prompt: prompt})
		assert.Equal(t, TierFast, d.Tier, prompt)
		assert.Equal(t, "qwen2.5-7b", d.Model, prompt)
	}
}

func TestRoute_CodeReasonCitesIndicator(t *testing.T) {
	d := Route(RoutingRequest{Prompt: "Please debug my script"})
	require.Equal(t, TierCode, d.Tier)
	assert.Contains(t, d.Reason, `keyword "debug"`)
}

func TestRoute_Properties(t *testing.T) {
	c := DefaultClassifier()
	models := c.Models()

	for _, p := range samplePrompts {
		for _, req := range []RoutingRequest{
			{Prompt: p},
			{Prompt: p, PreferQuality: true},
			{Prompt: p, PreferSpeed: true},
			{Prompt: p, SystemPrompt: "You are a helpful assistant."},
		} {
			d := c.Route(req)

			assert.NotEmpty(t, d.Reason, "prompt %q", p)
			assert.GreaterOrEqual(t, d.Confidence, 0.0)
			assert.LessOrEqual(t, d.Confidence, 1.0)
			assert.Equal(t, models.ModelFor(d.Tier), d.Model)
			if d.Tier == TierCode {
				assert.True(t, d.Signals.HasCodeSignal(), "CODE without a code signal for %q", p)
			}
		}

		neutral := c.Route(RoutingRequest{Prompt: p})
		quality := c.Route(RoutingRequest{Prompt: p, PreferQuality: true})
		assert.GreaterOrEqual(t, quality.Complexity, neutral.Complexity, "prompt %q", p)
		if neutral.Tier == TierQuality {
			assert.Equal(t, TierQuality, quality.Tier, "quality preference demoted %q", p)
		}
	}
}

func TestRoute_MonotonicInLength(t *testing.T) {
	prev := -1.0
	prompt := "Summarise"
	for i := 0; i < 150; i++ {
		prompt += " garden"
		d := Route(RoutingRequest{Prompt: prompt})
		assert.GreaterOrEqual(t, d.Complexity, prev)
		prev = d.Complexity
	}
}

func TestSelectModel(t *testing.T) {
	assert.Equal(t, "qwen2.5-7b", SelectModel("Hello!"))
	assert.Equal(t, "qwen2.5-coder-7b", DefaultClassifier().SelectModel(RoutingRequest{Prompt: "implement a trie in golang"}))
}

func TestNewClassifier(t *testing.T) {
	t.Run("custom threshold changes the outcome", func(t *testing.T) {
		cfg := DefaultRouterConfig()
		cfg.QualityThreshold = 0.9
		c, err := NewClassifier(cfg)
		require.NoError(t, err)

		d := c.Route(RoutingRequest{Prompt: "Analyze the implications of quantum computing on modern cryptography, comparing pros and cons of mitigation strategies."})
		assert.Equal(t, TierFast, d.Tier)
	})

	t.Run("custom models", func(t *testing.T) {
		cfg := DefaultRouterConfig()
		cfg.Models[TierFast] = TierModels{Model: "phi-3-mini"}
		c, err := NewClassifier(cfg)
		require.NoError(t, err)
		assert.Equal(t, "phi-3-mini", c.SelectModel(RoutingRequest{Prompt: "Hello!"}))
	})

	t.Run("config is copied", func(t *testing.T) {
		cfg := DefaultRouterConfig()
		c, err := NewClassifier(cfg)
		require.NoError(t, err)

		cfg.Models[TierFast] = TierModels{Model: "mutated"}
		cfg.CodeKeywords[0] = "mutated"
		assert.Equal(t, "qwen2.5-7b", c.SelectModel(RoutingRequest{Prompt: "Hello!"}))
		assert.Equal(t, "debug", c.Config().CodeKeywords[0])
	})

	t.Run("invalid configs", func(t *testing.T) {
		mutations := map[string]func(*RouterConfig){
			"threshold zero":     func(c *RouterConfig) { c.QualityThreshold = 0 },
			"threshold one":      func(c *RouterConfig) { c.QualityThreshold = 1 },
			"negative margin":    func(c *RouterConfig) { c.BoundaryMargin = -0.1 },
			"zero length scale":  func(c *RouterConfig) { c.Weights.LengthScale = 0 },
			"weight above one":   func(c *RouterConfig) { c.Weights.MarkerWeight = 1.5 },
			"no code keywords":   func(c *RouterConfig) { c.CodeKeywords = nil },
			"missing tier model": func(c *RouterConfig) { delete(c.Models, TierCode) },
			"zero penalty":       func(c *RouterConfig) { c.SubstitutionPenalty = 0 },
		}
		for name, mutate := range mutations {
			t.Run(name, func(t *testing.T) {
				cfg := DefaultRouterConfig()
				mutate(&cfg)
				_, err := NewClassifier(cfg)
				assert.Error(t, err)
			})
		}
	})
}

func TestClassifier_ConcurrentUse(t *testing.T) {
	c := DefaultClassifier()
	want := make([]RoutingDecision, len(samplePrompts))
	for i, p := range samplePrompts {
		want[i] = c.Route(RoutingRequest{Prompt: p})
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i, p := range samplePrompts {
				assert.Equal(t, want[i], c.Route(RoutingRequest{Prompt: p}))
			}
		}()
	}
	wg.Wait()
}

func TestParseModelTier(t *testing.T) {
	tier, err := ParseModelTier(" quality ")
	require.NoError(t, err)
	assert.Equal(t, TierQuality, tier)

	_, err = ParseModelTier("turbo")
	assert.Error(t, err)
}
