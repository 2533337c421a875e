package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Source lists the model names a backend can currently serve
type Source interface {
	Name() string
	ListModels(ctx context.Context) ([]string, error)
}

// StaticSource serves a fixed model list
type StaticSource []string

// Name returns the source name
func (s StaticSource) Name() string {
	return "static"
}

// ListModels returns a copy of the configured list
func (s StaticSource) ListModels(ctx context.Context) ([]string, error) {
	out := make([]string, len(s))
	copy(out, s)
	return out, nil
}

// LiteLLMConfig configures a LiteLLMSource
type LiteLLMConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Headers map[string]string
}

// LiteLLMSource lists models from a LiteLLM proxy or any OpenAI-compatible
// endpoint exposing GET /models
type LiteLLMSource struct {
	config     LiteLLMConfig
	httpClient *http.Client
}

type modelListResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// NewLiteLLMSource creates a new source. BaseURL is required.
func NewLiteLLMSource(config LiteLLMConfig) (*LiteLLMSource, error) {
	if strings.TrimSpace(config.BaseURL) == "" {
		return nil, fmt.Errorf("litellm base URL is required")
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}

	return &LiteLLMSource{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// Name returns the source name
func (s *LiteLLMSource) Name() string {
	return "litellm"
}

// ListModels fetches the model list
func (s *LiteLLMSource) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.BaseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if s.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	}
	for k, v := range s.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("model list request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read model list: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model list returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed modelListResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode model list: %w", err)
	}

	models := make([]string, 0, len(parsed.Data))
	for _, m := range parsed.Data {
		if id := strings.TrimSpace(m.ID); id != "" {
			models = append(models, id)
		}
	}
	return models, nil
}
