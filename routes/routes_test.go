package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/hydra-router/app"
	"github.com/upb/hydra-router/config"
	"github.com/upb/hydra-router/middleware"
	"go.uber.org/zap/zaptest"
)

func newTestServer(t *testing.T, secret string) *httptest.Server {
	t.Helper()
	cfg := &config.Config{
		Environment: "test",
		Catalog: config.CatalogConfig{
			RefreshSpec:  "@every 1h",
			MaxStaleness: time.Minute,
		},
		Auth: config.AuthConfig{JWTSecret: secret},
		CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:5173"}},
		Observability: config.ObservabilityConfig{
			LogLevel:       "info",
			MetricsEnabled: true,
		},
	}

	deps, err := app.NewDependencies(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close(context.Background()) })

	srv := httptest.NewServer(SetupRoutes(deps))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestSetupRoutes_Open(t *testing.T) {
	srv := newTestServer(t, "")

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"healthz", http.MethodGet, "/healthz", "", http.StatusOK},
		{"readyz", http.MethodGet, "/readyz", "", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK},
		{"status", http.MethodGet, "/api/v1/status", "", http.StatusOK},
		{"tiers", http.MethodGet, "/api/v1/tiers", "", http.StatusOK},
		{"route", http.MethodPost, "/api/v1/route", `{"prompt":"Hello!"}`, http.StatusOK},
		{"route fallback", http.MethodPost, "/api/v1/route/fallback", `{"prompt":"Hello!"}`, http.StatusOK},
		{"route model", http.MethodPost, "/api/v1/route/model", `{"prompt":"Hello!"}`, http.StatusOK},
		{"models", http.MethodGet, "/api/v1/models", "", http.StatusOK},
		{"refresh open without auth", http.MethodPost, "/api/v1/models/refresh", "", http.StatusOK},
		{"decisions without database", http.MethodGet, "/api/v1/decisions", "", http.StatusServiceUnavailable},
		{"unknown", http.MethodGet, "/nope", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, tt.method, srv.URL+tt.path, "", tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestSetupRoutes_Auth(t *testing.T) {
	const secret = "s3cret"
	srv := newTestServer(t, secret)

	signer, err := middleware.NewHMACValidator(secret, "", "")
	require.NoError(t, err)
	reader, err := signer.SignToken("gateway", nil, time.Minute)
	require.NoError(t, err)
	admin, err := signer.SignToken("ops", []string{AdminRole}, time.Minute)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/healthz", "", "").StatusCode)
	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/api/v1/status", "", "").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, do(t, http.MethodPost, srv.URL+"/api/v1/route", "", `{"prompt":"Hello!"}`).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, do(t, http.MethodPost, srv.URL+"/api/v1/route", "garbage", `{"prompt":"Hello!"}`).StatusCode)
	assert.Equal(t, http.StatusOK, do(t, http.MethodPost, srv.URL+"/api/v1/route", reader, `{"prompt":"Hello!"}`).StatusCode)

	assert.Equal(t, http.StatusForbidden, do(t, http.MethodPost, srv.URL+"/api/v1/models/refresh", reader, "").StatusCode)
	assert.Equal(t, http.StatusOK, do(t, http.MethodPost, srv.URL+"/api/v1/models/refresh", admin, "").StatusCode)
}
