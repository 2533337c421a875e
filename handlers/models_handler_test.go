package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/hydra-router/internal/catalog"
	"go.uber.org/zap"
)

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) Snapshot() catalog.Snapshot {
	return m.Called().Get(0).(catalog.Snapshot)
}

func (m *MockCatalog) Stale(maxAge time.Duration) bool {
	return m.Called(maxAge).Bool(0)
}

func (m *MockCatalog) Refresh(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func TestModelsHandler_List(t *testing.T) {
	snap := catalog.Snapshot{Models: []string{"mistral", "qwen2.5-7b"}, Source: "litellm", RefreshedAt: time.Now()}

	c := new(MockCatalog)
	c.On("Snapshot").Return(snap)
	c.On("Stale", 2*time.Minute).Return(true)

	w := httptest.NewRecorder()
	NewModelsHandler(c, 2*time.Minute, zap.NewNop()).HandleList(w, httptest.NewRequest(http.MethodGet, "/models", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var response struct {
		Data CatalogView `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, snap.Models, response.Data.Models)
	assert.Equal(t, "litellm", response.Data.Source)
	assert.True(t, response.Data.Stale)
}

func TestModelsHandler_Refresh(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		c := new(MockCatalog)
		c.On("Refresh", mock.Anything).Return(nil)
		c.On("Snapshot").Return(catalog.Snapshot{Models: []string{"mistral"}, Source: "static"})

		w := httptest.NewRecorder()
		NewModelsHandler(c, 0, zap.NewNop()).HandleRefresh(w, httptest.NewRequest(http.MethodPost, "/models/refresh", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "mistral")
		c.AssertNotCalled(t, "Stale", mock.Anything)
	})

	t.Run("upstream failure", func(t *testing.T) {
		c := new(MockCatalog)
		c.On("Refresh", mock.Anything).Return(errors.New("model list returned status 502"))

		w := httptest.NewRecorder()
		NewModelsHandler(c, time.Minute, zap.NewNop()).HandleRefresh(w, httptest.NewRequest(http.MethodPost, "/models/refresh", nil))

		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestStatusHandler(t *testing.T) {
	c := new(MockCatalog)
	c.On("Snapshot").Return(catalog.Snapshot{Models: []string{"a", "b"}, Source: "static"})

	w := httptest.NewRecorder()
	NewStatusHandler("test", c, false, true).HandleStatus(w, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var response struct {
		Data StatusResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "hydra-router", response.Data.Service)
	assert.Equal(t, "test", response.Data.Environment)
	assert.Equal(t, "static", response.Data.CatalogSource)
	assert.Equal(t, 2, response.Data.CatalogModels)
	assert.False(t, response.Data.DecisionLog)
	assert.True(t, response.Data.Auth)
}
