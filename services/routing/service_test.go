package routing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/hydra-router/internal/observability"
	router "github.com/upb/hydra-router/internal/routing"
	"github.com/upb/hydra-router/models"
	"github.com/upb/hydra-router/repositories"
	"github.com/upb/hydra-router/services"
	"go.uber.org/zap/zaptest"
)

type MockDecisionRepository struct {
	mock.Mock
}

func (m *MockDecisionRepository) Insert(ctx context.Context, rec *models.RoutingDecisionRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *MockDecisionRepository) InsertBatch(ctx context.Context, recs []*models.RoutingDecisionRecord) error {
	return m.Called(ctx, recs).Error(0)
}

func (m *MockDecisionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.RoutingDecisionRecord, error) {
	args := m.Called(ctx, id)
	if rec := args.Get(0); rec != nil {
		return rec.(*models.RoutingDecisionRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDecisionRepository) List(ctx context.Context, filter repositories.DecisionFilter, limit, offset int) ([]*models.RoutingDecisionRecord, error) {
	args := m.Called(ctx, filter, limit, offset)
	if recs := args.Get(0); recs != nil {
		return recs.([]*models.RoutingDecisionRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDecisionRepository) CountByTier(ctx context.Context, since time.Time) ([]models.TierCount, error) {
	args := m.Called(ctx, since)
	if counts := args.Get(0); counts != nil {
		return counts.([]models.TierCount), args.Error(1)
	}
	return nil, args.Error(1)
}

type fakeRecorder struct {
	mu   sync.Mutex
	recs []*models.RoutingDecisionRecord
	err  error
}

func (f *fakeRecorder) Record(rec *models.RoutingDecisionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs = append(f.recs, rec)
	return f.err
}

type staticCatalog []string

func (c staticCatalog) Available() router.ModelSet {
	return router.NewModelSet(c...)
}

type testDeps struct {
	svc      *Service
	repo     *MockDecisionRepository
	recorder *fakeRecorder
	metrics  *observability.Metrics
}

func newTestService(t *testing.T, catalog Availability) testDeps {
	repo := new(MockDecisionRepository)
	rec := &fakeRecorder{}
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	svc := NewService(router.DefaultClassifier(), catalog, rec, repo, metrics, zaptest.NewLogger(t))
	return testDeps{svc: svc, repo: repo, recorder: rec, metrics: metrics}
}

func TestService_Route(t *testing.T) {
	tests := []struct {
		name  string
		in    RouteInput
		tier  router.ModelTier
		model string
	}{
		{
			name:  "greeting",
			in:    RouteInput{Prompt: "Hello!"},
			tier:  router.TierFast,
			model: "qwen2.5-7b",
		},
		{
			name: "analytical prompt",
			in: RouteInput{Prompt: "Explain the implications of quantum entanglement on modern cryptography, " +
				"considering both theoretical vulnerabilities and practical implementation challenges."},
			tier:  router.TierQuality,
			model: "midnight-miqu-70b",
		},
		{
			name:  "code with speed preference",
			in:    RouteInput{Prompt: "```python\ndef f(): pass\n```\nFix this function", PreferSpeed: true},
			tier:  router.TierCode,
			model: "qwen2.5-coder-7b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestService(t, nil)
			tt.in.RequestID = "req-" + tt.name

			res, err := d.svc.Route(context.Background(), tt.in)
			require.NoError(t, err)

			assert.Equal(t, tt.tier, res.Tier)
			assert.Equal(t, tt.model, res.Model)
			assert.NotEmpty(t, res.Reason)
			assert.NotEqual(t, uuid.Nil, res.ID)

			require.Len(t, d.recorder.recs, 1)
			assert.Equal(t, res.ID, d.recorder.recs[0].ID)
			assert.Equal(t, tt.in.RequestID, d.recorder.recs[0].RequestID)
			assert.Equal(t, 1.0, testutil.ToFloat64(d.metrics.Decisions.WithLabelValues(tt.tier.String(), "false")))
		})
	}
}

func TestService_Route_RecorderFailureIgnored(t *testing.T) {
	d := newTestService(t, nil)
	d.recorder.err = errors.New("decision log buffer full")

	res, err := d.svc.Route(context.Background(), RouteInput{Prompt: "Hello!"})
	require.NoError(t, err)
	assert.Equal(t, "qwen2.5-7b", res.Model)
}

func TestService_RouteWithFallback(t *testing.T) {
	t.Run("explicit availability substitutes", func(t *testing.T) {
		d := newTestService(t, nil)

		res, err := d.svc.RouteWithFallback(context.Background(), RouteInput{
			Prompt:          "Analyze this complex problem",
			AvailableModels: []string{"gpt-3.5-turbo", "mistral"},
		})
		require.NoError(t, err)

		assert.Contains(t, []string{"gpt-3.5-turbo", "mistral"}, res.Model)
		assert.True(t, res.Substituted)
		assert.Contains(t, res.Reason, "substituted")
		assert.Equal(t, 1.0, testutil.ToFloat64(d.metrics.Decisions.WithLabelValues(res.Tier.String(), "true")))
	})

	t.Run("catalog used when no list given", func(t *testing.T) {
		d := newTestService(t, staticCatalog{"qwen2.5-7b"})

		res, err := d.svc.RouteWithFallback(context.Background(), RouteInput{Prompt: "Hello!"})
		require.NoError(t, err)
		assert.Equal(t, "qwen2.5-7b", res.Model)
		assert.False(t, res.Substituted)
	})

	t.Run("empty list means nothing available", func(t *testing.T) {
		d := newTestService(t, staticCatalog{"qwen2.5-7b"})

		_, err := d.svc.RouteWithFallback(context.Background(), RouteInput{Prompt: "Hello!", AvailableModels: []string{}})
		require.Error(t, err)
		assert.True(t, services.IsUnavailableError(err))
		assert.ErrorIs(t, err, router.ErrNoAvailableModel)
		assert.Equal(t, "FAST", services.GetErrorDetails(err)["attempted_tier"])
		assert.Equal(t, 1.0, testutil.ToFloat64(d.metrics.NoModel.WithLabelValues("FAST")))
		assert.Empty(t, d.recorder.recs)
	})

	t.Run("no catalog configured", func(t *testing.T) {
		d := newTestService(t, nil)

		_, err := d.svc.RouteWithFallback(context.Background(), RouteInput{Prompt: "Hello!"})
		require.Error(t, err)
		assert.True(t, services.IsExternalError(err))
	})
}

func TestService_SelectModel(t *testing.T) {
	d := newTestService(t, nil)

	model, err := d.svc.SelectModel(context.Background(), RouteInput{Prompt: "Hello!"})
	require.NoError(t, err)
	assert.Equal(t, "qwen2.5-7b", model)
}

func TestService_ListDecisions(t *testing.T) {
	d := newTestService(t, nil)
	rec := models.NewRoutingDecisionRecord(router.RoutingRequest{Prompt: "Hello!"}, router.Route(router.RoutingRequest{Prompt: "Hello!"}))

	d.repo.On("List", mock.Anything, repositories.DecisionFilter{Tier: "FAST"}, DefaultListLimit, 0).
		Return([]*models.RoutingDecisionRecord{rec}, nil)

	recs, err := d.svc.ListDecisions(context.Background(), ListFilter{Tier: "fast"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, rec.ID, recs[0].ID)
	d.repo.AssertExpectations(t)
}

func TestService_ListDecisions_Validation(t *testing.T) {
	d := newTestService(t, nil)

	tests := []ListFilter{
		{Limit: -1},
		{Limit: MaxListLimit + 1},
		{Offset: -5},
		{Tier: "TURBO"},
	}
	for _, f := range tests {
		t.Run(fmt.Sprintf("%+v", f), func(t *testing.T) {
			_, err := d.svc.ListDecisions(context.Background(), f)
			require.Error(t, err)
			assert.True(t, services.IsValidationError(err))
		})
	}
	d.repo.AssertNotCalled(t, "List", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_ListDecisions_EmptyIsNotNil(t *testing.T) {
	d := newTestService(t, nil)
	d.repo.On("List", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)

	recs, err := d.svc.ListDecisions(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestService_GetDecision(t *testing.T) {
	id := uuid.New()

	t.Run("found", func(t *testing.T) {
		d := newTestService(t, nil)
		d.repo.On("GetByID", mock.Anything, id).Return(&models.RoutingDecisionRecord{ID: id, Tier: "CODE"}, nil)

		rec, err := d.svc.GetDecision(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "CODE", rec.Tier)
	})

	t.Run("not found", func(t *testing.T) {
		d := newTestService(t, nil)
		d.repo.On("GetByID", mock.Anything, id).Return(nil, fmt.Errorf("routing decision %s: %w", id, repositories.ErrNotFound))

		_, err := d.svc.GetDecision(context.Background(), id)
		require.Error(t, err)
		assert.True(t, services.IsNotFoundError(err))
	})

	t.Run("database error", func(t *testing.T) {
		d := newTestService(t, nil)
		d.repo.On("GetByID", mock.Anything, id).Return(nil, errors.New("connection refused"))

		_, err := d.svc.GetDecision(context.Background(), id)
		require.Error(t, err)
		assert.True(t, services.IsInternalError(err))
	})
}

func TestService_TierStats(t *testing.T) {
	d := newTestService(t, nil)
	since := time.Now().Add(-time.Hour)

	d.repo.On("CountByTier", mock.Anything, since).Return([]models.TierCount{
		{Tier: "QUALITY", Count: 4, Substituted: 1},
	}, nil)

	stats, err := d.svc.TierStats(context.Background(), since)
	require.NoError(t, err)
	assert.Equal(t, []models.TierCount{
		{Tier: "FAST"},
		{Tier: "QUALITY", Count: 4, Substituted: 1},
		{Tier: "CODE"},
	}, stats)
}

func TestService_DecisionLogMissing(t *testing.T) {
	svc := NewService(nil, nil, nil, nil, nil, zaptest.NewLogger(t))

	_, err := svc.ListDecisions(context.Background(), ListFilter{})
	assert.True(t, services.IsUnavailableError(err))

	_, err = svc.GetDecision(context.Background(), uuid.New())
	assert.True(t, services.IsUnavailableError(err))

	_, err = svc.TierStats(context.Background(), time.Time{})
	assert.True(t, services.IsUnavailableError(err))

	// routing still works without a log or metrics
	res, err := svc.Route(context.Background(), RouteInput{Prompt: "Hello!"})
	require.NoError(t, err)
	assert.Equal(t, router.TierFast, res.Tier)
}
