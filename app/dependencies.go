package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/upb/hydra-router/config"
	"github.com/upb/hydra-router/handlers"
	"github.com/upb/hydra-router/internal/catalog"
	"github.com/upb/hydra-router/internal/observability"
	router "github.com/upb/hydra-router/internal/routing"
	"github.com/upb/hydra-router/middleware"
	"github.com/upb/hydra-router/repositories"
	"github.com/upb/hydra-router/repositories/postgres"
	"github.com/upb/hydra-router/services/decisionlog"
	routingsvc "github.com/upb/hydra-router/services/routing"
	"go.uber.org/zap"
)

// recorderStopTimeout bounds how long shutdown waits for pending decision writes
const recorderStopTimeout = 5 * time.Second

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config   *config.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Metrics  *observability.Metrics // nil when metrics are disabled

	// Decision log, nil without a database
	RepoFactory *postgres.RepositoryFactory
	DB          *postgres.DB
	Decisions   repositories.DecisionRepository
	Recorder    *decisionlog.Recorder

	// Routing
	Classifier   *router.Classifier
	Catalog      *catalog.Catalog
	CatalogStore *catalog.RedisStore
	Scheduler    *catalog.Scheduler
	Routing      *routingsvc.Service

	// HTTP
	AuthMiddleware  *middleware.AuthMiddleware // nil when auth is disabled
	RouteHandler    *handlers.RouteHandler
	DecisionHandler *handlers.DecisionHandler
	ModelsHandler   *handlers.ModelsHandler
	HealthHandler   *handlers.HealthHandler
	StatusHandler   *handlers.StatusHandler
}

// newRepositoryFactory opens the decision log database. Tests swap it for a
// factory over sqlmock.
var newRepositoryFactory = postgres.NewRepositoryFactory

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	deps.initMetrics(cfg)

	if err := deps.initDatabase(ctx, cfg); err != nil {
		deps.closeQuietly(ctx)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	classifier, err := BuildClassifier(cfg.Routing)
	if err != nil {
		deps.closeQuietly(ctx)
		return nil, fmt.Errorf("failed to initialize classifier: %w", err)
	}
	deps.Classifier = classifier

	if err := deps.initCatalog(ctx, cfg); err != nil {
		deps.closeQuietly(ctx)
		return nil, fmt.Errorf("failed to initialize model catalog: %w", err)
	}

	if err := deps.initRecorder(cfg); err != nil {
		deps.closeQuietly(ctx)
		return nil, fmt.Errorf("failed to initialize decision recorder: %w", err)
	}

	deps.initServices()

	if err := deps.initAuth(cfg); err != nil {
		deps.closeQuietly(ctx)
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}

	deps.initHandlers(cfg)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

func (d *Dependencies) initMetrics(cfg *config.Config) {
	if !cfg.Observability.MetricsEnabled {
		return
	}
	d.Registry = prometheus.NewRegistry()
	d.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	d.Metrics = observability.NewMetrics(d.Registry)
}

// initDatabase opens the decision log database when one is configured
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	if cfg.Database == nil {
		d.Logger.Warn("no database configured, decision log disabled")
		return nil
	}

	factory, err := newRepositoryFactory(*cfg.Database, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}
	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if cfg.Database.InitSchema {
		if err := factory.InitSchema(ctx); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	d.Decisions = factory.NewRepositories().Decisions
	return nil
}

// BuildClassifier applies the rules file and then the environment overrides
// on top of the default configuration
func BuildClassifier(cfg config.RoutingConfig) (*router.Classifier, error) {
	rc := router.DefaultRouterConfig()

	if cfg.RulesFile != "" {
		rules, err := router.LoadRules(cfg.RulesFile)
		if err != nil {
			return nil, err
		}
		if rc, err = rules.Apply(rc); err != nil {
			return nil, fmt.Errorf("apply %s: %w", cfg.RulesFile, err)
		}
	}

	overrides := router.Rules{Tiers: map[string]router.TierModels{}}
	if cfg.QualityThreshold != 0 {
		overrides.QualityThreshold = &cfg.QualityThreshold
	}
	for tier, model := range map[router.ModelTier]string{
		router.TierFast:    cfg.FastModel,
		router.TierQuality: cfg.QualityModel,
		router.TierCode:    cfg.CodeModel,
	} {
		if model != "" {
			overrides.Tiers[tier.String()] = router.TierModels{Model: model}
		}
	}
	rc, err := overrides.Apply(rc)
	if err != nil {
		return nil, fmt.Errorf("apply environment overrides: %w", err)
	}

	return router.NewClassifier(rc)
}

// BuildSource picks the LiteLLM source when a base URL is configured. The
// static fallback defaults to every model the classifier knows about.
func BuildSource(cfg config.CatalogConfig, models router.TierModelMap) (catalog.Source, error) {
	if cfg.LiteLLMBaseURL != "" {
		return catalog.NewLiteLLMSource(catalog.LiteLLMConfig{
			BaseURL: cfg.LiteLLMBaseURL,
			APIKey:  cfg.LiteLLMAPIKey,
			Timeout: cfg.Timeout,
		})
	}
	if len(cfg.StaticModels) > 0 {
		return catalog.StaticSource(cfg.StaticModels), nil
	}
	return catalog.StaticSource(knownModels(models)), nil
}

func knownModels(models router.TierModelMap) []string {
	set := router.NewModelSet()
	for _, tm := range models {
		set[tm.Model] = struct{}{}
		for _, s := range tm.Substitutes {
			set[s] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (d *Dependencies) initCatalog(ctx context.Context, cfg *config.Config) error {
	source, err := BuildSource(cfg.Catalog, d.Classifier.Models())
	if err != nil {
		return err
	}

	var store catalog.Store
	if cfg.Redis != nil {
		rs, err := catalog.NewRedisStore(catalog.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Redis.SnapshotKey,
			TTL:      cfg.Redis.SnapshotTTL,
		})
		if err != nil {
			return err
		}
		d.CatalogStore = rs
		store = rs
	}

	d.Catalog = catalog.NewCatalog(source, store, d.Metrics, d.Logger)

	// An empty catalog at startup is not fatal: fallback routing returns
	// NoAvailableModel until the first successful refresh.
	if err := d.Catalog.Warm(ctx); err != nil {
		d.Logger.Warn("model catalog not warmed", zap.Error(err))
	}

	d.Scheduler, err = catalog.NewScheduler(d.Catalog, cfg.Catalog.RefreshSpec, cfg.Catalog.Timeout, d.Logger)
	if err != nil {
		return err
	}
	d.Scheduler.Start()

	d.Logger.Info("model catalog initialized",
		zap.String("source", source.Name()),
		zap.Int("models", len(d.Catalog.Snapshot().Models)),
		zap.Bool("shared_store", store != nil))
	return nil
}

func (d *Dependencies) initRecorder(cfg *config.Config) error {
	if d.Decisions == nil {
		return nil
	}
	d.Recorder = decisionlog.NewRecorder(d.Decisions, d.Metrics, d.Logger, decisionlog.Config{
		BufferSize:    cfg.DecisionLog.BufferSize,
		WorkerCount:   cfg.DecisionLog.Workers,
		BatchSize:     cfg.DecisionLog.BatchSize,
		FlushInterval: cfg.DecisionLog.FlushInterval,
	})
	return d.Recorder.Start()
}

func (d *Dependencies) initServices() {
	// a typed nil would defeat the service's nil checks
	var recorder routingsvc.Recorder
	if d.Recorder != nil {
		recorder = d.Recorder
	}
	d.Routing = routingsvc.NewService(d.Classifier, d.Catalog, recorder, d.Decisions, d.Metrics, d.Logger)
}

func (d *Dependencies) initAuth(cfg *config.Config) error {
	if !cfg.AuthEnabled() {
		d.Logger.Warn("AUTH_JWT_SECRET not set, API routes are unauthenticated")
		return nil
	}
	validator, err := middleware.NewHMACValidator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience)
	if err != nil {
		return err
	}
	d.AuthMiddleware = middleware.NewAuthMiddleware(validator, d.Logger)
	d.Logger.Info("bearer token auth enabled")
	return nil
}

func (d *Dependencies) initHandlers(cfg *config.Config) {
	d.RouteHandler = handlers.NewRouteHandler(d.Routing, d.Logger)
	d.DecisionHandler = handlers.NewDecisionHandler(d.Routing, d.Logger)
	d.ModelsHandler = handlers.NewModelsHandler(d.Catalog, cfg.Catalog.MaxStaleness, d.Logger)

	d.StatusHandler = handlers.NewStatusHandler(cfg.Environment, d.Catalog, d.Recorder != nil, d.AuthMiddleware != nil)

	d.HealthHandler = handlers.NewHealthHandler(d.Logger)
	if d.DB != nil {
		d.HealthHandler.AddCheck("database", d.DB.HealthCheck)
	}
	if d.CatalogStore != nil {
		d.HealthHandler.AddCheck("redis", d.CatalogStore.Ping)
	}
	if cfg.Catalog.MaxStaleness > 0 {
		d.HealthHandler.AddCheck("catalog", handlers.CatalogCheck(d.Catalog, cfg.Catalog.MaxStaleness))
	}
}

func (d *Dependencies) closeQuietly(ctx context.Context) {
	if err := d.Close(ctx); err != nil {
		d.Logger.Warn("cleanup after failed initialization", zap.Error(err))
	}
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.Scheduler != nil {
		d.Scheduler.Stop()
	}

	// drain pending decisions before the database goes away
	if d.Recorder != nil {
		if err := d.Recorder.Stop(recorderStopTimeout); err != nil && !errors.Is(err, decisionlog.ErrNotStarted) {
			errs = append(errs, fmt.Errorf("failed to stop decision recorder: %w", err))
		}
	}

	if d.CatalogStore != nil {
		if err := d.CatalogStore.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	_ = d.Logger.Sync()

	return errors.Join(errs...)
}
