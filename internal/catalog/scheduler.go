package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultRefreshSpec refreshes the catalog twice a minute
const DefaultRefreshSpec = "@every 30s"

// Scheduler refreshes a catalog on a cron spec
type Scheduler struct {
	cron    *cron.Cron
	catalog *Catalog
	timeout time.Duration
	logger  *zap.Logger
}

// NewScheduler creates a scheduler. An empty spec uses DefaultRefreshSpec.
func NewScheduler(catalog *Catalog, spec string, timeout time.Duration, logger *zap.Logger) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultRefreshSpec
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		catalog: catalog,
		timeout: timeout,
		logger:  logger,
	}

	if _, err := s.cron.AddFunc(spec, s.refresh); err != nil {
		return nil, fmt.Errorf("invalid catalog refresh spec %q: %w", spec, err)
	}
	return s, nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("catalog refresh scheduler started")
}

// Stop stops the scheduler and waits for a running refresh to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("catalog refresh scheduler stopped")
}

func (s *Scheduler) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	// Refresh logs its own failures
	_ = s.catalog.Refresh(ctx)
}
