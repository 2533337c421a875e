package decisionlog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/upb/hydra-router/internal/observability"
	"github.com/upb/hydra-router/models"
	"github.com/upb/hydra-router/repositories"
	"go.uber.org/zap"
)

var (
	// ErrNotStarted is returned when recording before Start or after Stop
	ErrNotStarted = errors.New("decision recorder not running")

	// ErrBufferFull is returned when a record is dropped
	ErrBufferFull = errors.New("decision log buffer full")
)

// Recorder persists routing decisions in the background. Record never
// blocks the routing path; when the buffer is full the record is dropped.
type Recorder struct {
	repo    repositories.DecisionRepository
	metrics *observability.Metrics
	logger  *zap.Logger
	config  Config

	records chan *models.RoutingDecisionRecord
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// Config holds configuration for the Recorder
type Config struct {
	BufferSize    int           // Size of the record buffer channel
	WorkerCount   int           // Number of concurrent workers
	BatchSize     int           // Records per InsertBatch call
	FlushInterval time.Duration // Max time a partial batch waits
	WriteTimeout  time.Duration
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:    1000,
		WorkerCount:   2,
		BatchSize:     50,
		FlushInterval: 2 * time.Second,
		WriteTimeout:  5 * time.Second,
	}
}

// NewRecorder creates a new Recorder instance
func NewRecorder(repo repositories.DecisionRepository, metrics *observability.Metrics, logger *zap.Logger, config Config) *Recorder {
	def := DefaultConfig()
	if config.BufferSize <= 0 {
		config.BufferSize = def.BufferSize
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = def.WorkerCount
	}
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = def.FlushInterval
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = def.WriteTimeout
	}

	return &Recorder{
		repo:    repo,
		metrics: metrics,
		logger:  logger,
		config:  config,
	}
}

// Start starts the background workers
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("decision recorder already started")
	}

	r.records = make(chan *models.RoutingDecisionRecord, r.config.BufferSize)
	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i, r.records)
	}

	r.running = true
	r.logger.Info("started decision recorder",
		zap.Int("worker_count", r.config.WorkerCount),
		zap.Int("buffer_size", r.config.BufferSize),
		zap.Int("batch_size", r.config.BatchSize))

	return nil
}

// Stop stops accepting records and waits for pending batches to flush
func (r *Recorder) Stop(timeout time.Duration) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return ErrNotStarted
	}
	r.running = false
	pending := len(r.records)
	close(r.records)
	r.mu.Unlock()

	r.logger.Info("stopping decision recorder", zap.Int("pending_records", pending))

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("decision recorder stopped gracefully")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("decision recorder stop timeout after %v", timeout)
	}
}

// Record queues a decision for persistence
func (r *Recorder) Record(rec *models.RoutingDecisionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return ErrNotStarted
	}

	select {
	case r.records <- rec:
		return nil
	default:
		r.metrics.ObserveRecorderDrop()
		r.logger.Warn("decision log buffer full, dropping record",
			zap.String("id", rec.ID.String()),
			zap.String("tier", rec.Tier))
		return ErrBufferFull
	}
}

func (r *Recorder) worker(id int, records <-chan *models.RoutingDecisionRecord) {
	defer r.wg.Done()

	r.logger.Debug("decision log worker started", zap.Int("worker_id", id))

	ticker := time.NewTicker(r.config.FlushInterval)
	defer ticker.Stop()

	batch := make([]*models.RoutingDecisionRecord, 0, r.config.BatchSize)
	for {
		select {
		case rec, ok := <-records:
			if !ok {
				r.flush(id, batch)
				r.logger.Debug("decision log worker stopped", zap.Int("worker_id", id))
				return
			}
			batch = append(batch, rec)
			if len(batch) >= r.config.BatchSize {
				r.flush(id, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				r.flush(id, batch)
				batch = batch[:0]
			}
		}
	}
}

func (r *Recorder) flush(workerID int, batch []*models.RoutingDecisionRecord) {
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if err := r.repo.InsertBatch(ctx, batch); err != nil {
		r.logger.Error("failed to persist routing decisions",
			zap.Int("worker_id", workerID),
			zap.Int("records", len(batch)),
			zap.Error(err))
	}
}

// GetStats returns statistics about the recorder
func (r *Recorder) GetStats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Stats{
		BufferSize:     r.config.BufferSize,
		PendingRecords: len(r.records),
		WorkerCount:    r.config.WorkerCount,
		Running:        r.running,
	}
}

// Stats represents recorder statistics
type Stats struct {
	BufferSize     int  `json:"buffer_size"`
	PendingRecords int  `json:"pending_records"`
	WorkerCount    int  `json:"worker_count"`
	Running        bool `json:"running"`
}
