package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/upb/hydra-router/models"
)

// ErrNotFound is wrapped by repositories when a row does not exist
var ErrNotFound = errors.New("record not found")

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	Commit() error
	Rollback() error
}

// DecisionFilter narrows a decision listing
type DecisionFilter struct {
	Tier        string
	Substituted *bool
	Since       time.Time
}

// DecisionRepository persists routing decisions
type DecisionRepository interface {
	// Insert inserts a single decision
	Insert(ctx context.Context, rec *models.RoutingDecisionRecord) error

	// InsertBatch inserts decisions atomically
	InsertBatch(ctx context.Context, recs []*models.RoutingDecisionRecord) error

	// GetByID retrieves a decision by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.RoutingDecisionRecord, error)

	// List retrieves decisions newest first
	List(ctx context.Context, filter DecisionFilter, limit, offset int) ([]*models.RoutingDecisionRecord, error)

	// CountByTier aggregates decisions created at or after since
	CountByTier(ctx context.Context, since time.Time) ([]models.TierCount, error)
}

// Repositories holds all repository instances
type Repositories struct {
	Decisions DecisionRepository
}
