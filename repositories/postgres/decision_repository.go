package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/upb/hydra-router/models"
	"github.com/upb/hydra-router/repositories"
	"go.uber.org/zap"
)

const decisionColumns = `id, request_id, tier, model, confidence, complexity, reason,
		substituted, original_tier, original_model, word_count, has_code,
		prefer_quality, prefer_speed, prompt_hash, created_at`

// DecisionRepository implements the repositories.DecisionRepository interface
type DecisionRepository struct {
	db     *DB
	txm    repositories.TransactionManager
	logger *zap.Logger
}

// NewDecisionRepository creates a new decision repository
func NewDecisionRepository(db *DB, logger *zap.Logger) repositories.DecisionRepository {
	return &DecisionRepository{
		db:     db,
		txm:    NewTransactionManager(db, logger),
		logger: logger,
	}
}

// Insert inserts a routing decision
func (r *DecisionRepository) Insert(ctx context.Context, rec *models.RoutingDecisionRecord) error {
	query := `
		INSERT INTO routing_decisions (` + decisionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		rec.ID,
		rec.RequestID,
		rec.Tier,
		rec.Model,
		rec.Confidence,
		rec.Complexity,
		rec.Reason,
		rec.Substituted,
		rec.OriginalTier,
		rec.OriginalModel,
		rec.WordCount,
		rec.HasCode,
		rec.PreferQuality,
		rec.PreferSpeed,
		rec.PromptHash,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert routing decision: %w", err)
	}

	r.logger.Debug("routing decision inserted", zap.String("id", rec.ID.String()), zap.String("tier", rec.Tier))
	return nil
}

// InsertBatch inserts all records in one transaction
func (r *DecisionRepository) InsertBatch(ctx context.Context, recs []*models.RoutingDecisionRecord) error {
	if len(recs) == 0 {
		return nil
	}
	return r.txm.InTransaction(ctx, func(txCtx context.Context, _ repositories.Transaction) error {
		for _, rec := range recs {
			if err := r.Insert(txCtx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByID retrieves a routing decision by ID
func (r *DecisionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.RoutingDecisionRecord, error) {
	query := `SELECT ` + decisionColumns + ` FROM routing_decisions WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	rec, err := scanDecision(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("routing decision %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get routing decision: %w", err)
	}
	return rec, nil
}

// List retrieves decisions newest first
func (r *DecisionRepository) List(ctx context.Context, filter repositories.DecisionFilter, limit, offset int) ([]*models.RoutingDecisionRecord, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Tier != "" {
		args = append(args, filter.Tier)
		where = append(where, fmt.Sprintf("tier = $%d", len(args)))
	}
	if filter.Substituted != nil {
		args = append(args, *filter.Substituted)
		where = append(where, fmt.Sprintf("substituted = $%d", len(args)))
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}

	query := `SELECT ` + decisionColumns + ` FROM routing_decisions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list routing decisions: %w", err)
	}
	defer rows.Close()

	var recs []*models.RoutingDecisionRecord
	for rows.Next() {
		rec, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan routing decision: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating routing decisions: %w", err)
	}
	return recs, nil
}

// CountByTier aggregates decisions per tier
func (r *DecisionRepository) CountByTier(ctx context.Context, since time.Time) ([]models.TierCount, error) {
	query := `
		SELECT tier, COUNT(*), COUNT(*) FILTER (WHERE substituted)
		FROM routing_decisions
		WHERE created_at >= $1
		GROUP BY tier
		ORDER BY tier
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count routing decisions: %w", err)
	}
	defer rows.Close()

	var counts []models.TierCount
	for rows.Next() {
		var c models.TierCount
		if err := rows.Scan(&c.Tier, &c.Count, &c.Substituted); err != nil {
			return nil, fmt.Errorf("failed to scan tier count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tier counts: %w", err)
	}
	return counts, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDecision(row rowScanner) (*models.RoutingDecisionRecord, error) {
	rec := &models.RoutingDecisionRecord{}
	err := row.Scan(
		&rec.ID,
		&rec.RequestID,
		&rec.Tier,
		&rec.Model,
		&rec.Confidence,
		&rec.Complexity,
		&rec.Reason,
		&rec.Substituted,
		&rec.OriginalTier,
		&rec.OriginalModel,
		&rec.WordCount,
		&rec.HasCode,
		&rec.PreferQuality,
		&rec.PreferSpeed,
		&rec.PromptHash,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}
