package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/paintdesk/ai-engine/models"
	"github.com/paintdesk/ai-engine/repositories"
	"go.uber.org/zap"
)

// ErrGenerationNotFound is returned when no record exists for an ID.
var ErrGenerationNotFound = errors.New("generation record not found")

// GenerationRepository implements repositories.GenerationRepository over the
// ai_generations table.
type GenerationRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewGenerationRepository creates a generation repository.
func NewGenerationRepository(db *DB, logger *zap.Logger) repositories.GenerationRepository {
	return &GenerationRepository{db: db, logger: logger}
}

// Insert stores one generation record.
func (r *GenerationRepository) Insert(ctx context.Context, record *models.GenerationRecord) error {
	query := `
		INSERT INTO ai_generations (
			id, provider, model, prompt, response, tokens_used,
			failed_over, streamed, context_summary, error_message,
			latency_ms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.Provider,
		record.Model,
		record.Prompt,
		record.Response,
		record.TokensUsed,
		record.FailedOver,
		record.Streamed,
		record.ContextSummary,
		record.ErrorMessage,
		record.LatencyMs,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert generation record: %w", err)
	}

	r.logger.Debug("generation record stored",
		zap.String("id", record.ID.String()),
		zap.String("provider", record.Provider))
	return nil
}

// GetByID fetches one record.
func (r *GenerationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.GenerationRecord, error) {
	query := `
		SELECT id, provider, model, prompt, response, tokens_used,
		       failed_over, streamed, context_summary, error_message,
		       latency_ms, created_at
		FROM ai_generations
		WHERE id = $1
	`
	record := &models.GenerationRecord{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&record.ID,
		&record.Provider,
		&record.Model,
		&record.Prompt,
		&record.Response,
		&record.TokensUsed,
		&record.FailedOver,
		&record.Streamed,
		&record.ContextSummary,
		&record.ErrorMessage,
		&record.LatencyMs,
		&record.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGenerationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get generation record: %w", err)
	}
	return record, nil
}

// List returns records newest first with limit/offset pagination.
func (r *GenerationRepository) List(ctx context.Context, limit, offset int) ([]*models.GenerationRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, provider, model, prompt, response, tokens_used,
		       failed_over, streamed, context_summary, error_message,
		       latency_ms, created_at
		FROM ai_generations
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list generation records: %w", err)
	}
	defer rows.Close()

	var records []*models.GenerationRecord
	for rows.Next() {
		record := &models.GenerationRecord{}
		if err := rows.Scan(
			&record.ID,
			&record.Provider,
			&record.Model,
			&record.Prompt,
			&record.Response,
			&record.TokensUsed,
			&record.FailedOver,
			&record.Streamed,
			&record.ContextSummary,
			&record.ErrorMessage,
			&record.LatencyMs,
			&record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan generation record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate generation records: %w", err)
	}
	return records, nil
}
