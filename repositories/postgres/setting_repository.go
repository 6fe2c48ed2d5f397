package postgres

import (
	"context"
	"fmt"

	"github.com/paintdesk/ai-engine/models"
	"github.com/paintdesk/ai-engine/repositories"
	"go.uber.org/zap"
)

// SettingRepository implements repositories.SettingRepository over the
// ai_settings table.
type SettingRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewSettingRepository creates a setting repository.
func NewSettingRepository(db *DB, logger *zap.Logger) repositories.SettingRepository {
	return &SettingRepository{db: db, logger: logger}
}

// Load returns every setting as a flat map.
func (r *SettingRepository) Load(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM ai_settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		values[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settings: %w", err)
	}
	return values, nil
}

// Upsert inserts or replaces one setting.
func (r *SettingRepository) Upsert(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO ai_settings (key, value, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = CURRENT_TIMESTAMP
	`
	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to upsert setting %q: %w", key, err)
	}
	r.logger.Debug("setting upserted", zap.String("key", key))
	return nil
}

// List returns all settings as rows.
func (r *SettingRepository) List(ctx context.Context) ([]*models.Setting, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value, updated_at FROM ai_settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer rows.Close()

	var settings []*models.Setting
	for rows.Next() {
		s := &models.Setting{}
		if err := rows.Scan(&s.Key, &s.Value, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings = append(settings, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settings: %w", err)
	}
	return settings, nil
}
