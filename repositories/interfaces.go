// Package repositories defines the persistence interfaces. Services depend
// on these; the postgres subpackage implements them.
package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/paintdesk/ai-engine/models"
)

// SettingRepository is the flat key/value configuration store.
type SettingRepository interface {
	// Load returns every setting as a flat map
	Load(ctx context.Context) (map[string]string, error)

	// Upsert inserts or replaces one setting
	Upsert(ctx context.Context, key, value string) error

	// List returns all settings as rows, for the admin surface
	List(ctx context.Context) ([]*models.Setting, error)
}

// GenerationRepository stores generation audit records.
type GenerationRepository interface {
	Insert(ctx context.Context, record *models.GenerationRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.GenerationRecord, error)
	List(ctx context.Context, limit, offset int) ([]*models.GenerationRecord, error)
}
