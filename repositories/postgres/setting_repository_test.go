package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })
	return &DB{DB: mockDB, logger: zap.NewNop()}, mock
}

func TestSettingRepositoryLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("returns all rows as a map", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewSettingRepository(db, zap.NewNop())

		mock.ExpectQuery("SELECT key, value FROM ai_settings").
			WillReturnRows(sqlmock.NewRows([]string{"key", "value"}).
				AddRow("ai_primary_provider", "claude").
				AddRow("openai_enabled", "false"))

		values, err := repo.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"ai_primary_provider": "claude",
			"openai_enabled":      "false",
		}, values)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty table yields empty map", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewSettingRepository(db, zap.NewNop())

		mock.ExpectQuery("SELECT key, value FROM ai_settings").
			WillReturnRows(sqlmock.NewRows([]string{"key", "value"}))

		values, err := repo.Load(ctx)
		require.NoError(t, err)
		assert.Empty(t, values)
	})

	t.Run("query failure propagates", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewSettingRepository(db, zap.NewNop())

		mock.ExpectQuery("SELECT key, value FROM ai_settings").
			WillReturnError(fmt.Errorf("connection lost"))

		_, err := repo.Load(ctx)
		assert.Error(t, err)
	})
}

func TestSettingRepositoryUpsert(t *testing.T) {
	ctx := context.Background()

	t.Run("executes insert with conflict update", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewSettingRepository(db, zap.NewNop())

		mock.ExpectExec("INSERT INTO ai_settings").
			WithArgs("ai_temperature", "0.4").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Upsert(ctx, "ai_temperature", "0.4"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("exec failure propagates with key", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewSettingRepository(db, zap.NewNop())

		mock.ExpectExec("INSERT INTO ai_settings").
			WillReturnError(fmt.Errorf("permission denied"))

		err := repo.Upsert(ctx, "ai_temperature", "0.4")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ai_temperature")
	})
}

func TestSettingRepositoryList(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewSettingRepository(db, zap.NewNop())

	now := time.Now()
	mock.ExpectQuery("SELECT key, value, updated_at FROM ai_settings ORDER BY key").
		WillReturnRows(sqlmock.NewRows([]string{"key", "value", "updated_at"}).
			AddRow("ai_max_tokens", "1024", now).
			AddRow("ai_temperature", "0.4", now))

	settings, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, settings, 2)
	assert.Equal(t, "ai_max_tokens", settings[0].Key)
	assert.Equal(t, "1024", settings[0].Value)
}
