package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/paintdesk/ai-engine/app"
	"github.com/paintdesk/ai-engine/middleware"
	"github.com/paintdesk/ai-engine/services/chat"
	"github.com/paintdesk/ai-engine/services/engine"
	"github.com/paintdesk/ai-engine/services/providers"
	"github.com/paintdesk/ai-engine/services/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type emptyStore struct{}

func (emptyStore) Load(context.Context) (map[string]string, error) { return map[string]string{}, nil }
func (emptyStore) Upsert(context.Context, string, string) error    { return nil }

func newRouterDeps(t *testing.T) *app.Dependencies {
	t.Helper()

	registry := providers.NewRegistry()
	resolver := settings.NewResolver(emptyStore{}, time.Minute, zap.NewNop())
	eng := engine.New(registry, resolver, time.Second, zap.NewNop())

	return &app.Dependencies{
		Logger:           zap.NewNop(),
		SettingsResolver: resolver,
		ProviderRegistry: registry,
		Engine:           eng,
		ChatService:      chat.NewService(eng, nil, nil, zap.NewNop()),
		AuthMiddleware:   middleware.NewAuthMiddleware("", zap.NewNop()),
	}
}

func TestSetupRoutes(t *testing.T) {
	router := SetupRoutes(newRouterDeps(t))

	t.Run("liveness endpoint wired", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("readiness endpoint wired", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		// No database and no providers in this fixture.
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("admin routes fail closed without auth", func(t *testing.T) {
		for _, path := range []string{"/api/v1/admin/settings", "/api/v1/admin/generations"} {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			require.Equal(t, http.StatusUnauthorized, rec.Code, path)
		}
	})

	t.Run("unknown route is a 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("chat endpoint rejects bad bodies", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/chat", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
