package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/paintdesk/ai-engine/app"
	"go.uber.org/zap"
)

// HealthCheck returns a simple liveness handler.
func HealthCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

// ReadinessCheck verifies downstream dependencies are reachable.
func ReadinessCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{}
		ready := true

		if deps.DB == nil {
			checks["database"] = "not_initialized"
			ready = false
		} else if err := deps.DB.HealthCheck(ctx); err != nil {
			deps.Logger.Error("database health check failed", zap.Error(err))
			checks["database"] = "unhealthy"
			ready = false
		} else {
			checks["database"] = "healthy"
		}

		if deps.ProviderRegistry.Count() == 0 {
			checks["providers"] = "none_registered"
			ready = false
		} else {
			checks["providers"] = "registered"
		}

		status := "ready"
		httpStatus := http.StatusOK
		if !ready {
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(httpStatus)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": status,
			"checks": checks,
		})
	}
}
