package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/paintdesk/ai-engine/app"
	"github.com/paintdesk/ai-engine/repositories/postgres"
	"github.com/paintdesk/ai-engine/utils"
	"go.uber.org/zap"
)

// ListGenerationsHandler handles GET /api/v1/admin/generations.
func ListGenerationsHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		records, err := deps.Generations.List(r.Context(), limit, offset)
		if err != nil {
			deps.Logger.Error("failed to list generations", zap.Error(err))
			_ = utils.WriteInternalError(w, "failed to load generations")
			return
		}
		_ = utils.WriteOK(w, records)
	}
}

// GetGenerationHandler handles GET /api/v1/admin/generations/{id}.
func GetGenerationHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			_ = utils.WriteBadRequest(w, "invalid generation id", nil)
			return
		}

		record, err := deps.Generations.GetByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, postgres.ErrGenerationNotFound) {
				_ = utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse{
					Error:   "not_found",
					Message: "generation not found",
				})
				return
			}
			deps.Logger.Error("failed to load generation",
				zap.String("id", id.String()),
				zap.Error(err))
			_ = utils.WriteInternalError(w, "failed to load generation")
			return
		}
		_ = utils.WriteOK(w, record)
	}
}
