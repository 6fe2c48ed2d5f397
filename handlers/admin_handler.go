package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/paintdesk/ai-engine/app"
	"github.com/paintdesk/ai-engine/utils"
	"go.uber.org/zap"
)

// SettingView is one key/value pair on the admin surface.
type SettingView struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// UpdateSettingsRequest carries one or more setting writes.
type UpdateSettingsRequest struct {
	Settings []SettingWrite `json:"settings" validate:"required,min=1,dive"`
}

// SettingWrite is a single key/value update.
type SettingWrite struct {
	Key   string `json:"key" validate:"required,max=128"`
	Value string `json:"value" validate:"max=4096"`
}

// ListSettingsHandler handles GET /api/v1/admin/settings.
func ListSettingsHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		settings, err := deps.Settings.List(r.Context())
		if err != nil {
			deps.Logger.Error("failed to list settings", zap.Error(err))
			_ = utils.WriteInternalError(w, "failed to load settings")
			return
		}

		views := make([]SettingView, len(settings))
		for i, s := range settings {
			views[i] = SettingView{
				Key:       s.Key,
				Value:     s.Value,
				UpdatedAt: s.UpdatedAt.UTC().Format(time.RFC3339),
			}
		}
		_ = utils.WriteOK(w, views)
	}
}

// UpdateSettingsHandler handles PUT /api/v1/admin/settings. Writes go to the
// store and then the resolver cache is invalidated so the next generation
// call sees the change.
func UpdateSettingsHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateSettingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			_ = utils.WriteBadRequest(w, fmt.Sprintf("invalid JSON body: %v", err), nil)
			return
		}
		if err := utils.ValidateStruct(req); err != nil {
			writeDecodeError(w, err)
			return
		}
		for _, s := range req.Settings {
			if strings.TrimSpace(s.Key) == "" {
				_ = utils.WriteBadRequest(w, "setting key must not be blank", nil)
				return
			}
		}

		for _, s := range req.Settings {
			if err := deps.Settings.Upsert(r.Context(), s.Key, s.Value); err != nil {
				deps.Logger.Error("failed to upsert setting",
					zap.String("key", s.Key),
					zap.Error(err))
				_ = utils.WriteInternalError(w, "failed to save settings")
				return
			}
		}

		deps.SettingsResolver.Invalidate()
		deps.Logger.Info("settings updated", zap.Int("count", len(req.Settings)))
		_ = utils.WriteOK(w, map[string]int{"updated": len(req.Settings)})
	}
}
