// settings.go — чтение и обновление настроек загрузки файлов.
// Оба endpoint'а закрыты scope admin (проверяется в middleware).
package handlers

import (
	"encoding/json"
	"net/http"

	apierrors "github.com/bigkaa/roomstore/internal/api/errors"
	"github.com/bigkaa/roomstore/internal/settings"
)

// SettingsHandler — обработчик настроек.
type SettingsHandler struct {
	settings *settings.Store
}

// NewSettingsHandler создаёт обработчик настроек.
func NewSettingsHandler(settingsStore *settings.Store) *SettingsHandler {
	return &SettingsHandler{settings: settingsStore}
}

// settingsPayload — wire-формат настроек.
type settingsPayload struct {
	MediaTypeBlockList       string `json:"mediaTypeBlockList"`
	MediaTypeAllowList       string `json:"mediaTypeAllowList"`
	RestrictToMembers        bool   `json:"restrictToMembers"`
	RestrictToAccessibleRoom bool   `json:"restrictToAccessibleRoom"`
	ProtectFiles             bool   `json:"protectFiles"`
	MaxFileSize              int64  `json:"maxFileSize"`
}

// settingsResponse — успешный ответ с настройками.
type settingsResponse struct {
	Success  bool            `json:"success"`
	Settings settingsPayload `json:"settings"`
}

// Get обрабатывает GET /api/v1/settings.
func (h *SettingsHandler) Get(w http.ResponseWriter, _ *http.Request) {
	snap := h.settings.Snapshot()
	writeJSON(w, http.StatusOK, settingsResponse{
		Success:  true,
		Settings: snapshotToPayload(snap),
	})
}

// Update обрабатывает PUT /api/v1/settings.
// Новые значения действуют на последующие запросы немедленно;
// уже выданные файлы не перепроверяются.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req settingsPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.InvalidField(w, "[invalid-field]")
		return
	}
	if req.MaxFileSize <= 0 {
		apierrors.InvalidField(w, "Поле 'maxFileSize' должно быть положительным")
		return
	}

	snap := settings.Snapshot{
		MediaTypeBlockList:       req.MediaTypeBlockList,
		MediaTypeAllowList:       req.MediaTypeAllowList,
		RestrictToMembers:        req.RestrictToMembers,
		RestrictToAccessibleRoom: req.RestrictToAccessibleRoom,
		ProtectFiles:             req.ProtectFiles,
		MaxFileSize:              req.MaxFileSize,
	}
	h.settings.Update(snap)

	writeJSON(w, http.StatusOK, settingsResponse{
		Success:  true,
		Settings: snapshotToPayload(snap),
	})
}

func snapshotToPayload(snap settings.Snapshot) settingsPayload {
	return settingsPayload{
		MediaTypeBlockList:       snap.MediaTypeBlockList,
		MediaTypeAllowList:       snap.MediaTypeAllowList,
		RestrictToMembers:        snap.RestrictToMembers,
		RestrictToAccessibleRoom: snap.RestrictToAccessibleRoom,
		ProtectFiles:             snap.ProtectFiles,
		MaxFileSize:              snap.MaxFileSize,
	}
}
