package handlers

import (
	"net/http"
	"time"

	"github.com/dineshsunshine/ai-studio-backend-sub001/internal/domain"
)

type defaultsDTO struct {
	Theme        string              `json:"defaultTheme"`
	ToolSettings domain.ToolSettings `json:"defaultToolSettings"`
	Version      int                 `json:"version"`
	UpdatedBy    string              `json:"updatedBy,omitempty"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

type updateDefaultsRequest struct {
	Version      *int                 `json:"version"`
	Theme        *string              `json:"defaultTheme"`
	ToolSettings *domain.ToolSettings `json:"defaultToolSettings"`
}

type userSettingsDTO struct {
	Theme        string              `json:"theme"`
	ToolSettings domain.ToolSettings `json:"toolSettings"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

func toDefaultsDTO(d *domain.DefaultSettings) defaultsDTO {
	return defaultsDTO{
		Theme:        d.Theme,
		ToolSettings: d.ToolSettings,
		Version:      d.Version,
		UpdatedBy:    d.UpdatedBy,
		UpdatedAt:    d.UpdatedAt,
	}
}

func toUserSettingsDTO(s *domain.UserSettings) userSettingsDTO {
	return userSettingsDTO{Theme: s.Theme, ToolSettings: s.ToolSettings, UpdatedAt: s.UpdatedAt}
}

func (a *App) GetDefaults(w http.ResponseWriter, r *http.Request) {
	d, err := a.Settings.Current(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toDefaultsDTO(d))
}

// UpdateDefaults applies a partial update guarded by the version the admin
// last read.
func (a *App) UpdateDefaults(w http.ResponseWriter, r *http.Request) {
	var req updateDefaultsRequest
	if err := decodeJSON(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Version == nil {
		a.fail(w, r, domain.NewValidationError("version", "is required"))
		return
	}
	d, err := a.Settings.Update(r.Context(), a.currentUserID(r), *req.Version, domain.DefaultsPatch{
		Theme:        req.Theme,
		ToolSettings: req.ToolSettings,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toDefaultsDTO(d))
}

func (a *App) ResetDefaults(w http.ResponseWriter, r *http.Request) {
	d, err := a.Settings.Reset(r.Context(), a.currentUserID(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toDefaultsDTO(d))
}

func (a *App) MySettings(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.fail(w, r, domain.ErrUnauthorized)
		return
	}
	s, err := a.Settings.ForUser(r.Context(), userID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toUserSettingsDTO(s))
}

// ResetMySettings overwrites the caller's settings with the current defaults.
func (a *App) ResetMySettings(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.fail(w, r, domain.ErrUnauthorized)
		return
	}
	s, err := a.Settings.ApplyToUser(r.Context(), userID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, toUserSettingsDTO(s))
}
