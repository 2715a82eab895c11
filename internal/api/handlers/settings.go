package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"laborcurve/internal/core"
	"laborcurve/internal/types"
)

// SettingsService reads and writes the settings document.
type SettingsService interface {
	GetSettings(ctx context.Context) (types.Settings, error)
	UpdateSettings(ctx context.Context, in types.Settings) (types.Settings, error)
	ResetSettings(ctx context.Context) (types.Settings, error)
}

// SettingsHandler serves /v1/settings.
type SettingsHandler struct {
	svc    SettingsService
	logger *slog.Logger
}

// NewSettingsHandler creates a SettingsHandler.
func NewSettingsHandler(svc SettingsService, l *slog.Logger) *SettingsHandler {
	if l == nil {
		l = slog.Default()
	}
	return &SettingsHandler{svc: svc, logger: l}
}

// RegisterRoutes mounts the settings routes.
func (h *SettingsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/settings", h.Get)
	r.Put("/settings", h.Put)
	r.Delete("/settings", h.Reset)
}

// Get handles GET /v1/settings.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.GetSettings(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, s)
}

// Put handles PUT /v1/settings. The body replaces the whole document.
func (h *SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	var in types.Settings
	if err := core.DecodeJSON(w, r, &in); err != nil {
		core.Error(w, r, err)
		return
	}
	s, err := h.svc.UpdateSettings(r.Context(), in)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, s)
}

// Reset handles DELETE /v1/settings and returns the defaults.
func (h *SettingsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.ResetSettings(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, s)
}
