package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"laborcurve/internal/core"
	"laborcurve/internal/encounters"
	"laborcurve/internal/types"
)

// defaultCurveDurationHr is used by /curves/reference without duration_hr.
const defaultCurveDurationHr = 24.0

// ViewService computes the derived views of an encounter.
type ViewService interface {
	Predict(ctx context.Context, id string, at *time.Time) (types.PredictionResult, error)
	Replay(ctx context.Context, id string, at *time.Time) (encounters.ReplayReport, error)
	Overlays(ctx context.Context, id string, opts types.OverlayOptions) (types.Overlays, error)
	Summary(ctx context.Context, id string) (string, error)
	ReferenceCurve(p types.CurveProfile) (types.ReferenceCurve, error)
	GetSettings(ctx context.Context) (types.Settings, error)
}

// ViewHandler serves prediction, replay, overlay, summary and reference
// curve endpoints. Nothing it returns is stored.
type ViewHandler struct {
	svc    ViewService
	logger *slog.Logger
}

// NewViewHandler creates a ViewHandler.
func NewViewHandler(svc ViewService, l *slog.Logger) *ViewHandler {
	if l == nil {
		l = slog.Default()
	}
	return &ViewHandler{svc: svc, logger: l}
}

// RegisterRoutes mounts the view routes.
func (h *ViewHandler) RegisterRoutes(r chi.Router) {
	r.Get("/encounters/{id}/prediction", h.Prediction)
	r.Get("/encounters/{id}/replay", h.Replay)
	r.Get("/encounters/{id}/overlays", h.Overlays)
	r.Get("/encounters/{id}/summary", h.Summary)
	r.Get("/curves/reference", h.ReferenceCurve)
}

// Prediction handles GET /v1/encounters/{id}/prediction?at=.
func (h *ViewHandler) Prediction(w http.ResponseWriter, r *http.Request) {
	at, err := queryTime(r, "at")
	if err != nil {
		core.Error(w, r, err)
		return
	}
	res, err := h.svc.Predict(r.Context(), chi.URLParam(r, "id"), at)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, res)
}

// Replay handles GET /v1/encounters/{id}/replay?at=. Without at every exam
// is replayed.
func (h *ViewHandler) Replay(w http.ResponseWriter, r *http.Request) {
	at, err := queryTime(r, "at")
	if err != nil {
		core.Error(w, r, err)
		return
	}
	report, err := h.svc.Replay(r.Context(), chi.URLParam(r, "id"), at)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, report)
}

// Overlays handles GET /v1/encounters/{id}/overlays. With no curve selected
// both parity curves are drawn.
func (h *ViewHandler) Overlays(w http.ResponseWriter, r *http.Request) {
	opts := types.OverlayOptions{
		Nullip:    queryBool(r, "nullip", false),
		Multip:    queryBool(r, "multip", false),
		Induction: queryBool(r, "induction", false),
		Epidural:  queryBool(r, "epidural", false),
		OP:        queryBool(r, "op", false),
	}
	if !opts.Nullip && !opts.Multip {
		opts.Nullip, opts.Multip = true, true
	}

	ov, err := h.svc.Overlays(r.Context(), chi.URLParam(r, "id"), opts)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, ov)
}

// Summary handles GET /v1/encounters/{id}/summary as text/plain.
func (h *ViewHandler) Summary(w http.ResponseWriter, r *http.Request) {
	text, err := h.svc.Summary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Text(w, http.StatusOK, text)
}

// ReferenceCurve handles GET /v1/curves/reference. active_threshold
// defaults to the stored settings.
func (h *ViewHandler) ReferenceCurve(w http.ResponseWriter, r *http.Request) {
	profile := types.CurveProfile{
		Parity:     types.Parity(r.URL.Query().Get("parity")),
		DurationHr: defaultCurveDurationHr,
		Induction:  queryBool(r, "induction", false),
		Epidural:   queryBool(r, "epidural", false),
		OP:         queryBool(r, "op", false),
	}
	if profile.Parity == "" {
		profile.Parity = types.ParityNullip
	}

	duration, ok, err := queryFloat(r, "duration_hr")
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if ok {
		profile.DurationHr = duration
	}

	threshold, ok, err := queryFloat(r, "active_threshold")
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if ok {
		profile.ActiveThresholdCm = threshold
	} else {
		settings, err := h.svc.GetSettings(r.Context())
		if err != nil {
			core.Error(w, r, err)
			return
		}
		profile.ActiveThresholdCm = settings.ActiveThresholdCm
	}

	curve, err := h.svc.ReferenceCurve(profile)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, curve)
}
