// Package handlers contains the HTTP handlers of the LaborCurve API. Each
// handler depends on a narrow service interface satisfied by
// *encounters.Service and mounts its routes through RegisterRoutes.
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

// EncounterService is the encounter lifecycle used by EncounterHandler.
type EncounterService interface {
	CreateEncounter(ctx context.Context, in *types.Encounter) (*types.Encounter, error)
	GetEncounter(ctx context.Context, id string) (*types.Encounter, error)
	ListEncounters(ctx context.Context, filter types.EncounterFilter) ([]*types.Encounter, types.PageInfo, error)
	UpdateEncounter(ctx context.Context, id string, patch encounters.EncounterPatch) (*types.Encounter, error)
	DeleteEncounter(ctx context.Context, id string) error
	RecordOutcome(ctx context.Context, id string, outcome types.Outcome) (*types.Encounter, error)
}

// CreateEncounterRequest is the body of POST /v1/encounters.
type CreateEncounterRequest struct {
	Title               string     `json:"title" validate:"max=200"`
	StartedAt           *time.Time `json:"started_at,omitempty"`
	Parity              string     `json:"parity" validate:"required,parity"`
	GestationalAgeWeeks *float64   `json:"ga_weeks,omitempty" validate:"omitempty,min=20,max=45"`
	IsInduction         bool       `json:"is_induction"`
	EpiduralPlanned     bool       `json:"epidural_planned"`
	Tags                string     `json:"tags,omitempty" validate:"max=200"`
	Notes               string     `json:"notes,omitempty" validate:"max=4000"`
}

// ValidationWarnings flags preterm gestations.
func (r CreateEncounterRequest) ValidationWarnings() []string {
	return core.GestationalAgeWarnings(r.GestationalAgeWeeks)
}

// UpdateEncounterRequest is the body of PATCH /v1/encounters/{id}. Parity
// and start time cannot be changed.
type UpdateEncounterRequest struct {
	Title               *string  `json:"title,omitempty" validate:"omitempty,max=200"`
	GestationalAgeWeeks *float64 `json:"ga_weeks,omitempty" validate:"omitempty,min=20,max=45"`
	IsInduction         *bool    `json:"is_induction,omitempty"`
	EpiduralPlanned     *bool    `json:"epidural_planned,omitempty"`
	Tags                *string  `json:"tags,omitempty" validate:"omitempty,max=200"`
	Notes               *string  `json:"notes,omitempty" validate:"omitempty,max=4000"`
}

// ValidationWarnings flags preterm gestations.
func (r UpdateEncounterRequest) ValidationWarnings() []string {
	return core.GestationalAgeWarnings(r.GestationalAgeWeeks)
}

// OutcomeRequest is the body of PUT /v1/encounters/{id}/outcome.
type OutcomeRequest struct {
	Status    string     `json:"status" validate:"required,enc_status"`
	OutcomeAt *time.Time `json:"outcome_at,omitempty"`
	Mode      string     `json:"outcome_mode,omitempty" validate:"omitempty,oneof=vaginal cs unknown"`
	Note      string     `json:"outcome_note,omitempty" validate:"max=4000"`
}

// EncounterHandler serves /v1/encounters.
type EncounterHandler struct {
	svc       EncounterService
	validator *core.Validator
	logger    *slog.Logger
}

// NewEncounterHandler creates an EncounterHandler.
func NewEncounterHandler(svc EncounterService, v *core.Validator, l *slog.Logger) *EncounterHandler {
	if l == nil {
		l = slog.Default()
	}
	return &EncounterHandler{svc: svc, validator: v, logger: l}
}

// RegisterRoutes mounts the encounter routes. Routes are registered flat
// so that other handlers can share the /encounters/{id} prefix.
func (h *EncounterHandler) RegisterRoutes(r chi.Router) {
	r.Get("/encounters", h.List)
	r.Post("/encounters", h.Create)
	r.Get("/encounters/{id}", h.Get)
	r.Patch("/encounters/{id}", h.Update)
	r.Delete("/encounters/{id}", h.Delete)
	r.Put("/encounters/{id}/outcome", h.RecordOutcome)
}

// Create handles POST /v1/encounters.
func (h *EncounterHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateEncounterRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	result := h.validator.ValidateStructWithWarnings(&req)
	if !result.IsValid() {
		core.Error(w, r, h.validator.ValidateStruct(&req))
		return
	}

	in := &types.Encounter{
		Title:               req.Title,
		Parity:              types.Parity(req.Parity),
		GestationalAgeWeeks: req.GestationalAgeWeeks,
		IsInduction:         req.IsInduction,
		EpiduralPlanned:     req.EpiduralPlanned,
		Tags:                req.Tags,
		Notes:               req.Notes,
	}
	if req.StartedAt != nil {
		in.StartedAt = req.StartedAt.UTC()
	}

	enc, err := h.svc.CreateEncounter(r.Context(), in)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.DataWithMeta(w, r, http.StatusCreated, enc, warningsMeta(result.Warnings))
}

// List handles GET /v1/encounters?status=&limit=&cursor=.
func (h *EncounterHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	filter := types.EncounterFilter{
		Status: types.EncounterStatus(r.URL.Query().Get("status")),
		Limit:  limit,
		Cursor: r.URL.Query().Get("cursor"),
	}

	list, page, err := h.svc.ListEncounters(r.Context(), filter)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.DataWithMeta(w, r, http.StatusOK, list, &types.ResponseMeta{Pagination: &page})
}

// Get handles GET /v1/encounters/{id}.
func (h *EncounterHandler) Get(w http.ResponseWriter, r *http.Request) {
	enc, err := h.svc.GetEncounter(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, enc)
}

// Update handles PATCH /v1/encounters/{id}.
func (h *EncounterHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateEncounterRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	result := h.validator.ValidateStructWithWarnings(&req)
	if !result.IsValid() {
		core.Error(w, r, h.validator.ValidateStruct(&req))
		return
	}

	enc, err := h.svc.UpdateEncounter(r.Context(), chi.URLParam(r, "id"), encounters.EncounterPatch{
		Title:               req.Title,
		GestationalAgeWeeks: req.GestationalAgeWeeks,
		IsInduction:         req.IsInduction,
		EpiduralPlanned:     req.EpiduralPlanned,
		Tags:                req.Tags,
		Notes:               req.Notes,
	})
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.DataWithMeta(w, r, http.StatusOK, enc, warningsMeta(result.Warnings))
}

// Delete handles DELETE /v1/encounters/{id}.
func (h *EncounterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteEncounter(r.Context(), chi.URLParam(r, "id")); err != nil {
		core.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecordOutcome handles PUT /v1/encounters/{id}/outcome.
func (h *EncounterHandler) RecordOutcome(w http.ResponseWriter, r *http.Request) {
	var req OutcomeRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		core.Error(w, r, err)
		return
	}

	outcome := types.Outcome{
		Status: types.EncounterStatus(req.Status),
		Mode:   types.OutcomeMode(req.Mode),
		Note:   req.Note,
	}
	if req.OutcomeAt != nil {
		at := req.OutcomeAt.UTC()
		outcome.At = &at
	}

	enc, err := h.svc.RecordOutcome(r.Context(), chi.URLParam(r, "id"), outcome)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, enc)
}

func warningsMeta(warnings []string) *types.ResponseMeta {
	if len(warnings) == 0 {
		return nil
	}
	return &types.ResponseMeta{Warnings: warnings}
}
