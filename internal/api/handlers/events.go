package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"laborcurve/internal/core"
	"laborcurve/internal/types"
)

// EventService is the event log used by EventHandler.
type EventService interface {
	ListEvents(ctx context.Context, encounterID string) ([]types.Event, error)
	AddEvent(ctx context.Context, encounterID string, ts time.Time, data types.EventData) (*types.Event, error)
	UpdateEvent(ctx context.Context, encounterID, eventID string, ts *time.Time, data types.EventData) (*types.Event, error)
	DeleteEvent(ctx context.Context, encounterID, eventID string) error
}

// EventRequest is the body of POST and PATCH on events. Data is decoded
// according to Kind; on PATCH both may be omitted to keep the payload.
type EventRequest struct {
	Kind      string          `json:"kind" validate:"omitempty,event_kind"`
	Timestamp *time.Time      `json:"ts,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// eventData decodes Data for Kind. With required false, an empty request
// yields nil.
func (req EventRequest) eventData(required bool) (types.EventData, error) {
	if req.Kind == "" {
		if required || len(req.Data) > 0 {
			return nil, types.NewAppError(types.ErrCodeValidationMissingField, "kind is required", nil)
		}
		return nil, nil
	}
	return types.DecodeEventData(types.EventKind(req.Kind), req.Data)
}

// EventHandler serves /v1/encounters/{id}/events.
type EventHandler struct {
	svc       EventService
	validator *core.Validator
	logger    *slog.Logger
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(svc EventService, v *core.Validator, l *slog.Logger) *EventHandler {
	if l == nil {
		l = slog.Default()
	}
	return &EventHandler{svc: svc, validator: v, logger: l}
}

// RegisterRoutes mounts the event routes.
func (h *EventHandler) RegisterRoutes(r chi.Router) {
	r.Get("/encounters/{id}/events", h.List)
	r.Post("/encounters/{id}/events", h.Create)
	r.Patch("/encounters/{id}/events/{eventID}", h.Update)
	r.Delete("/encounters/{id}/events/{eventID}", h.Delete)
}

// List handles GET /v1/encounters/{id}/events.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, events)
}

// Create handles POST /v1/encounters/{id}/events. A missing ts means now.
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, err := h.decode(w, r)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	data, err := req.eventData(true)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	var ts time.Time
	if req.Timestamp != nil {
		ts = req.Timestamp.UTC()
	}
	evt, err := h.svc.AddEvent(r.Context(), chi.URLParam(r, "id"), ts, data)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusCreated, evt)
}

// Update handles PATCH /v1/encounters/{id}/events/{eventID}.
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	req, err := h.decode(w, r)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	data, err := req.eventData(false)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	var ts *time.Time
	if req.Timestamp != nil {
		t := req.Timestamp.UTC()
		ts = &t
	}
	evt, err := h.svc.UpdateEvent(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "eventID"), ts, data)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, evt)
}

// Delete handles DELETE /v1/encounters/{id}/events/{eventID}.
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteEvent(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "eventID")); err != nil {
		core.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *EventHandler) decode(w http.ResponseWriter, r *http.Request) (EventRequest, error) {
	var req EventRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		return req, err
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		return req, err
	}
	return req, nil
}
