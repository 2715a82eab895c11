package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"laborcurve/internal/types"
)

func newEventRoutes(svc *mockService) func(r chi.Router) {
	return NewEventHandler(svc, testValidator(), testLogger()).RegisterRoutes
}

func TestEventHandler_Create(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	var (
		gotEncounter string
		gotTS        time.Time
		gotData      types.EventData
	)
	svc := &mockService{addEventFn: func(ctx context.Context, encounterID string, at time.Time, data types.EventData) (*types.Event, error) {
		gotEncounter, gotTS, gotData = encounterID, at, data
		return &types.Event{ID: "evt_1", EncounterID: encounterID, Timestamp: at, Data: data}, nil
	}}

	body := mustJSON(t, map[string]any{
		"kind": "sve",
		"ts":   ts.Format(time.RFC3339),
		"data": map[string]any{"dilation_cm": 6, "station": -1, "position": "op"},
	})
	rec := serve(t, newEventRoutes(svc), http.MethodPost, "/encounters/enc_1/events", body)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "enc_1", gotEncounter)
	assert.True(t, gotTS.Equal(ts))
	exam, ok := gotData.(types.ExamData)
	require.True(t, ok)
	assert.Equal(t, 6.0, exam.DilationCm)
	assert.Equal(t, types.PositionPosterior, exam.Position)

	var evt types.Event
	decodeData(t, rec, &evt)
	assert.Equal(t, types.EventKindExam, evt.Kind())
}

func TestEventHandler_Create_DefaultsTimestamp(t *testing.T) {
	var gotTS time.Time
	svc := &mockService{addEventFn: func(ctx context.Context, encounterID string, at time.Time, data types.EventData) (*types.Event, error) {
		gotTS = at
		return &types.Event{ID: "evt_1", EncounterID: encounterID, Timestamp: time.Now(), Data: data}, nil
	}}

	rec := serve(t, newEventRoutes(svc), http.MethodPost, "/encounters/enc_1/events", []byte(`{"kind":"med","data":{"med_name":" Oxytocin "}}`))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, gotTS.IsZero())
}

func TestEventHandler_Create_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		code types.ErrorCode
	}{
		{"missing kind", `{"data":{"dilation_cm":4}}`, types.ErrCodeValidationMissingField},
		{"unknown kind", `{"kind":"cbc","data":{}}`, types.ErrCodeValidationEventKind},
		{"exam without dilation", `{"kind":"sve","data":{"station":0}}`, types.ErrCodeValidationMissingField},
		{"malformed data", `{"kind":"rom","data":{"meconium":"yes"}}`, types.ErrCodeValidationInvalidEvent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, newEventRoutes(&mockService{}), http.MethodPost, "/encounters/enc_1/events", []byte(tt.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, string(tt.code), errorCodeOf(t, rec))
		})
	}
}

func TestEventHandler_Create_ClosedEncounter(t *testing.T) {
	svc := &mockService{addEventFn: func(ctx context.Context, encounterID string, at time.Time, data types.EventData) (*types.Event, error) {
		return nil, types.NewAppError(types.ErrCodeConflictEncounterClosed, "event is after the recorded outcome", nil)
	}}
	rec := serve(t, newEventRoutes(svc), http.MethodPost, "/encounters/enc_1/events", []byte(`{"kind":"vitals","data":{"hr":88}}`))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestEventHandler_List(t *testing.T) {
	svc := &mockService{listEventsFn: func(ctx context.Context, encounterID string) ([]types.Event, error) {
		return []types.Event{
			{ID: "evt_1", EncounterID: encounterID, Timestamp: time.Now(), Data: types.ExamData{DilationCm: 4}},
			{ID: "evt_2", EncounterID: encounterID, Timestamp: time.Now(), Data: types.RuptureData{Fluid: types.FluidClear}},
		}, nil
	}}
	rec := serve(t, newEventRoutes(svc), http.MethodGet, "/encounters/enc_1/events", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var events []types.Event
	decodeData(t, rec, &events)
	require.Len(t, events, 2)
	assert.Equal(t, types.EventKindRupture, events[1].Kind())
}

func TestEventHandler_Update(t *testing.T) {
	t.Run("timestamp only", func(t *testing.T) {
		var (
			gotTS   *time.Time
			gotData types.EventData
		)
		svc := &mockService{updateEventFn: func(ctx context.Context, encounterID, eventID string, ts *time.Time, data types.EventData) (*types.Event, error) {
			gotTS, gotData = ts, data
			return &types.Event{ID: eventID, EncounterID: encounterID, Timestamp: *ts, Data: types.ExamData{DilationCm: 5}}, nil
		}}
		rec := serve(t, newEventRoutes(svc), http.MethodPatch, "/encounters/enc_1/events/evt_1", []byte(`{"ts":"2024-05-01T09:30:00Z"}`))

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.NotNil(t, gotTS)
		assert.Equal(t, 9, gotTS.Hour())
		assert.Nil(t, gotData)
	})

	t.Run("data without kind", func(t *testing.T) {
		rec := serve(t, newEventRoutes(&mockService{}), http.MethodPatch, "/encounters/enc_1/events/evt_1", []byte(`{"data":{"dilation_cm":5}}`))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, string(types.ErrCodeValidationMissingField), errorCodeOf(t, rec))
	})
}

func TestEventHandler_Delete(t *testing.T) {
	var gotEncounter, gotEvent string
	svc := &mockService{deleteEventFn: func(ctx context.Context, encounterID, eventID string) error {
		gotEncounter, gotEvent = encounterID, eventID
		return nil
	}}
	rec := serve(t, newEventRoutes(svc), http.MethodDelete, "/encounters/enc_1/events/evt_9", nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "enc_1", gotEncounter)
	assert.Equal(t, "evt_9", gotEvent)
}
