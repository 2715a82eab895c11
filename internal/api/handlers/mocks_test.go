package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"laborcurve/internal/core"
	"laborcurve/internal/encounters"
	"laborcurve/internal/types"
)

// =============================================================================
// Mock Service
// =============================================================================

// mockService implements every handler service interface. Unset functions
// return zero values.
type mockService struct {
	createFn        func(ctx context.Context, in *types.Encounter) (*types.Encounter, error)
	getFn           func(ctx context.Context, id string) (*types.Encounter, error)
	listFn          func(ctx context.Context, filter types.EncounterFilter) ([]*types.Encounter, types.PageInfo, error)
	updateFn        func(ctx context.Context, id string, patch encounters.EncounterPatch) (*types.Encounter, error)
	deleteFn        func(ctx context.Context, id string) error
	outcomeFn       func(ctx context.Context, id string, o types.Outcome) (*types.Encounter, error)
	listEventsFn    func(ctx context.Context, encounterID string) ([]types.Event, error)
	addEventFn      func(ctx context.Context, encounterID string, ts time.Time, data types.EventData) (*types.Event, error)
	updateEventFn   func(ctx context.Context, encounterID, eventID string, ts *time.Time, data types.EventData) (*types.Event, error)
	deleteEventFn   func(ctx context.Context, encounterID, eventID string) error
	predictFn       func(ctx context.Context, id string, at *time.Time) (types.PredictionResult, error)
	replayFn        func(ctx context.Context, id string, at *time.Time) (encounters.ReplayReport, error)
	overlaysFn      func(ctx context.Context, id string, opts types.OverlayOptions) (types.Overlays, error)
	summaryFn       func(ctx context.Context, id string) (string, error)
	curveFn         func(p types.CurveProfile) (types.ReferenceCurve, error)
	getSettingsFn   func(ctx context.Context) (types.Settings, error)
	putSettingsFn   func(ctx context.Context, in types.Settings) (types.Settings, error)
	resetSettingsFn func(ctx context.Context) (types.Settings, error)
	exportFn        func(ctx context.Context, id string) (*types.Bundle, error)
	exportAllFn     func(ctx context.Context) (*types.Bundle, error)
	importFn        func(ctx context.Context, b *types.Bundle, mode types.ImportMode) (types.ImportResult, error)
}

func (m *mockService) CreateEncounter(ctx context.Context, in *types.Encounter) (*types.Encounter, error) {
	if m.createFn != nil {
		return m.createFn(ctx, in)
	}
	return in, nil
}

func (m *mockService) GetEncounter(ctx context.Context, id string) (*types.Encounter, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return &types.Encounter{ID: id, Parity: types.ParityNullip, Status: types.EncounterOpen}, nil
}

func (m *mockService) ListEncounters(ctx context.Context, filter types.EncounterFilter) ([]*types.Encounter, types.PageInfo, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return []*types.Encounter{}, types.PageInfo{}, nil
}

func (m *mockService) UpdateEncounter(ctx context.Context, id string, patch encounters.EncounterPatch) (*types.Encounter, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, patch)
	}
	return &types.Encounter{ID: id}, nil
}

func (m *mockService) DeleteEncounter(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockService) RecordOutcome(ctx context.Context, id string, o types.Outcome) (*types.Encounter, error) {
	if m.outcomeFn != nil {
		return m.outcomeFn(ctx, id, o)
	}
	return &types.Encounter{ID: id, Status: o.Status}, nil
}

func (m *mockService) ListEvents(ctx context.Context, encounterID string) ([]types.Event, error) {
	if m.listEventsFn != nil {
		return m.listEventsFn(ctx, encounterID)
	}
	return []types.Event{}, nil
}

func (m *mockService) AddEvent(ctx context.Context, encounterID string, ts time.Time, data types.EventData) (*types.Event, error) {
	if m.addEventFn != nil {
		return m.addEventFn(ctx, encounterID, ts, data)
	}
	return &types.Event{ID: "evt_1", EncounterID: encounterID, Timestamp: ts, Data: data}, nil
}

func (m *mockService) UpdateEvent(ctx context.Context, encounterID, eventID string, ts *time.Time, data types.EventData) (*types.Event, error) {
	if m.updateEventFn != nil {
		return m.updateEventFn(ctx, encounterID, eventID, ts, data)
	}
	return &types.Event{ID: eventID, EncounterID: encounterID, Data: data}, nil
}

func (m *mockService) DeleteEvent(ctx context.Context, encounterID, eventID string) error {
	if m.deleteEventFn != nil {
		return m.deleteEventFn(ctx, encounterID, eventID)
	}
	return nil
}

func (m *mockService) Predict(ctx context.Context, id string, at *time.Time) (types.PredictionResult, error) {
	if m.predictFn != nil {
		return m.predictFn(ctx, id, at)
	}
	return types.PredictionResult{}, nil
}

func (m *mockService) Replay(ctx context.Context, id string, at *time.Time) (encounters.ReplayReport, error) {
	if m.replayFn != nil {
		return m.replayFn(ctx, id, at)
	}
	return encounters.ReplayReport{}, nil
}

func (m *mockService) Overlays(ctx context.Context, id string, opts types.OverlayOptions) (types.Overlays, error) {
	if m.overlaysFn != nil {
		return m.overlaysFn(ctx, id, opts)
	}
	return types.Overlays{}, nil
}

func (m *mockService) Summary(ctx context.Context, id string) (string, error) {
	if m.summaryFn != nil {
		return m.summaryFn(ctx, id)
	}
	return "", nil
}

func (m *mockService) ReferenceCurve(p types.CurveProfile) (types.ReferenceCurve, error) {
	if m.curveFn != nil {
		return m.curveFn(p)
	}
	return types.ReferenceCurve{}, nil
}

func (m *mockService) GetSettings(ctx context.Context) (types.Settings, error) {
	if m.getSettingsFn != nil {
		return m.getSettingsFn(ctx)
	}
	return types.DefaultSettings(), nil
}

func (m *mockService) UpdateSettings(ctx context.Context, in types.Settings) (types.Settings, error) {
	if m.putSettingsFn != nil {
		return m.putSettingsFn(ctx, in)
	}
	return in, nil
}

func (m *mockService) ResetSettings(ctx context.Context) (types.Settings, error) {
	if m.resetSettingsFn != nil {
		return m.resetSettingsFn(ctx)
	}
	return types.DefaultSettings(), nil
}

func (m *mockService) ExportEncounter(ctx context.Context, id string) (*types.Bundle, error) {
	if m.exportFn != nil {
		return m.exportFn(ctx, id)
	}
	return &types.Bundle{Version: types.BundleVersion, Kind: types.BundleKindEncounter}, nil
}

func (m *mockService) ExportAll(ctx context.Context) (*types.Bundle, error) {
	if m.exportAllFn != nil {
		return m.exportAllFn(ctx)
	}
	return &types.Bundle{Version: types.BundleVersion, Kind: types.BundleKindAll}, nil
}

func (m *mockService) Import(ctx context.Context, b *types.Bundle, mode types.ImportMode) (types.ImportResult, error) {
	if m.importFn != nil {
		return m.importFn(ctx, b, mode)
	}
	return types.ImportResult{Mode: mode, EncountersWritten: len(b.Encounters), EventsWritten: len(b.Events)}, nil
}

type mockArchives struct {
	getFn func(ctx context.Context, encounterID string) (*types.ArchiveRecord, error)
}

func (m *mockArchives) GetByEncounter(ctx context.Context, encounterID string) (*types.ArchiveRecord, error) {
	if m.getFn != nil {
		return m.getFn(ctx, encounterID)
	}
	return nil, types.NewAppError(types.ErrCodeNotFoundArchive, "archive not found", nil)
}

// =============================================================================
// Helpers
// =============================================================================

var (
	_ EncounterService = (*mockService)(nil)
	_ EventService     = (*mockService)(nil)
	_ ViewService      = (*mockService)(nil)
	_ SettingsService  = (*mockService)(nil)
	_ BundleService    = (*mockService)(nil)
)

var (
	_ EncounterService = (*encounters.Service)(nil)
	_ EventService     = (*encounters.Service)(nil)
	_ ViewService      = (*encounters.Service)(nil)
	_ SettingsService  = (*encounters.Service)(nil)
	_ BundleService    = (*encounters.Service)(nil)
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testValidator() *core.Validator {
	return core.NewValidator(testLogger())
}

// serve routes one request through a router carrying only register's routes.
func serve(t *testing.T, register func(r chi.Router), method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	register(r)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

// decodeData unmarshals the data member of a success envelope into dst.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) *types.ResponseMeta {
	t.Helper()
	var env struct {
		Data json.RawMessage     `json:"data"`
		Meta *types.ResponseMeta `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if dst != nil {
		require.NoError(t, json.Unmarshal(env.Data, dst))
	}
	return env.Meta
}

func errorCodeOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env core.APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env.Error.Code
}
