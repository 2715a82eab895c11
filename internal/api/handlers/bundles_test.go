package handlers

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"laborcurve/internal/bundle"
	"laborcurve/internal/types"
)

var exportedAt = time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)

func newBundleRoutes(svc *mockService, archives ArchiveReader, maxBytes int64) func(r chi.Router) {
	return NewBundleHandler(svc, archives, bundle.NewCodec(), maxBytes, testLogger()).RegisterRoutes
}

func sampleBundle() *types.Bundle {
	return &types.Bundle{
		Version:    types.BundleVersion,
		ExportedAt: exportedAt,
		Kind:       types.BundleKindEncounter,
		Encounters: []types.Encounter{{ID: "enc_1", Parity: types.ParityNullip, Status: types.EncounterOpen}},
		Events: []types.Event{
			{ID: "evt_1", EncounterID: "enc_1", Timestamp: exportedAt, Data: types.ExamData{DilationCm: 4}},
		},
	}
}

func TestBundleHandler_ExportEncounter(t *testing.T) {
	svc := &mockService{exportFn: func(ctx context.Context, id string) (*types.Bundle, error) {
		return sampleBundle(), nil
	}}
	routes := newBundleRoutes(svc, nil, 0)

	t.Run("json", func(t *testing.T) {
		rec := serve(t, routes, http.MethodGet, "/encounters/enc_1/export", nil)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="laborcurve-enc_1-20240502T093000Z.json"`)

		b, err := bundle.NewCodec().Decode(rec.Body.Bytes(), 1<<20)
		require.NoError(t, err)
		assert.Len(t, b.Events, 1)
	})

	t.Run("zstd", func(t *testing.T) {
		rec := serve(t, routes, http.MethodGet, "/encounters/enc_1/export?compress=zstd", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, bundle.ContentTypeZstd, rec.Header().Get("Content-Type"))
		assert.True(t, strings.HasSuffix(rec.Header().Get("Content-Disposition"), `.json.zst"`))
		assert.True(t, bundle.IsCompressed(rec.Body.Bytes()))

		b, err := bundle.NewCodec().Decode(rec.Body.Bytes(), 1<<20)
		require.NoError(t, err)
		assert.Equal(t, "enc_1", b.Encounters[0].ID)
	})

	t.Run("bad compress", func(t *testing.T) {
		rec := serve(t, routes, http.MethodGet, "/encounters/enc_1/export?compress=gzip", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestBundleHandler_ExportAll(t *testing.T) {
	rec := serve(t, newBundleRoutes(&mockService{}, nil, 0), http.MethodGet, "/export", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "laborcurve-all-")
}

func TestBundleHandler_Import(t *testing.T) {
	raw := mustJSON(t, sampleBundle())

	t.Run("plain merge", func(t *testing.T) {
		var gotMode types.ImportMode
		svc := &mockService{importFn: func(ctx context.Context, b *types.Bundle, mode types.ImportMode) (types.ImportResult, error) {
			gotMode = mode
			return types.ImportResult{Mode: mode, EncountersWritten: len(b.Encounters), EventsWritten: len(b.Events)}, nil
		}}
		rec := serve(t, newBundleRoutes(svc, nil, 0), http.MethodPost, "/import", raw)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, types.ImportMerge, gotMode)

		var res types.ImportResult
		decodeData(t, rec, &res)
		assert.Equal(t, 1, res.EncountersWritten)
		assert.Equal(t, 1, res.EventsWritten)
	})

	t.Run("compressed replace", func(t *testing.T) {
		var gotMode types.ImportMode
		svc := &mockService{importFn: func(ctx context.Context, b *types.Bundle, mode types.ImportMode) (types.ImportResult, error) {
			gotMode = mode
			return types.ImportResult{Mode: mode}, nil
		}}
		compressed := bundle.NewCodec().Compress(raw)
		rec := serve(t, newBundleRoutes(svc, nil, 0), http.MethodPost, "/import?mode=replace", compressed)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, types.ImportReplace, gotMode)
	})

	t.Run("bad mode", func(t *testing.T) {
		rec := serve(t, newBundleRoutes(&mockService{}, nil, 0), http.MethodPost, "/import?mode=append", raw)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, string(types.ErrCodeValidationImportMode), errorCodeOf(t, rec))
	})

	t.Run("too large", func(t *testing.T) {
		rec := serve(t, newBundleRoutes(&mockService{}, nil, 16), http.MethodPost, "/import", raw)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, string(types.ErrCodeValidationBundle), errorCodeOf(t, rec))
	})

	t.Run("empty", func(t *testing.T) {
		rec := serve(t, newBundleRoutes(&mockService{}, nil, 0), http.MethodPost, "/import", []byte{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not json", func(t *testing.T) {
		rec := serve(t, newBundleRoutes(&mockService{}, nil, 0), http.MethodPost, "/import", []byte("version=1"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, string(types.ErrCodeValidationBundle), errorCodeOf(t, rec))
	})
}

func TestBundleHandler_Archive(t *testing.T) {
	payload := bundle.NewCodec().Compress([]byte(`{"version":1}`))
	archives := &mockArchives{getFn: func(ctx context.Context, encounterID string) (*types.ArchiveRecord, error) {
		return &types.ArchiveRecord{
			ID:          "arc_1",
			EncounterID: encounterID,
			Bundle:      payload,
			Encoding:    bundle.EncodingZstd,
			EventCount:  3,
			ArchivedAt:  exportedAt,
		}, nil
	}}
	routes := newBundleRoutes(&mockService{}, archives, 0)

	t.Run("metadata", func(t *testing.T) {
		rec := serve(t, routes, http.MethodGet, "/encounters/enc_1/archive", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		var got types.ArchiveRecord
		decodeData(t, rec, &got)
		assert.Equal(t, "enc_1", got.EncounterID)
		assert.Equal(t, 3, got.EventCount)
		assert.Nil(t, got.Bundle)
	})

	t.Run("download", func(t *testing.T) {
		rec := serve(t, routes, http.MethodGet, "/encounters/enc_1/archive?download=1", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, bundle.ContentTypeZstd, rec.Header().Get("Content-Type"))
		assert.True(t, bytes.Equal(payload, rec.Body.Bytes()))
	})

	t.Run("missing", func(t *testing.T) {
		rec := serve(t, newBundleRoutes(&mockService{}, &mockArchives{}, 0), http.MethodGet, "/encounters/enc_2/archive", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
