package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"laborcurve/internal/bundle"
	"laborcurve/internal/core"
	"laborcurve/internal/encounters"
	"laborcurve/internal/types"
)

// DefaultMaxImportBytes bounds an import body when no limit is configured.
const DefaultMaxImportBytes int64 = 20 << 20

// BundleService exports and imports bundles.
type BundleService interface {
	ExportEncounter(ctx context.Context, id string) (*types.Bundle, error)
	ExportAll(ctx context.Context) (*types.Bundle, error)
	Import(ctx context.Context, b *types.Bundle, mode types.ImportMode) (types.ImportResult, error)
}

// ArchiveReader loads archived encounters.
type ArchiveReader interface {
	GetByEncounter(ctx context.Context, encounterID string) (*types.ArchiveRecord, error)
}

// BundleHandler serves export, import and archive endpoints.
type BundleHandler struct {
	svc            BundleService
	archives       ArchiveReader
	codec          *bundle.Codec
	maxImportBytes int64
	logger         *slog.Logger
}

// NewBundleHandler creates a BundleHandler. A non-positive maxImportBytes
// falls back to DefaultMaxImportBytes.
func NewBundleHandler(svc BundleService, archives ArchiveReader, codec *bundle.Codec, maxImportBytes int64, l *slog.Logger) *BundleHandler {
	if l == nil {
		l = slog.Default()
	}
	if codec == nil {
		codec = bundle.NewCodec()
	}
	if maxImportBytes <= 0 {
		maxImportBytes = DefaultMaxImportBytes
	}
	return &BundleHandler{
		svc:            svc,
		archives:       archives,
		codec:          codec,
		maxImportBytes: maxImportBytes,
		logger:         l,
	}
}

// RegisterRoutes mounts the bundle routes.
func (h *BundleHandler) RegisterRoutes(r chi.Router) {
	r.Get("/export", h.ExportAll)
	r.Post("/import", h.Import)
	r.Get("/encounters/{id}/export", h.ExportEncounter)
	r.Get("/encounters/{id}/archive", h.Archive)
}

// ExportEncounter handles GET /v1/encounters/{id}/export[?compress=zstd].
func (h *BundleHandler) ExportEncounter(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b, err := h.svc.ExportEncounter(r.Context(), id)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	h.writeBundle(w, r, b, "laborcurve-"+id)
}

// ExportAll handles GET /v1/export[?compress=zstd].
func (h *BundleHandler) ExportAll(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.ExportAll(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	h.writeBundle(w, r, b, "laborcurve-all")
}

func (h *BundleHandler) writeBundle(w http.ResponseWriter, r *http.Request, b *types.Bundle, base string) {
	compress, err := compressParam(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	body, err := h.codec.Encode(b, compress)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	filename := fmt.Sprintf("%s-%s.json", base, b.ExportedAt.UTC().Format("20060102T150405Z"))
	contentType := "application/json"
	if compress {
		filename += ".zst"
		contentType = bundle.ContentTypeZstd
	}
	core.Attachment(w, contentType, filename, body)
}

// Import handles POST /v1/import?mode=merge|replace. The body may be plain
// JSON or a zstd frame.
func (h *BundleHandler) Import(w http.ResponseWriter, r *http.Request) {
	mode, err := encounters.ParseImportMode(r.URL.Query().Get("mode"))
	if err != nil {
		core.Error(w, r, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxImportBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			core.Error(w, r, types.NewAppErrorWithDetails(types.ErrCodeValidationBundle,
				"bundle is too large", err,
				map[string]any{"max_bytes": h.maxImportBytes}))
			return
		}
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationBundle, "failed to read bundle", err))
		return
	}
	if len(body) == 0 {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationBundle, "bundle is empty", nil))
		return
	}

	b, err := h.codec.Decode(body, h.maxImportBytes)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	res, err := h.svc.Import(r.Context(), b, mode)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "bundle imported",
		"mode", string(res.Mode),
		"encounters", res.EncountersWritten,
		"events", res.EventsWritten,
		"compressed", bundle.IsCompressed(body),
	)
	core.Data(w, r, http.StatusOK, res)
}

// Archive handles GET /v1/encounters/{id}/archive. With ?download=1 the
// stored bundle is returned as a file; otherwise only its metadata.
func (h *BundleHandler) Archive(w http.ResponseWriter, r *http.Request) {
	if h.archives == nil {
		core.Error(w, r, types.NewAppError(types.ErrCodeNotFoundArchive, "archive not found", nil))
		return
	}

	id := chi.URLParam(r, "id")
	rec, err := h.archives.GetByEncounter(r.Context(), id)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if !queryBool(r, "download", false) {
		core.Data(w, r, http.StatusOK, rec)
		return
	}

	filename := fmt.Sprintf("laborcurve-%s-archive.json", id)
	contentType := "application/json"
	if rec.Encoding == bundle.EncodingZstd {
		filename += ".zst"
		contentType = bundle.ContentTypeZstd
	}
	core.Attachment(w, contentType, filename, rec.Bundle)
}

func compressParam(r *http.Request) (bool, error) {
	switch v := r.URL.Query().Get("compress"); v {
	case "", "none":
		return false, nil
	case bundle.EncodingZstd:
		return true, nil
	default:
		return false, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidRequest,
			"compress must be zstd or none", nil,
			map[string]any{"compress": v})
	}
}
