// Package main is the entrypoint for the Archiver Lambda function.
//
// The Archiver consumes encounter.closed messages from the archive SQS queue.
// For each closed encounter it replays the predictor over the recorded exams,
// packs the encounter and its events into a zstd bundle and stores both the
// bundle and the replay accuracy in encounter_archives.
//
// Handler flow per message:
//  1. Unmarshal EncounterClosedMessage; malformed bodies are acknowledged.
//  2. Load the encounter. Deleted or re-opened encounters are skipped.
//  3. Export the bundle and run the replay report.
//  4. Save the archive record (idempotent per encounter) and emit metrics.
//
// Failures other than malformed input are reported as batch item failures
// so that SQS redelivers only the affected messages.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/google/uuid"

	"laborcurve/internal/bundle"
	"laborcurve/internal/config"
	"laborcurve/internal/db"
	"laborcurve/internal/encounters"
	"laborcurve/internal/telemetry"
	"laborcurve/internal/types"
)

// slogAdapter wraps *slog.Logger to implement the types.Logger interface.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *slogAdapter) With(args ...any) types.Logger {
	return &slogAdapter{logger: a.logger.With(args...)}
}

// EncounterSource reads the records to archive. *encounters.Service
// satisfies it.
type EncounterSource interface {
	GetEncounter(ctx context.Context, id string) (*types.Encounter, error)
	ExportEncounter(ctx context.Context, id string) (*types.Bundle, error)
	Replay(ctx context.Context, id string, at *time.Time) (encounters.ReplayReport, error)
}

// ArchiveStore persists archive records. *db.ArchiveRepository satisfies it.
type ArchiveStore interface {
	Save(ctx context.Context, rec *types.ArchiveRecord) error
}

// ArchiveMetrics records archive outcomes.
type ArchiveMetrics interface {
	RecordReplay(ctx context.Context, parity types.Parity, points int, meanAbsErrHr *float64)
	RecordArchived(ctx context.Context)
}

// Handler holds the dependencies for the archiver Lambda handler.
type Handler struct {
	source   EncounterSource
	archives ArchiveStore
	codec    *bundle.Codec
	metrics  ArchiveMetrics
	clock    types.Clock
	logger   types.Logger
}

// Handle processes an SQS event containing one or more encounter.closed
// messages. Messages are independent; partial batch responses let SQS retry
// only the failures.
func (h *Handler) Handle(ctx context.Context, sqsEvent events.SQSEvent) (events.SQSEventResponse, error) {
	response := events.SQSEventResponse{}

	for _, record := range sqsEvent.Records {
		if err := h.processMessage(ctx, record); err != nil {
			h.logger.Error("failed to archive encounter",
				"message_id", record.MessageId,
				"error", err.Error(),
			)
			response.BatchItemFailures = append(response.BatchItemFailures,
				events.SQSBatchItemFailure{ItemIdentifier: record.MessageId},
			)
		}
	}

	return response, nil
}

func (h *Handler) processMessage(ctx context.Context, record events.SQSMessage) error {
	var msg types.EncounterClosedMessage
	if err := json.Unmarshal([]byte(record.Body), &msg); err != nil {
		h.logger.Error("failed to unmarshal encounter.closed message",
			"message_id", record.MessageId,
			"error", err.Error(),
		)
		return nil
	}
	if msg.Type != types.EventTypeEncounterClosed || msg.EncounterID == "" {
		h.logger.Warn("ignoring unexpected message",
			"message_id", record.MessageId,
			"type", msg.Type,
		)
		return nil
	}

	logger := h.logger.With(
		"encounter_id", msg.EncounterID,
		"request_id", msg.RequestID,
	)

	enc, err := h.source.GetEncounter(ctx, msg.EncounterID)
	if err != nil {
		if isCode(err, types.ErrCodeNotFoundEncounter) {
			logger.Warn("encounter deleted before archiving; skipping")
			return nil
		}
		return fmt.Errorf("loading encounter: %w", err)
	}
	if !enc.Status.IsClosed() {
		logger.Warn("encounter re-opened before archiving; skipping", "status", string(enc.Status))
		return nil
	}

	b, err := h.source.ExportEncounter(ctx, enc.ID)
	if err != nil {
		return fmt.Errorf("exporting encounter: %w", err)
	}
	report, err := h.source.Replay(ctx, enc.ID, nil)
	if err != nil {
		return fmt.Errorf("replaying encounter: %w", err)
	}

	payload, err := h.codec.Encode(b, true)
	if err != nil {
		return err
	}

	rec := &types.ArchiveRecord{
		ID:             "arc_" + uuid.NewString(),
		EncounterID:    enc.ID,
		Bundle:         payload,
		Encoding:       bundle.EncodingZstd,
		EventCount:     len(b.Events),
		ReplayPoints:   len(report.Points),
		MeanAbsErrorHr: report.MeanAbsErrorHr,
		ArchivedAt:     h.clock.Now(),
	}
	if err := h.archives.Save(ctx, rec); err != nil {
		return fmt.Errorf("saving archive: %w", err)
	}

	h.metrics.RecordReplay(ctx, enc.EffectiveParity(), len(report.Points), report.MeanAbsErrorHr)
	h.metrics.RecordArchived(ctx)

	logger.Info("encounter archived",
		"events", rec.EventCount,
		"replay_points", rec.ReplayPoints,
		"bytes", len(payload),
	)
	return nil
}

func isCode(err error, code types.ErrorCode) bool {
	var appErr *types.AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	logger.Info("Archiver Lambda initializing (cold start)")

	typedLogger := &slogAdapter{logger: logger}

	cfg, err := config.LoadConfig(config.NewFileProvider())
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	repos := db.NewRepositories(pool)
	svc := encounters.NewService(
		encounters.ReposFrom(repos),
		encounters.PgTransactor{Store: db.NewStore(pool)},
		nil, nil, logger,
		encounters.Options{DisplayLocation: cfg.DisplayLocation()},
	)

	var metrics ArchiveMetrics = telemetry.Noop{}
	if cfg.Observability.EnableMetrics {
		awsCfg, err := config.LoadAWS(ctx, cfg.AWS)
		if err != nil {
			logger.Error("Failed to load AWS SDK config", "error", err)
			os.Exit(1)
		}
		metrics = telemetry.NewCloudWatchMetrics(
			cloudwatch.NewFromConfig(awsCfg),
			cfg.Observability.MetricNamespace,
			typedLogger,
		)
	}

	handler := &Handler{
		source:   svc,
		archives: repos.Archives,
		codec:    bundle.NewCodec(),
		metrics:  metrics,
		clock:    types.RealClock{},
		logger:   typedLogger,
	}

	logger.Info("Archiver Lambda initialized",
		"metrics_enabled", cfg.Observability.EnableMetrics,
		"metric_namespace", cfg.Observability.MetricNamespace,
	)

	// Local mode: read a JSON SQS event from stdin instead of starting the
	// Lambda runtime.
	if cfg.Environment == "local" {
		if err := runLocal(ctx, handler, os.Stdin, logger); err != nil {
			logger.Error("Local run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	lambda.Start(handler.Handle)
}

// runLocal feeds one SQS event read from r through the handler.
func runLocal(ctx context.Context, h *Handler, r io.Reader, logger *slog.Logger) error {
	payload, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	if len(payload) == 0 {
		return errors.New("no input received on stdin")
	}
	var sqsEvent events.SQSEvent
	if err := json.Unmarshal(payload, &sqsEvent); err != nil {
		return fmt.Errorf("parsing stdin as SQS event: %w", err)
	}

	response, err := h.Handle(ctx, sqsEvent)
	if err != nil {
		return err
	}
	logger.Info("Handler execution completed",
		"records_processed", len(sqsEvent.Records),
		"failures", len(response.BatchItemFailures),
	)
	return nil
}

// Compile-time assertions.
var (
	_ types.Logger    = (*slogAdapter)(nil)
	_ EncounterSource = (*encounters.Service)(nil)
	_ ArchiveStore    = (*db.ArchiveRepository)(nil)
	_ ArchiveMetrics  = (*telemetry.CloudWatchMetrics)(nil)
	_ ArchiveMetrics  = telemetry.Noop{}
)
