// Package queue provides the SQS producer that hands closed encounters to
// the archiver worker.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/sony/gobreaker/v2"

	"laborcurve/internal/config"
	"laborcurve/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// FailureRecorder counts publish failures. The CloudWatch collector
// implements it.
type FailureRecorder interface {
	RecordQueuePublishFailure(ctx context.Context, queue string)
}

// BreakerSettings tunes the circuit breaker guarding SQS.
type BreakerSettings struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// DefaultBreakerSettings trips after five consecutive failures and probes
// again after thirty seconds.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{ConsecutiveFailures: 5, OpenTimeout: 30 * time.Second}
}

// ArchivePublisher sends encounter.closed messages to the archive queue.
// Calls pass through a circuit breaker so an SQS outage fails fast instead
// of holding API requests open.
type ArchivePublisher struct {
	client   SQSSender
	queueURL string
	breaker  *gobreaker.CircuitBreaker[*sqs.SendMessageOutput]
	failures FailureRecorder
	logger   *slog.Logger
}

// NewArchivePublisher creates a publisher for the queue configured in
// awsCfg. failures may be nil.
func NewArchivePublisher(
	client SQSSender,
	awsCfg config.AWSConfig,
	settings BreakerSettings,
	failures FailureRecorder,
	logger *slog.Logger,
) *ArchivePublisher {
	if logger == nil {
		logger = slog.Default()
	}
	cb := gobreaker.NewCircuitBreaker[*sqs.SendMessageOutput](gobreaker.Settings{
		Name:        "sqs-archive",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return &ArchivePublisher{
		client:   client,
		queueURL: awsCfg.ArchiveQueueURL,
		breaker:  cb,
		failures: failures,
		logger:   logger,
	}
}

// PublishEncounterClosed serializes msg and sends it to the archive queue.
// The encounter id is used as the deduplication hint attribute.
func (p *ArchivePublisher) PublishEncounterClosed(ctx context.Context, msg types.EncounterClosedMessage) error {
	if msg.Type == "" {
		msg.Type = types.EventTypeEncounterClosed
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("queue: failed to marshal %s message: %w", msg.Type, err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqsTypes.MessageAttributeValue{
			"type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(msg.Type),
			},
			"encounter_id": {
				DataType:    aws.String("String"),
				StringValue: aws.String(msg.EncounterID),
			},
		},
	}

	_, err = p.breaker.Execute(func() (*sqs.SendMessageOutput, error) {
		return p.client.SendMessage(ctx, input)
	})
	if err != nil {
		if p.failures != nil {
			p.failures.RecordQueuePublishFailure(ctx, "archive")
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return types.NewAppError(types.ErrCodeUpstreamQueue, "archive queue circuit is open", err)
		}
		return types.NewAppError(types.ErrCodeUpstreamQueue,
			fmt.Sprintf("failed to send %s message", msg.Type), err)
	}

	p.logger.InfoContext(ctx, "encounter closed message sent",
		"queue_url", p.queueURL,
		"encounter_id", msg.EncounterID,
		"status", string(msg.Status),
		"request_id", msg.RequestID,
	)
	return nil
}

// NoopPublisher drops messages. It is used when no archive queue is
// configured, as in local development.
type NoopPublisher struct {
	Logger *slog.Logger
}

// PublishEncounterClosed logs and discards msg.
func (n NoopPublisher) PublishEncounterClosed(ctx context.Context, msg types.EncounterClosedMessage) error {
	if n.Logger != nil {
		n.Logger.DebugContext(ctx, "archive queue not configured; dropping message",
			"encounter_id", msg.EncounterID,
		)
	}
	return nil
}
