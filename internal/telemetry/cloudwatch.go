// Package telemetry publishes LaborCurve metrics to CloudWatch: API request
// latency and counts, replay accuracy of archived encounters, and queue
// publish failures.
package telemetry

import (
	"context"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"laborcurve/internal/types"
)

// putTimeout bounds metric calls made outside a request context.
const putTimeout = 2 * time.Second

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchMetrics emits metrics to a CloudWatch namespace. Failures are
// logged and never returned; metrics must not break the request path.
//
// Metrics emitted:
//   - APILatency, APIRequest: Dims {Method, Endpoint, Status}
//   - ReplayMeanAbsErrorHours, ReplayPoints: Dims {Parity}
//   - EncounterArchived: no dims
//   - QueuePublishFailed: Dims {Queue}
type CloudWatchMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    types.Logger
}

// NewCloudWatchMetrics creates a collector publishing under namespace. An
// empty namespace falls back to types.MetricNamespace.
func NewCloudWatchMetrics(client CloudWatchClient, namespace string, logger types.Logger) *CloudWatchMetrics {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	return &CloudWatchMetrics{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

func dim(name, value string) cwtypes.Dimension {
	return cwtypes.Dimension{Name: aws.String(name), Value: aws.String(value)}
}

func (m *CloudWatchMetrics) put(ctx context.Context, what string, data ...cwtypes.MetricDatum) {
	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	})
	if err != nil {
		m.logger.Error("failed to record metric",
			"metric", what,
			"error", err.Error(),
		)
	}
}

// RecordRequest emits request latency (milliseconds) and a request count.
// It has no caller context, so it uses a short detached one.
func (m *CloudWatchMetrics) RecordRequest(method, endpoint, status string, duration time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), putTimeout)
	defer cancel()

	dims := []cwtypes.Dimension{
		dim(types.DimMethod, method),
		dim(types.DimEndpoint, endpoint),
		dim(types.DimStatus, status),
	}
	m.put(ctx, types.MetricAPIRequest,
		cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricAPILatency),
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Unit:       cwtypes.StandardUnitMilliseconds,
			Dimensions: dims,
		},
		cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricAPIRequest),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: dims,
		},
	)
}

// RecordReplay emits the number of replay points of an archived encounter
// and, when an outcome allowed scoring, the mean absolute error in hours.
func (m *CloudWatchMetrics) RecordReplay(ctx context.Context, parity types.Parity, points int, meanAbsErrHr *float64) {
	dims := []cwtypes.Dimension{dim(types.DimParity, string(parity))}
	data := []cwtypes.MetricDatum{{
		MetricName: aws.String(types.MetricReplayPoints),
		Value:      aws.Float64(float64(points)),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: dims,
	}}
	if meanAbsErrHr != nil {
		data = append(data, cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricReplayMeanAbsError),
			Value:      aws.Float64(*meanAbsErrHr),
			Unit:       cwtypes.StandardUnitNone,
			Dimensions: dims,
		})
	}
	m.put(ctx, types.MetricReplayMeanAbsError, data...)
}

// RecordArchived counts one archived encounter.
func (m *CloudWatchMetrics) RecordArchived(ctx context.Context) {
	m.put(ctx, types.MetricEncounterArchived, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricEncounterArchived),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
	})
}

// RecordQueuePublishFailure counts a failed SQS publish.
func (m *CloudWatchMetrics) RecordQueuePublishFailure(ctx context.Context, queue string) {
	m.put(ctx, types.MetricQueuePublishFailed, cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricQueuePublishFailed),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{dim(types.DimQueue, queue)},
	})
}

// StatusClass folds an HTTP status into "2xx", "4xx" and so on, keeping
// the Status dimension low-cardinality.
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}

// Noop discards every metric. Used when ENABLE_METRICS is off.
type Noop struct{}

func (Noop) RecordRequest(string, string, string, time.Duration)       {}
func (Noop) RecordReplay(context.Context, types.Parity, int, *float64) {}
func (Noop) RecordArchived(context.Context)                            {}
func (Noop) RecordQueuePublishFailure(context.Context, string)         {}
