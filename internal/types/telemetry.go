package types

// Telemetry metric names for CloudWatch.
const (
	MetricAPILatency         = "APILatency"
	MetricAPIRequest         = "APIRequest"
	MetricReplayMeanAbsError = "ReplayMeanAbsErrorHours"
	MetricReplayPoints       = "ReplayPoints"
	MetricEncounterArchived  = "EncounterArchived"
	MetricQueuePublishFailed = "QueuePublishFailed"

	DimEndpoint = "Endpoint"
	DimMethod   = "Method"
	DimStatus   = "Status"
	DimParity   = "Parity"
	DimQueue    = "Queue"

	MetricNamespace = "LaborCurve"
)
