package core

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
)

// MetricsCollector records per-request telemetry. Endpoint is the chi route
// pattern, not the raw path, to keep metric cardinality bounded.
type MetricsCollector interface {
	RecordRequest(method, endpoint, status string, duration time.Duration)
}

// HealthProbe checks one dependency for GET /health.
type HealthProbe interface {
	Name() string
	Check(ctx context.Context) error
}

// RouteRegistrar mounts a group of routes on the /v1 router.
type RouteRegistrar func(r chi.Router)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}
