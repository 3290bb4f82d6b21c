// Package observability bundles the operational concerns of the service:
// structured JSON logging over log/slog, Prometheus metrics, liveness and
// readiness probes, and optional OpenTelemetry tracing via OTLP/gRPC.
package observability
