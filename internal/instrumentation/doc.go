// Package instrumentation provides OpenTelemetry metrics and tracing for the
// calendar aggregation service.
//
// The Provider wires a meter provider (Prometheus exporter by default, with
// OTLP and stdout alternatives) and a tracer provider (disabled by default)
// from environment-driven configuration. Metrics cover the HTTP surface, sync
// cycles, OAuth token refreshes, provider API calls, and event mutations.
//
// When instrumentation is disabled, Provider returns a zero-value Metrics
// recorder whose methods are no-ops, so callers never need nil checks.
package instrumentation
