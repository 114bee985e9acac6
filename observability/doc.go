// Package observability initializes OpenTelemetry metrics and tracing
// for the dashboard core, exporting over OTLP HTTP. Domain instruments
// live next to the code they measure (see protocol.Metrics); this
// package owns provider setup, span helpers and component health.
package observability
