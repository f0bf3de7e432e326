// Package internaldefs holds the shared metric name table used by the
// Prometheus and OpenTelemetry exporters. It is not a public API.
package internaldefs
