// Package otel bridges the engine's internal counters to OpenTelemetry
// observable instruments via a registered callback.
package otel
