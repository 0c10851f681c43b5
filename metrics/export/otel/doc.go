// Package otel exports goShelf session metrics as OpenTelemetry observable
// instruments.
//
// Counters map to Int64ObservableCounter instruments with the same names the
// Prometheus exporter uses. The request latency histogram is observed as a
// cumulative bucket gauge labelled "le" plus a sample-count gauge. A single
// callback reads the Manager's snapshot on each collection; callers own the
// MeterProvider.
package otel
