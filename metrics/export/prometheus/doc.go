// Package prometheus exposes goShelf counters through client_golang.
//
// [Collector] implements prometheus.Collector and reads a fresh snapshot on
// every scrape. [Collector.Handler] serves it from a private registry; callers
// that already run a registry can register the Collector themselves.
package prometheus
