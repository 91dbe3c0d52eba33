// Package metrics exposes netpulse-server's own Prometheus metrics: batches
// received and generated, suggestion outcomes and latency, and per-route
// HTTP request counts. All methods are nil-safe so components can run
// without instrumentation in tests.
package metrics
