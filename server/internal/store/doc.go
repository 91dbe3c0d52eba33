// Package store keeps recently received device batches in memory. It provides
// a thread-safe batch store keyed by batch ID with TTL eviction and a Latest
// lookup used by the REST API and the WebSocket hub.
package store
