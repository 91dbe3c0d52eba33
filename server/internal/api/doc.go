// Package api implements the HTTP REST API for netpulse-server on a
// gorilla/mux router.
//
// New(deps) returns an http.Handler that serves:
//
//	GET  /api/v1/health                     batch count, latest batch, alert count
//	GET  /api/v1/batches                    live batch summaries, newest first
//	POST /api/v1/batches                    generate, normalize and score a batch
//	GET  /api/v1/batches/latest             newest live batch with diagnostics
//	GET  /api/v1/batches/{id}               one batch; 404 if unknown or stale
//	POST /api/v1/batches/{id}/score         rescore with other weights (not stored)
//	POST /api/v1/batches/{id}/projection    fixed-percentage improvement projection
//	POST /api/v1/batches/{id}/suggestion    remote suggestion text
//	GET  /api/v1/batches/{id}/metrics       batch in Prometheus text format
//	GET  /api/v1/alerts                     active alerts
//	GET  /api/v1/advisor                    suggestion endpoint status and TLS cert
//
// JSON endpoints respond with Content-Type: application/json and report
// failures as {"error": "..."}. Unsupported methods get 405. JSON types are
// defined in types.go.
package api
