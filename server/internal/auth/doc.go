// Package auth provides API key authentication for netpulse-server.
//
// APIKeyInterceptor guards the gRPC batch endpoint and APIKeyMiddleware
// guards the REST API. Both take the same (mode, header, key) triple from the
// server auth config. When mode != "apikey" or key == "", every call passes
// through, which keeps local development unauthenticated. Keys are compared
// in constant time.
package auth
