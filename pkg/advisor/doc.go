// Package advisor asks a remote OpenAI-compatible chat-completion endpoint for
// free-text tuning suggestions about a device batch.
//
// The response is returned verbatim and never parsed. Every failure surfaces
// as an *ExternalServiceError matching ErrExternalService, so callers can keep
// the batch they already computed and report the suggestion as unavailable.
// There are no retries: one call, bounded by Config.Timeout.
package advisor
