package api

import (
	"github.com/netpulse/netpulse/pkg/advisor"
	"github.com/netpulse/netpulse/pkg/compute"
	"github.com/netpulse/netpulse/pkg/types"
)

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status           string `json:"status"` // ok | waiting
	BatchCount       int    `json:"batch_count"`
	LatestBatchID    string `json:"latest_batch_id,omitempty"`
	LatestReceivedAt string `json:"latest_received_at,omitempty"` // RFC3339
	AlertCount       int    `json:"alert_count"`
	AdvisorEnabled   bool   `json:"advisor_enabled"`
}

// BatchSummary is one entry in GET /api/v1/batches.
type BatchSummary struct {
	BatchID     string  `json:"batch_id"`
	Origin      string  `json:"origin"`
	GeneratedAt string  `json:"generated_at"` // RFC3339
	ReceivedAt  string  `json:"received_at"`  // RFC3339
	DeviceCount int     `json:"device_count"`
	TopDevice   string  `json:"top_device,omitempty"`
	TopScore    float64 `json:"top_score"`
}

// BatchResponse is a full batch plus server-side metadata.
type BatchResponse struct {
	*types.Batch
	Origin      string              `json:"origin"`
	ReceivedAt  string              `json:"received_at"` // RFC3339
	Diagnostics []DeviceDiagnostics `json:"diagnostics"`
}

// DeviceDiagnostics groups the hints for one device.
type DeviceDiagnostics struct {
	DeviceID string           `json:"device_id"`
	Hints    []DiagnosticHint `json:"hints"`
}

// GenerateRequest is the body of POST /api/v1/batches.
type GenerateRequest struct {
	Count   int            `json:"count"`
	Seed    *int64         `json:"seed,omitempty"`
	Weights *types.Weights `json:"weights,omitempty"`
}

// ScoreRequest is the body of POST /api/v1/batches/{id}/score.
type ScoreRequest struct {
	Weights *types.Weights `json:"weights"`
}

// ScoreResponse is a rescored copy of a stored batch.
type ScoreResponse struct {
	BatchID string         `json:"batch_id"`
	Weights types.Weights  `json:"weights"`
	Devices []types.Device `json:"devices"`
}

// ProjectionRequest is the optional body of POST /api/v1/batches/{id}/projection.
type ProjectionRequest struct {
	Reduction *compute.Reduction `json:"reduction,omitempty"`
}

// ProjectionResponse is the payload for POST /api/v1/batches/{id}/projection.
type ProjectionResponse struct {
	BatchID   string               `json:"batch_id"`
	Reduction compute.Reduction    `json:"reduction"`
	Devices   []compute.Projection `json:"devices"`
}

// SuggestionResponse is the payload for POST /api/v1/batches/{id}/suggestion.
type SuggestionResponse struct {
	BatchID    string `json:"batch_id"`
	Model      string `json:"model"`
	Suggestion string `json:"suggestion"`
}

// AdvisorResponse is the payload for GET /api/v1/advisor.
type AdvisorResponse struct {
	Enabled bool                `json:"enabled"`
	BaseURL string              `json:"base_url,omitempty"`
	Model   string              `json:"model,omitempty"`
	Cert    *advisor.CertStatus `json:"cert,omitempty"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
