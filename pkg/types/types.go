package types

import "time"

// Default scorer weights.
const (
	DefaultBandwidthWeight  = 0.2
	DefaultLatencyWeight    = 0.4
	DefaultPacketLossWeight = 0.4
)

// Device is the metric record for one simulated network endpoint.
//
// The normalized fields are nil until the batch has been normalized and
// OptimizationScore is nil until it has been scored. Normalized values are
// relative to the batch they were computed from and cannot be compared
// across batches.
type Device struct {
	DeviceID       string  `json:"device_id"`
	BandwidthUsage float64 `json:"bandwidth_usage"` // Mbps
	Latency        float64 `json:"latency"`         // ms
	PacketLoss     float64 `json:"packet_loss"`     // percent

	NormalizedBandwidth  *float64 `json:"normalized_bandwidth,omitempty"`
	NormalizedLatency    *float64 `json:"normalized_latency,omitempty"`
	NormalizedPacketLoss *float64 `json:"normalized_packet_loss,omitempty"`

	// OptimizationScore is the weighted sum of inverted normalized values.
	// Higher means closer to the ideal (all metrics minimized).
	OptimizationScore *float64 `json:"optimization_score,omitempty"`
}

// IsNormalized reports whether all three normalized fields are present.
func (d Device) IsNormalized() bool {
	return d.NormalizedBandwidth != nil && d.NormalizedLatency != nil && d.NormalizedPacketLoss != nil
}

// Score returns the optimization score, or 0 when the device is unscored.
func (d Device) Score() float64 {
	if d.OptimizationScore == nil {
		return 0
	}
	return *d.OptimizationScore
}

// Weights are the per-metric multipliers used by the scorer. They are not
// validated and need not sum to 1.
type Weights struct {
	Bandwidth  float64 `json:"bandwidth" yaml:"bandwidth"`
	Latency    float64 `json:"latency" yaml:"latency"`
	PacketLoss float64 `json:"packet_loss" yaml:"packet_loss"`
}

// DefaultWeights returns the 0.2 / 0.4 / 0.4 weighting.
func DefaultWeights() Weights {
	return Weights{
		Bandwidth:  DefaultBandwidthWeight,
		Latency:    DefaultLatencyWeight,
		PacketLoss: DefaultPacketLossWeight,
	}
}

// Batch is one generated collection of devices. It is the unit of
// consistency for normalization and scoring.
type Batch struct {
	ID          string    `json:"batch_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Seed        *int64    `json:"seed,omitempty"`
	Weights     *Weights  `json:"weights,omitempty"`
	Devices     []Device  `json:"devices"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
