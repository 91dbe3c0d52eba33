package compute

import (
	"cmp"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/netpulse/netpulse/pkg/types"
)

// Score computes each device's optimization score and returns a copy of
// devices stable-sorted by score, highest first. Devices with equal scores
// keep their input order.
//
//	score = (1 - normalized_bandwidth)   * w.Bandwidth  +
//	        (1 - normalized_latency)     * w.Latency    +
//	        (1 - normalized_packet_loss) * w.PacketLoss
//
// Weights are used as given. Every device must already be normalized.
func Score(devices []types.Device, w types.Weights) ([]types.Device, error) {
	for _, d := range devices {
		if !d.IsNormalized() {
			return nil, fmt.Errorf("compute: device %q is not normalized: %w", d.DeviceID, ErrPreconditionViolation)
		}
	}

	weights := []float64{w.Bandwidth, w.Latency, w.PacketLoss}
	out := make([]types.Device, len(devices))
	for i, d := range devices {
		inverted := []float64{
			1 - *d.NormalizedBandwidth,
			1 - *d.NormalizedLatency,
			1 - *d.NormalizedPacketLoss,
		}
		d.OptimizationScore = types.Float(floats.Dot(inverted, weights))
		out[i] = d
	}

	slices.SortStableFunc(out, func(a, b types.Device) int {
		return cmp.Compare(b.Score(), a.Score())
	})
	return out, nil
}

// Pipeline normalizes and scores devices in one step.
func Pipeline(devices []types.Device, w types.Weights) ([]types.Device, error) {
	return Score(Normalize(devices), w)
}
