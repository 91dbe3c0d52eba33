package compute

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/netpulse/netpulse/pkg/types"
)

// Metric generation ranges.
const (
	BandwidthMin  = 10.0
	BandwidthMax  = 100.0
	LatencyMin    = 5.0
	LatencyMax    = 50.0
	PacketLossMin = 0.0
	PacketLossMax = 5.0
)

// DevicePrefix is prepended to the 1-based position to form a device ID.
const DevicePrefix = "Device_"

// NewRand returns a seeded source when seed is non-nil and a time-seeded one
// otherwise.
func NewRand(seed *int64) *rand.Rand {
	if seed != nil {
		return rand.New(rand.NewSource(*seed)) //nolint:gosec // simulation, not crypto
	}
	return rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec
}

// Generate returns count devices with independently drawn uniform metrics.
//
// Draw order per device is bandwidth, latency, packet loss, so a given seed
// always yields the same batch. Values are rounded to two decimals. IDs are
// positional: Device_1 .. Device_<count>.
func Generate(count int, rng *rand.Rand) ([]types.Device, error) {
	if count <= 0 {
		return nil, fmt.Errorf("compute: device count %d must be positive: %w", count, ErrInvalidArgument)
	}
	if rng == nil {
		rng = NewRand(nil)
	}

	devices := make([]types.Device, 0, count)
	for i := 1; i <= count; i++ {
		devices = append(devices, types.Device{
			DeviceID:       DeviceID(i),
			BandwidthUsage: round2(uniform(rng, BandwidthMin, BandwidthMax)),
			Latency:        round2(uniform(rng, LatencyMin, LatencyMax)),
			PacketLoss:     round2(uniform(rng, PacketLossMin, PacketLossMax)),
		})
	}
	return devices, nil
}

// DeviceID returns the positional identifier for the i-th device (1-based).
func DeviceID(i int) string {
	return DevicePrefix + strconv.Itoa(i)
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// round2 rounds half away from zero to two decimals.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
