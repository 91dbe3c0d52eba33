package compute

import (
	"gonum.org/v1/gonum/floats"

	"github.com/netpulse/netpulse/pkg/types"
)

// DegenerateValue is assigned to every device in a column whose minimum
// equals its maximum.
const DegenerateValue = 0.0

// Normalize min-max scales bandwidth, latency and packet loss independently
// into [0, 1] and returns a copy of devices with the normalized fields set.
// Order is preserved. Any existing score is carried over unchanged.
func Normalize(devices []types.Device) []types.Device {
	out := make([]types.Device, len(devices))
	copy(out, devices)
	if len(out) == 0 {
		return out
	}

	bw := make([]float64, len(out))
	lat := make([]float64, len(out))
	pl := make([]float64, len(out))
	for i, d := range out {
		bw[i] = d.BandwidthUsage
		lat[i] = d.Latency
		pl[i] = d.PacketLoss
	}

	nbw := minMax(bw)
	nlat := minMax(lat)
	npl := minMax(pl)
	for i := range out {
		out[i].NormalizedBandwidth = types.Float(nbw[i])
		out[i].NormalizedLatency = types.Float(nlat[i])
		out[i].NormalizedPacketLoss = types.Float(npl[i])
	}
	return out
}

// minMax rescales col into [0, 1]. A constant column maps to DegenerateValue.
func minMax(col []float64) []float64 {
	lo, hi := floats.Min(col), floats.Max(col)
	out := make([]float64, len(col))
	span := hi - lo
	for i, v := range col {
		if span == 0 {
			out[i] = DegenerateValue
			continue
		}
		out[i] = (v - lo) / span
	}
	return out
}
