package compute

import "github.com/netpulse/netpulse/pkg/types"

// Reduction holds the fraction by which each raw metric is reduced in a
// projection. 0.15 means "15 % lower".
type Reduction struct {
	Bandwidth  float64 `json:"bandwidth" yaml:"bandwidth"`
	Latency    float64 `json:"latency" yaml:"latency"`
	PacketLoss float64 `json:"packet_loss" yaml:"packet_loss"`
}

// DefaultReduction is 15 % bandwidth, 10 % latency and 20 % packet loss.
func DefaultReduction() Reduction {
	return Reduction{Bandwidth: 0.15, Latency: 0.10, PacketLoss: 0.20}
}

// Values is a raw metric triple.
type Values struct {
	BandwidthUsage float64 `json:"bandwidth_usage"`
	Latency        float64 `json:"latency"`
	PacketLoss     float64 `json:"packet_loss"`
}

// Projection pairs a device's current metrics with the projected ones.
type Projection struct {
	DeviceID  string `json:"device_id"`
	Original  Values `json:"original"`
	Projected Values `json:"projected"`
}

// Project applies a fixed-percentage reduction to every device's raw
// metrics. Projected values are rounded to two decimals. Order is preserved.
func Project(devices []types.Device, r Reduction) []Projection {
	out := make([]Projection, 0, len(devices))
	for _, d := range devices {
		out = append(out, Projection{
			DeviceID: d.DeviceID,
			Original: Values{
				BandwidthUsage: d.BandwidthUsage,
				Latency:        d.Latency,
				PacketLoss:     d.PacketLoss,
			},
			Projected: Values{
				BandwidthUsage: round2(d.BandwidthUsage * (1 - r.Bandwidth)),
				Latency:        round2(d.Latency * (1 - r.Latency)),
				PacketLoss:     round2(d.PacketLoss * (1 - r.PacketLoss)),
			},
		})
	}
	return out
}
