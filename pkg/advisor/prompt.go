package advisor

import (
	"strconv"
	"strings"

	"github.com/netpulse/netpulse/pkg/types"
)

// BuildPrompt renders the user message describing devices. Normalized values
// are used when a device carries them, raw values otherwise.
func BuildPrompt(devices []types.Device) string {
	parts := make([]string, 0, len(devices))
	for _, d := range devices {
		bw, lat, pl := d.BandwidthUsage, d.Latency, d.PacketLoss
		if d.IsNormalized() {
			bw, lat, pl = *d.NormalizedBandwidth, *d.NormalizedLatency, *d.NormalizedPacketLoss
		}
		parts = append(parts, "Device ID: "+d.DeviceID+
			", Bandwidth: "+formatFloat(bw)+
			", Latency: "+formatFloat(lat)+
			", Packet Loss: "+formatFloat(pl))
	}
	return "Here is the current network state: " + strings.Join(parts, ", ") + ". Suggest optimized values."
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
