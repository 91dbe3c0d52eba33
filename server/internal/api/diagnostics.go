package api

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/netpulse/netpulse/pkg/types"
)

// Hint levels, most severe first.
const (
	LevelCritical = "critical"
	LevelWarning  = "warning"
	LevelInfo     = "info"
	LevelOK       = "ok"
)

// Raw-value thresholds. They sit in the upper part of the simulated ranges
// (bandwidth 10-100 Mbps, latency 5-50 ms, packet loss 0-5 %).
const (
	latencyWarnMs      = 35.0
	latencyCriticalMs  = 45.0
	packetLossWarnPct  = 2.5
	packetLossCritPct  = 4.0
	bandwidthHighMbps  = 90.0
	lowScoreThreshold  = 0.25
	highScoreThreshold = 0.85
)

// DiagnosticHint is one human-readable observation about a device. Key is a
// stable machine-readable identifier; Level is one of the Level constants.
type DiagnosticHint struct {
	Key    string   `json:"key"`
	Level  string   `json:"level"`
	Title  string   `json:"title"`
	Detail string   `json:"detail"`
	Value  *float64 `json:"value,omitempty"`
}

var levelRank = map[string]int{LevelCritical: 0, LevelWarning: 1, LevelInfo: 2, LevelOK: 3}

// computeDiagnostics derives hints from a device's raw metrics and score.
// Hints are ordered critical first, then warnings, then info.
func computeDiagnostics(d types.Device) []DiagnosticHint {
	var hints []DiagnosticHint

	// Latency
	switch {
	case d.Latency >= latencyCriticalMs:
		hints = append(hints, hint("latency", LevelCritical,
			fmt.Sprintf("%.1f ms latency", d.Latency),
			fmt.Sprintf("Round-trip latency of %.1f ms is near the top of the expected range. "+
				"Interactive traffic through this device will feel sluggish. "+
				"Check for congested uplinks or a long routing path.", d.Latency),
			d.Latency))
	case d.Latency >= latencyWarnMs:
		hints = append(hints, hint("latency", LevelWarning,
			fmt.Sprintf("%.1f ms latency", d.Latency),
			fmt.Sprintf("Latency of %.1f ms is elevated. Watch whether it keeps rising across batches.", d.Latency),
			d.Latency))
	}

	// Packet loss
	switch {
	case d.PacketLoss >= packetLossCritPct:
		hints = append(hints, hint("packet_loss", LevelCritical,
			fmt.Sprintf("%.2f%% packet loss", d.PacketLoss),
			fmt.Sprintf("This device is dropping %.2f%% of packets. At this rate TCP throughput "+
				"collapses and real-time traffic degrades badly. Inspect interface errors "+
				"and queue drops.", d.PacketLoss),
			d.PacketLoss))
	case d.PacketLoss >= packetLossWarnPct:
		hints = append(hints, hint("packet_loss", LevelWarning,
			fmt.Sprintf("%.2f%% packet loss", d.PacketLoss),
			fmt.Sprintf("Packet loss of %.2f%% is noticeable and usually points at a "+
				"saturated queue or a flaky link.", d.PacketLoss),
			d.PacketLoss))
	}

	// Bandwidth
	if d.BandwidthUsage >= bandwidthHighMbps {
		hints = append(hints, hint("bandwidth", LevelInfo,
			fmt.Sprintf("%.1f Mbps in use", d.BandwidthUsage),
			fmt.Sprintf("Bandwidth usage of %.1f Mbps is close to the simulated ceiling. "+
				"Headroom for bursts is limited.", d.BandwidthUsage),
			d.BandwidthUsage))
	}

	// Score, relative to the rest of the batch.
	if d.OptimizationScore != nil {
		score := *d.OptimizationScore
		switch {
		case score < lowScoreThreshold:
			hints = append(hints, hint("score", LevelWarning,
				fmt.Sprintf("Score %.2f", score),
				fmt.Sprintf("With an optimization score of %.2f this device is among the worst "+
					"in its batch. It is the first candidate for tuning.", score),
				score))
		case score >= highScoreThreshold && len(hints) == 0:
			hints = append(hints, hint("score", LevelOK, "All clear",
				fmt.Sprintf("With an optimization score of %.2f this device is close to the best "+
					"values seen in its batch.", score),
				score))
		}
	}

	if len(hints) == 0 {
		hints = append(hints, DiagnosticHint{
			Key:    "nominal",
			Level:  LevelOK,
			Title:  "Nominal",
			Detail: "All metrics are within their normal ranges.",
		})
	}

	slices.SortStableFunc(hints, func(a, b DiagnosticHint) int {
		return cmp.Compare(levelRank[a.Level], levelRank[b.Level])
	})
	return hints
}

func hint(key, level, title, detail string, value float64) DiagnosticHint {
	return DiagnosticHint{Key: key, Level: level, Title: title, Detail: detail, Value: &value}
}
