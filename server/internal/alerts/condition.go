package alerts

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/netpulse/netpulse/pkg/types"
)

// condition is a parsed "field op value" rule expression.
//
// Supported expressions:
//
//	bandwidth_usage > 90
//	latency >= 40
//	packet_loss > 4
//	normalized_latency > 0.8
//	optimization_score < 0.2
//	device_id == Device_3
type condition struct {
	field     string
	op        string
	threshold float64
	text      string // right-hand side for device_id
}

var numericFields = map[string]func(d types.Device) (float64, bool){
	"bandwidth_usage": func(d types.Device) (float64, bool) { return d.BandwidthUsage, true },
	"latency":         func(d types.Device) (float64, bool) { return d.Latency, true },
	"packet_loss":     func(d types.Device) (float64, bool) { return d.PacketLoss, true },
	"normalized_bandwidth": func(d types.Device) (float64, bool) {
		return deref(d.NormalizedBandwidth)
	},
	"normalized_latency": func(d types.Device) (float64, bool) {
		return deref(d.NormalizedLatency)
	},
	"normalized_packet_loss": func(d types.Device) (float64, bool) {
		return deref(d.NormalizedPacketLoss)
	},
	"optimization_score": func(d types.Device) (float64, bool) {
		return deref(d.OptimizationScore)
	},
}

func deref(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

// parseCondition validates and compiles a rule expression.
func parseCondition(expr string) (condition, error) {
	parts := strings.Fields(expr)
	if len(parts) != 3 {
		return condition{}, fmt.Errorf("condition %q: want \"field op value\"", expr)
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	if field == "device_id" {
		if op != "==" && op != "!=" {
			return condition{}, fmt.Errorf("condition %q: device_id supports == and != only", expr)
		}
		return condition{field: field, op: op, text: rhs}, nil
	}

	if _, ok := numericFields[field]; !ok {
		return condition{}, fmt.Errorf("condition %q: unknown field %q", expr, field)
	}
	switch op {
	case ">", ">=", "<", "<=", "==", "!=":
	default:
		return condition{}, fmt.Errorf("condition %q: unknown operator %q", expr, op)
	}
	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return condition{}, fmt.Errorf("condition %q: threshold: %w", expr, err)
	}
	return condition{field: field, op: op, threshold: threshold}, nil
}

// eval reports whether the condition holds for d and the value compared.
// A field the device does not carry (e.g. an unscored device) never fires.
func (c condition) eval(d types.Device) (bool, float64) {
	if c.field == "device_id" {
		if c.op == "==" {
			return d.DeviceID == c.text, 0
		}
		return d.DeviceID != c.text, 0
	}
	v, ok := numericFields[c.field](d)
	if !ok {
		return false, 0
	}
	return compareFloat(v, c.op, c.threshold), v
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	case "!=":
		return v != threshold
	default:
		return false
	}
}
