package exposition

import (
	"fmt"
	"io"
	"math"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/netpulse/netpulse/pkg/types"
)

// Metric family names.
const (
	MetricBandwidth            = "netpulse_device_bandwidth_usage_mbps"
	MetricLatency              = "netpulse_device_latency_ms"
	MetricPacketLoss           = "netpulse_device_packet_loss_percent"
	MetricNormalizedBandwidth  = "netpulse_device_normalized_bandwidth"
	MetricNormalizedLatency    = "netpulse_device_normalized_latency"
	MetricNormalizedPacketLoss = "netpulse_device_normalized_packet_loss"
	MetricScore                = "netpulse_device_optimization_score"

	LabelDeviceID = "device_id"
)

type family struct {
	name string
	help string
	get  func(d *types.Device) *float64
	set  func(d *types.Device, v float64)
}

var families = []family{
	{MetricBandwidth, "Bandwidth usage in Mbps.",
		func(d *types.Device) *float64 { return &d.BandwidthUsage },
		func(d *types.Device, v float64) { d.BandwidthUsage = v }},
	{MetricLatency, "Latency in milliseconds.",
		func(d *types.Device) *float64 { return &d.Latency },
		func(d *types.Device, v float64) { d.Latency = v }},
	{MetricPacketLoss, "Packet loss in percent.",
		func(d *types.Device) *float64 { return &d.PacketLoss },
		func(d *types.Device, v float64) { d.PacketLoss = v }},
	{MetricNormalizedBandwidth, "Bandwidth usage min-max scaled within the batch.",
		func(d *types.Device) *float64 { return d.NormalizedBandwidth },
		func(d *types.Device, v float64) { d.NormalizedBandwidth = types.Float(v) }},
	{MetricNormalizedLatency, "Latency min-max scaled within the batch.",
		func(d *types.Device) *float64 { return d.NormalizedLatency },
		func(d *types.Device, v float64) { d.NormalizedLatency = types.Float(v) }},
	{MetricNormalizedPacketLoss, "Packet loss min-max scaled within the batch.",
		func(d *types.Device) *float64 { return d.NormalizedPacketLoss },
		func(d *types.Device, v float64) { d.NormalizedPacketLoss = types.Float(v) }},
	{MetricScore, "Weighted optimization score, higher is better.",
		func(d *types.Device) *float64 { return d.OptimizationScore },
		func(d *types.Device, v float64) { d.OptimizationScore = types.Float(v) }},
}

// Write renders devices in order as text exposition. Families with no
// values are omitted.
func Write(w io.Writer, devices []types.Device) error {
	for _, f := range families {
		mf := &dto.MetricFamily{
			Name: proto.String(f.name),
			Help: proto.String(f.help),
			Type: dto.MetricType_GAUGE.Enum(),
		}
		for i := range devices {
			v := f.get(&devices[i])
			if v == nil {
				continue
			}
			mf.Metric = append(mf.Metric, &dto.Metric{
				Label: []*dto.LabelPair{{
					Name:  proto.String(LabelDeviceID),
					Value: proto.String(devices[i].DeviceID),
				}},
				Gauge: &dto.Gauge{Value: proto.Float64(*v)},
			})
		}
		if len(mf.Metric) == 0 {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("exposition: write %s: %w", f.name, err)
		}
	}
	return nil
}

// Read parses a text exposition produced by Write. Device order follows the
// bandwidth family. Every device must appear in all three raw families;
// derived families are optional per device.
func Read(r io.Reader) ([]types.Device, error) {
	mfs, err := parseMetrics(r)
	if err != nil {
		return nil, err
	}

	bw := mfs[MetricBandwidth]
	if bw == nil {
		return nil, fmt.Errorf("exposition: missing family %s", MetricBandwidth)
	}

	devices := make([]types.Device, 0, len(bw.GetMetric()))
	index := make(map[string]int, len(bw.GetMetric()))
	for _, m := range bw.GetMetric() {
		id := deviceID(m)
		if id == "" {
			return nil, fmt.Errorf("exposition: %s sample without %s label", MetricBandwidth, LabelDeviceID)
		}
		if _, dup := index[id]; dup {
			return nil, fmt.Errorf("exposition: duplicate device %q", id)
		}
		v, err := finite(MetricBandwidth, id, m)
		if err != nil {
			return nil, err
		}
		index[id] = len(devices)
		devices = append(devices, types.Device{DeviceID: id, BandwidthUsage: v})
	}

	for _, f := range families[1:] {
		seen := make(map[string]bool, len(devices))
		for _, m := range mfs[f.name].GetMetric() {
			i, ok := index[deviceID(m)]
			if !ok {
				return nil, fmt.Errorf("exposition: %s references unknown device %q", f.name, deviceID(m))
			}
			v, err := finite(f.name, devices[i].DeviceID, m)
			if err != nil {
				return nil, err
			}
			f.set(&devices[i], v)
			seen[devices[i].DeviceID] = true
		}
		if f.name == MetricLatency || f.name == MetricPacketLoss {
			for _, d := range devices {
				if !seen[d.DeviceID] {
					return nil, fmt.Errorf("exposition: device %q missing %s", d.DeviceID, f.name)
				}
			}
		}
	}
	return devices, nil
}

// parseMetrics decodes a text exposition into metric families. A partial
// result with a parse warning is still returned.
func parseMetrics(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("exposition: parse text: %w", err)
	}
	return mfs, nil
}

func deviceID(m *dto.Metric) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == LabelDeviceID {
			return lp.GetValue()
		}
	}
	return ""
}

// finite returns the sample value, rejecting NaN and infinities so they
// never reach normalization.
func finite(name, id string, m *dto.Metric) (float64, error) {
	v := value(m)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("exposition: device %q %s: non-finite value %v", id, name, v)
	}
	return v, nil
}

func value(m *dto.Metric) float64 {
	switch {
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	case m.Untyped != nil:
		return m.Untyped.GetValue()
	case m.Counter != nil:
		return m.Counter.GetValue()
	}
	return 0
}
