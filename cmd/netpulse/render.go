package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gonum.org/v1/gonum/stat"

	"github.com/netpulse/netpulse/pkg/compute"
	"github.com/netpulse/netpulse/pkg/exposition"
	"github.com/netpulse/netpulse/pkg/types"
)

// Output formats.
const (
	formatJSON = "json"
	formatProm = "prom"
	formatText = "text"
)

// Report is everything one command run produces. In JSON the batch fields
// sit at the top level so a report can be read back as a plain batch.
type Report struct {
	*types.Batch
	Reduction  *compute.Reduction   `json:"reduction,omitempty"`
	Projection []compute.Projection `json:"projection,omitempty"`
	Suggestion string               `json:"suggestion,omitempty"`
}

func writeReport(w io.Writer, format string, r Report) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case formatProm:
		return writeProm(w, r)
	case formatText:
		return writeText(w, r)
	}
	return fmt.Errorf("%w %q", errUnknownFormat, format)
}

// writeProm emits the scored devices in the exposition format. A suggestion
// is appended as comment lines, which parsers ignore.
func writeProm(w io.Writer, r Report) error {
	if err := exposition.Write(w, r.Devices); err != nil {
		return err
	}
	if r.Suggestion == "" {
		return nil
	}
	for _, line := range strings.Split(strings.TrimRight(r.Suggestion, "\n"), "\n") {
		if _, err := fmt.Fprintf(w, "# suggestion: %s\n", line); err != nil {
			return err
		}
	}
	return nil
}

func writeText(w io.Writer, r Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if r.ID != "" {
		fmt.Fprintf(tw, "Batch %s\n", r.ID)
	}
	if r.Weights != nil {
		fmt.Fprintf(tw, "Weights: bandwidth=%g latency=%g packet_loss=%g\n\n",
			r.Weights.Bandwidth, r.Weights.Latency, r.Weights.PacketLoss)
	}

	fmt.Fprintln(tw, "RANK\tDEVICE\tBANDWIDTH (Mbps)\tLATENCY (ms)\tPACKET LOSS (%)\tSCORE")
	for i, d := range r.Devices {
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%.2f\t%.2f\t%.4f\n",
			i+1, d.DeviceID, d.BandwidthUsage, d.Latency, d.PacketLoss, d.Score())
	}

	if len(r.Projection) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "Projection")
		fmt.Fprintln(tw, "DEVICE\tBANDWIDTH (Mbps)\tLATENCY (ms)\tPACKET LOSS (%)")
		for _, p := range r.Projection {
			fmt.Fprintf(tw, "%s\t%.2f -> %.2f\t%.2f -> %.2f\t%.2f -> %.2f\n",
				p.DeviceID,
				p.Original.BandwidthUsage, p.Projected.BandwidthUsage,
				p.Original.Latency, p.Projected.Latency,
				p.Original.PacketLoss, p.Projected.PacketLoss)
		}
		for _, line := range summarize(r.Projection) {
			fmt.Fprintln(tw, line)
		}
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	if r.Suggestion != "" {
		if _, err := fmt.Fprintf(w, "\nSuggestion\n%s\n", strings.TrimRight(r.Suggestion, "\n")); err != nil {
			return err
		}
	}
	return nil
}

// summarize reports the mean of each metric before and after projection.
func summarize(ps []compute.Projection) []string {
	metrics := []struct {
		label, unit string
		get         func(compute.Values) float64
	}{
		{"bandwidth", "Mbps", func(v compute.Values) float64 { return v.BandwidthUsage }},
		{"latency", "ms", func(v compute.Values) float64 { return v.Latency }},
		{"packet loss", "%", func(v compute.Values) float64 { return v.PacketLoss }},
	}

	out := []string{"", "Average improvement"}
	for _, m := range metrics {
		before := make([]float64, len(ps))
		after := make([]float64, len(ps))
		for i, p := range ps {
			before[i] = m.get(p.Original)
			after[i] = m.get(p.Projected)
		}
		mb, ma := stat.Mean(before, nil), stat.Mean(after, nil)
		change := 0.0
		if mb != 0 {
			change = (ma - mb) / mb * 100
		}
		out = append(out, fmt.Sprintf("  %s:\t%.2f -> %.2f %s\t(%+.1f%%)", m.label, mb, ma, m.unit, change))
	}
	return out
}
