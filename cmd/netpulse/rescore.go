package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/netpulse/netpulse/pkg/compute"
	"github.com/netpulse/netpulse/pkg/exposition"
	"github.com/netpulse/netpulse/pkg/types"
)

type rescoreOptions struct {
	input       string
	inputFormat string
	weights     types.Weights
	format      string
	projection  bool
}

func newRescoreCmd() *cobra.Command {
	o := &rescoreOptions{}

	cmd := &cobra.Command{
		Use:   "rescore",
		Short: "Re-normalize and rescore a saved batch with new weights",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.run(cmd)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.input, "input", "-", "batch file written by simulate; - reads stdin")
	f.StringVar(&o.inputFormat, "input-format", formatJSON, "input format: json | prom")
	weightFlags(cmd, &o.weights)
	f.StringVar(&o.format, "format", formatText, "output format: json | prom | text")
	f.BoolVar(&o.projection, "projection", false, "include a fixed-percentage improvement projection")

	return cmd
}

func (o *rescoreOptions) run(cmd *cobra.Command) error {
	if err := checkFormat(o.format); err != nil {
		return err
	}

	var r io.Reader = cmd.InOrStdin()
	if o.input != "-" {
		f, err := os.Open(o.input)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	batch, err := readBatch(r, o.inputFormat)
	if err != nil {
		return err
	}
	if len(batch.Devices) == 0 {
		return fmt.Errorf("input has no devices")
	}

	devices, err := compute.Pipeline(batch.Devices, o.weights)
	if err != nil {
		return err
	}
	w := o.weights
	batch.Devices = devices
	batch.Weights = &w

	report := Report{Batch: batch}
	if o.projection {
		red := compute.DefaultReduction()
		report.Reduction = &red
		report.Projection = compute.Project(devices, red)
	}
	return writeReport(cmd.OutOrStdout(), o.format, report)
}

// readBatch decodes a batch from JSON (a bare batch or a simulate report) or
// from the Prometheus text format. Prometheus input carries no batch ID.
func readBatch(r io.Reader, format string) (*types.Batch, error) {
	switch format {
	case formatJSON:
		var b types.Batch
		if err := json.NewDecoder(r).Decode(&b); err != nil {
			return nil, fmt.Errorf("decode json batch: %w", err)
		}
		return &b, nil
	case formatProm:
		devices, err := exposition.Read(r)
		if err != nil {
			return nil, err
		}
		return &types.Batch{Devices: devices}, nil
	}
	return nil, fmt.Errorf("%w %q: want json | prom", errUnknownFormat, format)
}
