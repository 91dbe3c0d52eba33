package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/netpulse/netpulse/pkg/advisor"
	"github.com/netpulse/netpulse/pkg/compute"
	"github.com/netpulse/netpulse/pkg/types"
)

const defaultDevices = 5

type simulateOptions struct {
	devices    int
	seed       int64
	weights    types.Weights
	format     string
	projection bool

	suggest   bool
	baseURL   string
	model     string
	apiKeyEnv string
	timeout   time.Duration
}

func newSimulateCmd() *cobra.Command {
	o := &simulateOptions{}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Generate a batch of devices, then normalize and score it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var seed *int64
			if cmd.Flags().Changed("seed") {
				seed = &o.seed
			}
			return o.run(cmd, seed)
		},
	}

	f := cmd.Flags()
	f.IntVar(&o.devices, "devices", defaultDevices, "number of devices to simulate")
	f.Int64Var(&o.seed, "seed", 0, "random seed; omit for a time-based seed")
	weightFlags(cmd, &o.weights)
	f.StringVar(&o.format, "format", formatText, "output format: json | prom | text")
	f.BoolVar(&o.projection, "projection", false, "include a fixed-percentage improvement projection")
	f.BoolVar(&o.suggest, "suggest", false, "ask the remote model for suggestions")
	f.StringVar(&o.baseURL, "base-url", advisor.DefaultBaseURL, "chat-completion endpoint base URL")
	f.StringVar(&o.model, "model", advisor.DefaultModel, "model identifier")
	f.StringVar(&o.apiKeyEnv, "api-key-env", advisor.DefaultAPIKeyEnv, "environment variable holding the API key")
	f.DurationVar(&o.timeout, "timeout", advisor.DefaultTimeout, "timeout for the suggestion request")

	return cmd
}

func (o *simulateOptions) run(cmd *cobra.Command, seed *int64) error {
	if err := checkFormat(o.format); err != nil {
		return err
	}

	raw, err := compute.Generate(o.devices, compute.NewRand(seed))
	if err != nil {
		return err
	}
	for _, d := range raw {
		slog.Info("device simulated",
			"device_id", d.DeviceID,
			"bandwidth_mbps", d.BandwidthUsage,
			"latency_ms", d.Latency,
			"packet_loss_pct", d.PacketLoss,
		)
	}

	devices, err := compute.Pipeline(raw, o.weights)
	if err != nil {
		return err
	}

	w := o.weights
	report := Report{
		Batch: &types.Batch{
			ID:          uuid.NewString(),
			GeneratedAt: time.Now().UTC(),
			Seed:        seed,
			Weights:     &w,
			Devices:     devices,
		},
	}
	if o.projection {
		red := compute.DefaultReduction()
		report.Reduction = &red
		report.Projection = compute.Project(devices, red)
	}

	var suggestErr error
	if o.suggest {
		client := advisor.New(advisor.Config{
			BaseURL:   o.baseURL,
			Model:     o.model,
			APIKeyEnv: o.apiKeyEnv,
			Timeout:   o.timeout,
		})
		report.Suggestion, suggestErr = client.SuggestBatch(cmd.Context(), report.Batch)
	}

	if err := writeReport(cmd.OutOrStdout(), o.format, report); err != nil {
		return err
	}
	if suggestErr != nil {
		return fmt.Errorf("suggestion failed: %w", suggestErr)
	}
	return nil
}

var errUnknownFormat = errors.New("unknown format")

func checkFormat(format string) error {
	switch format {
	case formatJSON, formatProm, formatText:
		return nil
	}
	return fmt.Errorf("%w %q: want json | prom | text", errUnknownFormat, format)
}
