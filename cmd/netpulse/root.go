package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/netpulse/netpulse/pkg/types"
)

// newRootCmd builds the command tree. Each call returns a fresh tree so
// tests can run commands in isolation.
func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "netpulse",
		Short:         "Simulate, normalize and score network device metrics",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var level slog.Level
			if err := level.UnmarshalText([]byte(logLevel)); err != nil {
				return err
			}
			slog.SetDefault(slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug | info | warn | error")

	root.AddCommand(newSimulateCmd(), newRescoreCmd())
	return root
}

// weightFlags binds the three scorer weights to cmd.
func weightFlags(cmd *cobra.Command, w *types.Weights) {
	cmd.Flags().Float64Var(&w.Bandwidth, "bandwidth-weight", types.DefaultBandwidthWeight, "scorer weight for inverted normalized bandwidth")
	cmd.Flags().Float64Var(&w.Latency, "latency-weight", types.DefaultLatencyWeight, "scorer weight for inverted normalized latency")
	cmd.Flags().Float64Var(&w.PacketLoss, "packet-loss-weight", types.DefaultPacketLossWeight, "scorer weight for inverted normalized packet loss")
}
