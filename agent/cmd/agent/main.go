package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/netpulse/netpulse/agent/internal/config"
	"github.com/netpulse/netpulse/agent/internal/shipper"
	"github.com/netpulse/netpulse/agent/internal/simulator"
	"github.com/netpulse/netpulse/agent/internal/sink"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	logLevel := flag.String("log-level", "info", "log level: debug | info | warn | error")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("netpulse-agent starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	slog.Info("config loaded",
		"server_endpoint", cfg.Agent.ServerEndpoint,
		"devices", cfg.Agent.Simulation.Devices,
		"interval", cfg.Agent.Interval,
	)

	sim, err := simulator.New(settingsFrom(cfg))
	if err != nil {
		slog.Error("failed to build simulator", "err", err)
		os.Exit(1)
	}

	sinks, err := sink.FromConfig(cfg.Agent.Sinks)
	if err != nil {
		slog.Error("failed to build sinks", "err", err)
		os.Exit(1)
	}
	defer sink.CloseAll(sinks)
	for _, s := range sinks {
		slog.Info("registered sink", "sink", s.Name())
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Hot-reload applies simulation settings and the interval. Endpoint, auth
	// and sink changes need a restart.
	intervals := make(chan time.Duration, 1)
	go func() {
		if err := config.Watch(ctx, *configPath, func(updated *config.Config) {
			if err := sim.Reconfigure(settingsFrom(updated)); err != nil {
				slog.Error("config hot-reload rejected", "err", err)
				return
			}
			select {
			case intervals <- updated.Agent.Interval:
			default:
			}
			slog.Info("config hot-reloaded",
				"devices", updated.Agent.Simulation.Devices,
				"interval", updated.Agent.Interval)
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	// Start the gRPC shipper; it runs until ctx is cancelled.
	ship := shipper.New(cfg.Agent)
	go ship.Run(ctx)

	// Simulation loop: every Interval generate, score, ship and fan out.
	go func() {
		ticker := time.NewTicker(cfg.Agent.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case d := <-intervals:
				ticker.Reset(d)
			case t := <-ticker.C:
				batch, err := sim.Run(t)
				if err != nil {
					slog.Error("simulation failed", "err", err)
					continue
				}
				ship.Ship(batch)
				_ = sink.PublishAll(ctx, sinks, batch)
				for _, d := range batch.Devices {
					slog.Debug("device scored",
						"batch_id", batch.ID,
						"device_id", d.DeviceID,
						"bandwidth_usage", d.BandwidthUsage,
						"latency", d.Latency,
						"packet_loss", d.PacketLoss,
						"score", d.Score(),
					)
				}
			}
		}
	}()

	<-ctx.Done()
	slog.Info("netpulse-agent shutting down")
}

func settingsFrom(cfg *config.Config) simulator.Settings {
	sim := cfg.Agent.Simulation
	return simulator.Settings{Devices: sim.Devices, Seed: sim.Seed, Weights: sim.Weights}
}
