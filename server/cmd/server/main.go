package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"google.golang.org/grpc"

	"github.com/netpulse/netpulse/pkg/advisor"
	"github.com/netpulse/netpulse/pkg/wire"
	"github.com/netpulse/netpulse/server/internal/alerts"
	"github.com/netpulse/netpulse/server/internal/api"
	"github.com/netpulse/netpulse/server/internal/auth"
	"github.com/netpulse/netpulse/server/internal/config"
	"github.com/netpulse/netpulse/server/internal/metrics"
	"github.com/netpulse/netpulse/server/internal/receiver"
	"github.com/netpulse/netpulse/server/internal/store"
	"github.com/netpulse/netpulse/server/internal/ws"
)

const shutdownTimeout = 10 * time.Second

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

	slog.Info("netpulse-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	sc := cfg.Server

	slog.Info("config loaded",
		"grpc_port", sc.GRPCPort,
		"http_port", sc.HTTPPort,
		"auth_mode", sc.Auth.Mode,
		"batch_ttl", sc.Batch.TTL,
		"advisor_enabled", sc.Advisor.Enabled,
		"alert_rules", len(sc.Alerts.Rules),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st := store.New(sc.Batch.TTL)
	go st.Run(ctx)

	m := metrics.New(st.Count)

	alertEngine, err := alerts.New(sc.Alerts)
	if err != nil {
		slog.Error("failed to build alert engine", "err", err)
		os.Exit(1)
	}

	deps := api.Deps{
		Store:                     st,
		Alerts:                    alertEngine,
		Metrics:                   m,
		MaxDevices:                sc.Batch.MaxDevices,
		AdvisorInsecureSkipVerify: sc.Advisor.InsecureSkipVerify,
	}
	if sc.Advisor.Enabled {
		client := advisor.New(sc.Advisor.ClientConfig())
		deps.Advisor = client
		slog.Info("advisor enabled", "base_url", client.Config().BaseURL, "model", client.Config().Model)
		if cs := advisor.CheckEndpoint(ctx, client.Config().BaseURL, sc.Advisor.InsecureSkipVerify); cs != nil && cs.Status != advisor.CertValid {
			slog.Warn("advisor endpoint certificate", "status", cs.Status, "days_left", cs.DaysLeft)
		}
	}

	// gRPC receiver with optional API key authentication.
	interceptor := auth.APIKeyInterceptor(sc.Auth.Mode, sc.Auth.EffectiveHeader(), sc.Auth.Key())
	grpcSrv := grpc.NewServer(grpc.UnaryInterceptor(interceptor))
	wire.RegisterBatchServiceServer(grpcSrv, receiver.New(st, alertEngine, m))

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", sc.GRPCPort))
	if err != nil {
		slog.Error("failed to listen on gRPC port", "port", sc.GRPCPort, "err", err)
		os.Exit(1)
	}
	go func() {
		slog.Info("gRPC receiver listening", "port", sc.GRPCPort)
		if err := grpcSrv.Serve(lis); err != nil {
			slog.Error("gRPC server stopped", "err", err)
		}
	}()

	hub := ws.New(st, sc.Stream.Interval)
	go hub.Run(ctx)

	// REST API behind API key auth; /metrics and the WebSocket stream stay
	// open. The hub is mounted outside the logging wrapper so the upgrade can
	// hijack the raw connection.
	requireKey := auth.APIKeyMiddleware(sc.Auth.Mode, sc.Auth.EffectiveHeader(), sc.Auth.Key())
	apiMux := http.NewServeMux()
	apiMux.Handle("/api/", requireKey(api.New(deps)))
	apiMux.Handle("/metrics", m.Handler())

	root := http.NewServeMux()
	root.Handle("/ws/stream", hub)
	root.Handle("/", handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(
		handlers.LoggingHandler(os.Stdout, apiMux),
	))

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", sc.HTTPPort),
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("HTTP server listening", "port", sc.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("netpulse-server shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	grpcSrv.GracefulStop()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown", "err", err)
	}
	alertEngine.Wait()
}
