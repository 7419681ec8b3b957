// Command kubeware runs the HTTP reverse-proxy gateway: it chains inbound
// requests through configured out-of-process middleware before and after
// a single upstream backend call (spec.md §1).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gedu17/kubeware/internal/admin"
	"github.com/gedu17/kubeware/internal/backend"
	"github.com/gedu17/kubeware/internal/config"
	"github.com/gedu17/kubeware/internal/gateway"
	"github.com/gedu17/kubeware/internal/metrics"
	"github.com/gedu17/kubeware/internal/middleware"
	"github.com/gedu17/kubeware/internal/rpc"
)

var configFile = flag.String("config", "", "Path to configuration file (overrides CONFIG_FILE)")

func main() {
	flag.Parse()

	path := *configFile
	if path == "" {
		path = config.ResolvePath()
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	slog.SetDefault(setupLogger(cfg.Log))
	ctx := context.Background()

	slog.InfoContext(ctx, "kubeware starting", "config_file", path, "ip", cfg.IP, "port", cfg.Port)

	reg := gateway.BuildRegistry(ctx, cfg.Endpoints(), rpc.Dial)
	gate := gateway.NewReadinessGate(reg)

	backendClient := backend.NewClient(cfg.Backend.Version)
	backendTimeout := time.Duration(cfg.Backend.TimeoutMs) * time.Millisecond
	if backendTimeout == 0 {
		backendTimeout = middleware.DefaultTimeout
	}

	recorder := metrics.NewRecorder()

	addr := fmt.Sprintf("%s:%d", cfg.IP, cfg.Port)
	srv := gateway.NewServer(addr, gate, backendClient, cfg.Backend.URL, backendTimeout, recorder)

	adminSrv := admin.NewServer(&cfg.Admin, gate, recorder.Registry())
	go func() {
		if err := adminSrv.Start(ctx); err != nil {
			slog.ErrorContext(ctx, "admin server error", "error", err)
		}
	}()

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErrCh := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "kubeware listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	select {
	case <-sigCtx.Done():
		slog.InfoContext(ctx, "received shutdown signal, stopping gracefully")
	case err := <-serverErrCh:
		slog.ErrorContext(ctx, "server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(ctx, "error stopping gateway server", "error", err)
	}
	if err := adminSrv.Stop(shutdownCtx); err != nil {
		slog.ErrorContext(ctx, "error stopping admin server", "error", err)
	}

	slog.InfoContext(ctx, "kubeware shut down")
}

func setupLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "DEBUG", "debug":
		l = slog.LevelDebug
	case "WARN", "warn":
		l = slog.LevelWarn
	case "ERROR", "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: l}))
}
