package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"wmsdash/internal/api"
	"wmsdash/internal/config"
	"wmsdash/internal/fetch"
	"wmsdash/internal/telemetry"
	"wmsdash/internal/views"
)

var (
	configPath string
	debug      bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "", "path to a config file (default ./config.yaml when present)")
	serveCmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func serve(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	closeLog, err := telemetry.SetupLogging("wmsdash", debug || cfg.Log.Debug, cfg.Log.File)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Initialize Echo (Starts Instantly)
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.CORS())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				slog.Warn("request failed", append(attrs, "error", v.Error)...)
				return nil
			}
			slog.Debug("request", attrs...)
			return nil
		},
	}))

	// 2. Wire the upstream client and the table registry
	upstream := fetch.New(cfg.FetchConfig(), cfg.FetchDatasets())
	h := api.NewHandler(upstream, views.NewRegistry(upstream))
	h.RegisterRoutes(e)

	// 3. Warm the datasets in background; tables opened meanwhile show loading
	go upstream.Run(ctx)
	go func() {
		slog.Info("BACKGROUND: warming datasets")
		t0 := time.Now()
		for _, src := range upstream.Sources() {
			if snap := src.Snapshot(ctx); snap.Err != nil {
				slog.Warn("BACKGROUND: dataset unavailable", "dataset", src.Name(), "error", snap.Err)
			}
		}
		slog.Info("BACKGROUND: datasets warm", "duration", time.Since(t0))
	}()

	// 4. Start Server
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	slog.Info("server ready", "listen", cfg.Server.Listen, "datasets", len(cfg.Datasets))
	if err := e.Start(cfg.Server.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
