package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pilab-dev/twitched-link/config"
	"github.com/pilab-dev/twitched-link/internal/metrics"
	"github.com/pilab-dev/twitched-link/internal/server"
	"github.com/pilab-dev/twitched-link/log"
	"github.com/pilab-dev/twitched-link/tracing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (default: twitched.yaml in the usual places)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		stdLog := zerolog.New(os.Stdout).With().Timestamp().Logger()
		stdLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logLevel, parseErr := zerolog.ParseLevel(cfg.LogLevel)
	if parseErr != nil {
		logLevel = zerolog.InfoLevel
	}
	appLogger := log.NewZerologAdapter(logLevel, cfg.LogPretty)
	if parseErr != nil {
		appLogger.Warn(context.Background(), "Invalid log_level configured, defaulting to 'info'", map[string]interface{}{
			"configured_log_level": cfg.LogLevel,
		})
	}

	ctx := context.Background()
	appLogger.Info(ctx, "Starting twitched link server", map[string]interface{}{
		"http_addr":   cfg.HTTPAddr,
		"store_type":  cfg.StoreType,
		"log_level":   cfg.LogLevel,
		"tracing":     cfg.TracingEnabled,
		"device_type": cfg.DeviceTypes,
	})

	var tracerProvider *sdktrace.TracerProvider
	if cfg.TracingEnabled {
		tracerProvider, err = tracing.InitTracerProvider(cfg.OtelServiceName)
		if err != nil {
			appLogger.Fatal(ctx, "Failed to initialize TracerProvider", err)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(reg)

	srv, err := server.New(ctx, cfg, reg, appLogger)
	if err != nil {
		appLogger.Fatal(ctx, "Failed to initialize server", err)
	}

	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Fatal(context.Background(), "Failed to start HTTP server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-quit

	appLogger.Info(ctx, "Shutting down server", map[string]interface{}{"signal": receivedSignal.String()})

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, "HTTP server shutdown error", err)
	}
	if tracerProvider != nil {
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			appLogger.Error(shutdownCtx, "TracerProvider shutdown error", err)
		}
	}

	appLogger.Info(shutdownCtx, "Server gracefully stopped.")
}
