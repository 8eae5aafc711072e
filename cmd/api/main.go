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

	"github.com/betterbet/scout-analytics/internal/app"
	"github.com/betterbet/scout-analytics/internal/config"
	"github.com/betterbet/scout-analytics/internal/observability"
	"github.com/betterbet/scout-analytics/internal/platform/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	baseLogger := logging.NewJSON(cfg.LogLevel)
	appLogger, betterStackShutdown, err := observability.InitBetterStackLogger(cfg, baseLogger)
	if err != nil {
		baseLogger.Error("init betterstack logger", "error", err)
		os.Exit(1)
	}
	logging.SetDefault(appLogger)
	defer func() { _ = appLogger.Sync() }()

	uptraceShutdown, err := observability.InitUptrace(cfg, appLogger)
	if err != nil {
		appLogger.Error("init uptrace", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slogLevel(cfg.LogLevel),
	}))

	pyroscopeStop, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		logger.Error("init pyroscope", "error", err)
		os.Exit(1)
	}

	pprofSrv, err := observability.StartPprofServer(cfg, logger)
	if err != nil {
		logger.Error("start pprof server", "error", err)
		os.Exit(1)
	}

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 60*time.Second)
	srv, cleanup, err := app.NewHTTPServer(startupCtx, cfg, logger)
	cancelStartup()
	if err != nil {
		logger.Error("build app", "error", err)
		os.Exit(1)
	}

	go func() {
		logger.Info("http server starting", "addr", cfg.HTTPAddr, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	if pprofSrv != nil {
		if err := pprofSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("pprof shutdown failed", "error", err)
		}
	}
	if cleanup != nil {
		if err := cleanup(); err != nil {
			logger.Error("close warehouse client failed", "error", err)
		}
	}
	if pyroscopeStop != nil {
		if err := pyroscopeStop(); err != nil {
			logger.Error("stop pyroscope failed", "error", err)
		}
	}
	if uptraceShutdown != nil {
		if err := uptraceShutdown(shutdownCtx); err != nil {
			logger.Error("uptrace shutdown failed", "error", err)
		}
	}
	if betterStackShutdown != nil {
		if err := betterStackShutdown(shutdownCtx); err != nil {
			logger.Error("betterstack shutdown failed", "error", err)
		}
	}

	logger.Info("http server stopped")
}

func slogLevel(level logging.Level) slog.Level {
	switch level {
	case logging.LevelDebug:
		return slog.LevelDebug
	case logging.LevelWarn:
		return slog.LevelWarn
	case logging.LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
