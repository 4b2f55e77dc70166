package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	slogmulti "github.com/samber/slog-multi"

	"github.com/reshetovitsme/telegram-pulse/internal/di"
	matchingService "github.com/reshetovitsme/telegram-pulse/internal/modules/matching/service"
	"github.com/reshetovitsme/telegram-pulse/internal/scheduler"
	httpServer "github.com/reshetovitsme/telegram-pulse/internal/transport/http"

	"github.com/samber/do/v2"
)

func main() {
	logger := slog.New(slogmulti.Fanout(
		slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}),
	))
	slog.SetDefault(logger)

	injector, err := di.Setup(logger)
	if err != nil {
		logger.Error("failed to setup dependencies", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := di.Shutdown(injector); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Warm the matching index before the first poll so early batches
	// are matched against the full dictionary.
	engine := do.MustInvoke[*matchingService.Engine](injector)
	if err := engine.Load(ctx, false); err != nil {
		logger.Warn("initial dictionary load failed", "error", err)
	}

	sched := do.MustInvoke[*scheduler.Scheduler](injector)
	sched.Start(ctx)

	server := do.MustInvoke[*httpServer.Server](injector)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("telegram-pulse started")

	<-ctx.Done()
	logger.Info("shutting down")
}
