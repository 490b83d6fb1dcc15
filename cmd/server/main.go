package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/amirasaad/fxrates/docs"
	"github.com/amirasaad/fxrates/infra/initializer"
	"github.com/amirasaad/fxrates/pkg/app"
	"github.com/amirasaad/fxrates/pkg/config"
	"github.com/amirasaad/fxrates/webapi"
	log "github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
)

const shutdownTimeout = 10 * time.Second

// @title fxrates API
// @version 1.0.0
// @description Exchange rate resolution, conversion and ingestion
// @host localhost:3000
// @BasePath /
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("failed to load application configuration: %w", err)
	}

	deps, err := initializer.InitializeDependencies(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	a := app.New(deps, cfg)
	defer func() {
		if err := a.Close(); err != nil {
			deps.Logger.Warn("failed to release resources", "error", err)
		}
	}()

	return serve(ctx, a, webapi.SetupApp(a), deps.Logger)
}

// serve runs the refresh scheduler and the HTTP server until ctx is done.
func serve(ctx context.Context, a *app.App, fiberApp *fiber.App, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		if err := a.Scheduler.Run(ctx); err != nil {
			logger.Error("scheduler stopped", "error", err)
		}
	}()

	addr := fmt.Sprintf("%s:%d", a.Config.Server.Host, a.Config.Server.Port)
	logger.Info("Starting server",
		"env", a.Config.Env,
		"address", addr,
		"scheme", a.Config.Server.Scheme,
	)

	listenErr := make(chan error, 1)
	go func() { listenErr <- fiberApp.Listen(addr) }()

	var err error
	select {
	case err = <-listenErr:
		cancel()
	case <-ctx.Done():
		logger.Info("Shutting down server")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		err = fiberApp.ShutdownWithContext(shutdownCtx)
	}
	<-schedulerDone

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
