package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	handlers "explainx/internal/http/handler"
	"explainx/internal/http/middleware"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and the admin HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	a, err := baseApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		a.close(shutdownCtx)
	}()

	if err := a.wire(ctx); err != nil {
		a.log.Error("startup_failed", zap.Error(err))
		return err
	}

	if a.cfg.Cron.Enabled {
		a.scheduler.StartAll()
	} else {
		a.log.Warn("cron_disabled", zap.String("reason", "CRON_ENABLED=false"))
	}

	promMW, err := middleware.NewPrometheusMiddleware(a.registry)
	if err != nil {
		return err
	}

	srv := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(),
		DisableStartupMessage: true,
	})

	// Register global middleware
	srv.Use(otelfiber.Middleware())
	srv.Use(middleware.RequestID())
	srv.Use(middleware.Logger(a.log))
	srv.Use(promMW.Handler())

	handlers.RegisterRoutes(srv, handlers.Deps{
		DB:          a.db,
		Gatherer:    a.registry,
		Scheduler:   a.scheduler,
		Runs:        a.history,
		Reports:     a.reports,
		AdminAPIKey: a.cfg.AdminAPIKey,
	})
	if a.cfg.AdminAPIKey == "" {
		a.log.Warn("admin_api_locked", zap.String("reason", "ADMIN_API_KEY not set"))
	}

	listenErr := make(chan error, 1)
	go func() {
		addr := ":" + a.cfg.Port
		a.log.Info("http_server_start", zap.String("addr", addr))
		listenErr <- srv.Listen(addr)
	}()

	select {
	case err := <-listenErr:
		a.log.Error("http_server_failed", zap.Error(err))
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutdown_start")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.ShutdownWithContext(shutdownCtx); err != nil {
		a.log.Warn("http_server_shutdown_failed", zap.Error(err))
	}
	return nil
}
