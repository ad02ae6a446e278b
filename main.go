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

	"github.com/gin-gonic/gin"

	"blogapi/app"
	"blogapi/common"
	"blogapi/database"
)

func main() {
	cfg := common.LoadConfig()
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	logger := common.NewLogger(cfg)
	slog.SetDefault(logger)

	db, err := common.ConnectDb(cfg)
	if err != nil {
		logger.Error("failed to connect to database", "event", "startup_failed", "module", "main", "error", err)
		os.Exit(1)
	}
	defer common.CloseDb(db)

	if err := database.RunMigrations(db); err != nil {
		logger.Error("failed to run migrations", "event", "startup_failed", "module", "main", "error", err)
		os.Exit(1)
	}

	if err := database.Seed(db, database.SeedOptions{
		BcryptCost:    cfg.BcryptCost,
		AdminEmail:    cfg.AdminEmail,
		AdminPassword: cfg.AdminPassword,
		Demo:          cfg.SeedDemo,
	}); err != nil {
		logger.Error("failed to seed database", "event", "startup_failed", "module", "main", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application := app.New(cfg, db, logger)
	// workers outlive the signal context so Stop can drain queued notifications
	application.Start(context.Background())

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           application.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server", "event", "http_server_starting", "module", "main", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "event", "http_server_failed", "module", "main", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down", "event", "http_server_stopping", "module", "main")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "event", "http_server_shutdown_failed", "module", "main", "error", err)
	}
	application.Stop()
}
