package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"todo-api/internal/controller"
	"todo-api/internal/events"
	"todo-api/internal/repository"
	"todo-api/internal/routes"
	"todo-api/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Initialize the schema and serve the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	store, err := repository.Open(ctx, cfg)
	if err != nil {
		logger.Error(ctx, "Database not available", "error", err)
		return err
	}
	defer store.Close()
	if err := store.Initialize(ctx); err != nil {
		logger.Error(ctx, "Schema migration failed", "error", err)
		return err
	}

	pub, err := events.New(ctx, cfg)
	if err != nil {
		logger.Error(ctx, "Event publisher unavailable", "error", err)
		return err
	}
	defer pub.Close()

	gin.SetMode(gin.ReleaseMode)
	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      routes.Router(controller.NewTodos(store, pub)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info(ctx, "HTTP server listening", "port", cfg.HTTPPort, "backend", cfg.Backend())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info(ctx, "Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error(ctx, "Server error", "error", err)
		return err
	}
	logger.Info(ctx, "Server stopped")
	return nil
}
