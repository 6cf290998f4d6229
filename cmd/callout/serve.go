package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/starwalkn/callout"
	"github.com/starwalkn/callout/internal/logger"
	"github.com/starwalkn/callout/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the invocation engine as an HTTP sidecar",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	cfg, err := callout.LoadConfig(resolveConfigPath())
	if err != nil {
		return err
	}

	if cfg.Server.Port == 0 {
		return errors.New("server.port must be set for serve")
	}

	log := logger.New(cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine := callout.New(cfg.Engine, log.Named("engine"))

	srv := server.New(cfg, engine, log.Named("server"))

	go func() {
		if err = srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	log.Info("server started")

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second) //nolint:mnd // internal timeout
	defer cancel()

	if err = srv.Stop(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}

	log.Info("server stopped")

	return nil
}
