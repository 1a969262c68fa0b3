package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"trendscout/infrastructure/config"
	"trendscout/infrastructure/di"
)

const (
	cacheSweepInterval = 5 * time.Minute
	shutdownGrace      = 30 * time.Second
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("trendscout: %v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		return err
	}
	logger := container.Logger

	srv := &http.Server{
		Addr:        cfg.ServerAddress,
		Handler:     container.Router().Setup(),
		ReadTimeout: 15 * time.Second,
		// A POST runs the whole exploration before answering
		WriteTimeout: cfg.ExplorationTimeout + 15*time.Second,
		IdleTimeout:  time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Listening",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
			zap.String("search_provider", cfg.SearchProvider),
			zap.String("persistence", cfg.PersistenceBackend),
		)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		container.Caches.Sweep(gctx, cacheSweepInterval)
		return nil
	})
	if container.CloudWatch != nil {
		g.Go(func() error {
			container.CloudWatch.Run(gctx, cfg.MetricsFlushInterval)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	serveErr := g.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return errors.Join(serveErr, container.Close(closeCtx))
}
