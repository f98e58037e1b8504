// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/fetchweather/internal/config"
	"github.com/briangreenhill/fetchweather/internal/http/routes"
	"github.com/briangreenhill/fetchweather/internal/metrics"
	"github.com/briangreenhill/fetchweather/internal/setup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("load config")
	}
	logger := setup.Logger(cfg, os.Stdout)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(true)
	client, closeCache, err := setup.Client(ctx, cfg, logger, m)
	if err != nil {
		logger.Fatal().Err(err).Msg("create weather client")
	}
	defer func() {
		if err := closeCache(); err != nil {
			logger.Error().Err(err).Msg("close cache")
		}
	}()

	opts := routes.ServerOptions{
		Weather:           client,
		Metrics:           m.Handler(),
		PrefetchLocations: cfg.Prefetch.Locations,
		Logger:            logger,
	}
	if cfg.HasRedis() {
		queue := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr})
		defer func() {
			if err := queue.Close(); err != nil {
				logger.Error().Err(err).Msg("close asynq client")
			}
		}()
		opts.Queue = queue
	}
	s := routes.New(opts)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown")
		}
	}()

	logger.Info().Str("port", cfg.Port).Bool("mock", client.MockMode()).Msg("starting api")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("serve")
	}
}
