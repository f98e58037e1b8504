package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/fetchweather/internal/config"
	"github.com/briangreenhill/fetchweather/internal/jobs"
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
	if !cfg.HasRedis() {
		logger.Fatal().Msg("worker requires REDIS_ADDR")
	}

	// the worker writes into the shared redis cache the api reads from
	client, closeCache, err := setup.Client(context.Background(), cfg, logger, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("create weather client")
	}
	defer func() { _ = closeCache() }()

	redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Addr}

	if len(cfg.Prefetch.Locations) > 0 {
		scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Location: time.UTC})
		if err := jobs.Schedule(scheduler, cfg.Prefetch.Schedule, cfg.Prefetch.Locations); err != nil {
			logger.Fatal().Err(err).Msg("register prefetch schedule")
		}
		go func() {
			if err := scheduler.Run(); err != nil {
				logger.Error().Err(err).Msg("scheduler stopped")
			}
		}()
		logger.Info().
			Strs("locations", cfg.Prefetch.Locations).
			Str("schedule", cfg.Prefetch.Schedule).
			Msg("prefetch scheduled")
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Prefetch.Concurrency,
		Queues: map[string]int{
			jobs.QueuePrefetch: 5,
			"default":          1,
		},
		Logger:   asynqLogger{log: logger},
		LogLevel: asynq.InfoLevel,
	})
	mux := asynq.NewServeMux()
	mux.Handle(jobs.TaskPrefetch, jobs.NewPrefetchHandler(client, logger))

	logger.Info().Int("concurrency", cfg.Prefetch.Concurrency).Msg("worker running")
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker stopped")
	}
}

// asynqLogger routes asynq's own logs through zerolog
type asynqLogger struct {
	log zerolog.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { l.log.Debug().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...interface{})  { l.log.Info().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...interface{})  { l.log.Warn().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...interface{}) { l.log.Error().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...interface{}) { l.log.Fatal().Msg(fmt.Sprint(args...)) }
