// Package jobs defines the background tasks that warm the weather cache
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/fetchweather/wttr"
)

const (
	TaskPrefetch  = "weather:prefetch"
	QueuePrefetch = "prefetch"

	prefetchMaxRetry = 3
	prefetchTimeout  = time.Minute
)

type PrefetchPayload struct {
	Location string `json:"location"`
	Format   string `json:"format,omitempty"`
	Units    string `json:"units,omitempty"`
	Lang     string `json:"lang,omitempty"`
}

// Request converts the payload into a weather request that asks for metadata
func (p PrefetchPayload) Request() wttr.Request {
	return wttr.NewRequest(p.Location,
		wttr.WithFormat(wttr.Format(p.Format)),
		wttr.WithUnits(wttr.Units(p.Units)),
		wttr.WithLang(p.Lang),
		wttr.WithMetadata(),
	)
}

// NewPrefetchTask builds the task for p. The task id is derived from the
// cache fingerprint so the same prefetch is never queued twice.
func NewPrefetchTask(p PrefetchPayload) (*asynq.Task, error) {
	key, err := p.Request().Fingerprint()
	if err != nil {
		return nil, fmt.Errorf("prefetch %q: %w", p.Location, err)
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal prefetch payload: %w", err)
	}
	return asynq.NewTask(TaskPrefetch, payload,
		asynq.TaskID("prefetch:"+key),
		asynq.Queue(QueuePrefetch),
		asynq.MaxRetry(prefetchMaxRetry),
		asynq.Timeout(prefetchTimeout),
	), nil
}

// Enqueuer is satisfied by *asynq.Client
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueue queues a prefetch for every payload. Prefetches already waiting
// in the queue are skipped; the returned count only includes new tasks.
func Enqueue(ctx context.Context, enq Enqueuer, payloads []PrefetchPayload) (int, error) {
	queued := 0
	for _, p := range payloads {
		task, err := NewPrefetchTask(p)
		if err != nil {
			return queued, err
		}
		if _, err := enq.EnqueueContext(ctx, task); err != nil {
			if errors.Is(err, asynq.ErrTaskIDConflict) {
				continue
			}
			return queued, fmt.Errorf("enqueue prefetch %q: %w", p.Location, err)
		}
		queued++
	}
	return queued, nil
}

// Registrar is satisfied by *asynq.Scheduler
type Registrar interface {
	Register(cronspec string, task *asynq.Task, opts ...asynq.Option) (string, error)
}

// Schedule registers a periodic prefetch for each location
func Schedule(r Registrar, cronspec string, locations []string) error {
	for _, loc := range locations {
		task, err := NewPrefetchTask(PrefetchPayload{Location: loc})
		if err != nil {
			return err
		}
		if _, err := r.Register(cronspec, task); err != nil {
			return fmt.Errorf("schedule prefetch %q: %w", loc, err)
		}
	}
	return nil
}

// IsRetryable reports whether the failure behind a fallback is likely to
// go away: connectivity problems, rate limiting and server errors.
func IsRetryable(meta *wttr.ResponseMetadata) bool {
	if meta == nil {
		return false
	}
	switch meta.ErrorType {
	case wttr.ErrorTypeNetwork, wttr.ErrorTypeTimeout:
		return true
	case wttr.ErrorTypeHTTPStatus:
		return meta.StatusCode == http.StatusTooManyRequests || meta.StatusCode >= 500
	}
	return false
}

// Resolver is satisfied by *wttr.Client
type Resolver interface {
	GetWeather(ctx context.Context, req wttr.Request) (*wttr.Result, error)
}

// PrefetchHandler resolves prefetch tasks so the result lands in the cache
type PrefetchHandler struct {
	client Resolver
	logger zerolog.Logger
}

func NewPrefetchHandler(client Resolver, logger zerolog.Logger) *PrefetchHandler {
	return &PrefetchHandler{client: client, logger: logger}
}

// ProcessTask implements asynq.Handler
func (h *PrefetchHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p PrefetchPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.logger.Error().Err(err).Msg("bad prefetch payload")
		return fmt.Errorf("unmarshal prefetch payload: %v: %w", err, asynq.SkipRetry)
	}

	start := time.Now()
	res, err := h.client.GetWeather(ctx, p.Request())
	if err != nil {
		return fmt.Errorf("prefetch %q: %v: %w", p.Location, err, asynq.SkipRetry)
	}

	logger := h.logger.With().
		Str("location", p.Location).
		Dur("duration", time.Since(start)).
		Logger()

	meta := res.Metadata
	if meta == nil || !meta.IsMock {
		logger.Info().Msg("prefetch done")
		return nil
	}
	if !meta.HasError() {
		logger.Debug().Msg("mock mode enabled, nothing prefetched")
		return nil
	}
	if IsRetryable(meta) {
		logger.Warn().Str("error_type", meta.ErrorType).Int("status_code", meta.StatusCode).Msg("prefetch failed, will retry")
		return fmt.Errorf("prefetch %q: %s", p.Location, meta.ErrorMessage)
	}
	// permanent failure, drop the job
	logger.Warn().Str("error_type", meta.ErrorType).Str("error", meta.ErrorMessage).Msg("prefetch failed permanently")
	return nil
}
