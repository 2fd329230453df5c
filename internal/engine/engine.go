package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/CZERTAINLY/procstream/internal/log"
)

// Engine starts runs. Runs are independent from each other, an Engine only
// holds the logger and the optional limit of concurrent workers.
type Engine struct {
	logger  *slog.Logger
	workers *semaphore.Weighted
	open    opener
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMaxWorkers limits the number of non-blocking runs in progress. When the
// limit is reached Start fails immediately with ErrWorkerLimit.
func WithMaxWorkers(n int64) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = semaphore.NewWeighted(n)
		}
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{open: openPipeline}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// currentLogger returns the configured logger, slog.Default at the time of the call otherwise.
func (e *Engine) currentLogger() *slog.Logger {
	if e.logger != nil {
		return e.logger
	}
	return slog.Default()
}

var defaultEngine = New()

// Start runs req with an Engine without a worker limit, logging to slog.Default.
func Start(ctx context.Context, req Request) Result {
	return defaultEngine.Start(ctx, req)
}

// Start executes req. A blocking request returns the finished Result. A
// non-blocking request returns at once, the Result has Pending set unless the
// worker could not be admitted, which is reported in Result.Err.
func (e *Engine) Start(ctx context.Context, req Request) Result {
	req = req.clone()
	ctx = log.ContextAttrs(ctx, slog.String("request_id", req.ID))
	logger := e.currentLogger()

	if req.Blocking {
		return newRun(ctx, logger, e.open, req).execute("request " + req.ID + " on caller goroutine")
	}

	if e.workers != nil && !e.workers.TryAcquire(1) {
		logger.WarnContext(ctx, "worker can't be started", "error", ErrWorkerLimit)
		return Result{Err: ErrWorkerLimit}
	}

	worker := uuid.NewString()
	ctx = log.ContextAttrs(ctx, slog.String("worker", worker))
	pending := newPending()
	go func() {
		if e.workers != nil {
			defer e.workers.Release(1)
		}
		defer func() {
			if v := recover(); v != nil {
				logger.ErrorContext(ctx, "worker panicked", "panic", v)
				pending.finish(Result{}, fmt.Errorf("%w: %v", ErrWorkerPanic, v))
			}
		}()
		logger.DebugContext(ctx, "worker started")
		res := newRun(ctx, logger, e.open, req).execute("request " + req.ID + " on worker " + worker)
		pending.finish(res, nil)
	}()
	return Result{Pending: pending}
}
