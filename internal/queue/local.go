package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Errors returned by the LocalDispatcher.
var (
	ErrQueueClosed = errors.New("task queue is closed")
	ErrQueueFull   = errors.New("task queue is full")
)

// LocalConfig configures a LocalDispatcher.
type LocalConfig struct {
	// WorkerCount is the number of concurrent workers. Defaults to 1.
	WorkerCount int
	// Size is the channel buffer. Defaults to 100.
	Size int
}

// LocalDispatcher delivers jobs to an in-process worker pool. Jobs may
// complete in any order when WorkerCount > 1.
type LocalDispatcher struct {
	jobs        chan Envelope
	workerCount int
	logger      *slog.Logger

	mu      sync.Mutex
	closed  bool
	started bool
	wg      sync.WaitGroup
}

// NewLocalDispatcher creates a LocalDispatcher. Call Start before dispatching.
func NewLocalDispatcher(cfg LocalConfig, logger *slog.Logger) *LocalDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.WorkerCount <= 0 {
		logger.Warn("invalid worker count specified, using default",
			"specified_count", cfg.WorkerCount,
			"default_count", 1)
		cfg.WorkerCount = 1
	}
	if cfg.Size <= 0 {
		cfg.Size = 100
	}
	return &LocalDispatcher{
		jobs:        make(chan Envelope, cfg.Size),
		workerCount: cfg.WorkerCount,
		logger:      logger,
	}
}

// Start launches the workers. Each job runs with ctx.
func (d *LocalDispatcher) Start(ctx context.Context, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true
	for i := 0; i < d.workerCount; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i, handler)
	}
	d.logger.Info("worker pool started", "worker_count", d.workerCount)
}

func (d *LocalDispatcher) worker(ctx context.Context, id int, handler Handler) {
	defer d.wg.Done()
	for env := range d.jobs {
		if err := handler.Handle(ctx, env); err != nil {
			d.logger.Debug("job returned error",
				"worker_id", id,
				"job_id", env.JobID,
				"error", err)
		}
	}
}

// Dispatch enqueues every envelope without blocking. It fails if the buffer
// cannot take the whole batch.
func (d *LocalDispatcher) Dispatch(_ context.Context, envs []Envelope) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrQueueClosed
	}
	if free := cap(d.jobs) - len(d.jobs); len(envs) > free {
		return fmt.Errorf("%w: %d jobs, %d free of %d", ErrQueueFull, len(envs), free, cap(d.jobs))
	}
	for _, env := range envs {
		d.jobs <- env
	}
	return nil
}

// Stop closes the queue and waits for queued jobs to finish.
func (d *LocalDispatcher) Stop() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()
	d.wg.Wait()
	d.logger.Info("worker pool stopped")
}
