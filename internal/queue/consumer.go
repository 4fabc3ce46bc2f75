package queue

import (
	"context"
	"log/slog"
)

// Consumer runs a Handler for a delivered job and records the outcome with
// the tracker. Redelivered jobs are handled again; only the first outcome
// moves the batch counts.
type Consumer struct {
	tracker Tracker
	handler Handler
	logger  *slog.Logger
}

// NewConsumer creates a Consumer.
func NewConsumer(tracker Tracker, handler Handler, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{tracker: tracker, handler: handler, logger: logger}
}

// Handle processes env and returns the handler's error.
func (c *Consumer) Handle(ctx context.Context, env Envelope) error {
	logCtx := c.logger.With("batchId", env.BatchID, "jobId", env.JobID, "kind", env.Job.Kind)

	jobErr := c.handler.Handle(ctx, env)
	if jobErr != nil {
		logCtx.Error("Job failed.", "error", jobErr)
	}
	if err := c.tracker.Complete(ctx, env.BatchID, env.JobID, jobErr); err != nil {
		logCtx.Error("Failed to record job outcome", "error", err)
	}
	return jobErr
}
