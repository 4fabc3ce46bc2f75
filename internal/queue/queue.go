// Package queue is the at-least-once upload job queue: a batch tracker that
// answers progress statistics, and dispatchers that deliver each job to a
// worker invocation.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/issuebridge/internal/models"
	"github.com/google/uuid"
)

// ErrEmptyBatch is returned when pushing no jobs.
var ErrEmptyBatch = errors.New("cannot push an empty batch")

// Envelope is one delivered job. BatchID identifies the batch (job context)
// shared by every job pushed together.
type Envelope struct {
	BatchID string           `json:"batch_id"`
	JobID   string           `json:"job_id"`
	Job     models.UploadJob `json:"job"`
}

// Stats are the aggregate job counts of a batch. InProgress includes jobs
// that have not started yet.
type Stats struct {
	Success    int `json:"success" firestore:"success"`
	InProgress int `json:"inProgress" firestore:"inProgress"`
	Failed     int `json:"failed" firestore:"failed"`
}

// Tracker records batch membership and job outcomes.
type Tracker interface {
	// Register records every job of a new batch as in progress.
	Register(ctx context.Context, batchID string, jobIDs []string) error
	// Complete records a job's outcome: success when jobErr is nil. Completing
	// an unknown or already-completed job leaves the counts unchanged.
	Complete(ctx context.Context, batchID, jobID string, jobErr error) error
	// Stats returns the batch's counts.
	Stats(ctx context.Context, batchID string) (Stats, error)
}

// Dispatcher delivers envelopes to workers.
type Dispatcher interface {
	Dispatch(ctx context.Context, envs []Envelope) error
}

// Handler processes one delivered job.
type Handler interface {
	Handle(ctx context.Context, env Envelope) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, env Envelope) error

func (f HandlerFunc) Handle(ctx context.Context, env Envelope) error {
	return f(ctx, env)
}

// Queue pushes batches of upload jobs.
type Queue struct {
	tracker    Tracker
	dispatcher Dispatcher
	logger     *slog.Logger
	newID      func() string
}

// New creates a Queue.
func New(tracker Tracker, dispatcher Dispatcher, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		tracker:    tracker,
		dispatcher: dispatcher,
		logger:     logger,
		newID:      uuid.NewString,
	}
}

// Push registers the jobs as one batch, then dispatches them. It returns
// the batch id once every job has been handed to the dispatcher.
func (q *Queue) Push(ctx context.Context, jobs []models.UploadJob) (string, error) {
	if len(jobs) == 0 {
		return "", ErrEmptyBatch
	}
	batchID := q.newID()
	logCtx := q.logger.With("batchId", batchID, "jobCount", len(jobs))

	envs := make([]Envelope, len(jobs))
	jobIDs := make([]string, len(jobs))
	for i, job := range jobs {
		envs[i] = Envelope{BatchID: batchID, JobID: q.newID(), Job: job}
		jobIDs[i] = envs[i].JobID
	}

	if err := q.tracker.Register(ctx, batchID, jobIDs); err != nil {
		logCtx.Error("Failed to register batch", "error", err)
		return "", fmt.Errorf("failed to register batch: %w", err)
	}
	if err := q.dispatcher.Dispatch(ctx, envs); err != nil {
		logCtx.Error("Failed to dispatch batch", "error", err)
		return "", fmt.Errorf("failed to dispatch batch %s: %w", batchID, err)
	}
	logCtx.Info("Batch pushed.")
	return batchID, nil
}

// Stats returns the counts of a batch.
func (q *Queue) Stats(ctx context.Context, batchID string) (Stats, error) {
	return q.tracker.Stats(ctx, batchID)
}
