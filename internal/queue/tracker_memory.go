package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/Lllllllleong/issuebridge/internal/models"
)

const (
	jobStatusInProgress = "in_progress"
	jobStatusSucceeded  = "succeeded"
	jobStatusFailed     = "failed"
)

type memoryBatch struct {
	jobs  map[string]string
	stats Stats
}

// MemoryTracker is an in-process Tracker.
type MemoryTracker struct {
	mu      sync.Mutex
	batches map[string]*memoryBatch
}

// NewMemoryTracker creates an empty MemoryTracker.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{batches: make(map[string]*memoryBatch)}
}

func (m *MemoryTracker) Register(_ context.Context, batchID string, jobIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.batches[batchID]; exists {
		return fmt.Errorf("batch %s already registered", batchID)
	}
	b := &memoryBatch{jobs: make(map[string]string, len(jobIDs))}
	for _, id := range jobIDs {
		b.jobs[id] = jobStatusInProgress
	}
	b.stats.InProgress = len(b.jobs)
	m.batches[batchID] = b
	return nil
}

func (m *MemoryTracker) Complete(_ context.Context, batchID, jobID string, jobErr error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[batchID]
	if !ok {
		return fmt.Errorf("batch %s: %w", batchID, models.ErrNotFound)
	}
	if b.jobs[jobID] != jobStatusInProgress {
		return nil
	}
	b.stats.InProgress--
	if jobErr != nil {
		b.jobs[jobID] = jobStatusFailed
		b.stats.Failed++
	} else {
		b.jobs[jobID] = jobStatusSucceeded
		b.stats.Success++
	}
	return nil
}

func (m *MemoryTracker) Stats(_ context.Context, batchID string) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[batchID]
	if !ok {
		return Stats{}, fmt.Errorf("batch %s: %w", batchID, models.ErrNotFound)
	}
	return b.stats, nil
}
