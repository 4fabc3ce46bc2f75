package queue

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/issuebridge/internal/models"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// batchDocument is the Firestore record of one batch.
type batchDocument struct {
	Jobs       map[string]string `firestore:"jobs"`
	Success    int               `firestore:"success"`
	InProgress int               `firestore:"inProgress"`
	Failed     int               `firestore:"failed"`
	CreatedAt  time.Time         `firestore:"createdAt"`
}

// FirestoreTracker keeps one document per batch, updated transactionally.
type FirestoreTracker struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreTracker creates a tracker over the given collection.
func NewFirestoreTracker(client *firestore.Client, collection string) *FirestoreTracker {
	return &FirestoreTracker{client: client, collection: collection}
}

func (f *FirestoreTracker) ref(batchID string) *firestore.DocumentRef {
	return f.client.Collection(f.collection).Doc(batchID)
}

func (f *FirestoreTracker) Register(ctx context.Context, batchID string, jobIDs []string) error {
	doc := batchDocument{
		Jobs:       make(map[string]string, len(jobIDs)),
		InProgress: len(jobIDs),
		CreatedAt:  time.Now(),
	}
	for _, id := range jobIDs {
		doc.Jobs[id] = jobStatusInProgress
	}
	if _, err := f.ref(batchID).Create(ctx, doc); err != nil {
		return fmt.Errorf("failed to create batch document %s: %w", batchID, err)
	}
	return nil
}

func (f *FirestoreTracker) Complete(ctx context.Context, batchID, jobID string, jobErr error) error {
	ref := f.ref(batchID)
	outcome, counter := jobStatusSucceeded, "success"
	if jobErr != nil {
		outcome, counter = jobStatusFailed, "failed"
	}

	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var doc batchDocument
		if err := snap.DataTo(&doc); err != nil {
			return err
		}
		if doc.Jobs[jobID] != jobStatusInProgress {
			return nil
		}
		return tx.Update(ref, []firestore.Update{
			{FieldPath: firestore.FieldPath{"jobs", jobID}, Value: outcome},
			{Path: "inProgress", Value: firestore.Increment(-1)},
			{Path: counter, Value: firestore.Increment(1)},
		})
	})
	if err != nil {
		return fmt.Errorf("failed to record outcome of job %s in batch %s: %w", jobID, batchID, err)
	}
	return nil
}

func (f *FirestoreTracker) Stats(ctx context.Context, batchID string) (Stats, error) {
	snap, err := f.ref(batchID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return Stats{}, fmt.Errorf("batch %s: %w", batchID, models.ErrNotFound)
	}
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read batch %s: %w", batchID, err)
	}
	var doc batchDocument
	if err := snap.DataTo(&doc); err != nil {
		return Stats{}, fmt.Errorf("failed to decode batch %s: %w", batchID, err)
	}
	return Stats{Success: doc.Success, InProgress: doc.InProgress, Failed: doc.Failed}, nil
}
