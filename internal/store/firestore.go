package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// kvEntry is the Firestore document shape of one key.
type kvEntry struct {
	Value     string    `firestore:"value"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

// FirestoreKV stores each key as a document in one collection.
type FirestoreKV struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreKV creates a KV over the given collection.
func NewFirestoreKV(client *firestore.Client, collection string) *FirestoreKV {
	return &FirestoreKV{client: client, collection: collection}
}

func (f *FirestoreKV) doc(key string) *firestore.DocumentRef {
	return f.client.Collection(f.collection).Doc(key)
}

func (f *FirestoreKV) Get(ctx context.Context, key string) (string, bool, error) {
	snap, err := f.doc(key).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read key %q: %w", key, err)
	}
	var entry kvEntry
	if err := snap.DataTo(&entry); err != nil {
		return "", false, fmt.Errorf("failed to decode key %q: %w", key, err)
	}
	return entry.Value, true, nil
}

func (f *FirestoreKV) Set(ctx context.Context, key, value string) error {
	if _, err := f.doc(key).Set(ctx, kvEntry{Value: value, UpdatedAt: time.Now()}); err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}

// Delete removes the key. Firestore treats deleting a missing document as success.
func (f *FirestoreKV) Delete(ctx context.Context, key string) error {
	if _, err := f.doc(key).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete key %q: %w", key, err)
	}
	return nil
}
