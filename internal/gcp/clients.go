// Package gcp holds the Google Cloud client constructors and the object
// archive used by the bridge functions.
package gcp

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/storage"
	executions "cloud.google.com/go/workflows/executions/apiv1"
)

// ErrNoProject is returned when a project-scoped client is requested without
// a project id.
var ErrNoProject = errors.New("project id is required")

// open runs one client constructor and names the service in its error.
func open[C any](ctx context.Context, service string, create func(context.Context) (C, error)) (C, error) {
	client, err := create(ctx)
	if err != nil {
		var zero C
		return zero, fmt.Errorf("failed to create %s client: %w", service, err)
	}
	return client, nil
}

// NewFirestoreClient creates the Firestore client backing the key-value
// store and the batch tracker.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("firestore: %w", ErrNoProject)
	}
	return open(ctx, "firestore", func(ctx context.Context) (*firestore.Client, error) {
		return firestore.NewClient(ctx, projectID)
	})
}

// NewStorageClient creates the Cloud Storage client used by the archive.
func NewStorageClient(ctx context.Context) (*storage.Client, error) {
	return open(ctx, "storage", func(ctx context.Context) (*storage.Client, error) {
		return storage.NewClient(ctx)
	})
}

// NewExecutionsClient creates the Cloud Workflows executions client.
func NewExecutionsClient(ctx context.Context) (*executions.Client, error) {
	return open(ctx, "executions", func(ctx context.Context) (*executions.Client, error) {
		return executions.NewClient(ctx)
	})
}
