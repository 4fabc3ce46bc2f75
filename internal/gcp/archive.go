package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// BucketArchiver writes documents to a Cloud Storage bucket. Objects are
// write-once: saving a name that already exists is skipped.
type BucketArchiver struct {
	bucket *storage.BucketHandle
	name   string
	logger *slog.Logger
}

// NewBucketArchiver creates an archiver for bucketName.
func NewBucketArchiver(client *storage.Client, bucketName string, logger *slog.Logger) *BucketArchiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &BucketArchiver{bucket: client.Bucket(bucketName), name: bucketName, logger: logger}
}

// Save writes content to objectName unless the object already exists.
func (a *BucketArchiver) Save(ctx context.Context, objectName, content string) error {
	logCtx := a.logger.With("bucket", a.name, "object", objectName)

	writer := a.bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = contentTypeFor(objectName)

	if _, err := io.Copy(writer, strings.NewReader(content)); err != nil {
		_ = writer.Close()
		if isPreconditionFailed(err) {
			logCtx.Info("Object already exists, skipping.")
			return nil
		}
		logCtx.Error("Failed to write archive object", "error", err)
		return fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := writer.Close(); err != nil {
		if isPreconditionFailed(err) {
			logCtx.Info("Object already exists, skipping.")
			return nil
		}
		logCtx.Error("Failed to finalize archive object", "error", err)
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	logCtx.Debug("Archived object.", "bytes", len(content))
	return nil
}

func isPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}

func contentTypeFor(objectName string) string {
	if t := mime.TypeByExtension(path.Ext(objectName)); t != "" {
		return t
	}
	return "application/octet-stream"
}
