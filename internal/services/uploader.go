package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/issuebridge/internal/models"
)

// Uploader copies one issue attachment into a wiki page.
type Uploader struct {
	jira       JiraAPI
	confluence ConfluenceAPI
	meta       MetaStore
	logger     *slog.Logger
}

// NewUploader creates an Uploader.
func NewUploader(jira JiraAPI, confluence ConfluenceAPI, meta MetaStore, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploader{jira: jira, confluence: confluence, meta: meta, logger: logger}
}

// Upload resolves the attachment's metadata, downloads it and attaches it
// to the job's page. Every failure wraps models.ErrUploadFailure, and a
// failed transfer leaves no cached metadata behind so the finalize job
// keeps the original link.
func (u *Uploader) Upload(ctx context.Context, job models.UploadJob) error {
	if job.AttachmentID == "" || job.PageID == "" {
		return fmt.Errorf("%w: %w: attachment and page ids are required", models.ErrUploadFailure, models.ErrValidation)
	}
	logCtx := u.logger.With("attachmentId", job.AttachmentID, "pageId", job.PageID)

	meta, err := u.resolveMeta(ctx, logCtx, job.AttachmentID)
	if err != nil {
		return fmt.Errorf("%w: attachment %s: %w", models.ErrUploadFailure, job.AttachmentID, err)
	}

	content, err := u.jira.AttachmentContent(ctx, job.AttachmentID)
	if err != nil {
		u.forget(ctx, logCtx, job.AttachmentID)
		return fmt.Errorf("%w: attachment %s: download: %w", models.ErrUploadFailure, job.AttachmentID, err)
	}

	if err := u.confluence.UploadAttachment(ctx, job.PageID, meta.Filename, meta.ContentType(), content); err != nil {
		u.forget(ctx, logCtx, job.AttachmentID)
		return fmt.Errorf("%w: attachment %s: upload: %w", models.ErrUploadFailure, job.AttachmentID, err)
	}
	logCtx.Info("Attachment uploaded.", "filename", meta.Filename, "bytes", len(content))
	return nil
}

// resolveMeta reads the metadata cache and falls back to the issue tracker,
// writing the fetched metadata back for the finalize job.
func (u *Uploader) resolveMeta(ctx context.Context, logCtx *slog.Logger, attachmentID string) (models.AttachmentMeta, error) {
	meta, ok, err := u.meta.Get(ctx, attachmentID)
	if err != nil {
		logCtx.Warn("Metadata cache read failed, fetching from source.", "error", err)
	}
	if ok {
		return meta, nil
	}

	meta, err = u.jira.AttachmentMeta(ctx, attachmentID)
	if err != nil {
		return models.AttachmentMeta{}, fmt.Errorf("metadata: %w", err)
	}
	if meta.Filename == "" {
		return models.AttachmentMeta{}, fmt.Errorf("metadata: attachment has no filename")
	}
	if err := u.meta.Put(ctx, attachmentID, meta); err != nil {
		return models.AttachmentMeta{}, fmt.Errorf("metadata cache write: %w", err)
	}
	return meta, nil
}

func (u *Uploader) forget(ctx context.Context, logCtx *slog.Logger, attachmentID string) {
	if err := u.meta.Delete(ctx, attachmentID); err != nil {
		logCtx.Warn("Failed to clear metadata of failed upload.", "error", err)
	}
}
