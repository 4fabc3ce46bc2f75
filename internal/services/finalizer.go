package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Lllllllleong/issuebridge/internal/models"
	"github.com/Lllllllleong/issuebridge/internal/poll"
)

// The finalize job commits the first revision after the placeholder.
// TODO: read the current version before updating so a page edited while
// uploads were running is not rejected as a version conflict.
const (
	finalVersion        = 2
	finalVersionMessage = "Initial Creation"
)

// ImageMacro returns the storage markup that embeds a page attachment.
func ImageMacro(filename string) string {
	return fmt.Sprintf(`<ac:image><ri:attachment ri:filename="%s" /></ac:image>`, filename)
}

// RewriteBody replaces every occurrence of each anchor with the image macro
// of its filename. Anchors are applied in the given order.
func RewriteBody(body string, anchors []string, filenames map[string]string) string {
	for _, anchor := range anchors {
		name, ok := filenames[anchor]
		if !ok || anchor == "" {
			continue
		}
		body = strings.ReplaceAll(body, anchor, ImageMacro(name))
	}
	return body
}

// Finalizer waits for a batch's uploads to drain and commits the page body
// with attachment links rewritten to embedded images.
type Finalizer struct {
	confluence ConfluenceAPI
	stats      BatchStats
	meta       MetaStore
	barrier    poll.Barrier
	logger     *slog.Logger
}

// NewFinalizer creates a Finalizer.
func NewFinalizer(confluence ConfluenceAPI, stats BatchStats, meta MetaStore, barrier poll.Barrier, logger *slog.Logger) *Finalizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Finalizer{confluence: confluence, stats: stats, meta: meta, barrier: barrier, logger: logger}
}

// Finalize runs the finalize job of batchID. The wait is best effort: once
// the poll budget is spent the page is committed with whatever metadata the
// finished uploads left behind. Anchors without metadata stay as links.
func (f *Finalizer) Finalize(ctx context.Context, batchID string, job models.UploadJob) error {
	if job.PageID == "" {
		return fmt.Errorf("%w: finalize job has no page id", models.ErrValidation)
	}
	logCtx := f.logger.With("batchId", batchID, "pageId", job.PageID)

	// --- 1. Wait for sibling uploads ---
	res, err := f.barrier.Wait(ctx, func(ctx context.Context) (bool, error) {
		stats, err := f.stats.Stats(ctx, batchID)
		if err != nil {
			logCtx.Warn("Failed to read batch stats.", "error", err)
			return false, nil
		}
		// The finalize job itself is still in progress.
		return stats.InProgress <= 1, nil
	})
	if err != nil {
		logCtx.Error("Wait for uploads aborted", "error", err)
		return fmt.Errorf("waiting for uploads of batch %s: %w", batchID, err)
	}
	if !res.Satisfied {
		logCtx.Warn("Uploads still running after poll budget, finalizing anyway.", "checks", res.Checks)
	}

	// --- 2. Collect filenames and clear the metadata cache ---
	ids := sortedIDs(job.AnchorMap)
	anchors := make([]string, 0, len(ids))
	filenames := make(map[string]string, len(ids))
	for _, id := range ids {
		anchor := job.AnchorMap[id]
		meta, ok, err := f.meta.Get(ctx, id)
		if err != nil {
			logCtx.Warn("Failed to read attachment metadata.", "attachmentId", id, "error", err)
		} else if ok {
			anchors = append(anchors, anchor)
			filenames[anchor] = meta.Filename
		} else {
			logCtx.Warn("No metadata for attachment, leaving link in place.", "attachmentId", id)
		}
		if err := f.meta.Delete(ctx, id); err != nil {
			logCtx.Warn("Failed to delete attachment metadata.", "attachmentId", id, "error", err)
		}
	}

	// --- 3. Commit the rewritten body ---
	page := models.Page{
		ID:      job.PageID,
		Title:   job.PageTitle,
		Body:    RewriteBody(job.HTMLString, anchors, filenames),
		Version: finalVersion,
	}
	if err := f.confluence.UpdatePage(ctx, page, finalVersionMessage); err != nil {
		logCtx.Error("Failed to update page", "error", err)
		return fmt.Errorf("failed to update page %s: %w", job.PageID, err)
	}
	logCtx.Info("Page finalized.", "resolved", len(filenames), "attachments", len(ids))
	return nil
}
