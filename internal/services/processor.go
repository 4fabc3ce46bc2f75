package services

import (
	"context"
	"log/slog"

	"github.com/Lllllllleong/issuebridge/internal/queue"
)

// Processor is the queue handler for upload batches. It routes each job to
// the uploader or the finalizer.
type Processor struct {
	uploader  *Uploader
	finalizer *Finalizer
	logger    *slog.Logger
}

// NewProcessor creates a Processor.
func NewProcessor(uploader *Uploader, finalizer *Finalizer, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{uploader: uploader, finalizer: finalizer, logger: logger}
}

// Handle processes one job. Upload failures are logged and reported as
// success so a broken attachment never blocks the page; a finalize failure
// is returned.
func (p *Processor) Handle(ctx context.Context, env queue.Envelope) error {
	if env.Job.IsFinalize() {
		return p.finalizer.Finalize(ctx, env.BatchID, env.Job)
	}
	if err := p.uploader.Upload(ctx, env.Job); err != nil {
		p.logger.Error("Attachment upload failed",
			"error", err,
			"batchId", env.BatchID,
			"jobId", env.JobID,
			"attachmentId", env.Job.AttachmentID)
	}
	return nil
}
