// Package services implements the bridge operations: page creation with
// asynchronous attachment upload, wiki-to-issue linking, and issue
// aggregation.
package services

import (
	"context"

	"github.com/Lllllllleong/issuebridge/internal/atlassian"
	"github.com/Lllllllleong/issuebridge/internal/models"
	"github.com/Lllllllleong/issuebridge/internal/queue"
)

// JiraAPI is the subset of the issue tracker API the services call.
type JiraAPI interface {
	SearchIssues(ctx context.Context, jql string, fields []string) ([]atlassian.Issue, error)
	AttachmentMeta(ctx context.Context, attachmentID string) (models.AttachmentMeta, error)
	AttachmentContent(ctx context.Context, attachmentID string) ([]byte, error)
	CreateRemoteLink(ctx context.Context, issueID string, link atlassian.RemoteLink) (map[string]any, error)
}

// ConfluenceAPI is the subset of the wiki API the services call.
type ConfluenceAPI interface {
	SpaceID(ctx context.Context, spaceKey string) (string, error)
	CreatePage(ctx context.Context, spaceID, title, body string) (models.CreatedPage, error)
	UploadAttachment(ctx context.Context, pageID, filename, mimeType string, content []byte) error
	UpdatePage(ctx context.Context, page models.Page, message string) error
}

// MetaStore is the attachment metadata cache.
type MetaStore interface {
	Put(ctx context.Context, attachmentID string, meta models.AttachmentMeta) error
	Get(ctx context.Context, attachmentID string) (models.AttachmentMeta, bool, error)
	Delete(ctx context.Context, attachmentID string) error
}

// JobQueue accepts a batch of upload jobs.
type JobQueue interface {
	Push(ctx context.Context, jobs []models.UploadJob) (string, error)
}

// BatchStats reports the progress of a pushed batch.
type BatchStats interface {
	Stats(ctx context.Context, batchID string) (queue.Stats, error)
}

// Archiver keeps a copy of produced documents. A nil Archiver disables archiving.
type Archiver interface {
	Save(ctx context.Context, objectName, content string) error
}
