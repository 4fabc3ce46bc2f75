package models

// JobKind distinguishes the two variants of UploadJob.
type JobKind string

const (
	JobKindUpload   JobKind = "upload"
	JobKindFinalize JobKind = "finalize"
)

// UploadJob is one unit of work in an attachment-upload batch. It is either
// an upload of a single attachment, or the single finalize job that waits for
// its siblings and rewrites the page body.
//
// The JSON names follow the payload shape the worker function consumes.
type UploadJob struct {
	Kind             JobKind           `json:"kind"`
	AttachmentID     string            `json:"attachment_id"`
	AttachmentAnchor string            `json:"attachment_anchor,omitempty"`
	AnchorMap        map[string]string `json:"anchor_map,omitempty"`
	PageID           string            `json:"page_id"`
	PageTitle        string            `json:"page_title"`
	HTMLString       string            `json:"html_string"`
	Verification     bool              `json:"verification"`
}

// NewUploadJob builds the job for one attachment.
func NewUploadJob(attachmentID, anchor, pageID string) UploadJob {
	return UploadJob{
		Kind:             JobKindUpload,
		AttachmentID:     attachmentID,
		AttachmentAnchor: anchor,
		PageID:           pageID,
	}
}

// NewFinalizeJob builds the finalize job carrying every anchor of the page.
func NewFinalizeJob(anchors map[string]string, pageID, pageTitle, renderedBody string) UploadJob {
	return UploadJob{
		Kind:         JobKindFinalize,
		AnchorMap:    anchors,
		PageID:       pageID,
		PageTitle:    pageTitle,
		HTMLString:   renderedBody,
		Verification: true,
	}
}

// IsFinalize reports whether the job is the batch's finalize job. The
// verification flag alone is authoritative for payloads without a kind.
func (j UploadJob) IsFinalize() bool {
	return j.Verification || j.Kind == JobKindFinalize
}
