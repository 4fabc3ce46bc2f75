package models

// DefaultMimeType is used when an attachment's mime type is unknown.
const DefaultMimeType = "application/octet-stream"

// AttachmentRef is one occurrence of an attachment inside rendered content.
// AnchorMarkup is the literal tag text that referenced it.
type AttachmentRef struct {
	ID           string
	AnchorMarkup string
}

// AttachmentMeta is the metadata handed from producer/upload worker to the
// finalize worker through the metadata cache.
type AttachmentMeta struct {
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
}

// ContentType returns the declared mime type, or DefaultMimeType.
func (m AttachmentMeta) ContentType() string {
	if m.MimeType == "" {
		return DefaultMimeType
	}
	return m.MimeType
}
