package atlassian

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/Lllllllleong/issuebridge/internal/models"
	"github.com/google/uuid"
)

const boundaryPrefix = "----WebKitFormBoundary"

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// NewBoundary returns a random multipart boundary token.
func NewBoundary() string {
	return boundaryPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// EncodeFilePart builds a multipart/form-data body holding a single "file"
// part. It returns the body and the Content-Type header value.
func EncodeFilePart(filename, mimeType string, content []byte) ([]byte, string, error) {
	if mimeType == "" {
		mimeType = models.DefaultMimeType
	}
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.SetBoundary(NewBoundary()); err != nil {
		return nil, "", fmt.Errorf("failed to set multipart boundary: %w", err)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(filename)))
	h.Set("Content-Type", mimeType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, "", fmt.Errorf("failed to write file part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart body: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
