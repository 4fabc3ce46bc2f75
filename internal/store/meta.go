package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/issuebridge/internal/models"
)

// MetaCache is the single-use handoff of attachment metadata between the
// producer, the upload worker and the finalize worker. Entries are keyed by
// attachment id.
type MetaCache struct {
	kv     KV
	logger *slog.Logger
}

// NewMetaCache wraps a KV as a metadata cache.
func NewMetaCache(kv KV, logger *slog.Logger) *MetaCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &MetaCache{kv: kv, logger: logger}
}

// Put caches meta for an attachment.
func (c *MetaCache) Put(ctx context.Context, attachmentID string, meta models.AttachmentMeta) error {
	b, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode metadata for attachment %s: %w", attachmentID, err)
	}
	return c.kv.Set(ctx, attachmentID, string(b))
}

// Get returns the cached metadata. A malformed entry is reported as a miss.
func (c *MetaCache) Get(ctx context.Context, attachmentID string) (models.AttachmentMeta, bool, error) {
	raw, ok, err := c.kv.Get(ctx, attachmentID)
	if err != nil || !ok {
		return models.AttachmentMeta{}, false, err
	}
	var meta models.AttachmentMeta
	if err := json.Unmarshal([]byte(raw), &meta); err != nil || meta.Filename == "" {
		c.logger.Warn("Ignoring malformed attachment metadata.", "attachmentId", attachmentID, "error", err)
		return models.AttachmentMeta{}, false, nil
	}
	return meta, true, nil
}

// Delete removes the entry. Deleting an absent entry is a no-op.
func (c *MetaCache) Delete(ctx context.Context, attachmentID string) error {
	return c.kv.Delete(ctx, attachmentID)
}
