package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/Lllllllleong/issuebridge/internal/models"
	"github.com/Lllllllleong/issuebridge/internal/render"
	lru "github.com/hashicorp/golang-lru/v2"
)

// PlaceholderBody is the page body shown until the finalize job commits
// the rendered content.
const PlaceholderBody = "Your page is being updated, please refresh to see the updated content..."

// Title suffixes are drawn from [minTitleSuffix, maxTitleSuffix] so that
// repeated exports of the same document do not collide on page title.
const (
	minTitleSuffix = 3
	maxTitleSuffix = 100
)

// PageCreatorDeps are the collaborators of a PageCreator.
type PageCreatorDeps struct {
	Confluence ConfluenceAPI
	Renderer   render.Renderer
	Queue      JobQueue
	// Archive is optional.
	Archive Archiver
	// SpaceCacheSize bounds the space key to id cache. Defaults to 128.
	SpaceCacheSize int
	Logger         *slog.Logger
}

// PageCreator creates a wiki page from markdown and schedules the upload of
// the attachments it references.
type PageCreator struct {
	confluence ConfluenceAPI
	renderer   render.Renderer
	queue      JobQueue
	archive    Archiver
	spaces     *lru.Cache[string, string]
	logger     *slog.Logger
	suffix     func() int
}

// NewPageCreator creates a PageCreator.
func NewPageCreator(deps PageCreatorDeps) (*PageCreator, error) {
	if deps.Confluence == nil || deps.Renderer == nil || deps.Queue == nil {
		return nil, fmt.Errorf("page creator requires a wiki client, a renderer and a job queue")
	}
	size := deps.SpaceCacheSize
	if size <= 0 {
		size = 128
	}
	spaces, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create space cache: %w", err)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &PageCreator{
		confluence: deps.Confluence,
		renderer:   deps.Renderer,
		queue:      deps.Queue,
		archive:    deps.Archive,
		spaces:     spaces,
		logger:     logger,
		suffix:     func() int { return minTitleSuffix + rand.IntN(maxTitleSuffix-minTitleSuffix+1) },
	}, nil
}

// Create renders the markdown body, creates a placeholder page and pushes
// the upload batch. It returns as soon as the batch is queued; the page
// body is filled in by the finalize job.
func (p *PageCreator) Create(ctx context.Context, req *models.CreatePageRequest) (*models.CreatePageResponse, error) {
	if err := validateCreatePage(req); err != nil {
		return nil, err
	}
	logCtx := p.logger.With("spaceKey", req.ConfluenceSpaceKey, "pageTitle", req.PageTitle)
	logCtx.Info("Starting page creation.")

	// --- 1. Render markdown into storage markup ---
	rendered, err := p.renderer.Render(req.PageBody)
	if err != nil {
		logCtx.Error("Failed to render page body", "error", err)
		return nil, fmt.Errorf("failed to render page body: %w", err)
	}

	// --- 2. Resolve the space and create the placeholder page ---
	spaceID, err := p.spaceID(ctx, req.ConfluenceSpaceKey)
	if err != nil {
		logCtx.Error("Failed to resolve space", "error", err)
		return nil, fmt.Errorf("failed to resolve space %s: %w", req.ConfluenceSpaceKey, err)
	}
	title := fmt.Sprintf("%s (%d)", req.PageTitle, p.suffix())
	page, err := p.confluence.CreatePage(ctx, spaceID, title, PlaceholderBody)
	if err != nil {
		logCtx.Error("Failed to create page", "error", err, "spaceId", spaceID)
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	logCtx = logCtx.With("pageId", page.ID)
	logCtx.Info("Placeholder page created.", "title", title)

	// --- 3. Queue one upload per attachment plus the finalize job ---
	anchors := AttachmentAnchors(rendered)
	jobs := BuildJobs(anchors, page.ID, title, rendered)
	batchID, err := p.queue.Push(ctx, jobs)
	if err != nil {
		logCtx.Error("Failed to queue upload jobs", "error", err)
		return nil, fmt.Errorf("failed to queue upload jobs for page %s: %w", page.ID, err)
	}
	logCtx = logCtx.With("batchId", batchID)
	logCtx.Info("Upload jobs queued.", "attachmentCount", len(anchors))

	// --- 4. Keep a copy of the rendered body ---
	if p.archive != nil {
		objectName := fmt.Sprintf("pages/%s/%s.html", page.ID, batchID)
		if err := p.archive.Save(ctx, objectName, rendered); err != nil {
			logCtx.Warn("Failed to archive rendered body.", "error", err, "object", objectName)
		}
	}

	return &models.CreatePageResponse{
		Status:  "success",
		PageID:  page.ID,
		PageURL: page.URL(),
		BatchID: batchID,
	}, nil
}

func (p *PageCreator) spaceID(ctx context.Context, key string) (string, error) {
	if id, ok := p.spaces.Get(key); ok {
		return id, nil
	}
	id, err := p.confluence.SpaceID(ctx, key)
	if err != nil {
		return "", err
	}
	p.spaces.Add(key, id)
	return id, nil
}

func validateCreatePage(req *models.CreatePageRequest) error {
	if req == nil {
		return fmt.Errorf("%w: request body is required", models.ErrValidation)
	}
	var missing []string
	if req.PageBody == "" {
		missing = append(missing, "pageBody")
	}
	if req.PageTitle == "" {
		missing = append(missing, "pageTitle")
	}
	if req.ConfluenceSpaceKey == "" {
		missing = append(missing, "confluenceSpaceKey")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", models.ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}
