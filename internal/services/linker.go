package services

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/Lllllllleong/issuebridge/internal/atlassian"
	"github.com/Lllllllleong/issuebridge/internal/models"
	"github.com/Lllllllleong/issuebridge/internal/store"
)

// ApplicationIDKey is the store key of the wiki application link id.
const ApplicationIDKey = "confluence-application-id"

// ErrApplicationIDNotSet is returned when no wiki application id has been stored.
var ErrApplicationIDNotSet = fmt.Errorf("%w: Confluence application Id not set", models.ErrNotFound)

var pageIDInLink = regexp.MustCompile(`/pages/(\d+)/`)

// PageIDFromLink extracts the numeric page id from a wiki page URL.
func PageIDFromLink(link string) (string, error) {
	m := pageIDInLink.FindStringSubmatch(link)
	if m == nil {
		return "", models.ErrLinkFormat
	}
	return m[1], nil
}

// Linker attaches wiki pages to issues as remote links.
type Linker struct {
	jira   JiraAPI
	kv     store.KV
	logger *slog.Logger
}

// NewLinker creates a Linker.
func NewLinker(jira JiraAPI, kv store.KV, logger *slog.Logger) *Linker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Linker{jira: jira, kv: kv, logger: logger}
}

// Link records the application id and creates a remote link from the issue
// to the page. An empty application id falls back to the stored one.
func (l *Linker) Link(ctx context.Context, req *models.LinkPageRequest) (*models.LinkPageResponse, error) {
	if req == nil || req.ConfluenceLink == "" || req.IssueID == "" {
		return nil, fmt.Errorf("%w: confluenceLink and issueId are required", models.ErrValidation)
	}
	logCtx := l.logger.With("issueId", req.IssueID)

	pageID, err := PageIDFromLink(req.ConfluenceLink)
	if err != nil {
		logCtx.Warn("Rejected link without page id.", "link", req.ConfluenceLink)
		return nil, err
	}

	appID := req.ConfluenceApplicationID
	if appID == "" {
		if appID, err = l.ApplicationID(ctx); err != nil {
			return nil, fmt.Errorf("%w: confluenceApplicationId is required: %w", models.ErrValidation, err)
		}
	} else if err := l.kv.Set(ctx, ApplicationIDKey, appID); err != nil {
		logCtx.Error("Failed to store application id", "error", err)
		return nil, fmt.Errorf("failed to store application id: %w", err)
	}

	link := atlassian.RemoteLink{
		GlobalID: fmt.Sprintf("appId=%s&pageId=%s", appID, pageID),
		Application: atlassian.RemoteLinkApplication{
			Type: "com.atlassian.confluence",
			Name: "Confluence",
		},
		Relationship: "Wiki Page",
		Object: atlassian.RemoteLinkObject{
			URL:   req.ConfluenceLink,
			Title: "Wiki Page",
		},
	}
	created, err := l.jira.CreateRemoteLink(ctx, req.IssueID, link)
	if err != nil {
		logCtx.Error("Failed to create remote link", "error", err, "pageId", pageID)
		return nil, fmt.Errorf("failed to link page %s to issue %s: %w", pageID, req.IssueID, err)
	}
	logCtx.Info("Page linked to issue.", "pageId", pageID)

	return &models.LinkPageResponse{
		Status:     "success",
		PageID:     pageID,
		RemoteLink: created,
	}, nil
}

// ApplicationID returns the stored wiki application id.
func (l *Linker) ApplicationID(ctx context.Context) (string, error) {
	id, ok, err := l.kv.Get(ctx, ApplicationIDKey)
	if err != nil {
		return "", fmt.Errorf("failed to read application id: %w", err)
	}
	if !ok || id == "" {
		return "", ErrApplicationIDNotSet
	}
	return id, nil
}
