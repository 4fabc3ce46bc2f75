package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"github.com/Lllllllleong/issuebridge/internal/atlassian"
	"github.com/Lllllllleong/issuebridge/internal/models"
	"golang.org/x/sync/errgroup"
)

const (
	defaultMaxDepth = 8
	childFetchLimit = 4
)

var (
	issueFields = []string{"summary", "description", "comment", "attachment"}
	childFields = []string{"summary", "description", "comment", "attachment", "subtasks"}
)

// issueRef matches a numeric issue id or an issue key such as ENG-12.
var issueRef = regexp.MustCompile(`^(?:\d+|[A-Za-z][A-Za-z0-9_]*-\d+)$`)

// jqlEquals builds a field=ref clause. Anything other than a plain issue id
// or key is rejected, so a caller cannot extend the query.
func jqlEquals(field, ref string) (string, error) {
	if !issueRef.MatchString(ref) {
		return "", fmt.Errorf("%w: %q is not an issue key or id", models.ErrValidation, ref)
	}
	return field + "=" + ref, nil
}

// IssueAggregatorDeps are the collaborators of an IssueAggregator.
type IssueAggregatorDeps struct {
	Jira JiraAPI
	// Meta receives the metadata of every attachment seen, for later uploads.
	Meta MetaStore
	// Archive is optional.
	Archive Archiver
	// MaxDepth bounds subtask expansion below the requested issue. Defaults to 8.
	MaxDepth int
	Logger   *slog.Logger
}

// IssueAggregator builds the nested document of an issue and its subtasks.
type IssueAggregator struct {
	jira     JiraAPI
	meta     MetaStore
	archive  Archiver
	maxDepth int
	logger   *slog.Logger
}

// NewIssueAggregator creates an IssueAggregator.
func NewIssueAggregator(deps IssueAggregatorDeps) *IssueAggregator {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxDepth := deps.MaxDepth
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}
	return &IssueAggregator{
		jira:     deps.Jira,
		meta:     deps.Meta,
		archive:  deps.Archive,
		maxDepth: maxDepth,
		logger:   logger,
	}
}

// issueWalk tracks the issues already expanded during one Details call.
type issueWalk struct {
	mu      sync.Mutex
	visited map[string]bool
}

// visit marks key as expanded and reports whether it was new.
func (w *issueWalk) visit(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.visited[key] {
		return false
	}
	w.visited[key] = true
	return true
}

// Details returns the document of the issue identified by key or id.
// Subtasks are expanded up to the configured depth; an issue reached twice
// appears as a leaf the second time.
func (a *IssueAggregator) Details(ctx context.Context, req *models.IssueDetailsRequest) (*models.IssueDocument, error) {
	if req == nil || req.IssueID == "" {
		return nil, fmt.Errorf("%w: No Issue Id provided", models.ErrValidation)
	}
	jql, err := jqlEquals("id", req.IssueID)
	if err != nil {
		return nil, err
	}
	logCtx := a.logger.With("issueId", req.IssueID)
	logCtx.Info("Fetching issue details.")

	issues, err := a.jira.SearchIssues(ctx, jql, issueFields)
	if err != nil {
		logCtx.Error("Issue search failed", "error", err)
		return nil, fmt.Errorf("failed to search issue %s: %w", req.IssueID, err)
	}
	issue, ok := findIssue(issues, req.IssueID)
	if !ok {
		return nil, fmt.Errorf("%w: Issue with key %s not found", models.ErrNotFound, req.IssueID)
	}

	walk := &issueWalk{visited: map[string]bool{issue.Key: true, issue.ID: true, req.IssueID: true}}
	doc := a.document(ctx, logCtx, issue)
	if doc.ChildTasks, err = a.children(ctx, logCtx, walk, req.IssueID, 1); err != nil {
		logCtx.Error("Subtask walk failed", "error", err)
		return nil, err
	}
	logCtx.Info("Issue details collected.", "childCount", len(doc.ChildTasks))

	if a.archive != nil {
		a.archiveDocument(ctx, logCtx, issue.Key, doc)
	}
	return doc, nil
}

// children returns the documents of parentKey's direct children, each
// expanded recursively while depth allows.
func (a *IssueAggregator) children(ctx context.Context, logCtx *slog.Logger, walk *issueWalk, parentKey string, depth int) (map[string]*models.IssueDocument, error) {
	out := make(map[string]*models.IssueDocument)
	if depth > a.maxDepth {
		logCtx.Warn("Subtask depth limit reached, not expanding.", "parent", parentKey, "maxDepth", a.maxDepth)
		return out, nil
	}

	jql, err := jqlEquals("parent", parentKey)
	if err != nil {
		logCtx.Warn("Skipping subtasks of malformed issue key.", "parent", parentKey)
		return out, nil
	}
	issues, err := a.jira.SearchIssues(ctx, jql, childFields)
	if err != nil {
		return nil, fmt.Errorf("failed to list children of %s: %w", parentKey, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(childFetchLimit)
	for _, issue := range issues {
		doc := a.document(ctx, logCtx, issue)
		out[issue.Key] = doc
		if len(issue.Fields.Subtasks) == 0 || !walk.visit(issue.Key) {
			continue
		}
		g.Go(func() error {
			kids, err := a.children(gctx, logCtx, walk, issue.Key, depth+1)
			if err != nil {
				return err
			}
			doc.ChildTasks = kids
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// document converts one issue, caching the metadata of its attachments.
func (a *IssueAggregator) document(ctx context.Context, logCtx *slog.Logger, issue atlassian.Issue) *models.IssueDocument {
	doc := &models.IssueDocument{
		Title:       issue.Fields.Summary,
		Comments:    make([]json.RawMessage, 0, len(issue.Fields.Comment.Comments)),
		Attachments: make([]string, 0, len(issue.Fields.Attachment)),
		ChildTasks:  map[string]*models.IssueDocument{},
	}
	if issue.Fields.Description != nil {
		doc.Description = issue.Fields.Description.Content
	}
	for _, c := range issue.Fields.Comment.Comments {
		doc.Comments = append(doc.Comments, c.Body)
	}
	for _, att := range issue.Fields.Attachment {
		doc.Attachments = append(doc.Attachments, att.Content)
		if a.meta == nil || att.AttachmentID() == "" {
			continue
		}
		if err := a.meta.Put(ctx, att.AttachmentID(), att.Meta()); err != nil {
			logCtx.Warn("Failed to cache attachment metadata.", "attachmentId", att.AttachmentID(), "error", err)
		}
	}
	return doc
}

func (a *IssueAggregator) archiveDocument(ctx context.Context, logCtx *slog.Logger, key string, doc *models.IssueDocument) {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		logCtx.Warn("Failed to encode issue document for archive.", "error", err)
		return
	}
	objectName := fmt.Sprintf("issues/%s.json", key)
	if err := a.archive.Save(ctx, objectName, string(b)); err != nil {
		logCtx.Warn("Failed to archive issue document.", "error", err, "object", objectName)
	}
}

// findIssue locates the issue by key, then by id.
func findIssue(issues []atlassian.Issue, keyOrID string) (atlassian.Issue, bool) {
	for _, is := range issues {
		if is.Key == keyOrID {
			return is, true
		}
	}
	for _, is := range issues {
		if is.ID == keyOrID {
			return is, true
		}
	}
	return atlassian.Issue{}, false
}
