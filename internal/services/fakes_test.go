package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/Lllllllleong/issuebridge/internal/atlassian"
	"github.com/Lllllllleong/issuebridge/internal/models"
	"github.com/Lllllllleong/issuebridge/internal/queue"
)

var errNetwork = errors.New("simulated network error")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeJira is an in-memory issue tracker.
type fakeJira struct {
	mu sync.Mutex

	// searches maps a JQL string to its result.
	searches  map[string][]atlassian.Issue
	searchErr error
	jqls      []string

	meta       map[string]models.AttachmentMeta
	metaErr    error
	metaCalls  int
	content    map[string][]byte
	contentErr error

	links   []atlassian.RemoteLink
	linkIDs []string
	linkErr error
}

func newFakeJira() *fakeJira {
	return &fakeJira{
		searches: map[string][]atlassian.Issue{},
		meta:     map[string]models.AttachmentMeta{},
		content:  map[string][]byte{},
	}
}

func (f *fakeJira) SearchIssues(_ context.Context, jql string, _ []string) ([]atlassian.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jqls = append(f.jqls, jql)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searches[jql], nil
}

func (f *fakeJira) AttachmentMeta(_ context.Context, id string) (models.AttachmentMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metaCalls++
	if f.metaErr != nil {
		return models.AttachmentMeta{}, f.metaErr
	}
	m, ok := f.meta[id]
	if !ok {
		return models.AttachmentMeta{}, models.ErrNotFound
	}
	return m, nil
}

func (f *fakeJira) AttachmentContent(_ context.Context, id string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.contentErr != nil {
		return nil, f.contentErr
	}
	return f.content[id], nil
}

func (f *fakeJira) CreateRemoteLink(_ context.Context, issueID string, link atlassian.RemoteLink) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.linkErr != nil {
		return nil, f.linkErr
	}
	f.linkIDs = append(f.linkIDs, issueID)
	f.links = append(f.links, link)
	return map[string]any{"id": 10000, "self": "https://jira/rest/api/3/issue/" + issueID + "/remotelink/10000"}, nil
}

type uploadCall struct {
	PageID, Filename, MimeType string
	Content                    []byte
}

// fakeConfluence is an in-memory wiki.
type fakeConfluence struct {
	mu sync.Mutex

	calls int

	spaces     map[string]string
	spaceCalls int
	createErr  error
	created    []models.Page

	uploads   []uploadCall
	uploadErr map[string]error // by filename
	// uploadGate, when set, holds every upload until it is closed.
	uploadGate chan struct{}

	updates   []models.Page
	messages  []string
	updateErr error
}

func newFakeConfluence() *fakeConfluence {
	return &fakeConfluence{spaces: map[string]string{"ENG": "98304"}, uploadErr: map[string]error{}}
}

func (f *fakeConfluence) SpaceID(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.spaceCalls++
	id, ok := f.spaces[key]
	if !ok {
		return "", models.ErrNotFound
	}
	return id, nil
}

func (f *fakeConfluence) CreatePage(_ context.Context, spaceID, title, body string) (models.CreatedPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.createErr != nil {
		return models.CreatedPage{}, f.createErr
	}
	f.created = append(f.created, models.Page{ID: "4242", Title: title, Body: body, Version: 1})
	return models.CreatedPage{
		ID:    "4242",
		Title: title,
		Links: models.PageLinks{Base: "https://site.atlassian.net/wiki", WebUI: "/spaces/ENG/pages/4242/" + strings.ReplaceAll(title, " ", "+")},
	}, nil
}

func (f *fakeConfluence) UploadAttachment(_ context.Context, pageID, filename, mimeType string, content []byte) error {
	if f.uploadGate != nil {
		<-f.uploadGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.uploadErr[filename]; err != nil {
		return err
	}
	f.uploads = append(f.uploads, uploadCall{PageID: pageID, Filename: filename, MimeType: mimeType, Content: content})
	return nil
}

func (f *fakeConfluence) UpdatePage(_ context.Context, page models.Page, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, page)
	f.messages = append(f.messages, message)
	return nil
}

// fakeQueue records pushed batches.
type fakeQueue struct {
	pushed [][]models.UploadJob
	err    error
}

func (f *fakeQueue) Push(_ context.Context, jobs []models.UploadJob) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.pushed = append(f.pushed, jobs)
	return "batch-1", nil
}

// scriptedStats returns queued responses, repeating the last one.
type scriptedStats struct {
	mu    sync.Mutex
	steps []statsStep
	calls int
}

type statsStep struct {
	stats queue.Stats
	err   error
}

func (s *scriptedStats) Stats(context.Context, string) (queue.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := min(s.calls, len(s.steps)-1)
	s.calls++
	return s.steps[i].stats, s.steps[i].err
}

// fakeArchive records saved objects.
type fakeArchive struct {
	mu      sync.Mutex
	objects map[string]string
	err     error
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{objects: map[string]string{}}
}

func (f *fakeArchive) Save(_ context.Context, name, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.objects[name] = content
	return nil
}

// fakeRenderer returns the input unchanged.
type fakeRenderer struct{ err error }

func (r fakeRenderer) Render(md string) (string, error) {
	return md, r.err
}
