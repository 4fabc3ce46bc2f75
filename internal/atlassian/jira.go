package atlassian

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Lllllllleong/issuebridge/internal/models"
)

// Issue is the subset of a Jira search result the bridge reads.
type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Fields IssueFields `json:"fields"`
}

// IssueFields holds the requested issue fields.
type IssueFields struct {
	Summary     string            `json:"summary"`
	Description *IssueDescription `json:"description"`
	Comment     IssueComments     `json:"comment"`
	Attachment  []IssueAttachment `json:"attachment"`
	Subtasks    []json.RawMessage `json:"subtasks"`
}

// IssueDescription is an Atlassian Document Format node; only its content is kept.
type IssueDescription struct {
	Content json.RawMessage `json:"content"`
}

// IssueComments wraps the comment page of an issue.
type IssueComments struct {
	Comments []IssueComment `json:"comments"`
}

// IssueComment is one comment; Body is Atlassian Document Format.
type IssueComment struct {
	Body json.RawMessage `json:"body"`
}

// IssueAttachment is an attachment listed on an issue.
type IssueAttachment struct {
	ID       flexID `json:"id"`
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	Content  string `json:"content"`
}

// Meta returns the cacheable metadata of the attachment.
func (a IssueAttachment) Meta() models.AttachmentMeta {
	return models.AttachmentMeta{Filename: a.Filename, MimeType: a.MimeType}
}

// AttachmentID returns the attachment id as a string.
func (a IssueAttachment) AttachmentID() string {
	return string(a.ID)
}

// RemoteLink is the body of a Jira remote issue link.
type RemoteLink struct {
	GlobalID     string                `json:"globalId"`
	Application  RemoteLinkApplication `json:"application"`
	Relationship string                `json:"relationship"`
	Object       RemoteLinkObject      `json:"object"`
}

// RemoteLinkApplication identifies the linked application.
type RemoteLinkApplication struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// RemoteLinkObject is the linked resource.
type RemoteLinkObject struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// SearchIssues runs a JQL search as the app and returns the matching issues.
func (c *Client) SearchIssues(ctx context.Context, jql string, fields []string) ([]Issue, error) {
	q := url.Values{}
	q.Set("jql", jql)
	q.Set("fields", strings.Join(fields, ","))

	resp, err := c.RequestJira(ctx, AsApp, "/rest/api/3/search?"+q.Encode(), getRequest())
	if err != nil {
		return nil, err
	}
	if err := checkResponse("search issues", resp); err != nil {
		return nil, err
	}
	var result struct {
		Issues []Issue `json:"issues"`
	}
	if err := resp.JSON(&result); err != nil {
		return nil, err
	}
	return result.Issues, nil
}

// AttachmentMeta fetches an attachment's filename and mime type as the app.
func (c *Client) AttachmentMeta(ctx context.Context, attachmentID string) (models.AttachmentMeta, error) {
	resp, err := c.RequestJira(ctx, AsApp, Route("/rest/api/3/attachment/%s", attachmentID), getRequest())
	if err != nil {
		return models.AttachmentMeta{}, err
	}
	if err := checkResponse("get attachment metadata", resp); err != nil {
		return models.AttachmentMeta{}, err
	}
	var meta models.AttachmentMeta
	if err := resp.JSON(&meta); err != nil {
		return models.AttachmentMeta{}, err
	}
	return meta, nil
}

// AttachmentContent downloads an attachment's binary content as the app.
func (c *Client) AttachmentContent(ctx context.Context, attachmentID string) ([]byte, error) {
	req := getRequest()
	req.Header.Set("X-Atlassian-Token", "no-check")
	resp, err := c.RequestJira(ctx, AsApp, Route("/rest/api/3/attachment/content/%s", attachmentID), req)
	if err != nil {
		return nil, err
	}
	if err := checkResponse("get attachment content", resp); err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// CreateRemoteLink adds a remote link to an issue as the invoking user and
// returns Jira's response document.
func (c *Client) CreateRemoteLink(ctx context.Context, issueID string, link RemoteLink) (map[string]any, error) {
	req, err := jsonRequest(http.MethodPost, link)
	if err != nil {
		return nil, err
	}
	resp, err := c.RequestJira(ctx, AsUser, Route("/rest/api/3/issue/%s/remotelink", issueID), req)
	if err != nil {
		return nil, err
	}
	if err := checkResponse("create remote link", resp); err != nil {
		return nil, err
	}
	out := map[string]any{}
	if len(resp.Body) > 0 {
		if err := resp.JSON(&out); err != nil {
			return nil, fmt.Errorf("remote link created but response unreadable: %w", err)
		}
	}
	return out, nil
}
