package atlassian

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Lllllllleong/issuebridge/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(context.Background(), Config{
		CloudID:           "cloud-1",
		APIBaseURL:        srv.URL,
		RequestsPerSecond: 1000,
		Burst:             100,
	}, WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresCloudID(t *testing.T) {
	_, err := NewClient(context.Background(), Config{APIBaseURL: "https://api.atlassian.com"})
	assert.Error(t, err)
}

func TestRequest_AsUserRequiresToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := c.RequestJira(context.Background(), AsUser, "/rest/api/3/myself", Request{})
	assert.ErrorIs(t, err, ErrNoUserToken)
}

func TestRequest_AsUserSendsBearerToken(t *testing.T) {
	var gotAuth, gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	})

	ctx := WithUserToken(context.Background(), "user-token")
	resp, err := c.RequestConfluence(ctx, AsUser, "/wiki/api/v2/pages", Request{})
	require.NoError(t, err)

	assert.True(t, resp.OK())
	assert.Equal(t, "Bearer user-token", gotAuth)
	assert.Equal(t, "/ex/confluence/cloud-1/wiki/api/v2/pages", gotPath)
}

func TestRequest_NonSuccessIsReturnedNotRaised(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	})

	resp, err := c.RequestJira(context.Background(), AsApp, "/rest/api/3/issue/X", Request{})
	require.NoError(t, err)
	assert.False(t, resp.OK())
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestSpaceID_AcceptsNumericID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ex/confluence/cloud-1/wiki/rest/api/space/DOCS", r.URL.Path)
		_, _ = io.WriteString(w, `{"id": 98765, "key": "DOCS"}`)
	})

	id, err := c.SpaceID(WithUserToken(context.Background(), "tok"), "DOCS")
	require.NoError(t, err)
	assert.Equal(t, "98765", id)
}

func TestSpaceID_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"No space with key"}`, http.StatusNotFound)
	})

	_, err := c.SpaceID(WithUserToken(context.Background(), "tok"), "NOPE")
	assert.ErrorIs(t, err, models.ErrNotFound)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestCreatePage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "42", body["spaceId"])
		assert.Equal(t, "Release notes (7)", body["title"])
		assert.Equal(t, "current", body["status"])
		assert.Equal(t, map[string]any{"representation": "storage", "value": "placeholder"}, body["body"])

		_, _ = io.WriteString(w, `{"id":"555","title":"Release notes (7)","_links":{"base":"https://site.atlassian.net/wiki","webui":"/spaces/DOCS/pages/555/Release+notes"}}`)
	})

	page, err := c.CreatePage(WithUserToken(context.Background(), "tok"), "42", "Release notes (7)", "placeholder")
	require.NoError(t, err)
	assert.Equal(t, "555", page.ID)
	assert.Equal(t, "https://site.atlassian.net/wiki/spaces/DOCS/pages/555/Release+notes", page.URL())
}

func TestUploadAttachment_SendsSingleFilePart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ex/confluence/cloud-1/wiki/rest/api/content/555/child/attachment", r.URL.Path)
		assert.Equal(t, "nocheck", r.Header.Get("X-Atlassian-Token"))

		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		assert.Equal(t, "multipart/form-data", mediaType)
		assert.True(t, strings.HasPrefix(params["boundary"], boundaryPrefix))

		mr := multipart.NewReader(r.Body, params["boundary"])
		part, err := mr.NextPart()
		require.NoError(t, err)
		assert.Equal(t, "file", part.FormName())
		assert.Equal(t, "photo.png", part.FileName())
		assert.Equal(t, "image/png", part.Header.Get("Content-Type"))
		data, _ := io.ReadAll(part)
		assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data)

		_, err = mr.NextPart()
		assert.ErrorIs(t, err, io.EOF)
		w.WriteHeader(http.StatusOK)
	})

	err := c.UploadAttachment(context.Background(), "555", "photo.png", "image/png", []byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, err)
}

func TestUploadAttachment_FailureStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too large", http.StatusRequestEntityTooLarge)
	})

	err := c.UploadAttachment(context.Background(), "555", "big.bin", "", []byte("x"))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusRequestEntityTooLarge, apiErr.StatusCode)
}

func TestUpdatePage_Body(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/ex/confluence/cloud-1/wiki/api/v2/pages/555", r.URL.Path)

		var body struct {
			ID     string `json:"id"`
			Status string `json:"status"`
			Title  string `json:"title"`
			Body   struct {
				Representation string `json:"representation"`
				Value          string `json:"value"`
			} `json:"body"`
			Version struct {
				Number  int    `json:"number"`
				Message string `json:"message"`
			} `json:"version"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "555", body.ID)
		assert.Equal(t, "current", body.Status)
		assert.Equal(t, "Title (5)", body.Title)
		assert.Equal(t, "storage", body.Body.Representation)
		assert.Equal(t, "<p>done</p>", body.Body.Value)
		assert.Equal(t, 2, body.Version.Number)
		assert.Equal(t, "Initial Creation", body.Version.Message)
		w.WriteHeader(http.StatusOK)
	})

	err := c.UpdatePage(context.Background(), models.Page{ID: "555", Title: "Title (5)", Body: "<p>done</p>", Version: 2}, "Initial Creation")
	require.NoError(t, err)
}

func TestSearchIssues(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ex/jira/cloud-1/rest/api/3/search", r.URL.Path)
		assert.Equal(t, "parent=PROJ-1", r.URL.Query().Get("jql"))
		assert.Equal(t, "summary,attachment", r.URL.Query().Get("fields"))
		_, _ = io.WriteString(w, `{"issues":[{"id":"10001","key":"PROJ-2","fields":{"summary":"Child","attachment":[{"id":"77","filename":"a.txt","mimeType":"text/plain","content":"https://x/77"}]}}]}`)
	})

	issues, err := c.SearchIssues(context.Background(), "parent=PROJ-1", []string{"summary", "attachment"})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "PROJ-2", issues[0].Key)
	require.Len(t, issues[0].Fields.Attachment, 1)
	assert.Equal(t, "77", issues[0].Fields.Attachment[0].AttachmentID())
	assert.Equal(t, models.AttachmentMeta{Filename: "a.txt", MimeType: "text/plain"}, issues[0].Fields.Attachment[0].Meta())
}

func TestAttachmentMetaAndContent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ex/jira/cloud-1/rest/api/3/attachment/123":
			_, _ = io.WriteString(w, `{"id":"123","filename":"photo.png","mimeType":"image/png"}`)
		case "/ex/jira/cloud-1/rest/api/3/attachment/content/123":
			assert.Equal(t, "no-check", r.Header.Get("X-Atlassian-Token"))
			_, _ = w.Write([]byte("binary"))
		default:
			http.NotFound(w, r)
		}
	})

	meta, err := c.AttachmentMeta(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, models.AttachmentMeta{Filename: "photo.png", MimeType: "image/png"}, meta)

	content, err := c.AttachmentContent(context.Background(), "123")
	require.NoError(t, err)
	assert.Equal(t, []byte("binary"), content)

	_, err = c.AttachmentContent(context.Background(), "999")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCreateRemoteLink(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ex/jira/cloud-1/rest/api/3/issue/PROJ-9/remotelink", r.URL.Path)
		var link RemoteLink
		require.NoError(t, json.NewDecoder(r.Body).Decode(&link))
		assert.Equal(t, "appId=app-1&pageId=555", link.GlobalID)
		assert.Equal(t, "com.atlassian.confluence", link.Application.Type)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":10000,"self":"https://x/remotelink/10000"}`)
	})

	out, err := c.CreateRemoteLink(WithUserToken(context.Background(), "tok"), "PROJ-9", RemoteLink{
		GlobalID:    "appId=app-1&pageId=555",
		Application: RemoteLinkApplication{Type: "com.atlassian.confluence", Name: "Confluence"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://x/remotelink/10000", out["self"])
}

func TestEncodeFilePart_DefaultsMimeType(t *testing.T) {
	body, contentType, err := EncodeFilePart(`we"ird.bin`, "", []byte("abc"))
	require.NoError(t, err)

	_, params, err := mime.ParseMediaType(contentType)
	require.NoError(t, err)
	part, err := multipart.NewReader(strings.NewReader(string(body)), params["boundary"]).NextPart()
	require.NoError(t, err)
	assert.Equal(t, models.DefaultMimeType, part.Header.Get("Content-Type"))
	assert.Equal(t, `we"ird.bin`, part.FileName())
}

func TestNewBoundary_IsRandom(t *testing.T) {
	a, b := NewBoundary(), NewBoundary()
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, boundaryPrefix))
}

func TestRoute_EscapesSegments(t *testing.T) {
	assert.Equal(t, "/rest/api/3/issue/A%2FB/remotelink", Route("/rest/api/3/issue/%s/remotelink", "A/B"))
}

func TestGetRequest_HeadersAreNotShared(t *testing.T) {
	a := getRequest()
	a.Header.Set("X-Atlassian-Token", "no-check")

	b := getRequest()
	assert.Equal(t, http.MethodGet, b.Method)
	assert.Equal(t, "application/json", b.Header.Get("Accept"))
	assert.Empty(t, b.Header.Get("X-Atlassian-Token"))
	assert.Nil(t, b.Body)
}
