package atlassian

import (
	"bytes"
	"context"
	"net/http"

	"github.com/Lllllllleong/issuebridge/internal/models"
)

// StorageRepresentation is the wiki's structured page body format.
const StorageRepresentation = "storage"

type pageBody struct {
	Representation string `json:"representation"`
	Value          string `json:"value"`
}

type pageVersion struct {
	Number  int    `json:"number"`
	Message string `json:"message,omitempty"`
}

type createPageBody struct {
	SpaceID string   `json:"spaceId"`
	Title   string   `json:"title"`
	Status  string   `json:"status"`
	Body    pageBody `json:"body"`
}

type updatePageBody struct {
	ID      string      `json:"id"`
	Status  string      `json:"status"`
	Title   string      `json:"title"`
	Body    pageBody    `json:"body"`
	Version pageVersion `json:"version"`
}

// SpaceID resolves a space key to its id as the invoking user.
func (c *Client) SpaceID(ctx context.Context, spaceKey string) (string, error) {
	resp, err := c.RequestConfluence(ctx, AsUser, Route("/wiki/rest/api/space/%s", spaceKey), getRequest())
	if err != nil {
		return "", err
	}
	if err := checkResponse("get space", resp); err != nil {
		return "", err
	}
	var space struct {
		ID flexID `json:"id"`
	}
	if err := resp.JSON(&space); err != nil {
		return "", err
	}
	if space.ID == "" {
		return "", &APIError{Operation: "get space", StatusCode: http.StatusNotFound, Body: "space has no id"}
	}
	return string(space.ID), nil
}

// CreatePage creates a current page in the space as the invoking user.
func (c *Client) CreatePage(ctx context.Context, spaceID, title, body string) (models.CreatedPage, error) {
	req, err := jsonRequest(http.MethodPost, createPageBody{
		SpaceID: spaceID,
		Title:   title,
		Status:  "current",
		Body:    pageBody{Representation: StorageRepresentation, Value: body},
	})
	if err != nil {
		return models.CreatedPage{}, err
	}
	resp, err := c.RequestConfluence(ctx, AsUser, "/wiki/api/v2/pages", req)
	if err != nil {
		return models.CreatedPage{}, err
	}
	if err := checkResponse("create page", resp); err != nil {
		return models.CreatedPage{}, err
	}
	var created struct {
		ID    flexID           `json:"id"`
		Title string           `json:"title"`
		Links models.PageLinks `json:"_links"`
	}
	if err := resp.JSON(&created); err != nil {
		return models.CreatedPage{}, err
	}
	return models.CreatedPage{ID: string(created.ID), Title: created.Title, Links: created.Links}, nil
}

// UploadAttachment adds a file to the page's attachments as the app.
func (c *Client) UploadAttachment(ctx context.Context, pageID, filename, mimeType string, content []byte) error {
	body, contentType, err := EncodeFilePart(filename, mimeType, content)
	if err != nil {
		return err
	}
	req := Request{
		Method: http.MethodPost,
		Header: http.Header{
			"Accept":            {"application/json"},
			"Content-Type":      {contentType},
			"X-Atlassian-Token": {"nocheck"},
		},
		Body: bytes.NewReader(body),
	}
	resp, err := c.RequestConfluence(ctx, AsApp, Route("/wiki/rest/api/content/%s/child/attachment", pageID), req)
	if err != nil {
		return err
	}
	return checkResponse("upload attachment", resp)
}

// UpdatePage replaces the page's title and storage body as the app. The
// version number is sent as given.
func (c *Client) UpdatePage(ctx context.Context, page models.Page, message string) error {
	req, err := jsonRequest(http.MethodPut, updatePageBody{
		ID:      page.ID,
		Status:  "current",
		Title:   page.Title,
		Body:    pageBody{Representation: StorageRepresentation, Value: page.Body},
		Version: pageVersion{Number: page.Version, Message: message},
	})
	if err != nil {
		return err
	}
	resp, err := c.RequestConfluence(ctx, AsApp, Route("/wiki/api/v2/pages/%s", page.ID), req)
	if err != nil {
		return err
	}
	return checkResponse("update page", resp)
}
