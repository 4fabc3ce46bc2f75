package atlassian

import (
	"fmt"
	"net/http"

	"github.com/Lllllllleong/issuebridge/internal/models"
)

// APIError is a non-2xx response from Jira or Confluence.
type APIError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 512 {
		body = body[:512]
	}
	return fmt.Sprintf("%s: status %d: %s", e.Operation, e.StatusCode, body)
}

// Unwrap maps 404 responses onto models.ErrNotFound.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return models.ErrNotFound
	}
	return nil
}

func checkResponse(op string, resp *Response) error {
	if resp.OK() {
		return nil
	}
	return &APIError{Operation: op, StatusCode: resp.StatusCode, Body: string(resp.Body)}
}
