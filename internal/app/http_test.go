package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Lllllllleong/issuebridge/internal/atlassian"
	"github.com/Lllllllleong/issuebridge/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: missing pageTitle", models.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", models.ErrLinkFormat), http.StatusUnprocessableEntity},
		{fmt.Errorf("issue: %w", models.ErrNotFound), http.StatusNotFound},
		{&atlassian.APIError{Operation: "get space", StatusCode: http.StatusNotFound}, http.StatusNotFound},
		{atlassian.ErrNoUserToken, http.StatusUnauthorized},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFor(tt.err), tt.err.Error())
	}
}

func TestUserContext(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	_, ok := atlassian.UserToken(UserContext(r))
	assert.False(t, ok)

	r.Header.Set("Authorization", "Bearer abc123")
	token, ok := atlassian.UserToken(UserContext(r))
	require.True(t, ok)
	assert.Equal(t, "abc123", token)

	r.Header.Set("Authorization", "Basic Zm9vOmJhcg==")
	_, ok = atlassian.UserToken(UserContext(r))
	assert.False(t, ok)
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, fmt.Errorf("%w: missing pageTitle", models.ErrValidation))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body errorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "validation error: missing pageTitle", body.Error)

	rec = httptest.NewRecorder()
	WriteError(rec, errors.New("database password is hunter2"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "hunter2")
}
