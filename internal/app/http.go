package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Lllllllleong/issuebridge/internal/atlassian"
	"github.com/Lllllllleong/issuebridge/internal/config"
	"github.com/Lllllllleong/issuebridge/internal/models"
)

// FromEnv loads configuration from the environment and wires an App on the
// default logger. Function entry points call it once per instance.
func FromEnv(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg, nil)
}

// StatusFor maps a service error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrLinkFormat):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, atlassian.ErrNoUserToken):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// UserContext returns the request context carrying the caller's bearer
// token, which user-identity API calls are made with.
func UserContext(r *http.Request) context.Context {
	ctx := r.Context()
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok && token != "" {
		return atlassian.WithUserToken(ctx, strings.TrimSpace(token))
	}
	return ctx
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

// WriteError writes err as a JSON error response. Internal errors are not
// echoed to the caller.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "Internal Server Error: processing failed"
	}
	_ = WriteJSON(w, status, errorBody{Error: msg})
}
