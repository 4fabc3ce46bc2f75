package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/issuebridge/internal/app"
	"github.com/Lllllllleong/issuebridge/internal/logging"
	"github.com/Lllllllleong/issuebridge/internal/models"
)

var (
	bridge  *app.App
	once    sync.Once
	initErr error
)

func init() {
	logging.Setup(os.Getenv("LOG_LEVEL"))

	functions.HTTP("HandleIssueDetails", handleIssueDetails)
}

// main is required by the Go Functions Framework.
func main() {}

// handleIssueDetails returns the nested document of an issue and its subtasks.
func handleIssueDetails(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		bridge, initErr = app.FromEnv(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: bridge initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.IssueDetailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	doc, err := bridge.Aggregator.Details(r.Context(), &req)
	if err != nil {
		app.WriteError(w, err)
		return
	}

	if err := app.WriteJSON(w, http.StatusOK, doc); err != nil {
		slog.Error("Failed to write response", "error", err, "issueId", req.IssueID)
	}
}
