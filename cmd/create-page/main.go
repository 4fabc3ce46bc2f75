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

	// "HandleCreatePage" is the entry point name configured in GCP.
	functions.HTTP("HandleCreatePage", handleCreatePage)
}

// main is required by the Go Functions Framework.
func main() {}

// handleCreatePage creates the wiki page and queues its attachment uploads.
// It responds as soon as the jobs are queued.
func handleCreatePage(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		bridge, initErr = app.FromEnv(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: bridge initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.CreatePageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := bridge.Creator.Create(app.UserContext(r), &req)
	if err != nil {
		app.WriteError(w, err)
		return
	}

	if err := app.WriteJSON(w, http.StatusOK, res); err != nil {
		slog.Error("Failed to write response", "error", err, "pageId", res.PageID, "batchId", res.BatchID)
	}
}
