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

	functions.HTTP("HandleLinkPage", handleLinkPage)
}

// main is required by the Go Functions Framework.
func main() {}

// handleLinkPage links a wiki page to an issue on POST, and returns the
// stored wiki application id on GET.
func handleLinkPage(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		bridge, initErr = app.FromEnv(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: bridge initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	switch r.Method {
	case http.MethodGet:
		appID, err := bridge.Linker.ApplicationID(r.Context())
		if err != nil {
			app.WriteError(w, err)
			return
		}
		if err := app.WriteJSON(w, http.StatusOK, models.ApplicationIDResponse{ConfluenceApplicationID: appID}); err != nil {
			slog.Error("Failed to write response", "error", err)
		}
	case http.MethodPost:
		var req models.LinkPageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Warn("Could not decode request body", "error", err)
			http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
			return
		}
		res, err := bridge.Linker.Link(app.UserContext(r), &req)
		if err != nil {
			app.WriteError(w, err)
			return
		}
		if err := app.WriteJSON(w, http.StatusOK, res); err != nil {
			slog.Error("Failed to write response", "error", err, "issueId", req.IssueID)
		}
	default:
		w.Header().Set("Allow", "GET, POST")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}
