package main

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/issuebridge/internal/app"
	"github.com/Lllllllleong/issuebridge/internal/logging"
	"github.com/Lllllllleong/issuebridge/internal/queue"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

var (
	bridge  *app.App
	once    sync.Once
	initErr error
)

func init() {
	logging.Setup(os.Getenv("LOG_LEVEL"))

	// Each upload job is delivered as one CloudEvent.
	functions.CloudEvent("ProcessUploadAttachment", processUploadAttachment)
}

// main is required by the Go Functions Framework.
func main() {}

// processUploadAttachment runs one upload or finalize job. Returning an
// error marks the invocation failed and lets the queue redeliver it.
func processUploadAttachment(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		bridge, initErr = app.FromEnv(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	env, err := queue.EnvelopeFromEvent(e)
	if err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "eventId", e.ID(), "data", string(e.Data()))
		return err
	}

	// The consumer logs failures with the job's context.
	return bridge.Consumer.Handle(ctx, env)
}
