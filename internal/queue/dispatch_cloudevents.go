package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/cloudevents/sdk-go/v2/event"
)

const (
	// EventType is the CloudEvent type of an upload job.
	EventType = "dev.issuebridge.upload.job"
	// EventSource is the CloudEvent source of jobs pushed by page creation.
	EventSource = "issuebridge/create-page"
	// BatchIDExtension carries the batch id as an event attribute.
	BatchIDExtension = "batchid"
)

// NewJobEvent wraps an envelope as a CloudEvent. The event id is the job id,
// so redeliveries of the same job share an id.
func NewJobEvent(env Envelope) (event.Event, error) {
	e := cloudevents.NewEvent()
	e.SetID(env.JobID)
	e.SetSource(EventSource)
	e.SetType(EventType)
	e.SetExtension(BatchIDExtension, env.BatchID)
	if err := e.SetData(cloudevents.ApplicationJSON, env); err != nil {
		return event.Event{}, fmt.Errorf("failed to encode job %s: %w", env.JobID, err)
	}
	return e, nil
}

// EnvelopeFromEvent decodes a job event delivered to a worker.
func EnvelopeFromEvent(e event.Event) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(e.Data(), &env); err != nil {
		return Envelope{}, fmt.Errorf("json.Unmarshal: %w", err)
	}
	if env.BatchID == "" {
		if v, ok := e.Extensions()[BatchIDExtension].(string); ok {
			env.BatchID = v
		}
	}
	if env.JobID == "" {
		env.JobID = e.ID()
	}
	return env, nil
}

// CloudEventDispatcher publishes one CloudEvent per job to an event broker
// ingress, such as an Eventarc or Knative broker. The broker acknowledges
// on receipt and delivers each event to the upload function on its own, so
// Dispatch returns without waiting for any job to run. Pointing broker at the
// upload function itself makes every Send wait for that job to finish.
type CloudEventDispatcher struct {
	client cloudevents.Client
	broker string
	logger *slog.Logger
}

// NewCloudEventDispatcher creates an HTTP CloudEvents dispatcher publishing
// to the broker URL.
func NewCloudEventDispatcher(broker string, logger *slog.Logger) (*CloudEventDispatcher, error) {
	client, err := cloudevents.NewClientHTTP()
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudevents client: %w", err)
	}
	return NewCloudEventDispatcherWithClient(client, broker, logger), nil
}

// NewCloudEventDispatcherWithClient creates a dispatcher over an existing client.
func NewCloudEventDispatcherWithClient(client cloudevents.Client, broker string, logger *slog.Logger) *CloudEventDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudEventDispatcher{client: client, broker: broker, logger: logger}
}

// Dispatch publishes the envelopes in order, so the finalize job reaches the
// broker last, and stops at the first one the broker does not accept.
func (d *CloudEventDispatcher) Dispatch(ctx context.Context, envs []Envelope) error {
	ctx = cloudevents.ContextWithTarget(ctx, d.broker)
	for _, env := range envs {
		e, err := NewJobEvent(env)
		if err != nil {
			return err
		}
		result := d.client.Send(ctx, e)
		if cloudevents.IsUndelivered(result) {
			return fmt.Errorf("job %s undelivered: %w", env.JobID, result)
		}
		if !cloudevents.IsACK(result) {
			return fmt.Errorf("job %s rejected: %w", env.JobID, result)
		}
		d.logger.Debug("Job published.", "batchId", env.BatchID, "jobId", env.JobID, "broker", d.broker)
	}
	return nil
}
