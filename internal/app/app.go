// Package app builds the bridge services from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/issuebridge/internal/atlassian"
	"github.com/Lllllllleong/issuebridge/internal/config"
	"github.com/Lllllllleong/issuebridge/internal/gcp"
	"github.com/Lllllllleong/issuebridge/internal/poll"
	"github.com/Lllllllleong/issuebridge/internal/queue"
	"github.com/Lllllllleong/issuebridge/internal/render"
	"github.com/Lllllllleong/issuebridge/internal/services"
	"github.com/Lllllllleong/issuebridge/internal/store"
)

// App holds the wired services of one process.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Atlassian  *atlassian.Client
	Queue      *queue.Queue
	Tracker    queue.Tracker
	Creator    *services.PageCreator
	Linker     *services.Linker
	Aggregator *services.IssueAggregator
	Processor  *services.Processor
	// Consumer runs the Processor and records job outcomes.
	Consumer *queue.Consumer

	local   *queue.LocalDispatcher
	closers []func() error
}

// New wires every service for cfg. Close releases the clients it opened.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...atlassian.Option) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}
	if err := a.wire(ctx, opts); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context, opts []atlassian.Option) error {
	cfg := a.Config

	client, err := atlassian.NewClient(ctx, atlassian.Config{
		CloudID:           cfg.Atlassian.CloudID,
		APIBaseURL:        cfg.Atlassian.APIBaseURL,
		ClientID:          cfg.Atlassian.ClientID,
		ClientSecret:      cfg.Atlassian.ClientSecret,
		TokenURL:          cfg.Atlassian.TokenURL,
		RequestsPerSecond: cfg.Atlassian.RequestsPerSecond,
		Burst:             cfg.Atlassian.Burst,
	}, opts...)
	if err != nil {
		return fmt.Errorf("failed to create atlassian client: %w", err)
	}
	a.Atlassian = client

	var fs *firestore.Client
	if cfg.Store.Backend == "firestore" || cfg.Queue.Tracker == "firestore" {
		if fs, err = gcp.NewFirestoreClient(ctx, cfg.ProjectID); err != nil {
			return err
		}
		a.closers = append(a.closers, fs.Close)
	}

	kv, err := a.openStore(fs)
	if err != nil {
		return err
	}
	meta := store.NewMetaCache(kv, a.Logger)

	switch cfg.Queue.Tracker {
	case "firestore":
		a.Tracker = queue.NewFirestoreTracker(fs, cfg.Queue.BatchCollection)
	default:
		a.Tracker = queue.NewMemoryTracker()
	}

	dispatcher, err := a.openDispatcher(ctx)
	if err != nil {
		return err
	}
	a.Queue = queue.New(a.Tracker, dispatcher, a.Logger)

	archive, err := a.openArchive(ctx)
	if err != nil {
		return err
	}

	a.Creator, err = services.NewPageCreator(services.PageCreatorDeps{
		Confluence:     client,
		Renderer:       render.NewMarkdown(),
		Queue:          a.Queue,
		Archive:        archive,
		SpaceCacheSize: cfg.SpaceCacheSize,
		Logger:         a.Logger,
	})
	if err != nil {
		return err
	}
	a.Linker = services.NewLinker(client, kv, a.Logger)
	a.Aggregator = services.NewIssueAggregator(services.IssueAggregatorDeps{
		Jira:     client,
		Meta:     meta,
		Archive:  archive,
		MaxDepth: cfg.Issue.MaxDepth,
		Logger:   a.Logger,
	})

	barrier := poll.NewRetryBarrier(poll.Policy{
		MaxAttempts: cfg.Finalize.PollMaxAttempts,
		Interval:    cfg.Finalize.PollInterval,
	})
	a.Processor = services.NewProcessor(
		services.NewUploader(client, client, meta, a.Logger),
		services.NewFinalizer(client, a.Queue, meta, barrier, a.Logger),
		a.Logger,
	)
	a.Consumer = queue.NewConsumer(a.Tracker, a.Processor, a.Logger)
	return nil
}

func (a *App) openStore(fs *firestore.Client) (store.KV, error) {
	cfg := a.Config.Store
	switch cfg.Backend {
	case "firestore":
		return store.NewFirestoreKV(fs, cfg.Collection), nil
	case "sqlite":
		kv, err := store.OpenSQLiteKV(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, kv.Close)
		return kv, nil
	default:
		return store.NewMemoryKV(), nil
	}
}

func (a *App) openDispatcher(ctx context.Context) (queue.Dispatcher, error) {
	cfg := a.Config.Queue
	switch cfg.Dispatcher {
	case "workflows":
		client, err := gcp.NewExecutionsClient(ctx)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return queue.NewWorkflowDispatcher(client, a.Config.ProjectID, cfg.WorkflowLocation, cfg.WorkflowID, cfg.TargetURL, a.Logger), nil
	case "local":
		a.local = queue.NewLocalDispatcher(queue.LocalConfig{WorkerCount: cfg.WorkerCount, Size: cfg.Size}, a.Logger)
		return a.local, nil
	default:
		return queue.NewCloudEventDispatcher(cfg.BrokerURL, a.Logger)
	}
}

// openArchive returns a nil Archiver when archiving is disabled.
func (a *App) openArchive(ctx context.Context) (services.Archiver, error) {
	if a.Config.ArchiveBucket == "" {
		return nil, nil
	}
	client, err := gcp.NewStorageClient(ctx)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)
	return gcp.NewBucketArchiver(client, a.Config.ArchiveBucket, a.Logger), nil
}

// StartLocalWorkers starts the in-process worker pool when the local
// dispatcher is configured. It reports whether workers were started.
func (a *App) StartLocalWorkers(ctx context.Context) bool {
	if a.local == nil {
		return false
	}
	a.local.Start(ctx, a.Consumer)
	return true
}

// Close waits for local jobs to finish and releases opened clients.
func (a *App) Close() error {
	if a.local != nil {
		a.local.Stop()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
