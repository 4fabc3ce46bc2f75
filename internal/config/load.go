package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

var defaults = map[string]any{
	"project_id":                    "",
	"log_level":                     "info",
	"atlassian.cloud_id":            "",
	"atlassian.api_base_url":        "https://api.atlassian.com",
	"atlassian.client_id":           "",
	"atlassian.client_secret":       "",
	"atlassian.token_url":           "https://auth.atlassian.com/oauth/token",
	"atlassian.requests_per_second": 10.0,
	"atlassian.burst":               5,
	"store.backend":                 "firestore",
	"store.collection":              "issuebridge-kv",
	"store.sqlite_path":             "issuebridge.db",
	"queue.dispatcher":              "workflows",
	"queue.tracker":                 "firestore",
	"queue.batch_collection":        "upload-batches",
	"queue.broker_url":              "",
	"queue.target_url":              "",
	"queue.workflow_id":             "upload-attachment-queue",
	"queue.workflow_location":       "us-central1",
	"queue.worker_count":            4,
	"queue.size":                    100,
	"finalize.poll_max_attempts":    5,
	"finalize.poll_interval":        "5s",
	"issue.max_depth":               8,
	"space_cache_size":              128,
	"archive_bucket":                "",
}

// Load reads configuration from environment variables, e.g. ATLASSIAN_CLOUD_ID
// for atlassian.cloud_id, falling back to defaults. The result is validated.
func Load() (*Config, error) {
	return LoadWith(viper.New(), nil)
}

// LoadWith loads configuration using the given viper instance, letting
// callers bind flags or a config file on top of the environment. Entries in
// overrides replace the package defaults but still yield to the environment.
func LoadWith(v *viper.Viper, overrides map[string]any) (*Config, error) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	for key, value := range overrides {
		v.SetDefault(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.UsesGCP() && cfg.ProjectID == "" {
		return nil, fmt.Errorf("invalid configuration: PROJECT_ID must be set for the selected backends")
	}
	if err := checkSharedState(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// checkSharedState rejects remote dispatchers paired with per-instance state.
// Workers and the finalize job read the batch tracker and the metadata cache
// written by page creation, which runs in a different instance.
func checkSharedState(cfg *Config) error {
	if !cfg.Queue.Remote() {
		return nil
	}
	if cfg.Queue.Tracker != "firestore" {
		return fmt.Errorf("QUEUE_DISPATCHER=%s requires QUEUE_TRACKER=firestore, got %q", cfg.Queue.Dispatcher, cfg.Queue.Tracker)
	}
	if cfg.Store.Backend != "firestore" {
		return fmt.Errorf("QUEUE_DISPATCHER=%s requires STORE_BACKEND=firestore, got %q", cfg.Queue.Dispatcher, cfg.Store.Backend)
	}
	return nil
}
