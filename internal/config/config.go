// Package config loads the bridge's configuration from the environment.
package config

import "time"

// Config holds all configuration shared by the bridge functions.
type Config struct {
	ProjectID string `mapstructure:"project_id"`
	LogLevel  string `mapstructure:"log_level" validate:"oneof=debug info warn error"`

	Atlassian AtlassianConfig `mapstructure:"atlassian"`
	Store     StoreConfig     `mapstructure:"store"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Finalize  FinalizeConfig  `mapstructure:"finalize"`
	Issue     IssueConfig     `mapstructure:"issue"`

	SpaceCacheSize int    `mapstructure:"space_cache_size" validate:"gt=0"`
	ArchiveBucket  string `mapstructure:"archive_bucket"`
}

// AtlassianConfig configures the HTTP proxy client for Jira and Confluence.
type AtlassianConfig struct {
	CloudID           string  `mapstructure:"cloud_id" validate:"required"`
	APIBaseURL        string  `mapstructure:"api_base_url" validate:"required,url"`
	ClientID          string  `mapstructure:"client_id"`
	ClientSecret      string  `mapstructure:"client_secret"`
	TokenURL          string  `mapstructure:"token_url" validate:"required,url"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gt=0"`
	Burst             int     `mapstructure:"burst" validate:"gt=0"`
}

// StoreConfig selects and configures the durable key-value store.
type StoreConfig struct {
	Backend    string `mapstructure:"backend" validate:"oneof=firestore sqlite memory"`
	Collection string `mapstructure:"collection" validate:"required"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// QueueConfig selects how upload jobs are tracked and delivered.
type QueueConfig struct {
	Dispatcher       string `mapstructure:"dispatcher" validate:"oneof=cloudevents workflows local"`
	Tracker          string `mapstructure:"tracker" validate:"oneof=firestore memory"`
	BatchCollection  string `mapstructure:"batch_collection" validate:"required"`
	BrokerURL        string `mapstructure:"broker_url" validate:"required_if=Dispatcher cloudevents"`
	TargetURL        string `mapstructure:"target_url" validate:"required_if=Dispatcher workflows"`
	WorkflowID       string `mapstructure:"workflow_id"`
	WorkflowLocation string `mapstructure:"workflow_location"`
	WorkerCount      int    `mapstructure:"worker_count" validate:"gt=0"`
	Size             int    `mapstructure:"size" validate:"gt=0"`
}

// FinalizeConfig is the finalize worker's poll policy.
type FinalizeConfig struct {
	PollMaxAttempts int           `mapstructure:"poll_max_attempts" validate:"gte=0"`
	PollInterval    time.Duration `mapstructure:"poll_interval" validate:"gte=0"`
}

// IssueConfig bounds the recursive subtask walk.
type IssueConfig struct {
	MaxDepth int `mapstructure:"max_depth" validate:"gt=0"`
}

// Remote reports whether jobs run in other instances than the one that
// pushed them.
func (q QueueConfig) Remote() bool {
	return q.Dispatcher != "local"
}

// UsesGCP reports whether any selected backend needs a Google Cloud project.
func (c *Config) UsesGCP() bool {
	return c.Store.Backend == "firestore" ||
		c.Queue.Tracker == "firestore" ||
		c.Queue.Dispatcher == "workflows" ||
		c.ArchiveBucket != ""
}
