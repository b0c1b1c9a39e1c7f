package config

import (
	"fmt"
	"time"

	"github.com/opencity-labs/ccat-memory-updater/types"
)

// Defaults applied by Normalize for unset fields.
const (
	DefaultMaxRetryAttempts  = 3
	DefaultRetryDelaySeconds = 5
	DefaultStoreBackend      = "redis"
	DefaultArchiveBackend    = "none"
	DefaultArchiveDataset    = "stale_entries"
)

// Bounds enforced by Validate. Reconciliation policy knobs outside these
// ranges are configuration errors, not clamped.
const (
	MaxRetryAttemptsLimit = 10
	MaxRetryDelaySeconds  = 60
)

// Config represents a memupdater.yaml configuration file.
// Values act as defaults for CLI flags; flags always override.
type Config struct {
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Store     StoreConfig     `yaml:"store"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Adapter   AdapterConfig   `yaml:"adapter"`
	Hook      HookConfig      `yaml:"hook"`
}

// ReconcileConfig carries the reconciliation policy. The core engines
// assume these were validated here; they never re-check bounds.
type ReconcileConfig struct {
	Enabled          bool  `yaml:"enabled"`
	RetryFailed      *bool `yaml:"retry_failed,omitempty"`
	MaxRetryAttempts int   `yaml:"max_retry_attempts"`
	// RetryDelaySeconds distinguishes an explicit 0 from unset.
	RetryDelaySeconds *int `yaml:"retry_delay_seconds,omitempty"`
}

// StoreConfig selects the persisted-entry backend.
type StoreConfig struct {
	// Backend is "redis" or "memory".
	Backend string `yaml:"backend"`
	// URL is the Redis connection URL (redis backend only).
	URL string `yaml:"url"`
}

// IngestConfig holds content-ingestion defaults.
type IngestConfig struct {
	ChunkSize    int      `yaml:"chunk_size"`
	ChunkOverlap int      `yaml:"chunk_overlap"`
	Timeout      Duration `yaml:"timeout,omitempty"`
	MaxBytes     int64    `yaml:"max_bytes,omitempty"`
}

// ArchiveConfig selects where stale entries are archived before deletion.
type ArchiveConfig struct {
	// Backend is "none", "fs" or "s3".
	Backend     string `yaml:"backend"`
	Dataset     string `yaml:"dataset"`
	Path        string `yaml:"path"`
	Bucket      string `yaml:"bucket"`
	Prefix      string `yaml:"prefix"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// AdapterConfig holds summary-notification defaults.
type AdapterConfig struct {
	// Type is "none", "redis" or "webhook".
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// HookConfig configures the harvest-completion listener.
type HookConfig struct {
	// URL is the Redis connection URL carrying harvest events. Empty
	// falls back to the store URL.
	URL     string `yaml:"url"`
	Channel string `yaml:"channel"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Normalize fills unset fields with defaults. Called by Load before
// Validate so a minimal config file is usable as-is.
func (c *Config) Normalize() {
	if c.Reconcile.RetryFailed == nil {
		retryFailed := true
		c.Reconcile.RetryFailed = &retryFailed
	}
	if c.Reconcile.MaxRetryAttempts == 0 {
		c.Reconcile.MaxRetryAttempts = DefaultMaxRetryAttempts
	}
	if c.Reconcile.RetryDelaySeconds == nil {
		delay := DefaultRetryDelaySeconds
		c.Reconcile.RetryDelaySeconds = &delay
	}
	if c.Store.Backend == "" {
		c.Store.Backend = DefaultStoreBackend
	}
	if c.Ingest.ChunkSize == 0 {
		c.Ingest.ChunkSize = types.DefaultChunkSize
	}
	if c.Ingest.ChunkOverlap == 0 {
		c.Ingest.ChunkOverlap = types.DefaultChunkOverlap
	}
	if c.Archive.Backend == "" {
		c.Archive.Backend = DefaultArchiveBackend
	}
	if c.Archive.Dataset == "" {
		c.Archive.Dataset = DefaultArchiveDataset
	}
	if c.Adapter.Type == "" {
		c.Adapter.Type = "none"
	}
}

// Validate checks bounds and cross-field requirements. It reports the
// first violation found.
func (c *Config) Validate() error {
	if c.Reconcile.MaxRetryAttempts < 1 || c.Reconcile.MaxRetryAttempts > MaxRetryAttemptsLimit {
		return fmt.Errorf("reconcile.max_retry_attempts must be in [1,%d], got %d",
			MaxRetryAttemptsLimit, c.Reconcile.MaxRetryAttempts)
	}
	if delay := c.retryDelaySeconds(); delay < 0 || delay > MaxRetryDelaySeconds {
		return fmt.Errorf("reconcile.retry_delay_seconds must be in [0,%d], got %d",
			MaxRetryDelaySeconds, delay)
	}

	switch c.Store.Backend {
	case "redis":
		if c.Store.URL == "" {
			return fmt.Errorf("store.url is required for the redis backend")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown store.backend %q (want redis or memory)", c.Store.Backend)
	}

	if c.Ingest.ChunkSize < 1 {
		return fmt.Errorf("ingest.chunk_size must be positive, got %d", c.Ingest.ChunkSize)
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("ingest.chunk_overlap must be in [0,chunk_size), got %d", c.Ingest.ChunkOverlap)
	}

	switch c.Archive.Backend {
	case "none":
	case "fs":
		if c.Archive.Path == "" {
			return fmt.Errorf("archive.path is required for the fs backend")
		}
	case "s3":
		if c.Archive.Bucket == "" {
			return fmt.Errorf("archive.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown archive.backend %q (want none, fs or s3)", c.Archive.Backend)
	}

	switch c.Adapter.Type {
	case "none":
	case "redis", "webhook":
		if c.Adapter.URL == "" {
			return fmt.Errorf("adapter.url is required for the %s adapter", c.Adapter.Type)
		}
	default:
		return fmt.Errorf("unknown adapter.type %q (want none, redis or webhook)", c.Adapter.Type)
	}

	return nil
}

// RetryFailedEnabled reports whether automatic retry of failed items is
// on. Unset defaults to true.
func (c *Config) RetryFailedEnabled() bool {
	return c.Reconcile.RetryFailed == nil || *c.Reconcile.RetryFailed
}

// RetryDelay returns the inter-attempt delay as a duration.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.retryDelaySeconds()) * time.Second
}

func (c *Config) retryDelaySeconds() int {
	if c.Reconcile.RetryDelaySeconds == nil {
		return DefaultRetryDelaySeconds
	}
	return *c.Reconcile.RetryDelaySeconds
}

// HookURL returns the hook Redis URL, falling back to the store URL.
func (c *Config) HookURL() string {
	if c.Hook.URL != "" {
		return c.Hook.URL
	}
	return c.Store.URL
}
