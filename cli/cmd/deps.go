package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/opencity-labs/ccat-memory-updater/adapter"
	redisadapter "github.com/opencity-labs/ccat-memory-updater/adapter/redis"
	"github.com/opencity-labs/ccat-memory-updater/adapter/webhook"
	"github.com/opencity-labs/ccat-memory-updater/archive"
	"github.com/opencity-labs/ccat-memory-updater/cli/config"
	"github.com/opencity-labs/ccat-memory-updater/ingest"
	"github.com/opencity-labs/ccat-memory-updater/log"
	"github.com/opencity-labs/ccat-memory-updater/metrics"
	"github.com/opencity-labs/ccat-memory-updater/reconcile"
	"github.com/opencity-labs/ccat-memory-updater/store"
)

// deps bundles the wired runtime dependencies for one command invocation.
type deps struct {
	cfg       *config.Config
	store     store.Store
	ingestor  store.Ingestor
	archiver  archive.Archiver
	adapters  []adapter.Adapter
	collector *metrics.Collector
	logger    *log.Logger
}

// loadConfig loads and validates the config file named by --config.
func loadConfig(c *cli.Context) (*config.Config, error) {
	return config.Load(c.String("config"))
}

// buildDeps wires store, ingestor, archiver and adapters from config.
func buildDeps(cfg *config.Config) (*deps, error) {
	d := &deps{
		cfg:       cfg,
		collector: metrics.NewCollector(cfg.Store.Backend),
		logger:    log.NewLogger("", ""),
	}

	switch cfg.Store.Backend {
	case "memory":
		d.store = store.NewMemoryStore()
	case "redis":
		s, err := store.NewRedisStore(cfg.Store.URL)
		if err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
		d.store = s
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	fetcher := ingest.NewHTTPFetcher(cfg.Ingest.Timeout.Duration, cfg.Ingest.MaxBytes)
	d.ingestor = ingest.NewPipeline(d.store, fetcher, d.logger)

	switch cfg.Archive.Backend {
	case "none":
	case "fs":
		a, err := archive.NewFS(cfg.Archive.Dataset, cfg.Archive.Path)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("archive: %w", err)
		}
		d.archiver = a
	case "s3":
		a, err := archive.NewS3(cfg.Archive.Dataset, archive.S3Config{
			Bucket:       cfg.Archive.Bucket,
			Prefix:       cfg.Archive.Prefix,
			Region:       cfg.Archive.Region,
			Endpoint:     cfg.Archive.Endpoint,
			UsePathStyle: cfg.Archive.S3PathStyle,
		})
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("archive: %w", err)
		}
		d.archiver = a
	default:
		d.Close()
		return nil, fmt.Errorf("unknown archive backend %q", cfg.Archive.Backend)
	}

	retries := 0
	hasRetries := cfg.Adapter.Retries != nil
	if hasRetries {
		retries = *cfg.Adapter.Retries
	}

	switch cfg.Adapter.Type {
	case "none":
	case "redis":
		acfg := redisadapter.Config{
			URL:     cfg.Adapter.URL,
			Channel: cfg.Adapter.Channel,
			Timeout: cfg.Adapter.Timeout.Duration,
			Retries: retries,
		}
		if !hasRetries {
			acfg.Retries = redisadapter.DefaultRetries
		}
		a, err := redisadapter.New(acfg)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("adapter: %w", err)
		}
		d.adapters = append(d.adapters, a)
	case "webhook":
		acfg := webhook.Config{
			URL:     cfg.Adapter.URL,
			Headers: cfg.Adapter.Headers,
			Timeout: cfg.Adapter.Timeout.Duration,
			Retries: retries,
		}
		if !hasRetries {
			acfg.Retries = webhook.DefaultRetries
		}
		a, err := webhook.New(acfg)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("adapter: %w", err)
		}
		d.adapters = append(d.adapters, a)
	default:
		d.Close()
		return nil, fmt.Errorf("unknown adapter type %q", cfg.Adapter.Type)
	}

	return d, nil
}

// coordinator builds the run coordinator over the wired dependencies.
func (d *deps) coordinator() *reconcile.Coordinator {
	return reconcile.NewCoordinator(d.store, d.ingestor, d.archiver, d.collector, reconcile.Config{
		Enabled:          d.cfg.Reconcile.Enabled,
		RetryFailed:      d.cfg.RetryFailedEnabled(),
		MaxRetryAttempts: d.cfg.Reconcile.MaxRetryAttempts,
		RetryDelay:       d.cfg.RetryDelay(),
	})
}

// Close releases every wired dependency. Safe on partially built deps.
func (d *deps) Close() {
	for _, a := range d.adapters {
		_ = a.Close()
	}
	if d.archiver != nil {
		_ = d.archiver.Close()
	}
	if d.store != nil {
		_ = d.store.Close()
	}
}
