// Package hook consumes harvest-completion events from a Redis pub/sub
// channel and drives one reconciliation run per event.
//
// Each event is handled in its own goroutine so reconciliation runs for
// different commands do not block one another. The host must serialize
// events per command if same-command concurrency matters; the listener
// does not provide mutual exclusion.
package hook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/opencity-labs/ccat-memory-updater/adapter"
	"github.com/opencity-labs/ccat-memory-updater/log"
	"github.com/opencity-labs/ccat-memory-updater/reconcile"
	"github.com/opencity-labs/ccat-memory-updater/types"
)

// DefaultChannel is the default harvest-completion channel name.
const DefaultChannel = "scrapycat:harvest_completed"

// Config configures the hook listener.
type Config struct {
	// URL is the Redis connection URL (required).
	URL string
	// Channel is the pub/sub channel carrying harvest outcomes
	// (default: scrapycat:harvest_completed).
	Channel string
}

// Listener subscribes to harvest-completion events and invokes the run
// coordinator for each, publishing the resulting summary to the
// configured notification adapters.
type Listener struct {
	client      *goredis.Client
	channel     string
	coordinator *reconcile.Coordinator
	adapters    []adapter.Adapter
	logger      *log.Logger
}

// NewListener creates a hook listener.
func NewListener(cfg Config, coordinator *reconcile.Coordinator, adapters []adapter.Adapter, logger *log.Logger) (*Listener, error) {
	if cfg.URL == "" {
		return nil, errors.New("hook listener requires a URL")
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("hook listener: invalid URL: %w", err)
	}

	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}

	return &Listener{
		client:      goredis.NewClient(opts),
		channel:     cfg.Channel,
		coordinator: coordinator,
		adapters:    adapters,
		logger:      logger,
	}, nil
}

// Listen blocks consuming events until ctx is canceled. In-flight runs
// are waited for before returning.
func (l *Listener) Listen(ctx context.Context) error {
	pubsub := l.client.Subscribe(ctx, l.channel)
	defer func() { _ = pubsub.Close() }()

	// Fail fast on unreachable Redis instead of silently idling.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("hook listener: subscribe %s: %w", l.channel, err)
	}

	l.logger.Info("listening for harvest completions", map[string]any{
		"channel": l.channel,
	})

	var wg sync.WaitGroup
	defer wg.Wait()

	msgs := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("hook listener stopping", nil)
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func(payload string) {
				defer wg.Done()
				l.handle(ctx, payload)
			}(msg.Payload)
		}
	}
}

// handle decodes one harvest outcome and runs reconciliation for it.
// Decode failures are logged and dropped; nothing aborts the loop.
func (l *Listener) handle(ctx context.Context, payload string) {
	var outcome types.HarvestOutcome
	if err := json.Unmarshal([]byte(payload), &outcome); err != nil {
		l.logger.Warn("dropping malformed harvest event", map[string]any{
			"error": err.Error(),
		})
		return
	}

	summary := l.coordinator.Run(ctx, outcome)
	l.notify(ctx, outcome, summary)
}

// notify publishes the summary to every configured adapter. Publish
// failures are logged per adapter and never affect the run result.
func (l *Listener) notify(ctx context.Context, outcome types.HarvestOutcome, summary types.Summary) {
	if len(l.adapters) == 0 {
		return
	}

	event := adapter.NewEvent(outcome, summary, time.Now())
	for _, a := range l.adapters {
		if err := a.Publish(ctx, event); err != nil {
			l.logger.Warn("notification publish failed", map[string]any{
				"command": outcome.Command,
				"error":   err.Error(),
			})
		}
	}
}

// Close releases listener resources.
func (l *Listener) Close() error {
	return l.client.Close()
}
