package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/opencity-labs/ccat-memory-updater/adapter"
	"github.com/opencity-labs/ccat-memory-updater/cli/render"
	"github.com/opencity-labs/ccat-memory-updater/log"
	"github.com/opencity-labs/ccat-memory-updater/types"
)

// RunCommand returns the run command: one reconciliation pass over a
// harvest outcome read from a file or stdin.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Reconcile the store against one harvest outcome",
		Flags: append(CommonFlags(),
			&cli.StringFlag{
				Name:     "outcome",
				Aliases:  []string{"o"},
				Usage:    "Path to harvest outcome JSON (use - for stdin)",
				Required: true,
			},
		),
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	outcome, err := readOutcome(c.String("outcome"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	d, err := buildDeps(cfg)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer d.Close()

	ctx, cancel := signalContext()
	defer cancel()

	summary := d.coordinator().Run(ctx, outcome)
	notify(ctx, d.adapters, d.logger, outcome, summary)

	return r.Render(summary)
}

// readOutcome parses a harvest outcome from path, or stdin when path
// is "-".
func readOutcome(path string) (types.HarvestOutcome, error) {
	var outcome types.HarvestOutcome

	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return outcome, fmt.Errorf("cannot read outcome: %w", err)
	}

	if err := json.Unmarshal(data, &outcome); err != nil {
		return outcome, fmt.Errorf("invalid outcome JSON: %w", err)
	}
	return outcome, nil
}

// notify fans the summary out to every configured adapter. Publish
// failures are logged, never returned.
func notify(ctx context.Context, adapters []adapter.Adapter, logger *log.Logger, outcome types.HarvestOutcome, summary types.Summary) {
	if len(adapters) == 0 {
		return
	}

	event := adapter.NewEvent(outcome, summary, time.Now())
	for _, a := range adapters {
		if err := a.Publish(ctx, event); err != nil {
			logger.Warn("notification publish failed", map[string]any{
				"command": outcome.Command,
				"error":   err.Error(),
			})
		}
	}
}

// signalContext returns a context canceled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
