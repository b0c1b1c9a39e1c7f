package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/opencity-labs/ccat-memory-updater/cli/render"
	"github.com/opencity-labs/ccat-memory-updater/reconcile"
)

// EraseResponse is the response for the erase command.
type EraseResponse struct {
	Source       string `json:"source"`
	RemovedCount int    `json:"removed_count"`
}

// EraseCommand returns the erase command: remove every entry for one
// source, independent of command or session.
func EraseCommand() *cli.Command {
	return &cli.Command{
		Name:   "erase",
		Usage:  "Remove all entries for a source",
		Flags:  append(CommonFlags(), SourceFlag),
		Action: eraseAction,
	}
}

func eraseAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c)
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

	eraser := reconcile.NewEraser(d.store, d.collector, d.logger)
	removed := eraser.EraseBySource(ctx, c.String("source"))

	return r.Render(EraseResponse{
		Source:       c.String("source"),
		RemovedCount: removed,
	})
}
