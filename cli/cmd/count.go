package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/opencity-labs/ccat-memory-updater/cli/render"
	"github.com/opencity-labs/ccat-memory-updater/store"
)

// CountResponse is the response for the count command.
type CountResponse struct {
	Source  string `json:"source,omitempty"`
	Command string `json:"command,omitempty"`
	Session string `json:"session,omitempty"`
	Count   int    `json:"count"`
}

// CountCommand returns the count command: count entries matching a
// metadata filter.
func CountCommand() *cli.Command {
	return &cli.Command{
		Name:  "count",
		Usage: "Count entries matching source/command/session labels",
		Flags: append(CommonFlags(),
			&cli.StringFlag{
				Name:  "source",
				Usage: "Filter by source identifier",
			},
			&cli.StringFlag{
				Name:  "command",
				Usage: "Filter by command label",
			},
			&cli.StringFlag{
				Name:  "session",
				Usage: "Filter by session label",
			},
		),
		Action: countAction,
	}
}

func countAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	filter := store.Filter{
		Source:  c.String("source"),
		Command: c.String("command"),
		Session: c.String("session"),
	}
	if filter.Empty() {
		return cli.Exit("count requires at least one of --source, --command, --session", 1)
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

	count, err := d.store.Count(ctx, filter)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	return r.Render(CountResponse{
		Source:  filter.Source,
		Command: filter.Command,
		Session: filter.Session,
		Count:   count,
	})
}
