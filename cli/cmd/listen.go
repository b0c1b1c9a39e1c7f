package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/opencity-labs/ccat-memory-updater/hook"
)

// ListenCommand returns the listen command: a long-running loop that
// consumes harvest-completion events and reconciles per event.
func ListenCommand() *cli.Command {
	return &cli.Command{
		Name:  "listen",
		Usage: "Consume harvest-completion events and reconcile per event",
		Flags: []cli.Flag{
			ConfigFlag,
			&cli.StringFlag{
				Name:  "channel",
				Usage: "Override the harvest-completion channel",
			},
		},
		Action: listenAction,
	}
}

func listenAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	if cfg.HookURL() == "" {
		return cli.Exit("listen requires hook.url or store.url in config", 1)
	}

	d, err := buildDeps(cfg)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer d.Close()

	channel := cfg.Hook.Channel
	if override := c.String("channel"); override != "" {
		channel = override
	}

	listener, err := hook.NewListener(hook.Config{
		URL:     cfg.HookURL(),
		Channel: channel,
	}, d.coordinator(), d.adapters, d.logger)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer func() { _ = listener.Close() }()

	ctx, cancel := signalContext()
	defer cancel()

	if err := listener.Listen(ctx); err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return nil
}
