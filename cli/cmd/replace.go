package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/opencity-labs/ccat-memory-updater/cli/render"
	"github.com/opencity-labs/ccat-memory-updater/reconcile"
)

// ReplaceResponse is the response for the replace command.
type ReplaceResponse struct {
	Source       string `json:"source"`
	Action       string `json:"action"`
	RemovedCount int    `json:"removed_count"`
}

// ReplaceCommand returns the replace command: erase a source, then
// optionally re-ingest its content.
func ReplaceCommand() *cli.Command {
	return &cli.Command{
		Name:  "replace",
		Usage: "Erase a source and optionally re-ingest its content",
		Flags: append(CommonFlags(),
			SourceFlag,
			&cli.StringFlag{
				Name:  "action",
				Usage: "Content action: delete or replace",
				Value: string(reconcile.ActionReplace),
			},
			&cli.IntFlag{
				Name:  "chunk-size",
				Usage: "Chunk size for re-ingestion (0 uses config)",
			},
			&cli.IntFlag{
				Name:  "chunk-overlap",
				Usage: "Chunk overlap for re-ingestion (-1 uses config)",
				Value: -1,
			},
		),
		Action: replaceAction,
	}
}

func replaceAction(c *cli.Context) error {
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

	chunkSize := c.Int("chunk-size")
	if chunkSize <= 0 {
		chunkSize = cfg.Ingest.ChunkSize
	}
	chunkOverlap := c.Int("chunk-overlap")
	if chunkOverlap < 0 {
		chunkOverlap = cfg.Ingest.ChunkOverlap
	}

	ctx, cancel := signalContext()
	defer cancel()

	action := reconcile.ParseAction(c.String("action"))
	eraser := reconcile.NewEraser(d.store, d.collector, d.logger)
	replacer := reconcile.NewReplacer(eraser, d.ingestor, d.logger)

	removed, err := replacer.Apply(ctx, c.String("source"), action, chunkSize, chunkOverlap)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	return r.Render(ReplaceResponse{
		Source:       c.String("source"),
		Action:       string(action),
		RemovedCount: removed,
	})
}
