// Package cmd provides CLI commands for the memupdater binary.
package cmd

import "github.com/urfave/cli/v2"

// Shared flags across commands.
var (
	// ConfigFlag points at the YAML configuration file.
	ConfigFlag = &cli.StringFlag{
		Name:     "config",
		Aliases:  []string{"c"},
		Usage:    "Path to memupdater.yaml",
		Required: true,
	}

	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// SourceFlag names the source an operation is scoped to.
	SourceFlag = &cli.StringFlag{
		Name:     "source",
		Usage:    "Source identifier (e.g. the harvested URL)",
		Required: true,
	}
)

// CommonFlags returns the flags every command carries.
func CommonFlags() []cli.Flag {
	return []cli.Flag{
		ConfigFlag,
		FormatFlag,
	}
}
