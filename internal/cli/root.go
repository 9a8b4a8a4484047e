// Package cli wires configuration, clients and services into the hrpsync
// commands.
package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
)

// LoggerFactory builds the process logger once the configured level is known.
type LoggerFactory func(level string) *slog.Logger

type options struct {
	configPath string
	preset     string
	newLogger  LoggerFactory
}

// NewRootCmd returns the hrpsync command tree.
func NewRootCmd(newLogger LoggerFactory) *cobra.Command {
	opts := &options{newLogger: newLogger}

	root := &cobra.Command{
		Use:   "hrpsync",
		Short: "Publish HRP project lists as HDX datasets",
		Long: `hrpsync scans Humanitarian Response Plans on HPC.tools and keeps one
"hrp-projects-<iso3>" dataset per country on an HDX (CKAN) portal in step
with them.`,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "config.yaml", "path to config file")
	root.PersistentFlags().StringVar(&opts.preset, "preset", "", "dataset metadata preset from the config file")

	root.AddCommand(
		newScanCmd(opts),
		newSyncCmd(opts),
		newChartsCmd(opts),
		newFlagsCmd(opts),
	)

	return root
}

// Execute runs the command tree with args taken from os.Args.
func Execute(ctx context.Context, newLogger LoggerFactory) error {
	return NewRootCmd(newLogger).ExecuteContext(ctx)
}
