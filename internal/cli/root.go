// Package cli holds the besedka command tree.
package cli

import (
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func NewRoot() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "besedka",
		Short:         "Hut reservation bot",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config.yaml (default $BESEDKA_CONFIG_PATH or configs/config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level")

	cmd.AddCommand(newBotCmd(opts))
	cmd.AddCommand(newExportCmd(opts))
	cmd.AddCommand(newVenuesCmd(opts))
	cmd.AddCommand(newBusyCmd(opts))
	return cmd
}
