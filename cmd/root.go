// Package cmd holds the studio-orders command line.
package cmd

import (
	"os"

	"studio-orders/config"
	"studio-orders/internal/logging"

	"github.com/spf13/cobra"
)

// RootCommand creates the root command with every subcommand attached.
func RootCommand() *cobra.Command {
	var cfg config.Config

	rootCmd := &cobra.Command{
		Use:           "studio-orders",
		Short:         "Music and voice production order service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = *loaded
		logging.Setup(os.Stdout, cfg.LogFormat, cfg.LogLevel)
		return nil
	}

	rootCmd.AddCommand(
		serveCommand(&cfg),
		migrateCommand(&cfg),
		outboxCommand(&cfg),
		adminCommand(&cfg),
	)
	return rootCmd
}

func Execute() error {
	return RootCommand().Execute()
}
