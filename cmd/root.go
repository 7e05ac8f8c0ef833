package cmd

import (
	"context"
	"fmt"

	"sacco/config"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRootCommand builds the sacco command tree
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "sacco",
		Short:         "SACCO payment and ledger reconciliation engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return configureLogging(config.Get())
		},
	}

	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(guarantorsCmd())
	root.AddCommand(savingsCmd())
	root.AddCommand(transactionsCmd())

	return root
}

// Execute runs the command tree with ctx cancelled on shutdown signals
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func configureLogging(cfg *config.Config) error {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	log.SetLevel(level)

	if cfg.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}
