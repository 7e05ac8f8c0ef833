package cmd

import (
	"sacco/api"
	"sacco/config"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and gateway callback endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := config.Get()
			if addr == "" {
				addr = cfg.HTTPAddr
			}

			log.WithField("environment", cfg.Environment).Info("Starting sacco...")

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := api.NewServer(a.services).Run(ctx, addr); err != nil {
				return err
			}

			log.Info("Shutdown completed")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to HTTP_ADDR)")
	return cmd
}
