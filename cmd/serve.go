package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/gridbalance/api/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the control API over HTTP",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc, cfg, err := newService()
		if err != nil {
			return err
		}
		defer closeService(svc)
		return server.Serve(ctx, svc, cfg.HTTP)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
