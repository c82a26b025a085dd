package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/vk/walletbridge/internal/app"
)

func (r *root) newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bridge until interrupted",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port := r.v.GetInt("healthcheck-port"); port < 0 || port > 65535 {
				return usageError("invalid healthcheck-port: must be between 0 and 65535")
			}

			cfg := r.appConfig()
			bridge := app.NewApp(r.errW, cfg, loaderFor(cfg.ConfigPath))
			defer bridge.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return bridge.Run(ctx)
		},
	}

	f := cmd.Flags()
	f.String("address", "", "Listen address for the socket.io endpoint. Overrides the file.")
	f.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 keeps the configured value.")
	f.Bool("evict-on-complete", false, "Remove interactions as soon as their workflow ends.")
	return cmd
}
