package cli

import (
	"github.com/spf13/cobra"

	"github.com/bnema/proxy-manager/internal/adapters/in/http/admin"
	"github.com/bnema/proxy-manager/internal/adapters/in/tui"
	"github.com/bnema/proxy-manager/internal/usecase/proxy"
)

// newServeCmd creates the serve command.
func newServeCmd(a *app) *cobra.Command {
	var (
		listen    string
		rateLimit float64
		burst     int
	)

	defaults := admin.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON admin API",
		Long: `Serve the admin API, the health check and Prometheus metrics on
/api, /healthz and /metrics. Requests are handled one at a time.`,
		Annotations: map[string]string{annotationMetrics: "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := a.settings.Listen
			if cmd.Flags().Changed("listen") {
				addr = listen
			}

			opts := admin.Options{
				Registry:  a.metrics.Registry(),
				RateLimit: rateLimit,
				Burst:     burst,
			}
			e := admin.NewRouter(admin.NewHandler(a.service, a.log), opts, a.log)
			return admin.Run(cmd.Context(), e, addr, a.log)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Address to listen on (default from settings, 127.0.0.1:7080)")
	cmd.Flags().Float64Var(&rateLimit, "rate-limit", defaults.RateLimit, "Requests per second allowed per client on /api (0 disables)")
	cmd.Flags().IntVar(&burst, "burst", defaults.Burst, "Burst size for the rate limiter")

	return cmd
}

// newTUICmd creates the interactive dashboard command.
func newTUICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return tui.Run(cmd.Context(), proxy.NewStateView(a.service), a.service)
		},
	}
}
