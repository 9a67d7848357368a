package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/proxy-manager/internal/adapters/in/cli/ui/styles"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show declared routes, containers and the proxy state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w := cmd.OutOrStdout()

			cfg, err := a.service.Config(ctx)
			if err != nil {
				return err
			}
			routes, err := a.service.Status(ctx)
			if err != nil {
				return err
			}

			printTitle(w, "Routes")
			if len(routes) == 0 {
				printEmpty(w, "No routes configured.")
			} else {
				fmt.Fprintln(w, routeTable(routes))
			}
			fmt.Fprintln(w)

			printTitle(w, "Containers")
			if len(cfg.Containers) == 0 {
				printEmpty(w, "No containers configured.")
			} else {
				fmt.Fprintln(w, containerTable(cfg.Containers))
			}
			fmt.Fprintln(w)

			state, err := a.service.ProxyState(ctx)
			if err != nil {
				a.log.Warn("could not query proxy state", "error", err)
				return nil
			}
			fmt.Fprintln(w, proxyLine(state))
			return nil
		},
	}
}

func newPreviewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "preview",
		Short: "Print the nginx.conf and Dockerfile that build would write",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			artifacts, err := a.service.Preview(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			printTitle(w, "nginx.conf")
			fmt.Fprintln(w, styles.Theme.Code.Render(artifacts.NginxConf))
			fmt.Fprintln(w)
			printTitle(w, "Dockerfile")
			fmt.Fprintln(w, styles.Theme.Code.Render(artifacts.Dockerfile))
			return nil
		},
	}
}

func newNetworksCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "networks",
		Short: "List Docker networks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			networks, err := a.service.Networks(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(networks) == 0 {
				printEmpty(w, "No networks found.")
				return nil
			}
			fmt.Fprintln(w, networkTable(networks))
			return nil
		},
	}
}

func newContainersCmd(a *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "containers",
		Short: "List containers known to the engine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := a.service.RuntimeContainers(cmd.Context(), all)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if len(names) == 0 {
				printEmpty(w, "No containers found.")
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(w, styles.RenderListItem(name))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include stopped containers")

	return cmd
}

func newLogsCmd(a *app) *cobra.Command {
	var (
		follow bool
		tail   int
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the proxy container logs",
		Long: `Show the proxy container logs. With --follow, lines are collected until
the command is interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := a.service.Logs(cmd.Context(), follow, tail)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, line := range lines {
				fmt.Fprintln(w, line)
			}
			if len(lines) == 0 {
				mutedColor.Fprintln(w, "(no output)")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep streaming until interrupted")
	cmd.Flags().IntVarP(&tail, "tail", "n", 0, "Number of lines from the end (0 shows all)")

	return cmd
}
