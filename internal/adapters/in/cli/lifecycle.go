package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/bnema/proxy-manager/internal/domain"
)

type lifecycleOp func(ctx context.Context) (*domain.Report, error)

func lifecycleCmd(use, short, long string, op func(a *app) lifecycleOp, a *app) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := op(a)(cmd.Context())
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

func newBuildCmd(a *app) *cobra.Command {
	return lifecycleCmd(
		"build",
		"Generate nginx.conf and build the proxy image",
		`Write nginx.conf and the Dockerfile to the build directory and build the
proxy image. The running proxy is not touched.`,
		func(a *app) lifecycleOp { return a.service.BuildProxy },
		a,
	)
}

func newStartCmd(a *app) *cobra.Command {
	return lifecycleCmd(
		"start",
		"Build and start the proxy container",
		`Create the proxy networks, build the image and start the proxy container.
Nothing is done when the proxy is already running.`,
		func(a *app) lifecycleOp { return a.service.StartProxy },
		a,
	)
}

func newStopCmd(a *app) *cobra.Command {
	return lifecycleCmd(
		"stop",
		"Stop and remove the proxy container",
		`Stop and remove the proxy container. Declared containers and routes are kept.`,
		func(a *app) lifecycleOp { return a.service.StopProxy },
		a,
	)
}

func newReloadCmd(a *app) *cobra.Command {
	cmd := lifecycleCmd(
		"reload",
		"Rebuild and restart the proxy with the current routes",
		`Stop the proxy, wait for the engine to release its name and ports, then
build and start it again from the current config.`,
		func(a *app) lifecycleOp { return a.service.ReloadProxy },
		a,
	)
	cmd.Aliases = []string{"restart"}
	return cmd
}
