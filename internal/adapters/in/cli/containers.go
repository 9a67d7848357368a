package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/bnema/proxy-manager/internal/domain"
)

func newAddCmd(a *app) *cobra.Command {
	var (
		label   string
		port    uint16
		network string
	)

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Declare a container or update its label, port or network",
		Long: `Declare a container the proxy can route to. Running add again for the
same name only changes the flags that were given.

When no network is given and none was declared before, the network the
container is currently attached to is recorded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := domain.ContainerSpec{Name: args[0]}
			if cmd.Flags().Changed("label") {
				spec.Label = domain.StringPtr(label)
			}
			if cmd.Flags().Changed("port") {
				spec.Port = domain.PortPtr(port)
			}
			if cmd.Flags().Changed("network") {
				spec.Network = domain.StringPtr(network)
			}

			updated, err := a.service.AddContainer(cmd.Context(), spec)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if updated {
				successColor.Fprintf(w, "Updated container %s\n", spec.Name)
			} else {
				successColor.Fprintf(w, "Added container %s\n", spec.Name)
			}

			cfg, err := a.service.Config(cmd.Context())
			if err != nil {
				return err
			}
			if ct, ok := cfg.FindContainer(spec.Name); ok {
				infoColor.Fprintf(w, "  port %d, network %s\n", ct.InternalPort(), deref(ct.Network))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&label, "label", "l", "", "Alternate identifier usable with switch and remove")
	cmd.Flags().Uint16VarP(&port, "port", "p", domain.DefaultContainerPort, "Port the container listens on")
	cmd.Flags().StringVarP(&network, "network", "n", "", "Docker network the proxy reaches the container on")

	return cmd
}

func newRemoveCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "remove ID",
		Aliases: []string{"rm"},
		Short:   "Remove a declared container and every route pointing at it",
		Long: `Remove a declared container by name or label. Routes targeting it are
removed too. The running proxy is left untouched until the next reload.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			identifier := args[0]
			w := cmd.OutOrStdout()

			if !yes {
				cfg, err := a.service.Config(cmd.Context())
				if err != nil {
					return err
				}
				ct, ok := cfg.FindContainer(identifier)
				if !ok {
					return fmt.Errorf("%w: %s", domain.ErrContainerNotFound, identifier)
				}

				msg := fmt.Sprintf("Remove container %s?", ct.Name)
				if ports := routedPorts(cfg, ct.Name); len(ports) > 0 {
					msg = fmt.Sprintf("Remove container %s and its routes on ports %s?", ct.Name, strings.Join(ports, ", "))
				}
				ok, err = a.confirm(msg)
				if err != nil {
					return err
				}
				if !ok {
					printEmpty(w, "Aborted.")
					return nil
				}
			}

			name, dropped, err := a.service.RemoveContainer(cmd.Context(), identifier)
			if err != nil {
				return err
			}
			successColor.Fprintf(w, "Removed container %s\n", name)
			for _, r := range dropped {
				warnColor.Fprintf(w, "  dropped route %d -> %s\n", r.HostPort, r.Target)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	return cmd
}

func routedPorts(cfg *domain.Config, target string) []string {
	var ports []string
	for _, r := range cfg.Routes {
		if r.Target == target {
			ports = append(ports, strconv.Itoa(int(r.HostPort)))
		}
	}
	return ports
}

func surveyConfirm(message string) (bool, error) {
	var ok bool
	prompt := &survey.Confirm{
		Message: message,
		Default: false,
	}
	if err := survey.AskOne(prompt, &ok); err != nil {
		return false, fmt.Errorf("confirmation failed: %w", err)
	}
	return ok, nil
}

func newSwitchCmd(a *app) *cobra.Command {
	var port uint16

	cmd := &cobra.Command{
		Use:   "switch ID",
		Short: "Route a host port to a container and reload the proxy",
		Long: `Point a host port at the container matching ID (name or label). The
proxy is rebuilt and restarted so the change takes effect immediately.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := a.service.SwitchTarget(cmd.Context(), args[0], port)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().Uint16VarP(&port, "port", "p", domain.DefaultHostPort, "Host port to route")

	return cmd
}

func newStopPortCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stop-port PORT",
		Short: "Remove the route on a host port",
		Long: `Remove the route on PORT. The proxy is reloaded, or stopped when this
was the last route.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := parseHostPort(args[0])
			if err != nil {
				return err
			}
			report, err := a.service.StopPort(cmd.Context(), port)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

func parseHostPort(raw string) (uint16, error) {
	p, err := strconv.ParseUint(raw, 10, 16)
	if err != nil || p == 0 {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidPort, raw)
	}
	return uint16(p), nil
}
