package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"

	"github.com/bnema/proxy-manager/internal/adapters/in/cli/ui/components"
	"github.com/bnema/proxy-manager/internal/adapters/in/cli/ui/styles"
	"github.com/bnema/proxy-manager/internal/domain"
)

var (
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	infoColor    = color.New(color.FgBlue)
	mutedColor   = color.New(color.FgHiBlack)
)

func printReport(w io.Writer, r *domain.Report) {
	if r == nil {
		return
	}
	for _, msg := range r.Messages {
		successColor.Fprintln(w, msg)
	}
	for _, warning := range r.Warnings {
		warnColor.Fprintln(w, "warning: "+warning)
	}
}

func printTitle(w io.Writer, title string) {
	fmt.Fprintln(w, styles.Theme.Title.Render(title))
}

func printEmpty(w io.Writer, msg string) {
	fmt.Fprintln(w, styles.Theme.Muted.Render(msg))
}

func routeTable(routes []domain.RouteStatus) string {
	rows := make([][]string, 0, len(routes))
	for _, r := range routes {
		upstream, state := "-", "dangling"
		if r.Resolved {
			upstream = fmt.Sprintf("%s:%d", r.Target, r.InternalPort)
			state = "resolved"
		}
		rows = append(rows, []string{
			strconv.Itoa(int(r.HostPort)),
			r.Target,
			upstream,
			components.StatusIndicator(state),
		})
	}

	return components.NewTable(
		components.WithColumns([]components.TableColumn{
			{Title: "PORT", Width: 7},
			{Title: "TARGET", Width: 24},
			{Title: "UPSTREAM", Width: 30},
			{Title: "STATE"},
		}),
		components.WithRows(rows),
	).View()
}

func containerTable(containers []domain.Container) string {
	rows := make([][]string, 0, len(containers))
	for _, c := range containers {
		rows = append(rows, []string{
			c.Name,
			deref(c.Label),
			strconv.Itoa(int(c.InternalPort())),
			deref(c.Network),
		})
	}

	return components.NewTable(
		components.WithColumns([]components.TableColumn{
			{Title: "NAME", Width: 24},
			{Title: "LABEL", Width: 16},
			{Title: "PORT", Width: 7},
			{Title: "NETWORK", Width: 20},
		}),
		components.WithRows(rows),
	).View()
}

func networkTable(networks []domain.NetworkInfo) string {
	rows := make([][]string, 0, len(networks))
	for _, n := range networks {
		rows = append(rows, []string{n.Name, n.Driver, n.Scope, strconv.Itoa(n.ContainerCount)})
	}
	return components.SimpleTable([]string{"NAME", "DRIVER", "SCOPE", "CONTAINERS"}, rows)
}

func proxyLine(state domain.ProxyState) string {
	status := string(state.Status)
	if !state.Present {
		status = "absent"
	}
	return styles.Theme.Bold.Render("Proxy "+state.Name) + " " + components.StatusBadge(status)
}

func deref(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
