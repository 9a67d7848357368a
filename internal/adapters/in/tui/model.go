// Package tui implements the interactive dashboard: the declared routes, the
// live proxy state and one-key lifecycle operations.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/proxy-manager/internal/adapters/in/cli/ui/components"
	"github.com/bnema/proxy-manager/internal/adapters/in/cli/ui/styles"
	"github.com/bnema/proxy-manager/internal/domain"
	"github.com/bnema/proxy-manager/internal/usecase/proxy"
)

// Source provides cached snapshots of declared and live state.
type Source interface {
	Snapshot(ctx context.Context) (proxy.Snapshot, error)
	Refresh(ctx context.Context) (proxy.Snapshot, error)
}

// Lifecycle is the subset of the proxy service the dashboard drives.
type Lifecycle interface {
	StartProxy(ctx context.Context) (*domain.Report, error)
	StopProxy(ctx context.Context) (*domain.Report, error)
	ReloadProxy(ctx context.Context) (*domain.Report, error)
}

type snapshotMsg struct {
	snapshot proxy.Snapshot
	err      error
}

type operationMsg struct {
	name   string
	report *domain.Report
	err    error
}

// Model is the dashboard state.
type Model struct {
	ctx    context.Context
	source Source
	ops    Lifecycle

	keys    keyMap
	help    help.Model
	table   table.Model
	spinner components.SpinnerModel

	snapshot proxy.Snapshot
	loaded   bool
	busy     bool
	report   *domain.Report
	err      error
	width    int
}

// NewModel creates a dashboard over source and ops.
func NewModel(ctx context.Context, source Source, ops Lifecycle) Model {
	t := table.New(
		table.WithColumns(columns()),
		table.WithFocused(true),
		table.WithHeight(8),
	)
	ts := table.DefaultStyles()
	ts.Header = ts.Header.
		Foreground(styles.ColorPrimary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.ColorBorder).
		BorderBottom(true).
		Bold(true)
	ts.Selected = ts.Selected.
		Foreground(styles.ColorBg).
		Background(styles.ColorPrimary)
	t.SetStyles(ts)

	h := help.New()
	h.Styles.ShortKey = styles.Theme.HelpKey
	h.Styles.ShortDesc = styles.Theme.HelpDesc
	h.Styles.FullKey = styles.Theme.HelpKey
	h.Styles.FullDesc = styles.Theme.HelpDesc

	return Model{
		ctx:     ctx,
		source:  source,
		ops:     ops,
		keys:    defaultKeyMap(),
		help:    h,
		table:   t,
		spinner: components.NewSpinner(components.WithMessage("Loading...")),
		busy:    true,
	}
}

func columns() []table.Column {
	return []table.Column{
		{Title: "PORT", Width: 7},
		{Title: "TARGET", Width: 24},
		{Title: "UPSTREAM", Width: 28},
		{Title: "STATE", Width: 10},
	}
}

// Init loads the first snapshot.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.load(m.source.Snapshot), m.spinner.Tick())
}

func (m Model) load(fn func(context.Context) (proxy.Snapshot, error)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		snap, err := fn(ctx)
		return snapshotMsg{snapshot: snap, err: err}
	}
}

func (m Model) operation(name string, fn func(context.Context) (*domain.Report, error)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		report, err := fn(ctx)
		return operationMsg{name: name, report: report, err: err}
	}
}

// Update handles input, operation results and spinner ticks.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.table.SetHeight(max(3, msg.Height-12))
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case snapshotMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.snapshot = msg.snapshot
		m.loaded = true
		m.table.SetRows(rows(msg.snapshot.Routes))
		return m, nil

	case operationMsg:
		m.report = msg.report
		m.err = msg.err
		m.spinner.SetMessage("Refreshing...")
		return m, m.load(m.source.Refresh)
	}

	if m.busy {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	if m.busy {
		return m, nil
	}

	var cmd tea.Cmd
	switch {
	case key.Matches(msg, m.keys.Refresh):
		m.spinner.SetMessage("Refreshing...")
		cmd = m.load(m.source.Refresh)
	case key.Matches(msg, m.keys.Start):
		m.spinner.SetMessage("Starting proxy...")
		cmd = m.operation("start", m.ops.StartProxy)
	case key.Matches(msg, m.keys.Stop):
		m.spinner.SetMessage("Stopping proxy...")
		cmd = m.operation("stop", m.ops.StopProxy)
	case key.Matches(msg, m.keys.Reload):
		m.spinner.SetMessage("Reloading proxy...")
		cmd = m.operation("reload", m.ops.ReloadProxy)
	default:
		var tcmd tea.Cmd
		m.table, tcmd = m.table.Update(msg)
		return m, tcmd
	}

	m.busy = true
	m.err = nil
	return m, tea.Batch(cmd, m.spinner.Tick())
}

func rows(routes []domain.RouteStatus) []table.Row {
	out := make([]table.Row, 0, len(routes))
	for _, r := range routes {
		upstream, state := "-", "dangling"
		if r.Resolved {
			upstream = fmt.Sprintf("%s:%d", r.Target, r.InternalPort)
			state = "resolved"
		}
		out = append(out, table.Row{strconv.Itoa(int(r.HostPort)), r.Target, upstream, state})
	}
	return out
}

// View renders the dashboard.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(styles.Theme.Title.Render("proxy-manager"))
	b.WriteString("\n\n")

	if m.loaded {
		b.WriteString(m.proxyLine())
		b.WriteString("\n\n")
		if len(m.snapshot.Routes) == 0 {
			b.WriteString(styles.Theme.Muted.Render("No routes configured."))
		} else {
			b.WriteString(m.table.View())
		}
		b.WriteString("\n\n")
	}

	switch {
	case m.err != nil:
		b.WriteString(styles.Theme.Error.Render(styles.IconError + " " + m.err.Error()))
		b.WriteString("\n")
	case m.report != nil:
		for _, line := range m.report.Messages {
			b.WriteString(styles.Theme.Success.Render(line))
			b.WriteString("\n")
		}
		for _, w := range m.report.Warnings {
			b.WriteString(styles.Theme.Warning.Render(styles.IconWarning + " " + w))
			b.WriteString("\n")
		}
	}

	if m.busy {
		b.WriteString(m.spinner.View())
	} else {
		b.WriteString(m.help.View(m.keys))
	}
	b.WriteString("\n")

	return b.String()
}

func (m Model) proxyLine() string {
	p := m.snapshot.Proxy
	status := string(p.Status)
	if status == "" {
		status = "absent"
	}
	line := styles.Theme.Bold.Render("Proxy "+p.Name) + " " + components.StatusBadge(status)
	if !m.snapshot.LoadedAt.IsZero() {
		line += " " + styles.Theme.Muted.Render("as of "+m.snapshot.LoadedAt.Format("15:04:05"))
	}
	return line
}

// Run starts the dashboard in the alternate screen and blocks until it exits.
func Run(ctx context.Context, source Source, ops Lifecycle) error {
	p := tea.NewProgram(NewModel(ctx, source, ops), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}
