package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/proxy-manager/internal/adapters/in/cli/ui/styles"
	"github.com/bnema/proxy-manager/internal/domain"
	"github.com/bnema/proxy-manager/internal/usecase/proxy"
)

type fakeSource struct {
	snap      proxy.Snapshot
	err       error
	refreshes int
}

func (f *fakeSource) Snapshot(context.Context) (proxy.Snapshot, error) { return f.snap, f.err }

func (f *fakeSource) Refresh(context.Context) (proxy.Snapshot, error) {
	f.refreshes++
	return f.snap, f.err
}

type fakeOps struct {
	calls []string
	err   error
}

func (f *fakeOps) report(op string, outcome domain.Outcome) (*domain.Report, error) {
	f.calls = append(f.calls, op)
	if f.err != nil {
		return nil, f.err
	}
	return domain.NewReport(outcome).Add(op + " done"), nil
}

func (f *fakeOps) StartProxy(context.Context) (*domain.Report, error) {
	return f.report("start", domain.OutcomeStarted)
}

func (f *fakeOps) StopProxy(context.Context) (*domain.Report, error) {
	return f.report("stop", domain.OutcomeStopped)
}

func (f *fakeOps) ReloadProxy(context.Context) (*domain.Report, error) {
	return f.report("reload", domain.OutcomeReloaded)
}

func sampleSnapshot() proxy.Snapshot {
	return proxy.Snapshot{
		Config: domain.NewConfig(),
		Routes: []domain.RouteStatus{
			{HostPort: 8000, Target: "app", InternalPort: 9000, Resolved: true},
			{HostPort: 8001, Target: "gone"},
		},
		Proxy:    domain.ProxyState{Name: "proxy-manager", Present: true, Status: domain.ContainerStatusRunning},
		LoadedAt: time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC),
	}
}

func keyPress(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

// drain executes cmd and every command of a batch, returning the messages
// the model cares about.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}
	var msgs []tea.Msg
	for _, c := range batch {
		msgs = append(msgs, drain(c)...)
	}
	return msgs
}

func find[T tea.Msg](t *testing.T, msgs []tea.Msg) T {
	t.Helper()
	for _, m := range msgs {
		if v, ok := m.(T); ok {
			return v
		}
	}
	var zero T
	require.Failf(t, "message not found", "%T", zero)
	return zero
}

func loaded(t *testing.T, source *fakeSource, ops *fakeOps) Model {
	t.Helper()
	m := NewModel(context.Background(), source, ops)
	msg := find[snapshotMsg](t, drain(m.Init()))
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestModel_InitialLoadRendersRoutes(t *testing.T) {
	m := loaded(t, &fakeSource{snap: sampleSnapshot()}, &fakeOps{})

	assert.False(t, m.busy)
	view := m.View()
	assert.Contains(t, view, "Proxy proxy-manager")
	assert.Contains(t, view, "running")
	assert.Contains(t, view, "app:9000")
	assert.Contains(t, view, "dangling")
	assert.Contains(t, view, "as of 15:04:05")
}

func TestModel_RowsMarkDanglingRoutes(t *testing.T) {
	got := rows(sampleSnapshot().Routes)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"8000", "app", "app:9000", "resolved"}, []string(got[0]))
	assert.Equal(t, []string{"8001", "gone", "-", "dangling"}, []string(got[1]))
}

func TestModel_LifecycleKeysRunOperationThenRefresh(t *testing.T) {
	tests := []struct {
		key  rune
		op   string
		line string
	}{
		{'s', "start", "start done"},
		{'x', "stop", "stop done"},
		{'l', "reload", "reload done"},
	}

	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			source := &fakeSource{snap: sampleSnapshot()}
			ops := &fakeOps{}
			m := loaded(t, source, ops)

			next, cmd := m.Update(keyPress(tt.key))
			m = next.(Model)
			assert.True(t, m.busy)

			opMsg := find[operationMsg](t, drain(cmd))
			assert.Equal(t, tt.op, opMsg.name)
			assert.Equal(t, []string{tt.op}, ops.calls)

			next, cmd = m.Update(opMsg)
			m = next.(Model)
			snap := find[snapshotMsg](t, drain(cmd))
			assert.Equal(t, 1, source.refreshes)

			next, _ = m.Update(snap)
			m = next.(Model)
			assert.False(t, m.busy)
			assert.Contains(t, m.View(), tt.line)
		})
	}
}

func TestModel_KeysIgnoredWhileBusy(t *testing.T) {
	ops := &fakeOps{}
	m := NewModel(context.Background(), &fakeSource{snap: sampleSnapshot()}, ops)
	require.True(t, m.busy)

	_, cmd := m.Update(keyPress('s'))
	assert.Nil(t, cmd)
	assert.Empty(t, ops.calls)
}

func TestModel_RefreshKeyReloadsState(t *testing.T) {
	source := &fakeSource{snap: sampleSnapshot()}
	m := loaded(t, source, &fakeOps{})

	_, cmd := m.Update(keyPress('r'))
	find[snapshotMsg](t, drain(cmd))
	assert.Equal(t, 1, source.refreshes)
}

func TestModel_OperationErrorIsShown(t *testing.T) {
	source := &fakeSource{snap: sampleSnapshot()}
	m := loaded(t, source, &fakeOps{err: domain.ErrNoRoutes})

	next, cmd := m.Update(keyPress('s'))
	m = next.(Model)
	next, cmd = m.Update(find[operationMsg](t, drain(cmd)))
	m = next.(Model)
	next, _ = m.Update(find[snapshotMsg](t, drain(cmd)))
	m = next.(Model)

	assert.ErrorIs(t, m.err, domain.ErrNoRoutes)
	assert.Contains(t, m.View(), "no routes configured")
}

func TestModel_LoadErrorIsShown(t *testing.T) {
	m := loaded(t, &fakeSource{err: errors.New("config unreadable")}, &fakeOps{})
	assert.False(t, m.loaded)
	assert.Contains(t, m.View(), "config unreadable")
}

func TestModel_Quit(t *testing.T) {
	m := NewModel(context.Background(), &fakeSource{}, &fakeOps{})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestNewModel_HelpUsesTheme(t *testing.T) {
	m := NewModel(context.Background(), &fakeSource{}, &fakeOps{})
	assert.Equal(t, styles.Theme.HelpKey, m.help.Styles.ShortKey)
	assert.Equal(t, styles.Theme.HelpDesc, m.help.Styles.ShortDesc)
}
