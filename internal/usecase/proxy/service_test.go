package proxy

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bnema/proxy-manager/internal/adapters/out/filesystem"
	"github.com/bnema/proxy-manager/internal/adapters/out/memruntime"
	"github.com/bnema/proxy-manager/internal/boundaries/out"
	"github.com/bnema/proxy-manager/internal/boundaries/out/mocks"
	"github.com/bnema/proxy-manager/internal/domain"
	"github.com/bnema/proxy-manager/internal/nginx"
	"github.com/bnema/proxy-manager/pkg/logger"
)

type testEnv struct {
	svc      *Service
	store    *filesystem.ConfigStore
	buildDir string
	recorder *recordingRecorder
}

type recordingRecorder struct {
	ops  []string
	errs []error
}

func (r *recordingRecorder) Observe(operation string, err error, _ time.Duration) {
	r.ops = append(r.ops, operation)
	r.errs = append(r.errs, err)
}

func newTestEnv(t *testing.T, runtime out.ContainerRuntime, config Config) *testEnv {
	t.Helper()
	home := t.TempDir()
	env := &testEnv{
		store:    filesystem.NewConfigStore(filepath.Join(home, "config.json"), logger.Discard()),
		buildDir: filepath.Join(home, "build"),
		recorder: &recordingRecorder{},
	}
	env.svc = NewService(
		env.store,
		filesystem.NewBuildContext(env.buildDir, logger.Discard()),
		runtime,
		nginx.NewGenerator(""),
		env.recorder,
		logger.Discard(),
		config,
	)
	return env
}

func (e *testEnv) seed(t *testing.T, mutate func(cfg *domain.Config)) {
	t.Helper()
	cfg := domain.NewConfig()
	mutate(cfg)
	require.NoError(t, e.store.Save(cfg))
}

func (e *testEnv) load(t *testing.T) *domain.Config {
	t.Helper()
	cfg, err := e.store.Load()
	require.NoError(t, err)
	return cfg
}

func appWithRoute(cfg *domain.Config) {
	cfg.UpsertContainer(domain.ContainerSpec{Name: "app", Port: domain.PortPtr(9000)})
	cfg.SetRoute(8000, "app")
}

func TestService_StartProxy_SecondCallIsIdempotent(t *testing.T) {
	rt := memruntime.New()
	env := newTestEnv(t, rt, Config{})
	env.seed(t, appWithRoute)
	ctx := context.Background()

	report, err := env.svc.StartProxy(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeStarted, report.Outcome)
	assert.Contains(t, rt.Calls(), "RunContainer proxy-manager")
	assert.Contains(t, rt.Images(), "proxy-manager:latest")

	proxy, ok := rt.Container("proxy-manager")
	require.True(t, ok)
	assert.Equal(t, []uint16{8000}, proxy.Ports)
	assert.Equal(t, []string{"proxy-net"}, proxy.Networks)

	rt.ResetCalls()
	report, err = env.svc.StartProxy(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAlreadyRunning, report.Outcome)
	assert.Equal(t, []string{
		"EnsureNetwork proxy-net",
		"ContainerExists proxy-manager",
	}, rt.Calls())
}

func TestService_StartProxy_WritesBuildContext(t *testing.T) {
	rt := memruntime.New()
	env := newTestEnv(t, rt, Config{})
	env.seed(t, appWithRoute)

	_, err := env.svc.StartProxy(context.Background())
	require.NoError(t, err)

	conf, err := os.ReadFile(filepath.Join(env.buildDir, filesystem.NginxConfFile))
	require.NoError(t, err)
	assert.Contains(t, string(conf), "set $upstream_8000 app:9000;")

	dockerfile, err := os.ReadFile(filepath.Join(env.buildDir, filesystem.DockerfileFile))
	require.NoError(t, err)
	assert.Contains(t, string(dockerfile), "EXPOSE 8000")
	assert.Equal(t, env.buildDir, rt.Images()["proxy-manager:latest"])
}

func TestService_StartProxy_SecondaryNetworkFailureIsWarning(t *testing.T) {
	rt := memruntime.New()
	rt.FailConnect("net-b", assert.AnError)
	env := newTestEnv(t, rt, Config{})
	env.seed(t, func(cfg *domain.Config) {
		cfg.UpsertContainer(domain.ContainerSpec{Name: "a", Network: domain.StringPtr("net-a")})
		cfg.UpsertContainer(domain.ContainerSpec{Name: "b", Network: domain.StringPtr("net-b")})
		cfg.SetRoute(8000, "a")
		cfg.SetRoute(8001, "b")
	})

	report, err := env.svc.StartProxy(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeStarted, report.Outcome)
	require.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "net-b")

	proxy, ok := rt.Container("proxy-manager")
	require.True(t, ok)
	assert.Equal(t, []string{"proxy-net", "net-a"}, proxy.Networks)

	calls := rt.Calls()
	ensure := slices.DeleteFunc(slices.Clone(calls), func(c string) bool {
		return !strings.HasPrefix(c, "EnsureNetwork ")
	})
	assert.Equal(t, []string{
		"EnsureNetwork net-a",
		"EnsureNetwork net-b",
		"EnsureNetwork proxy-net",
	}, ensure)
}

func TestService_StartProxy_RuntimeFailureIsFatal(t *testing.T) {
	rt := memruntime.New()
	rt.FailOn("BuildImage", assert.AnError)
	env := newTestEnv(t, rt, Config{})
	env.seed(t, appWithRoute)

	_, err := env.svc.StartProxy(context.Background())
	assert.ErrorIs(t, err, domain.ErrRuntime)
	assert.NotContains(t, rt.Calls(), "RunContainer proxy-manager")

	require.Equal(t, []string{"start_proxy"}, env.recorder.ops)
	assert.Error(t, env.recorder.errs[0])
}

func TestService_StartProxy_AbsorbsConcurrentNetworkCreation(t *testing.T) {
	rt := mocks.NewMockContainerRuntime(t)
	env := newTestEnv(t, rt, Config{})
	env.seed(t, appWithRoute)

	rt.On("EnsureNetwork", mock.Anything, "proxy-net").Return(domain.ErrNetworkExists).Once()
	rt.On("ContainerExists", mock.Anything, "proxy-manager").Return(true, nil).Once()

	report, err := env.svc.StartProxy(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAlreadyRunning, report.Outcome)
}

func TestService_Preconditions_NoRuntimeCalls(t *testing.T) {
	ctx := context.Background()

	t.Run("no containers", func(t *testing.T) {
		env := newTestEnv(t, mocks.NewMockContainerRuntime(t), Config{})

		_, err := env.svc.StartProxy(ctx)
		assert.ErrorIs(t, err, domain.ErrNoContainers)
		_, err = env.svc.ReloadProxy(ctx)
		assert.ErrorIs(t, err, domain.ErrNoContainers)
		_, err = env.svc.BuildProxy(ctx)
		assert.ErrorIs(t, err, domain.ErrNoContainers)
	})

	t.Run("no routes", func(t *testing.T) {
		env := newTestEnv(t, mocks.NewMockContainerRuntime(t), Config{})
		env.seed(t, func(cfg *domain.Config) {
			cfg.UpsertContainer(domain.ContainerSpec{Name: "app"})
		})

		_, err := env.svc.StartProxy(ctx)
		assert.ErrorIs(t, err, domain.ErrNoRoutes)
		assert.NotErrorIs(t, err, domain.ErrNoContainers)
		_, err = env.svc.ReloadProxy(ctx)
		assert.ErrorIs(t, err, domain.ErrNoRoutes)
	})

	t.Run("unknown target and port", func(t *testing.T) {
		env := newTestEnv(t, mocks.NewMockContainerRuntime(t), Config{})
		env.seed(t, appWithRoute)

		_, err := env.svc.SwitchTarget(ctx, "ghost", 8001)
		assert.ErrorIs(t, err, domain.ErrContainerNotFound)
		_, err = env.svc.StopPort(ctx, 9999)
		assert.ErrorIs(t, err, domain.ErrRouteNotFound)
		_, _, err = env.svc.RemoveContainer(ctx, "ghost")
		assert.ErrorIs(t, err, domain.ErrContainerNotFound)

		assert.Equal(t, []domain.Route{{HostPort: 8000, Target: "app"}}, env.load(t).Routes)
	})

	t.Run("invalid input", func(t *testing.T) {
		env := newTestEnv(t, mocks.NewMockContainerRuntime(t), Config{})

		_, err := env.svc.AddContainer(ctx, domain.ContainerSpec{Name: "bad name"})
		assert.ErrorIs(t, err, domain.ErrInvalidName)
		_, err = env.svc.AddContainer(ctx, domain.ContainerSpec{Name: "app", Port: domain.PortPtr(0)})
		assert.ErrorIs(t, err, domain.ErrInvalidPort)
	})
}

func TestService_StopPort_LastRouteStopsProxy(t *testing.T) {
	rt := memruntime.New()
	env := newTestEnv(t, rt, Config{})
	env.seed(t, appWithRoute)
	ctx := context.Background()

	_, err := env.svc.StartProxy(ctx)
	require.NoError(t, err)
	rt.ResetCalls()

	report, err := env.svc.StopPort(ctx, 8000)
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeStopped, report.Outcome)
	assert.Equal(t, []string{"StopAndRemoveContainer proxy-manager"}, rt.Calls())
	assert.Empty(t, env.load(t).Routes)
}

func TestService_StopPort_RemainingRoutesReload(t *testing.T) {
	rt := memruntime.New()
	env := newTestEnv(t, rt, Config{})
	env.seed(t, func(cfg *domain.Config) {
		appWithRoute(cfg)
		cfg.SetRoute(8001, "app")
	})
	ctx := context.Background()

	_, err := env.svc.StartProxy(ctx)
	require.NoError(t, err)

	report, err := env.svc.StopPort(ctx, 8000)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeReloaded, report.Outcome)
	assert.Equal(t, "Removed route 8000 -> app", report.Messages[0])

	proxy, ok := rt.Container("proxy-manager")
	require.True(t, ok)
	assert.Equal(t, []uint16{8001}, proxy.Ports)
}

func TestService_ReloadProxy_StopsBeforeStarting(t *testing.T) {
	rt := memruntime.New()
	env := newTestEnv(t, rt, Config{})
	env.seed(t, appWithRoute)
	ctx := context.Background()

	_, err := env.svc.StartProxy(ctx)
	require.NoError(t, err)
	rt.ResetCalls()

	report, err := env.svc.ReloadProxy(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeReloaded, report.Outcome)

	calls := rt.Calls()
	stop := slices.Index(calls, "StopAndRemoveContainer proxy-manager")
	run := slices.Index(calls, "RunContainer proxy-manager")
	require.NotEqual(t, -1, stop)
	require.NotEqual(t, -1, run)
	assert.Less(t, stop, run)
}

func TestService_ReloadProxy_ToleratesStoppedProxy(t *testing.T) {
	rt := memruntime.New()
	env := newTestEnv(t, rt, Config{})
	env.seed(t, appWithRoute)

	report, err := env.svc.ReloadProxy(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeReloaded, report.Outcome)
	assert.Contains(t, report.Messages, "Proxy proxy-manager is not running")

	_, ok := rt.Container("proxy-manager")
	assert.True(t, ok)
}

func TestService_ReloadProxy_PollSettle(t *testing.T) {
	rt := mocks.NewMockContainerRuntime(t)
	env := newTestEnv(t, rt, Config{SettleMode: SettlePoll, SettleTimeout: time.Second})
	env.seed(t, appWithRoute)

	rt.On("StopAndRemoveContainer", mock.Anything, "proxy-manager").Return(true, nil).Once()
	rt.On("ContainerExists", mock.Anything, "proxy-manager").Return(true, nil).Once()
	rt.On("ContainerExists", mock.Anything, "proxy-manager").Return(false, nil).Twice()
	rt.On("EnsureNetwork", mock.Anything, "proxy-net").Return(nil).Once()
	rt.On("BuildImage", mock.Anything, "proxy-manager:latest", env.buildDir).Return(nil).Once()
	rt.On("RunContainer", mock.Anything, "proxy-manager", "proxy-manager:latest", "proxy-net", []uint16{8000}).Return(nil).Once()

	report, err := env.svc.ReloadProxy(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeReloaded, report.Outcome)
}

func TestService_ReloadProxy_PollSettleTimeout(t *testing.T) {
	rt := mocks.NewMockContainerRuntime(t)
	env := newTestEnv(t, rt, Config{SettleMode: SettlePoll, SettleTimeout: 100 * time.Millisecond})
	env.seed(t, appWithRoute)

	rt.On("StopAndRemoveContainer", mock.Anything, "proxy-manager").Return(true, nil).Once()
	rt.On("ContainerExists", mock.Anything, "proxy-manager").Return(true, nil)

	report, err := env.svc.ReloadProxy(context.Background())
	require.Error(t, err)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, domain.ErrRuntime)
	assert.Contains(t, err.Error(), "still present")
	rt.AssertNotCalled(t, "BuildImage", mock.Anything, mock.Anything, mock.Anything)
	rt.AssertNotCalled(t, "RunContainer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_ReloadProxy_ProxyStillPresentAfterStop(t *testing.T) {
	rt := mocks.NewMockContainerRuntime(t)
	env := newTestEnv(t, rt, Config{})
	env.seed(t, appWithRoute)

	rt.On("StopAndRemoveContainer", mock.Anything, "proxy-manager").Return(true, nil).Once()
	rt.On("EnsureNetwork", mock.Anything, "proxy-net").Return(nil).Once()
	rt.On("ContainerExists", mock.Anything, "proxy-manager").Return(true, nil).Once()

	_, err := env.svc.ReloadProxy(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRuntime)
	rt.AssertNotCalled(t, "RunContainer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_SwitchTarget_FailsWhenReloadCannotSettle(t *testing.T) {
	rt := mocks.NewMockContainerRuntime(t)
	env := newTestEnv(t, rt, Config{SettleMode: SettlePoll, SettleTimeout: 50 * time.Millisecond})
	env.seed(t, appWithRoute)

	rt.On("StopAndRemoveContainer", mock.Anything, "proxy-manager").Return(true, nil).Once()
	rt.On("ContainerExists", mock.Anything, "proxy-manager").Return(true, nil)

	_, err := env.svc.SwitchTarget(context.Background(), "app", 8001)
	assert.ErrorIs(t, err, domain.ErrRuntime)
}

func TestService_Settle_HonorsContext(t *testing.T) {
	env := newTestEnv(t, memruntime.New(), Config{SettleDelay: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, env.svc.settle(ctx, "proxy-manager"), context.Canceled)
}

func TestService_SwitchTarget(t *testing.T) {
	rt := memruntime.New()
	env := newTestEnv(t, rt, Config{})
	env.seed(t, func(cfg *domain.Config) {
		cfg.UpsertContainer(domain.ContainerSpec{Name: "app", Label: domain.StringPtr("frontend")})
	})

	report, err := env.svc.SwitchTarget(context.Background(), "frontend", 0)
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeReloaded, report.Outcome)
	assert.Equal(t, "Port 8000 now routes to app", report.Messages[0])
	assert.Equal(t, []domain.Route{{HostPort: 8000, Target: "app"}}, env.load(t).Routes)
	_, running := rt.Container("proxy-manager")
	assert.True(t, running)
}

func TestService_SwitchTarget_DefaultHostPortIndependentOfContainerPort(t *testing.T) {
	env := newTestEnv(t, memruntime.New(), Config{})
	env.seed(t, func(cfg *domain.Config) {
		cfg.UpsertContainer(domain.ContainerSpec{Name: "app", Port: domain.PortPtr(9000)})
	})

	_, err := env.svc.SwitchTarget(context.Background(), "app", 0)
	require.NoError(t, err)

	statuses := env.load(t).RouteStatuses()
	require.Len(t, statuses, 1)
	assert.Equal(t, domain.DefaultHostPort, statuses[0].HostPort)
	assert.Equal(t, uint16(9000), statuses[0].InternalPort)
}

func TestService_SwitchTarget_OrderIndependent(t *testing.T) {
	run := func(t *testing.T, order [][2]any) (*domain.Config, domain.Artifacts) {
		env := newTestEnv(t, memruntime.New(), Config{})
		env.seed(t, func(cfg *domain.Config) {
			cfg.UpsertContainer(domain.ContainerSpec{Name: "a"})
			cfg.UpsertContainer(domain.ContainerSpec{Name: "b", Port: domain.PortPtr(3000)})
		})
		for _, step := range order {
			_, err := env.svc.SwitchTarget(context.Background(), step[0].(string), step[1].(uint16))
			require.NoError(t, err)
		}
		artifacts, err := env.svc.Preview(context.Background())
		require.NoError(t, err)
		return env.load(t), artifacts
	}

	cfg1, art1 := run(t, [][2]any{{"a", uint16(8001)}, {"b", uint16(8000)}})
	cfg2, art2 := run(t, [][2]any{{"b", uint16(8000)}, {"a", uint16(8001)}})

	assert.Equal(t, cfg1.Routes, cfg2.Routes)
	assert.Equal(t, art1, art2)
}

func TestService_AddContainer_NetworkDiscovery(t *testing.T) {
	ctx := context.Background()

	t.Run("discovers primary network", func(t *testing.T) {
		rt := memruntime.New()
		rt.SeedContainer("web", "app-net", domain.ContainerStatusRunning)
		env := newTestEnv(t, rt, Config{})

		updated, err := env.svc.AddContainer(ctx, domain.ContainerSpec{Name: "web"})
		require.NoError(t, err)
		assert.False(t, updated)

		cfg := env.load(t)
		require.Len(t, cfg.Containers, 1)
		require.NotNil(t, cfg.Containers[0].Network)
		assert.Equal(t, "app-net", *cfg.Containers[0].Network)
	})

	t.Run("explicit network skips discovery", func(t *testing.T) {
		env := newTestEnv(t, mocks.NewMockContainerRuntime(t), Config{})

		_, err := env.svc.AddContainer(ctx, domain.ContainerSpec{Name: "web", Network: domain.StringPtr("other")})
		require.NoError(t, err)
	})

	t.Run("discovery failure is ignored", func(t *testing.T) {
		rt := mocks.NewMockContainerRuntime(t)
		rt.On("ContainerPrimaryNetwork", mock.Anything, "web").
			Return("", false, domain.NewRuntimeError("inspect", assert.AnError)).Once()
		env := newTestEnv(t, rt, Config{})

		_, err := env.svc.AddContainer(ctx, domain.ContainerSpec{Name: "web", Port: domain.PortPtr(3000)})
		require.NoError(t, err)

		cfg := env.load(t)
		require.Len(t, cfg.Containers, 1)
		assert.Nil(t, cfg.Containers[0].Network)
		assert.Equal(t, uint16(3000), cfg.Containers[0].InternalPort())
	})

	t.Run("update keeps declared network", func(t *testing.T) {
		env := newTestEnv(t, mocks.NewMockContainerRuntime(t), Config{})
		env.seed(t, func(cfg *domain.Config) {
			cfg.UpsertContainer(domain.ContainerSpec{Name: "web", Network: domain.StringPtr("declared")})
		})

		updated, err := env.svc.AddContainer(ctx, domain.ContainerSpec{Name: "web", Port: domain.PortPtr(3000)})
		require.NoError(t, err)
		assert.True(t, updated)
		assert.Equal(t, "declared", *env.load(t).Containers[0].Network)
	})
}

func TestService_RemoveContainer_CascadesWithoutRuntime(t *testing.T) {
	env := newTestEnv(t, mocks.NewMockContainerRuntime(t), Config{})
	env.seed(t, func(cfg *domain.Config) {
		cfg.UpsertContainer(domain.ContainerSpec{Name: "app", Label: domain.StringPtr("main")})
		cfg.UpsertContainer(domain.ContainerSpec{Name: "other"})
		cfg.SetRoute(8000, "app")
		cfg.SetRoute(8001, "other")
	})

	name, dropped, err := env.svc.RemoveContainer(context.Background(), "main")
	require.NoError(t, err)

	assert.Equal(t, "app", name)
	assert.Equal(t, []domain.Route{{HostPort: 8000, Target: "app"}}, dropped)
	assert.Equal(t, []domain.Route{{HostPort: 8001, Target: "other"}}, env.load(t).Routes)
}

func TestService_BuildProxy_WriteFailure(t *testing.T) {
	home := t.TempDir()
	blocker := filepath.Join(home, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	store := filesystem.NewConfigStore(filepath.Join(home, "config.json"), logger.Discard())
	cfg := domain.NewConfig()
	appWithRoute(cfg)
	require.NoError(t, store.Save(cfg))

	svc := NewService(
		store,
		filesystem.NewBuildContext(filepath.Join(blocker, "build"), logger.Discard()),
		mocks.NewMockContainerRuntime(t),
		nginx.NewGenerator(""),
		nil,
		logger.Discard(),
		Config{},
	)

	_, err := svc.BuildProxy(context.Background())
	assert.ErrorIs(t, err, domain.ErrBuildWrite)
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestService_StopProxy_AbsentIsOutcome(t *testing.T) {
	env := newTestEnv(t, memruntime.New(), Config{})

	report, err := env.svc.StopProxy(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNotRunning, report.Outcome)
}

func TestService_ReadViews(t *testing.T) {
	rt := memruntime.New()
	rt.SeedContainer("web", "app-net", domain.ContainerStatusRunning)
	env := newTestEnv(t, rt, Config{})
	env.seed(t, func(cfg *domain.Config) {
		appWithRoute(cfg)
		cfg.SetRoute(8001, "ghost")
	})
	ctx := context.Background()

	statuses, err := env.svc.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.Equal(t, "8001 -> ghost (container not found)", statuses[1].String())

	state, err := env.svc.ProxyState(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ProxyState{Name: "proxy-manager"}, state)

	_, err = env.svc.Logs(ctx, false, 10)
	assert.ErrorIs(t, err, domain.ErrProxyNotRunning)

	_, err = env.svc.StartProxy(ctx)
	require.NoError(t, err)

	state, err = env.svc.ProxyState(ctx)
	require.NoError(t, err)
	assert.True(t, state.Present)
	assert.Equal(t, domain.ContainerStatusRunning, state.Status)

	lines, err := env.svc.Logs(ctx, false, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, lines)

	names, err := env.svc.RuntimeContainers(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"proxy-manager", "web"}, names)

	networks, err := env.svc.Networks(ctx)
	require.NoError(t, err)
	assert.Len(t, networks, 3)
}
