// Package proxy implements the proxy orchestration use case: it keeps the
// declared routes and the live nginx container in step.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/bnema/proxy-manager/internal/boundaries/in"
	"github.com/bnema/proxy-manager/internal/boundaries/out"
	"github.com/bnema/proxy-manager/internal/domain"
	"github.com/bnema/proxy-manager/internal/nginx"
)

// Settle modes.
const (
	SettleFixed = "fixed"
	SettlePoll  = "poll"
)

const pollInterval = 50 * time.Millisecond

// Config holds configuration needed by the proxy service.
type Config struct {
	// SettleMode selects how a reload waits between stop and start.
	SettleMode    string
	SettleDelay   time.Duration
	SettleTimeout time.Duration
}

// Service implements the in.ProxyService interface.
type Service struct {
	store     out.ConfigStore
	artifacts out.ArtifactWriter
	runtime   out.ContainerRuntime
	generator *nginx.Generator
	recorder  out.OperationRecorder
	log       *log.Logger
	config    Config
}

var _ in.ProxyService = (*Service)(nil)

// NewService creates a new proxy service. A nil recorder discards observations.
func NewService(
	store out.ConfigStore,
	artifacts out.ArtifactWriter,
	runtime out.ContainerRuntime,
	generator *nginx.Generator,
	recorder out.OperationRecorder,
	logger *log.Logger,
	config Config,
) *Service {
	if recorder == nil {
		recorder = out.NoopRecorder{}
	}
	return &Service{
		store:     store,
		artifacts: artifacts,
		runtime:   runtime,
		generator: generator,
		recorder:  recorder,
		log:       logger.With("layer", "usecase"),
		config:    config,
	}
}

func (s *Service) observe(operation string, start time.Time, err *error) {
	s.recorder.Observe(operation, *err, time.Since(start))
}

func (s *Service) logger(usecase string) *log.Logger {
	return s.log.With("usecase", usecase)
}

// Config returns the declared state as currently stored.
func (s *Service) Config(_ context.Context) (*domain.Config, error) {
	return s.store.Load()
}

// AddContainer declares a container or updates the supplied fields of an
// existing one. When no network is given the container's live primary network
// is looked up on a best-effort basis. The proxy is not touched.
func (s *Service) AddContainer(ctx context.Context, spec domain.ContainerSpec) (updated bool, err error) {
	defer s.observe("add_container", time.Now(), &err)
	log := s.logger("AddContainer")

	if err := domain.ValidateName(spec.Name); err != nil {
		return false, err
	}
	if spec.Port != nil && *spec.Port == 0 {
		return false, fmt.Errorf("%w: container port must be between 1 and 65535", domain.ErrInvalidPort)
	}
	if spec.Network != nil {
		if err := domain.ValidateName(*spec.Network); err != nil {
			return false, err
		}
	}

	cfg, err := s.store.Load()
	if err != nil {
		return false, err
	}

	if spec.Network == nil {
		if existing, ok := cfg.FindContainer(spec.Name); !ok || existing.Name != spec.Name || existing.Network == nil {
			network, found, err := s.runtime.ContainerPrimaryNetwork(ctx, spec.Name)
			switch {
			case err != nil:
				log.Debug("network discovery failed", "container", spec.Name, "error", err)
			case found:
				log.Debug("discovered container network", "container", spec.Name, "network", network)
				spec.Network = domain.StringPtr(network)
			}
		}
	}

	updated = cfg.UpsertContainer(spec)
	if err := s.store.Save(cfg); err != nil {
		return false, err
	}

	log.Info("container declared", "container", spec.Name, "updated", updated)
	return updated, nil
}

// RemoveContainer forgets the container matching identifier together with
// every route targeting it. The proxy is not reloaded.
func (s *Service) RemoveContainer(_ context.Context, identifier string) (name string, dropped []domain.Route, err error) {
	defer s.observe("remove_container", time.Now(), &err)

	cfg, err := s.store.Load()
	if err != nil {
		return "", nil, err
	}

	name, dropped, ok := cfg.RemoveContainer(identifier)
	if !ok {
		return "", nil, fmt.Errorf("%w: %s", domain.ErrContainerNotFound, identifier)
	}
	if err := s.store.Save(cfg); err != nil {
		return "", nil, err
	}

	s.logger("RemoveContainer").Info("container removed", "container", name, "routes_dropped", len(dropped))
	return name, dropped, nil
}

// SwitchTarget points hostPort at the container matching identifier and
// reloads the proxy. A zero hostPort means domain.DefaultHostPort.
func (s *Service) SwitchTarget(ctx context.Context, identifier string, hostPort uint16) (report *domain.Report, err error) {
	defer s.observe("switch_target", time.Now(), &err)

	if hostPort == 0 {
		hostPort = domain.DefaultHostPort
	}

	cfg, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	ct, ok := cfg.FindContainer(identifier)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrContainerNotFound, identifier)
	}

	cfg.SetRoute(hostPort, ct.Name)
	if err := s.store.Save(cfg); err != nil {
		return nil, err
	}
	s.logger("SwitchTarget").Info("route switched", "host_port", hostPort, "target", ct.Name)

	reload, err := s.reload(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return domain.NewReport(reload.Outcome).
		Add(fmt.Sprintf("Port %d now routes to %s", hostPort, ct.Name)).
		Merge(reload), nil
}

// StopPort removes the route on hostPort. The proxy is stopped when no route
// remains and reloaded otherwise.
func (s *Service) StopPort(ctx context.Context, hostPort uint16) (report *domain.Report, err error) {
	defer s.observe("stop_port", time.Now(), &err)

	cfg, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	route, ok := cfg.RemoveRoute(hostPort)
	if !ok {
		return nil, fmt.Errorf("%w: port %d", domain.ErrRouteNotFound, hostPort)
	}
	if err := s.store.Save(cfg); err != nil {
		return nil, err
	}
	s.logger("StopPort").Info("route removed", "host_port", hostPort, "target", route.Target)

	var next *domain.Report
	if len(cfg.Routes) == 0 {
		next, err = s.stop(ctx, cfg)
	} else {
		next, err = s.reload(ctx, cfg)
	}
	if err != nil {
		return nil, err
	}
	return domain.NewReport(next.Outcome).
		Add(fmt.Sprintf("Removed route %d -> %s", hostPort, route.Target)).
		Merge(next), nil
}

// BuildProxy writes the build context and builds the proxy image.
func (s *Service) BuildProxy(ctx context.Context) (report *domain.Report, err error) {
	defer s.observe("build_proxy", time.Now(), &err)

	cfg, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	return s.build(ctx, cfg)
}

func (s *Service) build(ctx context.Context, cfg *domain.Config) (*domain.Report, error) {
	log := s.logger("BuildProxy")

	if len(cfg.Containers) == 0 {
		return nil, domain.ErrNoContainers
	}

	artifacts, err := s.generator.Artifacts(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBuildWrite, err)
	}
	dir, err := s.artifacts.Write(artifacts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBuildWrite, err)
	}

	tag := cfg.ImageTag()
	log.Info("building proxy image", "tag", tag, "build_dir", dir)
	if err := s.runtime.BuildImage(ctx, tag, dir); err != nil {
		return nil, err
	}

	return domain.NewReport(domain.OutcomeBuilt).
		Add(fmt.Sprintf("Wrote nginx.conf and Dockerfile to %s", dir)).
		Add(fmt.Sprintf("Built image %s", tag)), nil
}

// StartProxy ensures every network, builds the image and runs the proxy
// container. An already running proxy is left untouched. Failing to join a
// secondary network is reported as a warning.
func (s *Service) StartProxy(ctx context.Context) (report *domain.Report, err error) {
	defer s.observe("start_proxy", time.Now(), &err)

	cfg, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	return s.start(ctx, cfg)
}

func checkRunnable(cfg *domain.Config) error {
	if len(cfg.Containers) == 0 {
		return domain.ErrNoContainers
	}
	if len(cfg.Routes) == 0 {
		return domain.ErrNoRoutes
	}
	return nil
}

func (s *Service) start(ctx context.Context, cfg *domain.Config) (*domain.Report, error) {
	log := s.logger("StartProxy")

	if err := checkRunnable(cfg); err != nil {
		return nil, err
	}

	for _, network := range cfg.AllNetworks() {
		if err := s.runtime.EnsureNetwork(ctx, network); err != nil {
			if !errors.Is(err, domain.ErrNetworkExists) {
				return nil, err
			}
			log.Debug("network created concurrently", "network", network)
		}
	}

	exists, err := s.runtime.ContainerExists(ctx, cfg.ProxyName)
	if err != nil {
		return nil, err
	}
	if exists {
		log.Info("proxy already running", "container", cfg.ProxyName)
		return domain.NewReport(domain.OutcomeAlreadyRunning).
			Add(fmt.Sprintf("Proxy %s is already running", cfg.ProxyName)), nil
	}

	built, err := s.build(ctx, cfg)
	if err != nil {
		return nil, err
	}

	ports := cfg.HostPorts()
	if err := s.runtime.RunContainer(ctx, cfg.ProxyName, cfg.ImageTag(), cfg.Network, ports); err != nil {
		return nil, err
	}
	report := domain.NewReport(domain.OutcomeStarted).
		Merge(built).
		Add(fmt.Sprintf("Started %s on ports %s", cfg.ProxyName, joinPorts(ports)))

	for _, network := range cfg.SecondaryNetworks() {
		if err := s.runtime.ConnectContainerToNetwork(ctx, cfg.ProxyName, network); err != nil {
			log.Warn("failed to connect proxy to network", "network", network, "error", err)
			report.Warn(fmt.Sprintf("could not connect %s to network %s: %v", cfg.ProxyName, network, err))
			continue
		}
		report.Add(fmt.Sprintf("Connected %s to network %s", cfg.ProxyName, network))
	}

	log.Info("proxy started", "container", cfg.ProxyName, "ports", len(ports))
	return report, nil
}

// StopProxy stops and removes the proxy container. An absent proxy is an
// outcome, not an error.
func (s *Service) StopProxy(ctx context.Context) (report *domain.Report, err error) {
	defer s.observe("stop_proxy", time.Now(), &err)

	cfg, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	return s.stop(ctx, cfg)
}

func (s *Service) stop(ctx context.Context, cfg *domain.Config) (*domain.Report, error) {
	removed, err := s.runtime.StopAndRemoveContainer(ctx, cfg.ProxyName)
	if err != nil {
		return nil, err
	}
	if !removed {
		return domain.NewReport(domain.OutcomeNotRunning).
			Add(fmt.Sprintf("Proxy %s is not running", cfg.ProxyName)), nil
	}
	s.logger("StopProxy").Info("proxy stopped", "container", cfg.ProxyName)
	return domain.NewReport(domain.OutcomeStopped).
		Add(fmt.Sprintf("Stopped and removed %s", cfg.ProxyName)), nil
}

// ReloadProxy stops the proxy, waits for the engine to settle and starts it
// again from the current declared state.
func (s *Service) ReloadProxy(ctx context.Context) (report *domain.Report, err error) {
	defer s.observe("reload_proxy", time.Now(), &err)

	cfg, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, cfg)
}

func (s *Service) reload(ctx context.Context, cfg *domain.Config) (*domain.Report, error) {
	if err := checkRunnable(cfg); err != nil {
		return nil, err
	}

	stopped, err := s.stop(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := s.settle(ctx, cfg.ProxyName); err != nil {
		return nil, err
	}
	started, err := s.start(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if started.Outcome == domain.OutcomeAlreadyRunning {
		return nil, domain.NewRuntimeError("reload proxy",
			fmt.Errorf("container %s still present after stop", cfg.ProxyName))
	}

	return domain.NewReport(domain.OutcomeReloaded).Merge(stopped).Merge(started), nil
}

// settle waits between stop and start so the engine releases the container
// name and host ports.
func (s *Service) settle(ctx context.Context, proxyName string) error {
	if s.config.SettleMode != SettlePoll {
		return sleep(ctx, s.config.SettleDelay)
	}

	log := s.logger("ReloadProxy")
	deadline := time.Now().Add(s.config.SettleTimeout)
	interval := pollInterval
	var lastErr error
	for {
		exists, err := s.runtime.ContainerExists(ctx, proxyName)
		if err != nil {
			log.Debug("settle poll failed", "error", err)
			lastErr = err
		} else if !exists {
			return nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			log.Warn("settle timeout reached", "container", proxyName, "timeout", s.config.SettleTimeout)
			if lastErr != nil {
				return domain.NewRuntimeError("settle", fmt.Errorf("container %s not confirmed gone after %s: %w", proxyName, s.config.SettleTimeout, lastErr))
			}
			return domain.NewRuntimeError("settle", fmt.Errorf("container %s still present after %s", proxyName, s.config.SettleTimeout))
		}
		if err := sleep(ctx, min(interval, remaining)); err != nil {
			return err
		}
		interval *= 2
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Status resolves every route against the declared containers.
func (s *Service) Status(_ context.Context) ([]domain.RouteStatus, error) {
	cfg, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	return cfg.RouteStatuses(), nil
}

// ProxyState reports whether the proxy container exists and its engine status.
func (s *Service) ProxyState(ctx context.Context) (domain.ProxyState, error) {
	cfg, err := s.store.Load()
	if err != nil {
		return domain.ProxyState{}, err
	}
	status, found, err := s.runtime.ContainerStatus(ctx, cfg.ProxyName)
	if err != nil {
		return domain.ProxyState{}, err
	}
	state := domain.ProxyState{Name: cfg.ProxyName, Present: found}
	if found {
		state.Status = status
	}
	return state, nil
}

// Networks lists the engine networks.
func (s *Service) Networks(ctx context.Context) ([]domain.NetworkInfo, error) {
	return s.runtime.ListNetworks(ctx)
}

// RuntimeContainers lists engine container names, stopped ones included when all is set.
func (s *Service) RuntimeContainers(ctx context.Context, all bool) ([]string, error) {
	return s.runtime.ListContainers(ctx, all)
}

// Logs returns the proxy container's log lines.
func (s *Service) Logs(ctx context.Context, follow bool, tail int) ([]string, error) {
	cfg, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	exists, err := s.runtime.ContainerExists(ctx, cfg.ProxyName)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrProxyNotRunning, cfg.ProxyName)
	}
	return s.runtime.StreamLogs(ctx, cfg.ProxyName, follow, tail)
}

// Preview renders the build context without writing or building anything.
func (s *Service) Preview(_ context.Context) (domain.Artifacts, error) {
	cfg, err := s.store.Load()
	if err != nil {
		return domain.Artifacts{}, err
	}
	return s.generator.Artifacts(cfg)
}

func joinPorts(ports []uint16) string {
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = fmt.Sprint(p)
	}
	return strings.Join(parts, ", ")
}
