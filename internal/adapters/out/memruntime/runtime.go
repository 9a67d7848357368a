// Package memruntime provides an in-memory container engine. It keeps enough
// state to exercise the orchestrator end to end and records every call.
package memruntime

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/bnema/proxy-manager/internal/boundaries/out"
	"github.com/bnema/proxy-manager/internal/domain"
)

// Container is the fake engine's view of a container.
type Container struct {
	Name     string
	Image    string
	Networks []string
	Ports    []uint16
	Status   domain.ContainerStatus
	Logs     []string
}

// Runtime implements out.ContainerRuntime in memory.
type Runtime struct {
	mu              sync.Mutex
	containers      map[string]*Container
	networks        map[string]domain.NetworkInfo
	images          map[string]string
	calls           []string
	failures        map[string]error
	connectFailures map[string]error
}

var _ out.ContainerRuntime = (*Runtime)(nil)

// New returns an empty engine with the default bridge network.
func New() *Runtime {
	return &Runtime{
		containers: make(map[string]*Container),
		networks: map[string]domain.NetworkInfo{
			"bridge": {Name: "bridge", Driver: "bridge", Scope: "local"},
		},
		images:          make(map[string]string),
		failures:        make(map[string]error),
		connectFailures: make(map[string]error),
	}
}

// SeedContainer registers a workload container attached to network.
func (r *Runtime) SeedContainer(name, network string, status domain.ContainerStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := &Container{Name: name, Image: name + ":latest", Status: status}
	if network != "" {
		r.ensureNetworkLocked(network)
		c.Networks = []string{network}
	}
	r.containers[name] = c
}

// FailOn makes every later call of op return err.
func (r *Runtime) FailOn(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[op] = err
}

// FailConnect makes connecting any container to network fail with err.
func (r *Runtime) FailConnect(network string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectFailures[network] = err
}

// Calls returns the recorded calls as "Op arg" lines.
func (r *Runtime) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// ResetCalls clears the call log.
func (r *Runtime) ResetCalls() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// Container returns a copy of the named container.
func (r *Runtime) Container(name string) (Container, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.containers[name]
	if !ok {
		return Container{}, false
	}
	cp := *c
	cp.Networks = slices.Clone(c.Networks)
	cp.Ports = slices.Clone(c.Ports)
	return cp, true
}

// Images returns the built image tags mapped to their build directory.
func (r *Runtime) Images() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	images := make(map[string]string, len(r.images))
	for k, v := range r.images {
		images[k] = v
	}
	return images
}

// record logs the call and returns the injected failure for op, if any.
func (r *Runtime) record(ctx context.Context, op string, args ...string) error {
	r.calls = append(r.calls, strings.Join(append([]string{op}, args...), " "))
	if err := ctx.Err(); err != nil {
		return domain.NewRuntimeError(op, err)
	}
	if err, ok := r.failures[op]; ok {
		return domain.NewRuntimeError(op, err)
	}
	return nil
}

func (r *Runtime) ensureNetworkLocked(name string) {
	if _, ok := r.networks[name]; !ok {
		r.networks[name] = domain.NetworkInfo{Name: name, Driver: "bridge", Scope: "local"}
	}
}

func (r *Runtime) ListContainers(ctx context.Context, all bool) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(ctx, "ListContainers"); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(r.containers))
	for name, c := range r.containers {
		if all || c.Status == domain.ContainerStatusRunning {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (r *Runtime) ListNetworks(ctx context.Context) ([]domain.NetworkInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(ctx, "ListNetworks"); err != nil {
		return nil, err
	}
	infos := make([]domain.NetworkInfo, 0, len(r.networks))
	for _, n := range r.networks {
		for _, c := range r.containers {
			if slices.Contains(c.Networks, n.Name) {
				n.ContainerCount++
			}
		}
		infos = append(infos, n)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

func (r *Runtime) ContainerPrimaryNetwork(ctx context.Context, name string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(ctx, "ContainerPrimaryNetwork", name); err != nil {
		return "", false, err
	}
	c, ok := r.containers[name]
	if !ok || len(c.Networks) == 0 {
		return "", false, nil
	}
	return c.Networks[0], true, nil
}

func (r *Runtime) ContainerExists(ctx context.Context, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(ctx, "ContainerExists", name); err != nil {
		return false, err
	}
	_, ok := r.containers[name]
	return ok, nil
}

func (r *Runtime) ContainerStatus(ctx context.Context, name string) (domain.ContainerStatus, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(ctx, "ContainerStatus", name); err != nil {
		return "", false, err
	}
	c, ok := r.containers[name]
	if !ok {
		return "", false, nil
	}
	return c.Status, true, nil
}

func (r *Runtime) EnsureNetwork(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(ctx, "EnsureNetwork", name); err != nil {
		return err
	}
	r.ensureNetworkLocked(name)
	return nil
}

func (r *Runtime) ConnectContainerToNetwork(ctx context.Context, name, network string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(ctx, "ConnectContainerToNetwork", name, network); err != nil {
		return err
	}
	if err, ok := r.connectFailures[network]; ok {
		return domain.NewRuntimeError("ConnectContainerToNetwork", err)
	}
	c, ok := r.containers[name]
	if !ok {
		return domain.NewRuntimeError("ConnectContainerToNetwork", fmt.Errorf("no such container: %s", name))
	}
	if _, ok := r.networks[network]; !ok {
		return domain.NewRuntimeError("ConnectContainerToNetwork", fmt.Errorf("network %s not found", network))
	}
	if !slices.Contains(c.Networks, network) {
		c.Networks = append(c.Networks, network)
	}
	return nil
}

func (r *Runtime) BuildImage(ctx context.Context, tag, buildDir string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(ctx, "BuildImage", tag); err != nil {
		return err
	}
	r.images[tag] = buildDir
	return nil
}

func (r *Runtime) RunContainer(ctx context.Context, name, image, network string, ports []uint16) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(ctx, "RunContainer", name); err != nil {
		return err
	}
	if _, ok := r.containers[name]; ok {
		return domain.NewRuntimeError("RunContainer", fmt.Errorf("conflict: container name %s is already in use", name))
	}
	if _, ok := r.images[image]; !ok {
		return domain.NewRuntimeError("RunContainer", fmt.Errorf("unable to find image %s", image))
	}
	if _, ok := r.networks[network]; !ok {
		return domain.NewRuntimeError("RunContainer", fmt.Errorf("network %s not found", network))
	}
	for _, other := range r.containers {
		for _, p := range ports {
			if slices.Contains(other.Ports, p) {
				return domain.NewRuntimeError("RunContainer", fmt.Errorf("port %d is already allocated", p))
			}
		}
	}
	r.containers[name] = &Container{
		Name:     name,
		Image:    image,
		Networks: []string{network},
		Ports:    slices.Clone(ports),
		Status:   domain.ContainerStatusRunning,
		Logs:     []string{"start worker processes"},
	}
	return nil
}

func (r *Runtime) StopAndRemoveContainer(ctx context.Context, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(ctx, "StopAndRemoveContainer", name); err != nil {
		return false, err
	}
	if _, ok := r.containers[name]; !ok {
		return false, nil
	}
	delete(r.containers, name)
	return true, nil
}

func (r *Runtime) StreamLogs(ctx context.Context, name string, _ bool, tail int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.record(ctx, "StreamLogs", name); err != nil {
		return nil, err
	}
	c, ok := r.containers[name]
	if !ok {
		return nil, domain.NewRuntimeError("StreamLogs", errors.New("no such container: "+name))
	}
	lines := slices.Clone(c.Logs)
	if tail > 0 && len(lines) > tail {
		lines = lines[len(lines)-tail:]
	}
	return lines, nil
}
