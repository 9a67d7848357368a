// Package docker implements the container runtime adapter using Docker API.
package docker

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/archive"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"

	"github.com/bnema/proxy-manager/internal/boundaries/out"
	"github.com/bnema/proxy-manager/internal/domain"
)

// stopTimeout is how long the engine waits for nginx to exit before killing it.
const stopTimeout = 10

// Runtime implements the ContainerRuntime interface using Docker API.
type Runtime struct {
	client *client.Client
	log    *log.Logger
}

var _ out.ContainerRuntime = (*Runtime)(nil)

// NewRuntime creates a new Docker runtime instance. An empty host uses the
// DOCKER_HOST environment and its defaults.
func NewRuntime(host string, logger *log.Logger) (*Runtime, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}
	return NewRuntimeWithClient(cli, logger), nil
}

// NewRuntimeWithClient creates a new Docker runtime instance with a custom client (for testing).
func NewRuntimeWithClient(cli *client.Client, logger *log.Logger) *Runtime {
	return &Runtime{
		client: cli,
		log:    logger.With("layer", "adapter", "adapter", "docker"),
	}
}

// Close releases the underlying client.
func (r *Runtime) Close() error {
	return r.client.Close()
}

// ListContainers lists container names.
func (r *Runtime) ListContainers(ctx context.Context, all bool) ([]string, error) {
	containers, err := r.client.ContainerList(ctx, container.ListOptions{All: all})
	if err != nil {
		return nil, domain.NewRuntimeError("list containers", err)
	}

	names := make([]string, 0, len(containers))
	for _, c := range containers {
		// Get the primary name (remove leading slash)
		if len(c.Names) > 0 {
			names = append(names, strings.TrimPrefix(c.Names[0], "/"))
		}
	}
	sort.Strings(names)
	return names, nil
}

// ListNetworks lists engine networks sorted by name.
func (r *Runtime) ListNetworks(ctx context.Context) ([]domain.NetworkInfo, error) {
	networks, err := r.client.NetworkList(ctx, network.ListOptions{})
	if err != nil {
		return nil, domain.NewRuntimeError("list networks", err)
	}

	result := make([]domain.NetworkInfo, 0, len(networks))
	for _, n := range networks {
		result = append(result, domain.NetworkInfo{
			Name:           n.Name,
			Driver:         n.Driver,
			Scope:          n.Scope,
			ContainerCount: len(n.Containers),
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// ContainerPrimaryNetwork returns the network the container was started on.
// The host network mode is preferred when it names an attached network,
// otherwise the first user-defined network wins over the default bridge.
func (r *Runtime) ContainerPrimaryNetwork(ctx context.Context, name string) (string, bool, error) {
	resp, err := r.client.ContainerInspect(ctx, name)
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			return "", false, nil
		}
		return "", false, domain.NewRuntimeError("inspect container", err)
	}
	if resp.NetworkSettings == nil || len(resp.NetworkSettings.Networks) == 0 {
		return "", false, nil
	}

	attached := make([]string, 0, len(resp.NetworkSettings.Networks))
	for n := range resp.NetworkSettings.Networks {
		attached = append(attached, n)
	}
	sort.Strings(attached)

	if resp.HostConfig != nil {
		mode := string(resp.HostConfig.NetworkMode)
		if slices.Contains(attached, mode) {
			return mode, true, nil
		}
	}
	for _, n := range attached {
		if n != "bridge" {
			return n, true, nil
		}
	}
	return attached[0], true, nil
}

// ContainerExists reports whether a container with that name exists in any state.
func (r *Runtime) ContainerExists(ctx context.Context, name string) (bool, error) {
	_, found, err := r.ContainerStatus(ctx, name)
	return found, err
}

// ContainerStatus returns the engine state of the container.
func (r *Runtime) ContainerStatus(ctx context.Context, name string) (domain.ContainerStatus, bool, error) {
	resp, err := r.client.ContainerInspect(ctx, name)
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			return "", false, nil
		}
		return "", false, domain.NewRuntimeError("inspect container", err)
	}
	if resp.State == nil {
		return domain.ContainerStatusUnknown, true, nil
	}
	return toStatus(resp.State.Status), true, nil
}

func toStatus(s string) domain.ContainerStatus {
	switch domain.ContainerStatus(s) {
	case domain.ContainerStatusRunning, domain.ContainerStatusCreated,
		domain.ContainerStatusExited, domain.ContainerStatusPaused:
		return domain.ContainerStatus(s)
	default:
		return domain.ContainerStatusUnknown
	}
}

// EnsureNetwork creates a bridge network labelled as managed when it does not exist.
func (r *Runtime) EnsureNetwork(ctx context.Context, name string) error {
	log := r.log.With("action", "EnsureNetwork", "network", name)

	if _, err := r.client.NetworkInspect(ctx, name, network.InspectOptions{}); err == nil {
		return nil
	} else if !cerrdefs.IsNotFound(err) {
		return domain.NewRuntimeError("inspect network", err)
	}

	_, err := r.client.NetworkCreate(ctx, name, network.CreateOptions{
		Driver: "bridge",
		Labels: map[string]string{
			domain.LabelManaged: "true",
		},
	})
	if err != nil {
		if cerrdefs.IsConflict(err) || strings.Contains(err.Error(), "already exists") {
			log.Debug("network created concurrently")
			return nil
		}
		return domain.NewRuntimeError("create network", err)
	}

	log.Info("network created")
	return nil
}

// ConnectContainerToNetwork attaches a running container to a network.
func (r *Runtime) ConnectContainerToNetwork(ctx context.Context, name, networkName string) error {
	err := r.client.NetworkConnect(ctx, networkName, name, &network.EndpointSettings{})
	if err != nil {
		return domain.NewRuntimeError("connect network", err)
	}
	r.log.Info("container connected to network", "container", name, "network", networkName)
	return nil
}

// BuildImage builds buildDir into an image tagged tag. Build output is logged
// at debug level; a build step failure is returned as an error.
func (r *Runtime) BuildImage(ctx context.Context, tag, buildDir string) error {
	log := r.log.With("action", "BuildImage", "tag", tag)

	buildCtx, err := archive.TarWithOptions(buildDir, &archive.TarOptions{})
	if err != nil {
		return domain.NewRuntimeError("build image", fmt.Errorf("archive build context: %w", err))
	}
	defer buildCtx.Close()

	resp, err := r.client.ImageBuild(ctx, buildCtx, types.ImageBuildOptions{
		Tags:        []string{tag},
		Dockerfile:  "Dockerfile",
		Remove:      true,
		ForceRemove: true,
	})
	if err != nil {
		return domain.NewRuntimeError("build image", err)
	}
	defer resp.Body.Close()

	var output bytes.Buffer
	if err := jsonmessage.DisplayJSONMessagesStream(resp.Body, &output, 0, false, nil); err != nil {
		return domain.NewRuntimeError("build image", err)
	}
	for _, line := range splitLines(output.String()) {
		log.Debug(line)
	}

	log.Info("image built")
	return nil
}

// RunContainer creates and starts a detached container publishing each port on
// the same host port.
func (r *Runtime) RunContainer(ctx context.Context, name, image, networkName string, ports []uint16) error {
	log := r.log.With("action", "RunContainer", "container", name, "image", image)

	exposedPorts := make(nat.PortSet)
	portBindings := make(nat.PortMap)
	for _, port := range ports {
		p := strconv.Itoa(int(port))
		containerPort := nat.Port(p + "/tcp")
		exposedPorts[containerPort] = struct{}{}
		portBindings[containerPort] = []nat.PortBinding{
			{
				HostIP:   "0.0.0.0",
				HostPort: p,
			},
		}
	}

	containerConfig := &container.Config{
		Image:        image,
		ExposedPorts: exposedPorts,
		Labels: map[string]string{
			domain.LabelManaged: "true",
			domain.LabelRoutes:  joinPorts(ports),
			domain.LabelNetwork: networkName,
		},
	}
	hostConfig := &container.HostConfig{
		PortBindings:  portBindings,
		NetworkMode:   container.NetworkMode(networkName),
		RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyUnlessStopped},
	}
	networkConfig := &network.NetworkingConfig{
		EndpointsConfig: map[string]*network.EndpointSettings{
			networkName: {},
		},
	}

	resp, err := r.client.ContainerCreate(ctx, containerConfig, hostConfig, networkConfig, nil, name)
	if err != nil {
		return domain.NewRuntimeError("create container", err)
	}
	for _, w := range resp.Warnings {
		log.Warn(w)
	}

	if err := r.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		// Leave no half-created proxy behind so the next start can reuse the name.
		if rmErr := r.client.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true}); rmErr != nil {
			log.Warn("failed to remove container after start failure", "error", rmErr)
		}
		return domain.NewRuntimeError("start container", err)
	}

	log.Info("container started", "id", shortID(resp.ID), "ports", joinPorts(ports))
	return nil
}

// StopAndRemoveContainer stops and removes the container. It reports false
// when no such container existed.
func (r *Runtime) StopAndRemoveContainer(ctx context.Context, name string) (bool, error) {
	log := r.log.With("action", "StopAndRemoveContainer", "container", name)

	exists, err := r.ContainerExists(ctx, name)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}

	timeout := stopTimeout
	if err := r.client.ContainerStop(ctx, name, container.StopOptions{Timeout: &timeout}); err != nil && !cerrdefs.IsNotFound(err) {
		log.Warn("failed to stop container, forcing removal", "error", err)
	}
	if err := r.client.ContainerRemove(ctx, name, container.RemoveOptions{Force: true}); err != nil {
		if cerrdefs.IsNotFound(err) {
			return false, nil
		}
		return false, domain.NewRuntimeError("remove container", err)
	}

	log.Info("container removed")
	return true, nil
}

// StreamLogs returns the container's combined stdout and stderr lines. With
// follow set it keeps reading until the stream ends or ctx is cancelled.
func (r *Runtime) StreamLogs(ctx context.Context, name string, follow bool, tail int) ([]string, error) {
	opts := container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     follow,
	}
	if tail > 0 {
		opts.Tail = strconv.Itoa(tail)
	}

	rc, err := r.client.ContainerLogs(ctx, name, opts)
	if err != nil {
		return nil, domain.NewRuntimeError("container logs", err)
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, rc); err != nil && ctx.Err() == nil {
		return nil, domain.NewRuntimeError("container logs", err)
	}
	return splitLines(buf.String()), nil
}

func splitLines(s string) []string {
	lines := []string{}
	scanner := bufio.NewScanner(strings.NewReader(s))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimRight(scanner.Text(), "\r"); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func joinPorts(ports []uint16) string {
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = strconv.Itoa(int(p))
	}
	return strings.Join(parts, ",")
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
