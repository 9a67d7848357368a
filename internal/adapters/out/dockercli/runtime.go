// Package dockercli implements the container runtime adapter by shelling out
// to the docker binary (or a compatible one such as podman).
package dockercli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/bnema/proxy-manager/internal/boundaries/out"
	"github.com/bnema/proxy-manager/internal/domain"
)

// Runtime implements the ContainerRuntime interface with the docker CLI.
type Runtime struct {
	binary string
	cmd    Commander
	log    *log.Logger
}

var _ out.ContainerRuntime = (*Runtime)(nil)

// NewRuntime creates a CLI runtime invoking binary through cmd. An empty
// binary means "docker"; a nil cmd uses ExecCommander.
func NewRuntime(binary string, cmd Commander, logger *log.Logger) *Runtime {
	if binary == "" {
		binary = "docker"
	}
	if cmd == nil {
		cmd = ExecCommander{}
	}
	return &Runtime{
		binary: binary,
		cmd:    cmd,
		log:    logger.With("layer", "adapter", "adapter", "dockercli"),
	}
}

func (r *Runtime) run(ctx context.Context, op string, args ...string) (string, error) {
	r.log.Debug("exec", "cmd", r.binary+" "+strings.Join(args, " "))
	out, err := r.cmd.Run(ctx, r.binary, args...)
	if err != nil {
		return "", domain.NewRuntimeError(op, err)
	}
	return string(out), nil
}

// isNotFound matches the engine's "no such ..." family of messages.
func isNotFound(err error) bool {
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		return false
	}
	msg := strings.ToLower(cmdErr.Stderr)
	return strings.Contains(msg, "no such") || strings.Contains(msg, "not found")
}

// ListContainers lists container names.
func (r *Runtime) ListContainers(ctx context.Context, all bool) ([]string, error) {
	args := []string{"ps", "--format", "{{.Names}}"}
	if all {
		args = append(args, "--all")
	}
	out, err := r.run(ctx, "list containers", args...)
	if err != nil {
		return nil, err
	}
	names := lines(out)
	sort.Strings(names)
	return names, nil
}

type networkLine struct {
	Name   string `json:"Name"`
	Driver string `json:"Driver"`
	Scope  string `json:"Scope"`
}

// ListNetworks lists engine networks sorted by name.
func (r *Runtime) ListNetworks(ctx context.Context) ([]domain.NetworkInfo, error) {
	out, err := r.run(ctx, "list networks", "network", "ls", "--format", "{{json .}}")
	if err != nil {
		return nil, err
	}

	var result []domain.NetworkInfo
	for _, line := range lines(out) {
		var n networkLine
		if err := json.Unmarshal([]byte(line), &n); err != nil {
			return nil, domain.NewRuntimeError("list networks", err)
		}
		result = append(result, domain.NetworkInfo{Name: n.Name, Driver: n.Driver, Scope: n.Scope})
	}
	if len(result) == 0 {
		return []domain.NetworkInfo{}, nil
	}

	args := []string{"network", "inspect", "--format", "{{len .Containers}}"}
	for _, n := range result {
		args = append(args, n.Name)
	}
	if out, err := r.run(ctx, "inspect networks", args...); err != nil {
		r.log.Debug("network container counts unavailable", "error", err)
	} else {
		for i, count := range lines(out) {
			if i < len(result) {
				result[i].ContainerCount, _ = strconv.Atoi(count)
			}
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// ContainerPrimaryNetwork returns the network the container was started on.
func (r *Runtime) ContainerPrimaryNetwork(ctx context.Context, name string) (string, bool, error) {
	out, err := r.run(ctx, "inspect container", "inspect", "--type", "container", "--format",
		"{{.HostConfig.NetworkMode}}|{{range $k, $v := .NetworkSettings.Networks}}{{$k}} {{end}}", name)
	if err != nil {
		if isNotFound(err) {
			return "", false, nil
		}
		return "", false, err
	}

	mode, networks, _ := strings.Cut(strings.TrimSpace(out), "|")
	attached := strings.Fields(networks)
	if len(attached) == 0 {
		return "", false, nil
	}
	sort.Strings(attached)
	if slices.Contains(attached, mode) {
		return mode, true, nil
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
	out, err := r.run(ctx, "inspect container", "inspect", "--type", "container", "--format", "{{.State.Status}}", name)
	if err != nil {
		if isNotFound(err) {
			return "", false, nil
		}
		return "", false, err
	}
	switch status := domain.ContainerStatus(strings.TrimSpace(out)); status {
	case domain.ContainerStatusRunning, domain.ContainerStatusCreated,
		domain.ContainerStatusExited, domain.ContainerStatusPaused:
		return status, true, nil
	default:
		return domain.ContainerStatusUnknown, true, nil
	}
}

// EnsureNetwork creates a bridge network labelled as managed when it does not exist.
func (r *Runtime) EnsureNetwork(ctx context.Context, name string) error {
	_, err := r.run(ctx, "inspect network", "network", "inspect", name)
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return err
	}

	_, err = r.run(ctx, "create network", "network", "create",
		"--driver", "bridge",
		"--label", domain.LabelManaged+"=true",
		name)
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) && strings.Contains(cmdErr.Stderr, "already exists") {
			r.log.Debug("network created concurrently", "network", name)
			return nil
		}
		return err
	}

	r.log.Info("network created", "network", name)
	return nil
}

// ConnectContainerToNetwork attaches a running container to a network.
func (r *Runtime) ConnectContainerToNetwork(ctx context.Context, name, network string) error {
	if _, err := r.run(ctx, "connect network", "network", "connect", network, name); err != nil {
		return err
	}
	r.log.Info("container connected to network", "container", name, "network", network)
	return nil
}

// BuildImage runs docker build on buildDir.
func (r *Runtime) BuildImage(ctx context.Context, tag, buildDir string) error {
	out, err := r.run(ctx, "build image", "build", "--tag", tag, buildDir)
	if err != nil {
		return err
	}
	for _, line := range lines(out) {
		r.log.Debug(line)
	}
	r.log.Info("image built", "tag", tag)
	return nil
}

// RunContainer starts a detached container publishing each port on the same host port.
func (r *Runtime) RunContainer(ctx context.Context, name, image, network string, ports []uint16) error {
	portList := make([]string, len(ports))
	for i, p := range ports {
		portList[i] = strconv.Itoa(int(p))
	}

	args := []string{
		"run", "--detach",
		"--name", name,
		"--network", network,
		"--restart", "unless-stopped",
		"--label", domain.LabelManaged + "=true",
		"--label", domain.LabelRoutes + "=" + strings.Join(portList, ","),
		"--label", domain.LabelNetwork + "=" + network,
	}
	for _, p := range portList {
		args = append(args, "--publish", p+":"+p)
	}
	args = append(args, image)

	if _, err := r.run(ctx, "run container", args...); err != nil {
		return err
	}
	r.log.Info("container started", "container", name, "ports", strings.Join(portList, ","))
	return nil
}

// StopAndRemoveContainer stops and removes the container. It reports false
// when no such container existed.
func (r *Runtime) StopAndRemoveContainer(ctx context.Context, name string) (bool, error) {
	exists, err := r.ContainerExists(ctx, name)
	if err != nil || !exists {
		return false, err
	}

	if _, err := r.run(ctx, "stop container", "stop", "--time", "10", name); err != nil && !isNotFound(err) {
		r.log.Warn("failed to stop container, forcing removal", "container", name, "error", err)
	}
	if _, err := r.run(ctx, "remove container", "rm", "--force", name); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}

	r.log.Info("container removed", "container", name)
	return true, nil
}

// StreamLogs returns the container's combined stdout and stderr lines. With
// follow set it keeps reading until the command exits or ctx is cancelled.
func (r *Runtime) StreamLogs(ctx context.Context, name string, follow bool, tail int) ([]string, error) {
	args := []string{"logs"}
	if follow {
		args = append(args, "--follow")
	}
	if tail > 0 {
		args = append(args, "--tail", strconv.Itoa(tail))
	}
	args = append(args, name)

	out, err := r.cmd.CombinedOutput(ctx, r.binary, args...)
	if err != nil && ctx.Err() == nil {
		return nil, domain.NewRuntimeError("container logs", err)
	}
	return lines(string(out)), nil
}

func lines(s string) []string {
	result := []string{}
	scanner := bufio.NewScanner(strings.NewReader(s))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			result = append(result, line)
		}
	}
	return result
}
