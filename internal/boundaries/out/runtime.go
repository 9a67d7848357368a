// Package out defines output ports (interfaces) for infrastructure.
// These interfaces define the contract between use cases and driven adapters
// (Docker, filesystem, etc.).
package out

import (
	"context"

	"github.com/bnema/proxy-manager/internal/domain"
)

// ContainerRuntime defines the contract for container runtime operations.
// This interface abstracts the underlying transport (native API, docker CLI,
// in-memory fake). Every failure returned wraps domain.ErrRuntime.
type ContainerRuntime interface {
	// Inspection
	ListContainers(ctx context.Context, all bool) ([]string, error)
	ListNetworks(ctx context.Context) ([]domain.NetworkInfo, error)
	ContainerPrimaryNetwork(ctx context.Context, name string) (string, bool, error)
	ContainerExists(ctx context.Context, name string) (bool, error)
	ContainerStatus(ctx context.Context, name string) (domain.ContainerStatus, bool, error)

	// Networks
	// EnsureNetwork creates the network if absent. A concurrent creation by
	// another actor is reported as success.
	EnsureNetwork(ctx context.Context, name string) error
	ConnectContainerToNetwork(ctx context.Context, name, network string) error

	// Image and container lifecycle
	BuildImage(ctx context.Context, tag, buildDir string) error
	// RunContainer starts a detached container binding every port to the same host port.
	RunContainer(ctx context.Context, name, image, network string, ports []uint16) error
	// StopAndRemoveContainer reports false when no such container existed.
	StopAndRemoveContainer(ctx context.Context, name string) (bool, error)

	// Logs
	StreamLogs(ctx context.Context, name string, follow bool, tail int) ([]string, error)
}
