// Package in defines input ports (interfaces) for use cases.
// These interfaces define the contract between driving adapters (CLI, TUI,
// admin API) and the application core.
package in

import (
	"context"

	"github.com/bnema/proxy-manager/internal/domain"
)

// ProxyService defines the contract for managing declared routes and the proxy container.
type ProxyService interface {
	// Declared state
	Config(ctx context.Context) (*domain.Config, error)
	AddContainer(ctx context.Context, spec domain.ContainerSpec) (bool, error)
	RemoveContainer(ctx context.Context, identifier string) (string, []domain.Route, error)
	SwitchTarget(ctx context.Context, identifier string, hostPort uint16) (*domain.Report, error)
	StopPort(ctx context.Context, hostPort uint16) (*domain.Report, error)

	// Proxy lifecycle
	BuildProxy(ctx context.Context) (*domain.Report, error)
	StartProxy(ctx context.Context) (*domain.Report, error)
	StopProxy(ctx context.Context) (*domain.Report, error)
	ReloadProxy(ctx context.Context) (*domain.Report, error)

	// Read-only views
	Status(ctx context.Context) ([]domain.RouteStatus, error)
	ProxyState(ctx context.Context) (domain.ProxyState, error)
	Networks(ctx context.Context) ([]domain.NetworkInfo, error)
	RuntimeContainers(ctx context.Context, all bool) ([]string, error)
	Logs(ctx context.Context, follow bool, tail int) ([]string, error)
	Preview(ctx context.Context) (domain.Artifacts, error)
}
