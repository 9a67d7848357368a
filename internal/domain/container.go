// Package domain contains pure business types without external dependencies.
// These types are used throughout the application; only the persisted declared
// state carries serialization tags.
package domain

// DefaultContainerPort is the internal port a container listens on when none is declared.
const DefaultContainerPort uint16 = 8000

// Container is a declared backend the proxy can forward to.
type Container struct {
	Name    string  `json:"name"`
	Label   *string `json:"label,omitempty"`
	Port    *uint16 `json:"port,omitempty"`
	Network *string `json:"network,omitempty"`
}

// InternalPort returns the declared port or DefaultContainerPort.
func (c Container) InternalPort() uint16 {
	if c.Port != nil {
		return *c.Port
	}
	return DefaultContainerPort
}

// HasLabel reports whether the container carries the given label.
func (c Container) HasLabel(label string) bool {
	return c.Label != nil && *c.Label == label
}

// ContainerSpec describes an upsert. Nil fields are left untouched on an
// existing container.
type ContainerSpec struct {
	Name    string
	Label   *string
	Port    *uint16
	Network *string
}

// NetworkInfo represents a container engine network.
type NetworkInfo struct {
	Name           string `json:"name"`
	Driver         string `json:"driver"`
	Scope          string `json:"scope"`
	ContainerCount int    `json:"container_count"`
}

// ContainerStatus represents the current state of a container as reported by the engine.
type ContainerStatus string

const (
	ContainerStatusRunning ContainerStatus = "running"
	ContainerStatusCreated ContainerStatus = "created"
	ContainerStatusExited  ContainerStatus = "exited"
	ContainerStatusPaused  ContainerStatus = "paused"
	ContainerStatusUnknown ContainerStatus = "unknown"
)

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// PortPtr returns a pointer to p.
func PortPtr(p uint16) *uint16 { return &p }
