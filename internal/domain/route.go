package domain

import "fmt"

// DefaultHostPort is the host port a route is published on when none is given.
const DefaultHostPort uint16 = 8000

// Route maps a host port exposed by the proxy to a declared container.
type Route struct {
	HostPort uint16 `json:"host_port"`
	Target   string `json:"target"`
}

// RouteStatus is the rendered view of a route against the declared containers.
type RouteStatus struct {
	HostPort     uint16 `json:"host_port"`
	Target       string `json:"target"`
	InternalPort uint16 `json:"internal_port,omitempty"`
	Resolved     bool   `json:"resolved"`
}

// String renders "port -> target:internal" or flags a dangling target.
func (s RouteStatus) String() string {
	if !s.Resolved {
		return fmt.Sprintf("%d -> %s (container not found)", s.HostPort, s.Target)
	}
	return fmt.Sprintf("%d -> %s:%d", s.HostPort, s.Target, s.InternalPort)
}
