package domain

import (
	"slices"
	"sort"
)

const (
	// DefaultProxyName is the container (and image) name of the proxy.
	DefaultProxyName = "proxy-manager"
	// DefaultNetwork is the engine network the proxy is started on.
	DefaultNetwork = "proxy-net"
)

// Config is the declared state: the containers the proxy may forward to and the
// host ports it listens on.
type Config struct {
	Containers []Container `json:"containers"`
	Routes     []Route     `json:"routes"`
	ProxyName  string      `json:"proxy_name"`
	Network    string      `json:"network"`
}

// NewConfig returns an empty declared state with defaults applied.
func NewConfig() *Config {
	return &Config{
		Containers: []Container{},
		Routes:     []Route{},
		ProxyName:  DefaultProxyName,
		Network:    DefaultNetwork,
	}
}

// ApplyDefaults fills zero-valued top-level fields. It reports whether anything changed.
func (c *Config) ApplyDefaults() bool {
	changed := false
	if c.Containers == nil {
		c.Containers = []Container{}
		changed = true
	}
	if c.Routes == nil {
		c.Routes = []Route{}
		changed = true
	}
	if c.ProxyName == "" {
		c.ProxyName = DefaultProxyName
		changed = true
	}
	if c.Network == "" {
		c.Network = DefaultNetwork
		changed = true
	}
	return changed
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := &Config{
		Containers: make([]Container, 0, len(c.Containers)),
		Routes:     slices.Clone(c.Routes),
		ProxyName:  c.ProxyName,
		Network:    c.Network,
	}
	if out.Routes == nil {
		out.Routes = []Route{}
	}
	for _, ct := range c.Containers {
		cp := Container{Name: ct.Name}
		if ct.Label != nil {
			cp.Label = StringPtr(*ct.Label)
		}
		if ct.Port != nil {
			cp.Port = PortPtr(*ct.Port)
		}
		if ct.Network != nil {
			cp.Network = StringPtr(*ct.Network)
		}
		out.Containers = append(out.Containers, cp)
	}
	return out
}

// ImageTag is the tag the proxy image is built under.
func (c *Config) ImageTag() string {
	return c.ProxyName + ":latest"
}

// FindContainer resolves an identifier by exact name first, then by label.
// Among containers sharing a label the first inserted wins.
func (c *Config) FindContainer(identifier string) (*Container, bool) {
	for i := range c.Containers {
		if c.Containers[i].Name == identifier {
			return &c.Containers[i], true
		}
	}
	for i := range c.Containers {
		if c.Containers[i].HasLabel(identifier) {
			return &c.Containers[i], true
		}
	}
	return nil, false
}

// containerByName only matches names, never labels.
func (c *Config) containerByName(name string) (*Container, bool) {
	for i := range c.Containers {
		if c.Containers[i].Name == name {
			return &c.Containers[i], true
		}
	}
	return nil, false
}

// UpsertContainer overwrites the supplied fields of an existing container or
// appends a new one. It reports whether an existing entry was updated.
func (c *Config) UpsertContainer(spec ContainerSpec) bool {
	if existing, ok := c.containerByName(spec.Name); ok {
		if spec.Label != nil {
			existing.Label = StringPtr(*spec.Label)
		}
		if spec.Port != nil {
			existing.Port = PortPtr(*spec.Port)
		}
		if spec.Network != nil {
			existing.Network = StringPtr(*spec.Network)
		}
		return true
	}

	ct := Container{Name: spec.Name}
	if spec.Label != nil {
		ct.Label = StringPtr(*spec.Label)
	}
	if spec.Port != nil {
		ct.Port = PortPtr(*spec.Port)
	}
	if spec.Network != nil {
		ct.Network = StringPtr(*spec.Network)
	}
	c.Containers = append(c.Containers, ct)
	return false
}

// RemoveContainer deletes the container resolved by identifier together with
// every route targeting its name. It returns the removed name and the dropped routes.
func (c *Config) RemoveContainer(identifier string) (string, []Route, bool) {
	found, ok := c.FindContainer(identifier)
	if !ok {
		return "", nil, false
	}
	name := found.Name

	c.Containers = slices.DeleteFunc(c.Containers, func(ct Container) bool {
		return ct.Name == name
	})

	var dropped []Route
	kept := make([]Route, 0, len(c.Routes))
	for _, r := range c.Routes {
		if r.Target == name {
			dropped = append(dropped, r)
			continue
		}
		kept = append(kept, r)
	}
	c.Routes = kept

	return name, dropped, true
}

// SetRoute points hostPort at target. Routes stay sorted by host port.
// It reports whether an existing route was updated.
func (c *Config) SetRoute(hostPort uint16, target string) bool {
	for i := range c.Routes {
		if c.Routes[i].HostPort == hostPort {
			c.Routes[i].Target = target
			return true
		}
	}
	c.Routes = append(c.Routes, Route{HostPort: hostPort, Target: target})
	sort.SliceStable(c.Routes, func(i, j int) bool {
		return c.Routes[i].HostPort < c.Routes[j].HostPort
	})
	return false
}

// FindRoute returns the route bound to hostPort.
func (c *Config) FindRoute(hostPort uint16) (Route, bool) {
	for _, r := range c.Routes {
		if r.HostPort == hostPort {
			return r, true
		}
	}
	return Route{}, false
}

// RemoveRoute deletes the route bound to hostPort.
func (c *Config) RemoveRoute(hostPort uint16) (Route, bool) {
	for i, r := range c.Routes {
		if r.HostPort == hostPort {
			c.Routes = slices.Delete(c.Routes, i, i+1)
			return r, true
		}
	}
	return Route{}, false
}

// HostPorts returns the route host ports in ascending order.
func (c *Config) HostPorts() []uint16 {
	ports := make([]uint16, 0, len(c.Routes))
	for _, r := range c.Routes {
		ports = append(ports, r.HostPort)
	}
	slices.Sort(ports)
	return ports
}

// AllNetworks returns the default network plus every distinct container
// network, sorted.
func (c *Config) AllNetworks() []string {
	set := map[string]struct{}{c.Network: {}}
	for _, ct := range c.Containers {
		if ct.Network != nil && *ct.Network != "" {
			set[*ct.Network] = struct{}{}
		}
	}
	networks := make([]string, 0, len(set))
	for n := range set {
		networks = append(networks, n)
	}
	slices.Sort(networks)
	return networks
}

// SecondaryNetworks returns AllNetworks without the default network.
func (c *Config) SecondaryNetworks() []string {
	return slices.DeleteFunc(c.AllNetworks(), func(n string) bool {
		return n == c.Network
	})
}

// RouteStatuses resolves each route against the declared containers.
// Dangling routes are reported, never rejected.
func (c *Config) RouteStatuses() []RouteStatus {
	statuses := make([]RouteStatus, 0, len(c.Routes))
	for _, r := range c.Routes {
		st := RouteStatus{HostPort: r.HostPort, Target: r.Target}
		if ct, ok := c.containerByName(r.Target); ok {
			st.Resolved = true
			st.InternalPort = ct.InternalPort()
		}
		statuses = append(statuses, st)
	}
	return statuses
}
