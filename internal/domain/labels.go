package domain

// Label keys the runtime adapters set on the proxy container and the networks
// it creates. They are informational: the proxy is always looked up by name.
const (
	LabelManaged = "proxy-manager.managed"
	LabelRoutes  = "proxy-manager.routes"
	LabelNetwork = "proxy-manager.network"
)
