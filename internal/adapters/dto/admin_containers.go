package dto

import "github.com/bnema/proxy-manager/internal/domain"

// ContainerRequest declares or updates a container. Omitted fields keep
// their stored value.
type ContainerRequest struct {
	Name    string  `json:"name"`
	Label   *string `json:"label,omitempty"`
	Port    *uint16 `json:"port,omitempty"`
	Network *string `json:"network,omitempty"`
}

// Spec converts the request into a domain upsert.
func (r ContainerRequest) Spec() domain.ContainerSpec {
	return domain.ContainerSpec{
		Name:    r.Name,
		Label:   r.Label,
		Port:    r.Port,
		Network: r.Network,
	}
}

// ContainerResponse reports whether an existing container was updated.
type ContainerResponse struct {
	Name    string `json:"name"`
	Updated bool   `json:"updated"`
}

// RemoveContainerResponse lists the routes dropped with the container.
type RemoveContainerResponse struct {
	Name          string         `json:"name"`
	DroppedRoutes []domain.Route `json:"dropped_routes"`
}
