package dto

// RouteRequest points a host port at a container name or label.
type RouteRequest struct {
	Target string `json:"target"`
}
