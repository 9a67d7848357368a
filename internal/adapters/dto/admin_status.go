package dto

import "github.com/bnema/proxy-manager/internal/domain"

// StatusResponse combines the declared routes with the live proxy state.
type StatusResponse struct {
	Routes []domain.RouteStatus `json:"routes"`
	Proxy  domain.ProxyState    `json:"proxy"`
}
