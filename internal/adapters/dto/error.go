// Package dto holds the JSON request and response bodies of the admin API.
package dto

// ErrorResponse represents a common API error response.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}
