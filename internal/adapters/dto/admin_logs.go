package dto

// LogsResponse represents proxy container log lines.
type LogsResponse struct {
	Lines []string `json:"lines"`
}
