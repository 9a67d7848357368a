package domain

import "strings"

// Outcome is the terminal state an orchestrator operation reached.
type Outcome string

const (
	OutcomeBuilt          Outcome = "built"
	OutcomeStarted        Outcome = "started"
	OutcomeAlreadyRunning Outcome = "already_running"
	OutcomeStopped        Outcome = "stopped"
	OutcomeNotRunning     Outcome = "not_running"
	OutcomeReloaded       Outcome = "reloaded"
)

// Report is the narrative an operation returns to its caller.
type Report struct {
	Outcome  Outcome  `json:"outcome"`
	Messages []string `json:"messages"`
	Warnings []string `json:"warnings,omitempty"`
}

// NewReport starts a report with the given outcome.
func NewReport(outcome Outcome) *Report {
	return &Report{Outcome: outcome, Messages: []string{}}
}

// Add appends a message line.
func (r *Report) Add(msg string) *Report {
	r.Messages = append(r.Messages, msg)
	return r
}

// Warn appends a warning line.
func (r *Report) Warn(msg string) *Report {
	r.Warnings = append(r.Warnings, msg)
	return r
}

// Merge folds another report's lines into r, keeping r's outcome.
func (r *Report) Merge(other *Report) *Report {
	if other == nil {
		return r
	}
	r.Messages = append(r.Messages, other.Messages...)
	r.Warnings = append(r.Warnings, other.Warnings...)
	return r
}

// String joins messages and warnings, one per line.
func (r *Report) String() string {
	lines := make([]string, 0, len(r.Messages)+len(r.Warnings))
	lines = append(lines, r.Messages...)
	for _, w := range r.Warnings {
		lines = append(lines, "warning: "+w)
	}
	return strings.Join(lines, "\n")
}

// ProxyState describes the live proxy container.
type ProxyState struct {
	Name    string          `json:"name"`
	Present bool            `json:"present"`
	Status  ContainerStatus `json:"status,omitempty"`
}

// Artifacts are the generated build inputs for the proxy image.
type Artifacts struct {
	NginxConf  string `json:"nginx_conf"`
	Dockerfile string `json:"dockerfile"`
}
