package out

import "time"

// OperationRecorder records orchestrator operation results.
type OperationRecorder interface {
	Observe(operation string, err error, elapsed time.Duration)
}

// NoopRecorder discards every observation.
type NoopRecorder struct{}

// Observe implements OperationRecorder.
func (NoopRecorder) Observe(string, error, time.Duration) {}
