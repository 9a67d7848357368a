package domain

import (
	"errors"
	"fmt"
)

// Error classes. Every error surfaced by the application wraps exactly one of them
// so callers can classify with errors.Is.
var (
	ErrConfig       = errors.New("config error")
	ErrPrecondition = errors.New("precondition failed")
	ErrRuntime      = errors.New("container runtime error")
)

var (
	// Config errors
	ErrConfigRead  = fmt.Errorf("%w: failed to read configuration", ErrConfig)
	ErrConfigParse = fmt.Errorf("%w: failed to parse configuration", ErrConfig)
	ErrConfigWrite = fmt.Errorf("%w: failed to write configuration", ErrConfig)
	ErrBuildWrite  = fmt.Errorf("%w: failed to write build context", ErrConfig)

	// Precondition errors
	ErrNoContainers      = fmt.Errorf("%w: no containers configured", ErrPrecondition)
	ErrNoRoutes          = fmt.Errorf("%w: no routes configured", ErrPrecondition)
	ErrContainerNotFound = fmt.Errorf("%w: container not found", ErrPrecondition)
	ErrRouteNotFound     = fmt.Errorf("%w: route not found", ErrPrecondition)
	ErrProxyNotRunning   = fmt.Errorf("%w: proxy is not running", ErrPrecondition)
	ErrInvalidPort       = fmt.Errorf("%w: invalid port", ErrPrecondition)

	// Runtime errors
	ErrNetworkExists = fmt.Errorf("%w: network already exists", ErrRuntime)
)

// RuntimeError records which engine operation failed.
type RuntimeError struct {
	Op  string
	Err error
}

// NewRuntimeError wraps err as a failure of the named engine operation.
func NewRuntimeError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &RuntimeError{Op: op, Err: err}
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RuntimeError) Unwrap() []error {
	return []error{ErrRuntime, e.Err}
}
