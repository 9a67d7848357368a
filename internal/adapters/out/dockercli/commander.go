package dockercli

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Commander runs engine binaries. Implementations must be safe for concurrent use.
type Commander interface {
	// Run returns stdout. A failing command yields a *CommandError carrying stderr.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
	// CombinedOutput returns stdout and stderr interleaved.
	CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error)
}

// CommandError describes a command that exited unsuccessfully.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", strings.Join(e.Args, " "), msg)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExecCommander runs commands with os/exec.
type ExecCommander struct {
	// Env is appended to the inherited environment.
	Env []string
}

// Run implements Commander.
func (c ExecCommander) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := c.command(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), &CommandError{Args: append([]string{name}, args...), Stderr: stderr.String(), Err: err}
	}
	return stdout.Bytes(), nil
}

// CombinedOutput implements Commander.
func (c ExecCommander) CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := c.command(ctx, name, args...).CombinedOutput()
	if err != nil {
		return out, &CommandError{Args: append([]string{name}, args...), Stderr: string(out), Err: err}
	}
	return out, nil
}

func (c ExecCommander) command(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	if len(c.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.Env...)
	}
	return cmd
}
