package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// ExecRuntime implements the Runtime interface by running an external
// command per step, e.g. a script talking to the real device controller.
// Step details are passed through MESPLANE_* environment variables.
type ExecRuntime struct {
	Command []string
}

// NewExecRuntime creates a new process-based runtime.
func NewExecRuntime(command []string) *ExecRuntime {
	return &ExecRuntime{Command: command}
}

// Execute implements Runtime.Execute using os/exec.
func (e *ExecRuntime) Execute(ctx context.Context, step Step) error {
	if len(e.Command) == 0 {
		return errors.New("command is required")
	}

	cmd := exec.CommandContext(ctx, e.Command[0], e.Command[1:]...)
	cmd.Env = append(os.Environ(),
		"MESPLANE_REQUEST_ID="+step.RequestID,
		"MESPLANE_MACHINE="+step.Machine,
		"MESPLANE_TOOL="+step.Tool,
		"MESPLANE_FROM="+step.From,
		"MESPLANE_TO="+step.To,
		"MESPLANE_DURATION="+strconv.Itoa(step.Duration),
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = fmt.Sprintf("exit code %d", exitErr.ExitCode())
		}
		return fmt.Errorf("%s on %s: %s: %w", step.To, step.Machine, msg, ErrStepFailed)
	}
	return fmt.Errorf("failed to start step command: %w", err)
}
