// Package runtime provides the Runtime interface for device step execution backends.
package runtime

import (
	"context"
	"errors"
)

// ErrStepFailed is returned when the device reports a failed step.
var ErrStepFailed = errors.New("step execution failed")

// Runtime defines the interface for executing reserved steps on the shop floor.
// Implementations include a simulated PLC and an external command.
type Runtime interface {
	// Execute blocks until the step has run on its machine.
	Execute(ctx context.Context, step Step) error
}

// Step is one reserved operation handed to the device layer.
type Step struct {
	RequestID string
	Machine   string
	Tool      string
	From      string
	To        string
	Start     int // simulated seconds
	End       int
	Duration  int
}
