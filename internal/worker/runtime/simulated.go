package runtime

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// SimulatedRuntime stands in for a PLC. Each step sleeps for its duration
// scaled by TimeScale and fails with probability FailureRate.
type SimulatedRuntime struct {
	TimeScale   time.Duration // wall time per simulated second; 0 disables sleeping
	FailureRate float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimulatedRuntime creates a simulated runtime. A nil rng is seeded from
// the clock.
func NewSimulatedRuntime(timeScale time.Duration, failureRate float64, rng *rand.Rand) *SimulatedRuntime {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &SimulatedRuntime{
		TimeScale:   timeScale,
		FailureRate: failureRate,
		rng:         rng,
	}
}

// Execute implements Runtime.Execute.
func (s *SimulatedRuntime) Execute(ctx context.Context, step Step) error {
	if s.TimeScale > 0 && step.Duration > 0 {
		timer := time.NewTimer(time.Duration(step.Duration) * s.TimeScale)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	s.mu.Lock()
	roll := s.rng.Float64()
	s.mu.Unlock()

	if roll < s.FailureRate {
		return fmt.Errorf("simulated PLC error on %s for %s: %w", step.Machine, step.To, ErrStepFailed)
	}
	return nil
}
