package online

import (
	"context"
	"errors"
	"sync"
	"testing"

	"mesplane/internal/machine"
	"mesplane/internal/routing"
)

func newPool(t *testing.T, specs ...machine.Spec) *machine.Pool {
	t.Helper()
	p, err := machine.NewPool(specs, machine.Durations{ToolChange: 30, PassThrough: 5})
	if err != nil {
		t.Fatalf("NewPool() error: %v", err)
	}
	return p
}

func TestAdvance_ToolReuse(t *testing.T) {
	s := New(newPool(t, machine.Spec{Name: "M1", Tools: []string{"T1", "T2"}}))
	ctx := context.Background()

	a, err := s.Advance(ctx, routing.Operation{From: "P1", To: "P3", Tool: "T1", Duration: 20}, 0)
	if err != nil {
		t.Fatalf("Advance() error: %v", err)
	}
	if a.Machine != "M1" || a.Start != 30 || a.End != 50 || !a.ToolChanged {
		t.Errorf("first = %+v", a)
	}

	b, err := s.Advance(ctx, routing.Operation{From: "P3", To: "P4", Tool: "T1", Duration: 20}, a.End)
	if err != nil {
		t.Fatalf("Advance() error: %v", err)
	}
	if b.Start != 50 || b.End != 70 || b.ToolChanged {
		t.Errorf("second = %+v, want 50-70 without tool change", b)
	}
}

func TestAdvance_SecondaryPassThrough(t *testing.T) {
	pool := newPool(t,
		machine.Spec{Name: "M1a", Tools: []string{"T2"}},
		machine.Spec{Name: "M1b", Tools: []string{"T1"}, Partner: "M1a"},
	)
	s := New(pool)

	a, err := s.Advance(context.Background(), routing.Operation{From: "P1", To: "P3", Tool: "T1", Duration: 10}, 0)
	if err != nil {
		t.Fatalf("Advance() error: %v", err)
	}
	if a.PassThrough == nil || a.PassThrough.Machine != "M1a" || a.PassThrough.End != 5 {
		t.Fatalf("pass-through = %+v", a.PassThrough)
	}
	if a.Start < a.PassThrough.End {
		t.Errorf("start %d before pass-through end %d", a.Start, a.PassThrough.End)
	}
	if st, _ := pool.Get("M1a"); st.BusyUntil != 5 {
		t.Errorf("partner busyUntil = %d, want 5", st.BusyUntil)
	}
}

func TestAdvance_NoCapableMachine(t *testing.T) {
	s := New(newPool(t, machine.Spec{Name: "M1", Tools: []string{"T1"}}))

	_, err := s.Advance(context.Background(), routing.Operation{From: "P1", To: "P2", Tool: "T9", Duration: 1}, 0)
	if !errors.Is(err, machine.ErrNoCapableMachine) {
		t.Errorf("error = %v, want ErrNoCapableMachine", err)
	}
}

func TestAdvance_CancelledContext(t *testing.T) {
	s := New(newPool(t, machine.Spec{Name: "M1", Tools: []string{"T1"}}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Advance(ctx, routing.Operation{Tool: "T1", Duration: 1}, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if st, _ := s.Pool().Get("M1"); st.BusyUntil != 0 {
		t.Errorf("cancelled advance reserved time: %+v", st)
	}
}

func TestRun_PartialFailureKeepsReservations(t *testing.T) {
	s := New(newPool(t, machine.Spec{Name: "M1", Tools: []string{"T1"}}))
	plan := routing.Plan{Target: "P3", Operations: []routing.Operation{
		{From: "P1", To: "P2", Tool: "T1", Duration: 10},
		{From: "P2", To: "P3", Tool: "T9", Duration: 10},
	}}

	done, err := s.Run(context.Background(), plan, nil)
	if !errors.Is(err, machine.ErrNoCapableMachine) {
		t.Fatalf("error = %v, want ErrNoCapableMachine", err)
	}
	if len(done) != 1 || done[0].End != 40 {
		t.Fatalf("assignments = %+v", done)
	}
	if st, _ := s.Pool().Get("M1"); st.BusyUntil != 40 {
		t.Errorf("busyUntil = %d, want 40 after partial failure", st.BusyUntil)
	}
}

func TestRun_StepErrorStops(t *testing.T) {
	s := New(newPool(t, machine.Spec{Name: "M1", Tools: []string{"T1"}}))
	plan := routing.Plan{Operations: []routing.Operation{
		{From: "P1", To: "P2", Tool: "T1", Duration: 10},
		{From: "P2", To: "P3", Tool: "T1", Duration: 10},
	}}

	boom := errors.New("boom")
	calls := 0
	done, err := s.Run(context.Background(), plan, func(ctx context.Context, a Assignment) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) || calls != 1 || len(done) != 1 {
		t.Errorf("err=%v calls=%d done=%d", err, calls, len(done))
	}
}

func TestRun_CursorChaining(t *testing.T) {
	s := New(newPool(t,
		machine.Spec{Name: "M1", Tools: []string{"T1"}},
		machine.Spec{Name: "M2", Tools: []string{"T2"}},
	))
	plan := routing.Plan{Operations: []routing.Operation{
		{From: "P1", To: "P2", Tool: "T1", Duration: 10},
		{From: "P2", To: "P3", Tool: "T2", Duration: 10},
	}}

	done, err := s.Run(context.Background(), plan, nil)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	// M2 is idle, but the second step cannot start before the first ends.
	if done[1].Start != done[0].End+30 {
		t.Errorf("second start = %d, want %d", done[1].Start, done[0].End+30)
	}
}

func TestRun_ConcurrentRequestsNeverOverlap(t *testing.T) {
	s := New(newPool(t,
		machine.Spec{Name: "M1a", Tools: []string{"T1", "T2"}},
		machine.Spec{Name: "M1b", Tools: []string{"T1", "T2"}, Partner: "M1a"},
		machine.Spec{Name: "M2a", Tools: []string{"T1"}},
	))
	plan := routing.Plan{Operations: []routing.Operation{
		{From: "P1", To: "P2", Tool: "T1", Duration: 10},
		{From: "P2", To: "P3", Tool: "T2", Duration: 15},
	}}

	var (
		mu  sync.Mutex
		all []Assignment
		wg  sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			done, err := s.Run(context.Background(), plan, nil)
			if err != nil {
				t.Errorf("Run() error: %v", err)
				return
			}
			mu.Lock()
			all = append(all, done...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(all) != 40 {
		t.Fatalf("expected 40 assignments, got %d", len(all))
	}
	byMachine := map[string][][2]int{}
	for _, a := range all {
		byMachine[a.Machine] = append(byMachine[a.Machine], [2]int{a.Start, a.End})
	}
	for name, spans := range byMachine {
		for i := range spans {
			for j := i + 1; j < len(spans); j++ {
				a, b := spans[i], spans[j]
				if a[0] < b[1] && b[0] < a[1] {
					t.Errorf("%s: [%d,%d) overlaps [%d,%d)", name, a[0], a[1], b[0], b[1])
				}
			}
		}
	}
}
