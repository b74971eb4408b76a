package batch

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"mesplane/internal/machine"
	"mesplane/internal/routing"
)

// DefaultMaxIdlePasses bounds how many consecutive passes may advance time
// without placing a single task before the run is declared stalled.
const DefaultMaxIdlePasses = 10000

// Scheduler is a single-threaded list scheduler over a machine pool.
type Scheduler struct {
	network       *routing.Network
	rawMaterials  []string
	pool          *machine.Pool
	maxIdlePasses int
	logger        *slog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithMaxIdlePasses overrides DefaultMaxIdlePasses. Zero or less disables
// the bound; the run still ends once no machine is busy.
func WithMaxIdlePasses(n int) Option {
	return func(s *Scheduler) { s.maxIdlePasses = n }
}

// WithLogger sets the logger used for per-task diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a scheduler. The pool should be freshly built for the run.
func New(net *routing.Network, rawMaterials []string, pool *machine.Pool, opts ...Option) *Scheduler {
	s := &Scheduler{
		network:       net,
		rawMaterials:  rawMaterials,
		pool:          pool,
		maxIdlePasses: DefaultMaxIdlePasses,
		logger:        slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Expand turns order lines into product instances. Plans are computed once
// per product type; a type without a plan yields instances with status
// error_no_plan and no tasks.
func (s *Scheduler) Expand(orders []Order) []*ProductInstance {
	type planned struct {
		plan routing.Plan
		err  error
	}
	plans := make(map[string]planned)

	var instances []*ProductInstance
	for _, o := range orders {
		for _, line := range o.Lines {
			piece := routing.ProductNode(line.ProductType)
			pl, ok := plans[piece]
			if !ok {
				plan, err := routing.ShortestPlan(s.network, piece, s.rawMaterials)
				pl = planned{plan: plan, err: err}
				plans[piece] = pl
			}

			for i := 1; i <= line.Quantity; i++ {
				inst := &ProductInstance{
					ID:          fmt.Sprintf("%s-%s-%d", o.ID, piece, i),
					OrderID:     o.ID,
					ProductType: piece,
					DueDate:     line.DueDate * 60,
					Penalty:     line.Penalty,
					Status:      InstancePending,
				}
				if pl.err != nil {
					inst.Status = InstanceNoPlan
					s.logger.Warn("no manufacturing plan", "instance", inst.ID, "product", piece)
					instances = append(instances, inst)
					continue
				}
				for n, op := range pl.plan.Operations {
					t := &Task{
						ID:         fmt.Sprintf("%s-Op%d", inst.ID, n+1),
						InstanceID: inst.ID,
						Operation:  op,
						Status:     TaskPending,
					}
					if n > 0 {
						t.Dependencies = []string{inst.Tasks[n-1].ID}
					}
					inst.Tasks = append(inst.Tasks, t)
				}
				instances = append(instances, inst)
			}
		}
	}
	return instances
}

// Schedule expands the orders and places every task it can.
func (s *Scheduler) Schedule(orders []Order) Result {
	instances := s.Expand(orders)

	byID := make(map[string]*Task)
	dueOf := make(map[string]int)
	var tasks []*Task
	for _, inst := range instances {
		for _, t := range inst.Tasks {
			byID[t.ID] = t
			dueOf[t.ID] = inst.DueDate
			tasks = append(tasks, t)
		}
	}

	var (
		events    []Event
		current   int
		completed int
		idle      int
		stalled   bool
	)

	for completed < len(tasks) {
		var ready []*Task
		for _, t := range tasks {
			switch t.Status {
			case TaskReady:
				ready = append(ready, t)
			case TaskPending:
				if depsCompleted(t, byID) {
					t.Status = TaskReady
					ready = append(ready, t)
				}
			}
		}

		slices.SortFunc(ready, func(a, b *Task) int {
			if c := cmp.Compare(dueOf[a.ID], dueOf[b.ID]); c != 0 {
				return c
			}
			if c := cmp.Compare(a.InstanceID, b.InstanceID); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})

		placed := 0
		for _, t := range ready {
			earliest := current
			for _, dep := range t.Dependencies {
				earliest = max(earliest, byID[dep].End)
			}

			q, err := s.pool.Reserve(t.Operation.Tool, earliest, t.Operation.Duration, current)
			if err != nil {
				if errors.Is(err, machine.ErrNoCapableMachine) {
					s.logger.Debug("task skipped", "task", t.ID, "tool", t.Operation.Tool, "time", current)
					continue
				}
				s.logger.Error("reservation failed", "task", t.ID, "error", err)
				continue
			}

			t.Machine = q.Machine
			t.Start = q.Start
			t.End = q.End
			t.ToolChanged = q.ToolChanged
			t.Status = TaskCompleted
			completed++
			placed++

			events = append(events, Event{
				TaskID:      t.ID,
				InstanceID:  t.InstanceID,
				Machine:     q.Machine,
				Start:       q.Start,
				End:         q.End,
				Operation:   t.Operation,
				ToolChanged: q.ToolChanged,
				PassThrough: q.PassThrough,
			})
		}

		if placed > 0 {
			idle = 0
			continue
		}
		if completed == len(tasks) {
			break
		}

		next, busy := s.pool.BusyAfter(current)
		if !busy {
			stalled = true
			break
		}
		idle++
		if s.maxIdlePasses > 0 && idle > s.maxIdlePasses {
			stalled = true
			break
		}
		current = next
	}

	if stalled {
		s.logger.Warn("scheduling stalled", "time", current, "remaining", len(tasks)-completed)
	}

	finalize(instances)

	slices.SortStableFunc(events, func(a, b Event) int {
		if c := cmp.Compare(a.Start, b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.Machine, b.Machine)
	})

	makespan := 0
	for _, e := range events {
		makespan = max(makespan, e.End)
	}

	return Result{
		Events:    events,
		Instances: instances,
		Makespan:  makespan,
		Stalled:   stalled,
	}
}

func depsCompleted(t *Task, byID map[string]*Task) bool {
	for _, dep := range t.Dependencies {
		d, ok := byID[dep]
		if !ok || d.Status != TaskCompleted {
			return false
		}
	}
	return true
}

// finalize classifies every instance once the loop is done.
func finalize(instances []*ProductInstance) {
	for _, inst := range instances {
		if inst.Status == InstanceNoPlan {
			continue
		}
		done := true
		end := 0
		for _, t := range inst.Tasks {
			if t.Status != TaskCompleted {
				done = false
				continue
			}
			end = max(end, t.End)
		}
		if !done {
			inst.Status = InstanceIncomplete
			continue
		}
		inst.CompletionTime = end
		if end > inst.DueDate {
			inst.Status = InstanceLate
		} else {
			inst.Status = InstanceCompleted
		}
	}
}
