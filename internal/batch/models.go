// Package batch schedules whole production orders at once: it expands order
// lines into product instances and dependency-chained tasks, then places the
// tasks on machines by due-date priority.
package batch

import (
	"mesplane/internal/machine"
	"mesplane/internal/routing"
)

// InstanceStatus is the lifecycle state of a product instance.
type InstanceStatus string

const (
	InstancePending    InstanceStatus = "pending"
	InstanceCompleted  InstanceStatus = "completed"
	InstanceLate       InstanceStatus = "late"
	InstanceIncomplete InstanceStatus = "incomplete"
	InstanceNoPlan     InstanceStatus = "error_no_plan"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskReady     TaskStatus = "ready"
	TaskCompleted TaskStatus = "completed"
)

// OrderLine asks for Quantity units of one product type.
type OrderLine struct {
	ProductType int     `yaml:"type"`
	Quantity    int     `yaml:"quantity"`
	DueDate     int     `yaml:"due_date"` // minutes
	Penalty     float64 `yaml:"penalty"`
}

// Order is one client order.
type Order struct {
	ID     string      `yaml:"order_id"`
	Client string      `yaml:"client"`
	NIF    string      `yaml:"nif"`
	Lines  []OrderLine `yaml:"lines"`
}

// Task is one manufacturing step bound to a product instance.
type Task struct {
	ID           string
	InstanceID   string
	Operation    routing.Operation
	Dependencies []string
	Status       TaskStatus
	Machine      string
	Start        int
	End          int
	ToolChanged  bool
}

// ProductInstance is one physical unit to build.
type ProductInstance struct {
	ID             string
	OrderID        string
	ProductType    string
	DueDate        int // seconds
	Penalty        float64
	Tasks          []*Task
	Status         InstanceStatus
	CompletionTime int
}

// CompletedTasks counts the instance's completed tasks.
func (p *ProductInstance) CompletedTasks() int {
	n := 0
	for _, t := range p.Tasks {
		if t.Status == TaskCompleted {
			n++
		}
	}
	return n
}

// Tardiness is how far past its due date a late instance finished.
func (p *ProductInstance) Tardiness() int {
	if p.Status != InstanceLate {
		return 0
	}
	return p.CompletionTime - p.DueDate
}

// Event records one committed assignment.
type Event struct {
	TaskID      string
	InstanceID  string
	Machine     string
	Start       int
	End         int
	Operation   routing.Operation
	ToolChanged bool
	PassThrough *machine.Window
}

// Result is the outcome of one scheduling run.
type Result struct {
	// Events ordered by start time, then machine name.
	Events    []Event
	Instances []*ProductInstance
	Makespan  int
	// Stalled is set when the run ended with tasks that could never be placed.
	Stalled bool
}

// Stats summarises a run.
type Stats struct {
	Makespan          int
	Total             int
	Completed         int // includes late
	Late              int
	Incomplete        int
	NoPlan            int
	WeightedTardiness float64
}

// Summarize computes run statistics. WeightedTardiness sums penalty times
// tardiness in seconds over late instances.
func Summarize(r Result) Stats {
	s := Stats{Makespan: r.Makespan, Total: len(r.Instances)}
	for _, p := range r.Instances {
		switch p.Status {
		case InstanceCompleted:
			s.Completed++
		case InstanceLate:
			s.Completed++
			s.Late++
			s.WeightedTardiness += p.Penalty * float64(p.Tardiness())
		case InstanceIncomplete:
			s.Incomplete++
		case InstanceNoPlan:
			s.NoPlan++
		}
	}
	return s
}
