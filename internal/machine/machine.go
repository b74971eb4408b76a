// Package machine models the shop-floor machines and the shared cost model
// used by both scheduling modes.
package machine

import (
	"sort"
	"sync"
)

// Role distinguishes machines that work on their own from machines whose
// work must first pass through a partner.
type Role string

const (
	RolePrimary   Role = "primary"
	RoleSecondary Role = "secondary"
)

// Spec describes a machine before it joins a pool.
type Spec struct {
	Name  string
	Tools []string
	// Partner names the primary machine a secondary passes through.
	// Empty means the machine is primary.
	Partner string
}

// Machine is a schedulable resource. Its mutable state is only changed by
// the owning Pool while holding mu.
type Machine struct {
	mu sync.Mutex

	name    string
	tools   map[string]struct{}
	partner *Machine

	currentTool string
	busyUntil   int
}

// State is a point-in-time copy of a machine.
type State struct {
	Name        string   `json:"name"`
	Role        Role     `json:"role"`
	Partner     string   `json:"partner,omitempty"`
	Tools       []string `json:"tools"`
	CurrentTool string   `json:"current_tool,omitempty"`
	BusyUntil   int      `json:"busy_until"`
}

func newMachine(spec Spec) *Machine {
	tools := make(map[string]struct{}, len(spec.Tools))
	for _, t := range spec.Tools {
		tools[t] = struct{}{}
	}
	return &Machine{name: spec.Name, tools: tools}
}

// Name returns the machine name.
func (m *Machine) Name() string { return m.name }

// Role reports whether the machine is primary or secondary.
func (m *Machine) Role() Role {
	if m.partner != nil {
		return RoleSecondary
	}
	return RolePrimary
}

// CanMount reports whether tool is in the machine's capability set.
func (m *Machine) CanMount(tool string) bool {
	_, ok := m.tools[tool]
	return ok
}

// Snapshot copies the machine state under its lock.
func (m *Machine) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

func (m *Machine) stateLocked() State {
	tools := make([]string, 0, len(m.tools))
	for t := range m.tools {
		tools = append(tools, t)
	}
	sort.Strings(tools)

	s := State{
		Name:        m.name,
		Role:        m.Role(),
		Tools:       tools,
		CurrentTool: m.currentTool,
		BusyUntil:   m.busyUntil,
	}
	if m.partner != nil {
		s.Partner = m.partner.name
	}
	return s
}
