package machine

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
)

// ErrNoCapableMachine is returned when no machine in the pool can mount the
// required tool.
var ErrNoCapableMachine = errors.New("no capable machine")

// defaultCommitAttempts bounds how often Reserve re-runs selection when a
// concurrent commit invalidated the chosen quote.
const defaultCommitAttempts = 3

// Pool owns every machine's mutable state. Both schedulers read and change
// machines only through it.
type Pool struct {
	machines  []*Machine // sorted by name
	byName    map[string]*Machine
	durations Durations
	attempts  int
}

// NewPool builds a pool from machine specs. A spec with a Partner becomes a
// secondary machine; the partner must exist and must itself be primary.
func NewPool(specs []Spec, d Durations) (*Pool, error) {
	if d.ToolChange < 0 || d.PassThrough < 0 {
		return nil, fmt.Errorf("durations must be non-negative: %+v", d)
	}

	p := &Pool{
		byName:    make(map[string]*Machine, len(specs)),
		durations: d,
		attempts:  defaultCommitAttempts,
	}

	for _, s := range specs {
		if s.Name == "" {
			return nil, errors.New("machine name is required")
		}
		if _, dup := p.byName[s.Name]; dup {
			return nil, fmt.Errorf("duplicate machine %q", s.Name)
		}
		m := newMachine(s)
		p.byName[s.Name] = m
		p.machines = append(p.machines, m)
	}

	for _, s := range specs {
		if s.Partner == "" {
			continue
		}
		if s.Partner == s.Name {
			return nil, fmt.Errorf("machine %q cannot partner itself", s.Name)
		}
		partner, ok := p.byName[s.Partner]
		if !ok {
			return nil, fmt.Errorf("machine %q: unknown partner %q", s.Name, s.Partner)
		}
		p.byName[s.Name].partner = partner
	}

	for _, m := range p.machines {
		if m.partner != nil && m.partner.partner != nil {
			return nil, fmt.Errorf("machine %q: partner %q is not a primary machine", m.name, m.partner.name)
		}
	}

	slices.SortFunc(p.machines, func(a, b *Machine) int { return cmp.Compare(a.name, b.name) })
	return p, nil
}

// Durations returns the pool's cost-model constants.
func (p *Pool) Durations() Durations { return p.durations }

// Snapshot returns the state of every machine, ordered by name.
func (p *Pool) Snapshot() []State {
	out := make([]State, 0, len(p.machines))
	for _, m := range p.machines {
		out = append(out, m.Snapshot())
	}
	return out
}

// Get returns the state of one machine.
func (p *Pool) Get(name string) (State, bool) {
	m, ok := p.byName[name]
	if !ok {
		return State{}, false
	}
	return m.Snapshot(), true
}

// BusyAfter returns the smallest busyUntil strictly greater than t, and
// false when no machine is busy after t.
func (p *Pool) BusyAfter(t int) (int, bool) {
	next, found := 0, false
	for _, m := range p.machines {
		m.mu.Lock()
		bu := m.busyUntil
		m.mu.Unlock()
		if bu > t && (!found || bu < next) {
			next, found = bu, true
		}
	}
	return next, found
}

type candidate struct {
	m   *Machine
	v   view
	pv  *view
	due int // max(now, busyUntil)
}

// Candidates returns the machines able to mount tool, with tool-already-mounted
// machines first, then by earliest availability at now, then by name.
func (p *Pool) Candidates(tool string, now int) []State {
	cs := p.candidates(tool, now)
	out := make([]State, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.m.Snapshot())
	}
	return out
}

func (p *Pool) candidates(tool string, now int) []candidate {
	var cs []candidate
	for _, m := range p.machines {
		if !m.CanMount(tool) {
			continue
		}
		c := candidate{m: m, v: m.view()}
		if m.partner != nil {
			pv := m.partner.view()
			c.pv = &pv
		}
		c.due = max(now, c.v.busyUntil)
		cs = append(cs, c)
	}

	slices.SortStableFunc(cs, func(a, b candidate) int {
		am, bm := a.v.currentTool == tool, b.v.currentTool == tool
		if am != bm {
			if am {
				return -1
			}
			return 1
		}
		if a.due != b.due {
			return cmp.Compare(a.due, b.due)
		}
		return cmp.Compare(a.v.name, b.v.name)
	})
	return cs
}

// Evaluate quotes an operation on the named machine against its current
// state without reserving anything.
func (p *Pool) Evaluate(name, tool string, ready, duration int) (Quote, error) {
	m, ok := p.byName[name]
	if !ok {
		return Quote{}, fmt.Errorf("unknown machine %q", name)
	}
	if !m.CanMount(tool) {
		return Quote{}, fmt.Errorf("machine %q cannot mount %s: %w", name, tool, ErrNoCapableMachine)
	}
	v := m.view()
	var pv *view
	if m.partner != nil {
		x := m.partner.view()
		pv = &x
	}
	return quote(v, pv, tool, ready, duration, p.durations), nil
}

// Reserve places one operation on the machine that finishes it earliest and
// commits the reservation. The operation may not start before earliestStart
// nor before now. Ties on finish time go to the earlier candidate.
func (p *Pool) Reserve(tool string, earliestStart, duration, now int) (Quote, error) {
	ready := max(now, earliestStart)

	for attempt := 1; ; attempt++ {
		cs := p.candidates(tool, now)
		if len(cs) == 0 {
			return Quote{}, fmt.Errorf("tool %s: %w", tool, ErrNoCapableMachine)
		}

		var best *candidate
		var bestQuote Quote
		for i := range cs {
			q := quote(cs[i].v, cs[i].pv, tool, ready, duration, p.durations)
			if best == nil || q.End < bestQuote.End {
				best, bestQuote = &cs[i], q
			}
		}

		if q, ok := p.commit(best.m, tool, ready, duration, bestQuote, attempt >= p.attempts); ok {
			return q, nil
		}
	}
}

// commit re-validates the quote under the machine's lock (and its partner's)
// and applies it. When the state moved since evaluation it returns false,
// unless force is set, in which case the fresh quote is applied.
func (p *Pool) commit(m *Machine, tool string, ready, duration int, expected Quote, force bool) (Quote, bool) {
	unlock := lockPair(m, m.partner)
	defer unlock()

	var pv *view
	if m.partner != nil {
		x := m.partner.viewLocked()
		pv = &x
	}
	q := quote(m.viewLocked(), pv, tool, ready, duration, p.durations)
	if !q.equal(expected) && !force {
		return q, false
	}

	m.currentTool = tool
	m.busyUntil = q.End
	if m.partner != nil && q.PassThrough != nil && q.PassThrough.End > m.partner.busyUntil {
		m.partner.busyUntil = q.PassThrough.End
	}
	return q, true
}

// lockPair locks a machine and its optional partner in name order.
func lockPair(a, b *Machine) func() {
	if b == nil {
		a.mu.Lock()
		return a.mu.Unlock
	}
	first, second := a, b
	if b.name < a.name {
		first, second = b, a
	}
	first.mu.Lock()
	second.mu.Lock()
	return func() {
		second.mu.Unlock()
		first.mu.Unlock()
	}
}

func (m *Machine) view() view {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewLocked()
}

func (m *Machine) viewLocked() view {
	return view{name: m.name, currentTool: m.currentTool, busyUntil: m.busyUntil}
}
