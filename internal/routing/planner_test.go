package routing

import (
	"errors"
	"testing"
)

// referenceNetwork mirrors the default plant's processing graph.
func referenceNetwork(t *testing.T) *Network {
	t.Helper()
	n := NewNetwork()
	edges := []struct {
		from, to string
		dur      int
		tool     string
	}{
		{"P1", "P3", 20, "T1"},
		{"P3", "P4", 20, "T2"},
		{"P4", "P5", 45, "T3"},
		{"P4", "P9", 20, "T2"},
		{"P5", "P8", 45, "T4"},
		{"P5", "P7", 30, "T6"},
		{"P8", "P6", 30, "T5"},
		{"P2", "P9", 15, "T6"},
		{"P9", "P10", 20, "T5"},
		{"P9", "P11", 30, "T1"},
	}
	for _, e := range edges {
		if err := n.AddEdge(e.from, e.to, e.dur, e.tool); err != nil {
			t.Fatalf("AddEdge(%s,%s): %v", e.from, e.to, err)
		}
	}
	return n
}

// bruteForce enumerates every simple path from the sources and returns
// the minimum total time to reach target, or -1.
func bruteForce(n *Network, target string, sources []string) int {
	best := -1
	var walk func(node string, acc int, seen map[string]bool)
	walk = func(node string, acc int, seen map[string]bool) {
		if node == target {
			if best < 0 || acc < best {
				best = acc
			}
			return
		}
		for _, e := range n.Edges(node) {
			if seen[e.To] {
				continue
			}
			seen[e.To] = true
			walk(e.To, acc+e.Duration, seen)
			delete(seen, e.To)
		}
	}
	for _, s := range sources {
		if n.Has(s) {
			walk(s, 0, map[string]bool{s: true})
		}
	}
	return best
}

func TestShortestPlan_Optimality(t *testing.T) {
	n := referenceNetwork(t)
	sources := []string{"P1", "P2"}

	for _, target := range n.Nodes() {
		t.Run(target, func(t *testing.T) {
			plan, err := ShortestPlan(n, target, sources)
			want := bruteForce(n, target, sources)

			if want < 0 {
				if !errors.Is(err, ErrRouteNotFound) {
					t.Fatalf("expected ErrRouteNotFound, got plan %+v err %v", plan, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if plan.Total() != want {
				t.Errorf("total = %d, want %d", plan.Total(), want)
			}

			// Chained and anchored at a source.
			if len(plan.Operations) > 0 {
				first := plan.Operations[0].From
				if first != "P1" && first != "P2" {
					t.Errorf("plan starts at %s, want a raw material", first)
				}
				for i := 1; i < len(plan.Operations); i++ {
					if plan.Operations[i-1].To != plan.Operations[i].From {
						t.Errorf("operations %d and %d are not chained", i-1, i)
					}
				}
				if last := plan.Operations[len(plan.Operations)-1].To; last != target {
					t.Errorf("plan ends at %s, want %s", last, target)
				}
			}
		})
	}
}

func TestShortestPlan_KnownRoutes(t *testing.T) {
	n := referenceNetwork(t)

	tests := []struct {
		target string
		total  int
		steps  int
	}{
		{"P5", 85, 3},
		{"P7", 115, 4},
		{"P6", 160, 5},
		{"P9", 15, 1},  // P2 -> P9 beats P1 -> P3 -> P4 -> P9
		{"P11", 45, 2}, // via P9
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			plan, err := ShortestPlan(n, tt.target, []string{"P1", "P2"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if plan.Total() != tt.total {
				t.Errorf("total = %d, want %d", plan.Total(), tt.total)
			}
			if len(plan.Operations) != tt.steps {
				t.Errorf("steps = %d, want %d", len(plan.Operations), tt.steps)
			}
		})
	}
}

func TestShortestPlan_NotFound(t *testing.T) {
	n := referenceNetwork(t)

	tests := []struct {
		name    string
		target  string
		sources []string
	}{
		{"unknown node", "P42", []string{"P1", "P2"}},
		{"unreachable from sources", "P5", []string{"P2"}},
		{"no sources in network", "P5", []string{"X1"}},
		{"raw material only reaches downstream", "P1", []string{"P2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := ShortestPlan(n, tt.target, tt.sources)
			if !errors.Is(err, ErrRouteNotFound) {
				t.Fatalf("expected ErrRouteNotFound, got %v", err)
			}
			if len(plan.Operations) != 0 {
				t.Errorf("expected no operations, got %d", len(plan.Operations))
			}
		})
	}
}

func TestShortestPlan_TargetIsSource(t *testing.T) {
	n := referenceNetwork(t)

	plan, err := ShortestPlan(n, "P1", []string{"P1", "P2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Operations) != 0 || plan.Total() != 0 {
		t.Errorf("expected empty plan, got %+v", plan)
	}
}

func TestShortestPlan_ScenarioA(t *testing.T) {
	n := NewNetwork()
	n.AddEdge("P1", "P3", 20, "T1")
	n.AddEdge("P3", "P4", 20, "T2")

	plan, err := ShortestPlan(n, "P4", []string{"P1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Total() != 40 {
		t.Errorf("total = %d, want 40", plan.Total())
	}
	want := []Operation{
		{From: "P1", To: "P3", Tool: "T1", Duration: 20},
		{From: "P3", To: "P4", Tool: "T2", Duration: 20},
	}
	for i, op := range want {
		if plan.Operations[i] != op {
			t.Errorf("operation %d = %+v, want %+v", i, plan.Operations[i], op)
		}
	}
}

func TestAddEdge_Validation(t *testing.T) {
	n := NewNetwork()
	if err := n.AddEdge("A", "B", -1, "T1"); err == nil {
		t.Error("expected error for negative duration")
	}
	if err := n.AddEdge("A", "B", 1, ""); err == nil {
		t.Error("expected error for missing tool")
	}
	if err := n.AddEdge("A", "B", 0, "T1"); err != nil {
		t.Errorf("zero duration should be accepted: %v", err)
	}
	if !n.Has("B") {
		t.Error("edge destination should become a node")
	}
}

func TestProductNode(t *testing.T) {
	if got := ProductNode(5); got != "P5" {
		t.Errorf("ProductNode(5) = %s, want P5", got)
	}
}
