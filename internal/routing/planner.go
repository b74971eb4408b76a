package routing

import (
	"container/heap"
	"errors"
)

// ErrRouteNotFound is returned when the target cannot be reached from any
// raw material.
var ErrRouteNotFound = errors.New("no manufacturing plan")

type step struct {
	from     string
	tool     string
	duration int
}

type entry struct {
	node string
	dist int
}

type frontier []entry

func (f frontier) Len() int { return len(f) }
func (f frontier) Less(i, j int) bool {
	if f[i].dist != f[j].dist {
		return f[i].dist < f[j].dist
	}
	return f[i].node < f[j].node
}
func (f frontier) Swap(i, j int) { f[i], f[j] = f[j], f[i] }
func (f *frontier) Push(x any)   { *f = append(*f, x.(entry)) }
func (f *frontier) Pop() any {
	old := *f
	e := old[len(old)-1]
	*f = old[:len(old)-1]
	return e
}

// ShortestPlan returns the minimum-time plan that produces target from any
// of the given source pieces. Sources missing from the network are ignored.
// It returns ErrRouteNotFound when the target is absent or unreachable.
func ShortestPlan(net *Network, target string, sources []string) (Plan, error) {
	if net == nil || !net.Has(target) {
		return Plan{}, ErrRouteNotFound
	}

	dist := make(map[string]int)
	prev := make(map[string]step)
	visited := make(map[string]bool)
	pq := &frontier{}

	for _, src := range sources {
		if !net.Has(src) {
			continue
		}
		if _, seeded := dist[src]; !seeded {
			dist[src] = 0
			heap.Push(pq, entry{node: src, dist: 0})
		}
	}

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(entry)
		if visited[cur.node] {
			continue
		}
		visited[cur.node] = true
		if cur.node == target {
			break
		}

		for _, e := range net.Edges(cur.node) {
			nd := cur.dist + e.Duration
			if d, ok := dist[e.To]; ok && nd >= d {
				continue
			}
			dist[e.To] = nd
			prev[e.To] = step{from: cur.node, tool: e.Tool, duration: e.Duration}
			heap.Push(pq, entry{node: e.To, dist: nd})
		}
	}

	if !visited[target] {
		return Plan{}, ErrRouteNotFound
	}

	var ops []Operation
	for node := target; ; {
		s, ok := prev[node]
		if !ok {
			break
		}
		ops = append(ops, Operation{From: s.from, To: node, Tool: s.tool, Duration: s.duration})
		node = s.from
	}
	for i, j := 0, len(ops)-1; i < j; i, j = i+1, j-1 {
		ops[i], ops[j] = ops[j], ops[i]
	}

	return Plan{Target: target, Operations: ops}, nil
}
