// Package routing computes manufacturing plans over the processing network.
package routing

import (
	"fmt"
	"sort"
)

// Edge is one manufacturing operation leaving a piece.
type Edge struct {
	To       string
	Duration int // seconds
	Tool     string
}

// Network is a directed graph of pieces. Each edge transforms its source
// piece into its destination piece.
type Network struct {
	adj map[string][]Edge
}

// NewNetwork creates an empty network.
func NewNetwork() *Network {
	return &Network{adj: make(map[string][]Edge)}
}

// AddNode registers a piece with no outgoing operations.
func (n *Network) AddNode(piece string) {
	if _, ok := n.adj[piece]; !ok {
		n.adj[piece] = nil
	}
}

// AddEdge registers an operation from one piece to another.
// Both endpoints become nodes of the network.
func (n *Network) AddEdge(from, to string, duration int, tool string) error {
	if duration < 0 {
		return fmt.Errorf("edge %s->%s: negative duration %d", from, to, duration)
	}
	if tool == "" {
		return fmt.Errorf("edge %s->%s: tool is required", from, to)
	}
	n.AddNode(to)
	n.adj[from] = append(n.adj[from], Edge{To: to, Duration: duration, Tool: tool})
	return nil
}

// Has reports whether the piece is a node of the network.
func (n *Network) Has(piece string) bool {
	_, ok := n.adj[piece]
	return ok
}

// Edges returns the operations leaving a piece.
func (n *Network) Edges(piece string) []Edge {
	return n.adj[piece]
}

// Nodes returns all pieces in lexical order.
func (n *Network) Nodes() []string {
	nodes := make([]string, 0, len(n.adj))
	for node := range n.adj {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	return nodes
}

// Operation is one edge traversal, i.e. one manufacturing step.
type Operation struct {
	From     string `json:"from_piece"`
	To       string `json:"to_piece"`
	Tool     string `json:"tool"`
	Duration int    `json:"duration"`
}

func (o Operation) String() string {
	return fmt.Sprintf("%s -> %s (Tool: %s)", o.From, o.To, o.Tool)
}

// Plan is the chronological sequence of operations from a raw material
// to a target piece.
type Plan struct {
	Target     string
	Operations []Operation
}

// Total returns the sum of the operation durations.
func (p Plan) Total() int {
	total := 0
	for _, op := range p.Operations {
		total += op.Duration
	}
	return total
}

// ProductNode maps an integer product type to its network node.
func ProductNode(productType int) string {
	return fmt.Sprintf("P%d", productType)
}
