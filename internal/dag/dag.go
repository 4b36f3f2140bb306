package dag

import (
	"fmt"
	"strings"
)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// AddNode adds a new node with the given ID to the graph. If a node with
// the same ID already exists, the function does nothing.
func (g *Graph) AddNode(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = &node{id: id}
	g.order = append(g.order, id)
}

// Has reports whether a node with the given ID exists.
func (g *Graph) Has(id string) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.order)
}

// AddEdge creates a directed edge from the `fromID` node to the `toID` node.
// This signifies that `toID` has a dependency on `fromID`. An error is returned
// if either node does not exist or if the edge would create a self-reference.
// Adding the same edge twice is a no-op.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", fromID, fromID)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}
	toNode, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}
	if toNode.hasDep(fromID) {
		return nil
	}

	toNode.deps = append(toNode.deps, fromNode)
	fromNode.dependents = append(fromNode.dependents, toNode)
	return nil
}

// Nodes returns every node ID in insertion order.
func (g *Graph) Nodes() []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return append([]string(nil), g.order...)
}

// Dependencies returns the IDs the given node depends on.
func (g *Graph) Dependencies(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return ids(n.deps), nil
}

// Dependents returns the IDs of nodes that depend on the given node.
func (g *Graph) Dependents(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	return ids(n.dependents), nil
}

// Sinks returns the nodes nothing depends on, in insertion order.
func (g *Graph) Sinks() []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	var out []string
	for _, id := range g.order {
		if len(g.nodes[id].dependents) == 0 {
			out = append(out, id)
		}
	}
	return out
}

// Ancestors returns the transitive dependencies of id, excluding id itself,
// in insertion order.
func (g *Graph) Ancestors(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	start, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}
	seen := make(map[string]bool)
	var walk func(n *node)
	walk = func(n *node) {
		for _, d := range n.deps {
			if !seen[d.id] {
				seen[d.id] = true
				walk(d)
			}
		}
	}
	walk(start)

	var out []string
	for _, nid := range g.order {
		if seen[nid] {
			out = append(out, nid)
		}
	}
	return out, nil
}

// FindCycle searches the graph for a dependency cycle using a depth-first
// search with three-colour marking. It returns nil when the graph is acyclic.
// Otherwise it returns the cycle as an ordered path in which every element
// depends on the next one, closed by repeating the first element:
// [a b c a] means a depends on b, b on c and c on a.
func (g *Graph) FindCycle() []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	const (
		white = iota // unvisited
		grey         // on the current DFS path
		black        // fully explored, not part of any cycle reachable from here
	)
	colour := make(map[string]int, len(g.nodes))
	var stack []string

	var visit func(n *node) []string
	visit = func(n *node) []string {
		colour[n.id] = grey
		stack = append(stack, n.id)

		for _, d := range n.deps {
			switch colour[d.id] {
			case grey:
				// Back edge: the cycle is the stack slice starting at d.
				for i, sid := range stack {
					if sid == d.id {
						cycle := append([]string(nil), stack[i:]...)
						return append(cycle, d.id)
					}
				}
			case white:
				if c := visit(d); c != nil {
					return c
				}
			}
		}

		stack = stack[:len(stack)-1]
		colour[n.id] = black
		return nil
	}

	for _, id := range g.order {
		if colour[id] == white {
			if c := visit(g.nodes[id]); c != nil {
				return c
			}
		}
	}
	return nil
}

// DetectCycles checks the graph for any cycles. It returns a non-nil error
// naming the full cycle if one is found.
func (g *Graph) DetectCycles() error {
	if c := g.FindCycle(); c != nil {
		return fmt.Errorf("cycle detected: %s", strings.Join(c, " -> "))
	}
	return nil
}

// TopologicalOrder returns node IDs such that every node appears after all of
// its dependencies. Ties are broken by insertion order. It fails on a cycle.
func (g *Graph) TopologicalOrder() ([]string, error) {
	if err := g.DetectCycles(); err != nil {
		return nil, err
	}

	g.mutex.RLock()
	defer g.mutex.RUnlock()

	remaining := make(map[string]int, len(g.nodes))
	for _, id := range g.order {
		remaining[id] = len(g.nodes[id].deps)
	}

	out := make([]string, 0, len(g.order))
	done := make(map[string]bool, len(g.order))
	for len(out) < len(g.order) {
		for _, id := range g.order {
			if done[id] || remaining[id] != 0 {
				continue
			}
			done[id] = true
			out = append(out, id)
			for _, dep := range g.nodes[id].dependents {
				remaining[dep.id]--
			}
			break
		}
	}
	return out, nil
}

func ids(nodes []*node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.id)
	}
	return out
}
