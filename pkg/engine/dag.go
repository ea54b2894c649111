package engine

import (
	"fmt"
	"sort"
	"strings"
)

// DependencyGraph holds package dependency edges. An edge A -> B means A
// depends on B, so B must be installed first.
type DependencyGraph struct {
	// edges maps a node to its dependencies in declaration order
	edges map[string][]string

	// nodes lists every node in insertion order
	nodes []string
}

// NewDependencyGraph creates an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{edges: make(map[string][]string)}
}

// AddNode adds node without edges. Adding a known node is a no-op.
func (g *DependencyGraph) AddNode(node string) {
	if _, ok := g.edges[node]; ok {
		return
	}
	g.edges[node] = nil
	g.nodes = append(g.nodes, node)
}

// AddEdge records that from depends on to.
func (g *DependencyGraph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	for _, existing := range g.edges[from] {
		if existing == to {
			return
		}
	}
	g.edges[from] = append(g.edges[from], to)
}

// Nodes returns the nodes in insertion order.
func (g *DependencyGraph) Nodes() []string {
	return append([]string(nil), g.nodes...)
}

// Edges returns a copy of the adjacency map.
func (g *DependencyGraph) Edges() map[string][]string {
	out := make(map[string][]string, len(g.edges))
	for k, v := range g.edges {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Order returns an install order for requested, or every node when
// requested is empty.
func (g *DependencyGraph) Order(requested []string) ([]string, error) {
	if len(requested) == 0 {
		requested = g.nodes
	}
	return ResolveOrder(requested, g.edges)
}

const (
	unvisited = iota
	inProgress
	done
)

// ResolveOrder returns requested and their transitive dependencies in
// depth-first post-order: every dependency precedes its dependents and no
// name appears twice. A cycle yields a ResolutionError wrapping *CycleError.
func ResolveOrder(requested []string, edges map[string][]string) ([]string, error) {
	state := make(map[string]int)
	order := make([]string, 0, len(requested))
	var path []string

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case done:
			return nil
		case inProgress:
			start := 0
			for i, p := range path {
				if p == name {
					start = i
					break
				}
			}
			cycle := append(append([]string(nil), path[start:]...), name)
			return NewResolutionError(
				fmt.Sprintf("circular dependency detected: %s", formatCycle(cycle)),
				&CycleError{Path: cycle},
			).WithCode(ErrCodeCycle).WithResource(name)
		}

		state[name] = inProgress
		path = append(path, name)
		for _, dep := range edges[name] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		state[name] = done
		order = append(order, name)
		return nil
	}

	for _, name := range requested {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// Levels groups nodes so that every node's dependencies sit in earlier
// levels. Nodes in one level are sorted by name.
func (g *DependencyGraph) Levels() ([][]string, error) {
	if _, err := g.Order(nil); err != nil {
		return nil, err
	}

	remaining := make(map[string]int, len(g.edges))
	dependents := make(map[string][]string, len(g.edges))
	for node, deps := range g.edges {
		remaining[node] = len(deps)
		for _, dep := range deps {
			dependents[dep] = append(dependents[dep], node)
		}
	}

	var current []string
	for node, n := range remaining {
		if n == 0 {
			current = append(current, node)
		}
	}

	var levels [][]string
	for len(current) > 0 {
		sort.Strings(current)
		levels = append(levels, current)

		var next []string
		for _, node := range current {
			for _, dependent := range dependents[node] {
				remaining[dependent]--
				if remaining[dependent] == 0 {
					next = append(next, dependent)
				}
			}
		}
		current = next
	}
	return levels, nil
}

// ToDOT generates a DOT format representation of the graph for
// visualization. Edges point from a package to its dependency.
func (g *DependencyGraph) ToDOT() string {
	var sb strings.Builder

	sb.WriteString("digraph Dependencies {\n")
	sb.WriteString("  rankdir=LR;\n")
	sb.WriteString("  node [shape=box, style=rounded];\n\n")

	levels, err := g.Levels()
	if err != nil {
		levels = [][]string{g.Nodes()}
	}
	for level, nodes := range levels {
		sb.WriteString(fmt.Sprintf("  subgraph cluster_level_%d {\n", level))
		sb.WriteString(fmt.Sprintf("    label=\"Level %d\";\n", level))
		sb.WriteString("    style=dashed;\n")
		for _, node := range nodes {
			sb.WriteString(fmt.Sprintf("    %q;\n", node))
		}
		sb.WriteString("  }\n\n")
	}

	for _, node := range g.nodes {
		for _, dep := range g.edges[node] {
			sb.WriteString(fmt.Sprintf("  %q -> %q;\n", node, dep))
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

// formatCycle formats a cycle path for error messages.
func formatCycle(cycle []string) string {
	if len(cycle) == 0 {
		return ""
	}
	return strings.Join(cycle, " -> ")
}
