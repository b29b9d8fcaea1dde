package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/thisme/internal/ir"
	"github.com/roach88/thisme/internal/operator"
)

// CycleWarning represents a pointer cycle created by a profile's seed.
//
// Cycles are warnings, not errors: reads through a cycle stop after a
// bounded number of hops and come back hidden.
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["a", "b", "a"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" or "info"
}

// AnalyzeCycles finds pointer cycles among a profile's seed writes.
//
// The algorithm:
//  1. Register the profile's tokens over the defaults to learn which
//     leaves are pointer tokens
//  2. Build a graph scope -> pointer scope for every pointer seed whose
//     target is at or under another pointer scope
//  3. Use Tarjan's algorithm to find strongly connected components
//  4. Report each SCC with size > 1 or self-loops as a cycle warning
//
// An acyclic seed returns an empty warning list.
func AnalyzeCycles(p *ir.Profile) []CycleWarning {
	reg := operator.NewRegistry()
	for _, def := range p.Operators {
		// Invalid definitions are reported by Validate.
		_ = reg.Define(def.Token, operator.Kind(def.Kind))
	}

	pointers := make(map[string]string) // scope -> target
	for _, w := range p.Seed {
		if len(w.Args) != 1 {
			continue
		}
		target, ok := w.Args[0].(ir.IRString)
		if !ok {
			continue
		}
		scope, leaf, ok := ir.ParsePath(w.Path).Split()
		if !ok || len(scope) == 0 || !reg.Is(leaf, operator.KindPointer) {
			continue
		}
		t := strings.TrimPrefix(strings.TrimSpace(string(target)), ".")
		if t == "" {
			continue
		}
		pointers[scope.String()] = t
	}
	if len(pointers) == 0 {
		return []CycleWarning{}
	}

	graph := buildDependencyGraph(pointers)
	sccs := tarjanSCC(graph)

	warnings := []CycleWarning{}
	for _, scc := range sccs {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}
	sort.Slice(warnings, func(i, j int) bool { return warnings[i].Path[0] < warnings[j].Path[0] })
	return warnings
}

// dependencyGraph maps a pointer scope to the pointer scopes its target
// resolves through.
type dependencyGraph map[string][]string

// buildDependencyGraph adds an edge scope -> other when scope's target is
// at or under other, since reads redirect through ancestor pointers.
func buildDependencyGraph(pointers map[string]string) dependencyGraph {
	scopes := make([]string, 0, len(pointers))
	for scope := range pointers {
		scopes = append(scopes, scope)
	}
	sort.Strings(scopes)

	graph := make(dependencyGraph)
	for _, scope := range scopes {
		graph[scope] = []string{}
		for _, other := range scopes {
			if ir.IsAtOrUnder(pointers[scope], other) {
				graph[scope] = append(graph[scope], other)
			}
		}
	}
	return graph
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph dependencyGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(graph dependencyGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// cycleSCCToWarning converts an SCC to a CycleWarning. The path starts at
// the smallest scope in the SCC.
func cycleSCCToWarning(scc []string, graph dependencyGraph) CycleWarning {
	sort.Strings(scc)
	if len(scc) == 1 {
		scope := scc[0]
		return CycleWarning{
			Path:    []string{scope, scope},
			Message: fmt.Sprintf("Pointer at %s resolves through itself", scope),
			Level:   "warning",
		}
	}

	path := reconstructCyclePath(scc, graph)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("Pointer cycle detected: %s", strings.Join(path, " -> ")),
		Level:   "warning",
	}
}

// reconstructCyclePath follows edges inside the SCC from its first node
// until it returns to the start.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	sccSet := make(map[string]bool)
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}

		if next == "" {
			break
		}

		path = append(path, next)

		if next == start {
			break
		}

		current = next
	}

	return path
}
