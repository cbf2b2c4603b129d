package coordinator

import (
	"fmt"
	"strings"

	"github.com/Mathih13/botfarm/model"
)

// depGraph is the dependency structure of a suite's test entries. Built and
// validated before any test is scheduled; a cycle or an unknown dependency
// is a fatal configuration error.
type depGraph struct {
	// order preserves suite-file order of entry keys.
	order []string
	deps  map[string][]string
}

func buildDepGraph(entries []model.SuiteTestEntry) (*depGraph, error) {
	g := &depGraph{
		order: make([]string, 0, len(entries)),
		deps:  make(map[string][]string, len(entries)),
	}

	known := make(map[string]bool, len(entries))
	for _, e := range entries {
		known[e.Key()] = true
	}

	for _, e := range entries {
		key := e.Key()
		g.order = append(g.order, key)
		for _, dep := range e.DependsOn {
			if !known[dep] {
				return nil, fmt.Errorf("test '%s' depends on unknown test '%s'", key, dep)
			}
			if dep == key {
				return nil, fmt.Errorf("test '%s' depends on itself", key)
			}
			g.deps[key] = append(g.deps[key], dep)
		}
	}

	if cycle := g.findCycle(); cycle != nil {
		return nil, fmt.Errorf("dependency cycle: %s", strings.Join(cycle, " -> "))
	}

	return g, nil
}

// Deps returns the dependency keys of an entry.
func (g *depGraph) Deps(key string) []string {
	return g.deps[key]
}

// findCycle runs a three-colour DFS and returns one cycle path, or nil.
func (g *depGraph) findCycle() []string {
	const (
		white = 0
		grey  = 1
		black = 2
	)
	colour := make(map[string]int, len(g.order))
	var stack []string
	var cycle []string

	var visit func(key string) bool
	visit = func(key string) bool {
		colour[key] = grey
		stack = append(stack, key)
		for _, dep := range g.deps[key] {
			switch colour[dep] {
			case grey:
				// Found it; slice the stack from the first occurrence.
				for i, k := range stack {
					if k == dep {
						cycle = append(append([]string{}, stack[i:]...), dep)
						return true
					}
				}
			case white:
				if visit(dep) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		colour[key] = black
		return false
	}

	for _, key := range g.order {
		if colour[key] == white && visit(key) {
			return cycle
		}
	}
	return nil
}

// TopoOrder returns a dependency-respecting order, stable with respect to
// suite-file order. Assumes the graph is already known to be acyclic.
func (g *depGraph) TopoOrder() []string {
	indegree := make(map[string]int, len(g.order))
	dependents := make(map[string][]string, len(g.order))
	for _, key := range g.order {
		indegree[key] = len(g.deps[key])
		for _, dep := range g.deps[key] {
			dependents[dep] = append(dependents[dep], key)
		}
	}

	out := make([]string, 0, len(g.order))
	for len(out) < len(g.order) {
		for _, key := range g.order {
			if indegree[key] == 0 {
				out = append(out, key)
				indegree[key] = -1
				for _, d := range dependents[key] {
					indegree[d]--
				}
			}
		}
	}
	return out
}
