package graph

import "sort"

// Order returns the node names in build order: a topological order of the
// dependency edges (Kahn's algorithm) where, among the nodes that are
// ready, the one declared first goes next. The graph must pass Check.
func Order(g *Graph) ([]string, error) {
	if err := Check(g); err != nil {
		return nil, err
	}
	indegree := indegrees(g)
	var ready []*Node
	for _, n := range g.Nodes {
		if indegree[n.Name] == 0 {
			ready = append(ready, n)
		}
	}
	out := make([]string, 0, g.Len())
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i].Index < ready[j].Index })
		n := ready[0]
		ready = ready[1:]
		out = append(out, n.Name)
		for _, d := range g.Dependents(n.Name) {
			indegree[d]--
			if indegree[d] == 0 {
				ready = append(ready, g.MustLookup(d))
			}
		}
	}
	if len(out) != g.Len() {
		return nil, &DependencyError{Kind: Cycle}
	}
	return out, nil
}

func indegrees(g *Graph) map[string]int {
	indegree := make(map[string]int, len(g.Nodes))
	for _, n := range g.Nodes {
		indegree[n.Name] = len(uniq(n.Deps))
	}
	return indegree
}

// Levels groups the build order into waves. Every node in a wave depends
// only on nodes of earlier waves, so a wave can be built in parallel.
// Within a wave nodes keep declaration order.
func Levels(g *Graph) ([][]string, error) {
	if err := Check(g); err != nil {
		return nil, err
	}

	indegree := indegrees(g)
	var ready []*Node
	for _, n := range g.Nodes {
		if indegree[n.Name] == 0 {
			ready = append(ready, n)
		}
	}

	var levels [][]string
	done := 0
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i].Index < ready[j].Index })
		level := make([]string, len(ready))
		var next []*Node
		for i, n := range ready {
			level[i] = n.Name
			for _, d := range g.Dependents(n.Name) {
				indegree[d]--
				if indegree[d] == 0 {
					next = append(next, g.MustLookup(d))
				}
			}
		}
		done += len(ready)
		levels = append(levels, level)
		ready = next
	}

	if done != g.Len() {
		// Check rejects cycles, so this only happens if the graph changed.
		return nil, &DependencyError{Kind: Cycle}
	}
	return levels, nil
}

func uniq(names []string) []string {
	seen := make(map[string]bool, len(names))
	var out []string
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
