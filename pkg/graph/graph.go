package graph

import "fmt"

// NodeKind separates components unioned into the body from cutters
// subtracted from it.
type NodeKind int

const (
	NodeStructural NodeKind = iota
	NodeCutter
)

func (k NodeKind) String() string {
	switch k {
	case NodeStructural:
		return "structural"
	case NodeCutter:
		return "cutter"
	default:
		return "unknown"
	}
}

// Node is one declared component.
type Node struct {
	Name  string
	Kind  NodeKind
	Index int      // declaration position
	Deps  []string // names this node reads extents from
}

// Graph is the dependency graph. Nodes keeps declaration order, including
// any duplicate names so that Validate can report them.
type Graph struct {
	Nodes []*Node
	index map[string]*Node
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{index: make(map[string]*Node)}
}

// Add appends a node. It does not check for duplicates; the first node
// with a name wins lookups.
func (g *Graph) Add(name string, kind NodeKind, deps ...string) *Node {
	n := &Node{Name: name, Kind: kind, Index: len(g.Nodes), Deps: append([]string(nil), deps...)}
	g.Nodes = append(g.Nodes, n)
	if _, ok := g.index[name]; !ok {
		g.index[name] = n
	}
	return n
}

// Lookup returns the node with the given name, or nil.
func (g *Graph) Lookup(name string) *Node {
	return g.index[name]
}

// MustLookup returns the node with the given name, or panics.
func (g *Graph) MustLookup(name string) *Node {
	n := g.Lookup(name)
	if n == nil {
		panic(fmt.Sprintf("graph: no node named %q", name))
	}
	return n
}

// Len returns the number of declared nodes.
func (g *Graph) Len() int {
	return len(g.Nodes)
}

// Dependents returns the names of nodes that depend directly on name, in
// declaration order.
func (g *Graph) Dependents(name string) []string {
	var out []string
	for _, n := range g.Nodes {
		for _, d := range n.Deps {
			if d == name {
				out = append(out, n.Name)
				break
			}
		}
	}
	return out
}

// Downstream returns every node that depends on name directly or
// transitively, in declaration order. name itself is not included.
func (g *Graph) Downstream(name string) []string {
	seen := map[string]bool{name: true}
	queue := []string{name}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range g.Dependents(cur) {
			if !seen[d] {
				seen[d] = true
				queue = append(queue, d)
			}
		}
	}
	var out []string
	for _, n := range g.Nodes {
		if n.Name != name && seen[n.Name] {
			out = append(out, n.Name)
		}
	}
	return out
}
