// Package graph holds the component dependency graph of a reactor.
// Nodes are components in declaration order; an edge A -> B means A reads
// the extents of B, so B must be built first. The graph is validated for
// missing references, duplicate names and cycles before anything is built.
package graph
