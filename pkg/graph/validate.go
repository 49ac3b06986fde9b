package graph

import (
	"fmt"
	"strings"
)

// ValidationSeverity indicates whether a validation finding blocks the
// build or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // blocks the build
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding. Err holds the
// typed error for blocking findings about dependencies.
type ValidationError struct {
	Node     string // empty if graph-level
	Message  string
	Severity ValidationSeverity
	Err      error
}

func (e ValidationError) Error() string {
	if e.Node == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] component %q: %s", e.Severity, e.Node, e.Message)
}

func (e ValidationError) Unwrap() error { return e.Err }

// DependencyErrorKind classifies dependency failures.
type DependencyErrorKind int

const (
	Missing DependencyErrorKind = iota
	Cycle
)

func (k DependencyErrorKind) String() string {
	if k == Cycle {
		return "cycle"
	}
	return "missing dependency"
}

// DependencyError is a configuration error found while resolving the
// graph. Path lists the cycle, first node repeated at the end.
type DependencyError struct {
	Kind DependencyErrorKind
	Node string
	Ref  string // missing name, Missing only
	Path []string
}

func (e *DependencyError) Error() string {
	if e.Kind == Cycle {
		return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Path, " -> "))
	}
	return fmt.Sprintf("component %q depends on unknown component %q", e.Node, e.Ref)
}

// Is matches any *DependencyError of the same kind.
func (e *DependencyError) Is(target error) bool {
	t, ok := target.(*DependencyError)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrMissing = &DependencyError{Kind: Missing}
	ErrCycle   = &DependencyError{Kind: Cycle}
)

// Validate runs the structural checks and returns every finding. An empty
// slice means the graph can be ordered. It never mutates the graph.
func Validate(g *Graph) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateNames(g)...)
	errs = append(errs, validateReferences(g)...)
	errs = append(errs, validateDAG(g)...)
	return errs
}

// Check returns the first blocking finding of Validate as an error, or nil.
func Check(g *Graph) error {
	for _, e := range Validate(g) {
		if e.Severity != SeverityError {
			continue
		}
		if e.Err != nil {
			return e.Err
		}
		return e
	}
	return nil
}

// validateNames rejects empty and duplicate names.
func validateNames(g *Graph) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]int)
	for _, n := range g.Nodes {
		if n.Name == "" {
			errs = append(errs, ValidationError{
				Message:  fmt.Sprintf("component %d has no name", n.Index),
				Severity: SeverityError,
			})
			continue
		}
		if first, ok := seen[n.Name]; ok {
			errs = append(errs, ValidationError{
				Node:     n.Name,
				Message:  fmt.Sprintf("name already declared by component %d", first),
				Severity: SeverityError,
			})
			continue
		}
		seen[n.Name] = n.Index
	}
	return errs
}

// validateReferences checks that every dependency names a declared node
// and flags self references and cutter dependencies.
func validateReferences(g *Graph) []ValidationError {
	var errs []ValidationError
	for _, n := range g.Nodes {
		for _, d := range n.Deps {
			target := g.Lookup(d)
			switch {
			case target == nil:
				errs = append(errs, ValidationError{
					Node:     n.Name,
					Message:  fmt.Sprintf("depends on unknown component %q", d),
					Severity: SeverityError,
					Err:      &DependencyError{Kind: Missing, Node: n.Name, Ref: d},
				})
			case target.Kind == NodeCutter && n.Kind == NodeStructural:
				errs = append(errs, ValidationError{
					Node:     n.Name,
					Message:  fmt.Sprintf("reads extents of cutter %q", d),
					Severity: SeverityWarning,
				})
			}
		}
	}
	return errs
}

// validateDAG checks for cycles using DFS with 3-color marking.
// White (0) = unvisited, gray (1) = in current DFS path, black (2) = fully explored.
// If we encounter a gray node during traversal, we have found a cycle.
func validateDAG(g *Graph) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int)
	var stack []string
	var errs []ValidationError

	var visit func(n *Node) bool
	visit = func(n *Node) bool {
		switch color[n.Name] {
		case black:
			return false
		case gray:
			start := 0
			for i, s := range stack {
				if s == n.Name {
					start = i
				}
			}
			path := append(append([]string(nil), stack[start:]...), n.Name)
			errs = append(errs, ValidationError{
				Node:     n.Name,
				Message:  "is part of a dependency cycle",
				Severity: SeverityError,
				Err:      &DependencyError{Kind: Cycle, Node: n.Name, Path: path},
			})
			return true
		}

		color[n.Name] = gray
		stack = append(stack, n.Name)
		for _, d := range n.Deps {
			// Dangling references are reported by validateReferences.
			if next := g.Lookup(d); next != nil && visit(next) {
				return true
			}
		}
		stack = stack[:len(stack)-1]
		color[n.Name] = black
		return false
	}

	// Start from every node in declaration order so the reported cycle is
	// deterministic. One cycle is enough.
	for _, n := range g.Nodes {
		if color[n.Name] == white && visit(n) {
			break
		}
	}
	return errs
}
