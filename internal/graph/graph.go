// Package graph maintains the link forest: a parent-pointer structure over
// node IDs where every node has at most one outgoing edge (its target) and
// the edge relation is acyclic at all times.
//
// Edges are stored as a map keyed by node ID, never as language-level
// references, so removal and replacement are O(1) map updates. Roots are
// never cached; FindRoot re-walks the target chain on every call. The lazy
// design keeps exactly one invariant to maintain: acyclicity. See the
// defensive bound on walks for the safety net against that invariant ever
// breaking.
package graph

import (
	"sort"

	"github.com/trellisgraph/trellis/internal/token"
)

// DefaultMaxDepth bounds root-ward walks. Real compositions are tens of
// levels deep at most; exceeding this bound means the forest invariant is
// broken, not that the input was large.
const DefaultMaxDepth = 4096

// Graph is the link forest. It is not safe for concurrent use; the
// composition protocol owns it exclusively and serializes all access.
type Graph struct {
	targets  map[token.ID]token.ID
	children map[token.ID]map[token.ID]struct{}
	maxDepth int
}

// New returns an empty graph with the default depth bound.
func New() *Graph {
	return NewWithDepth(DefaultMaxDepth)
}

// NewWithDepth returns an empty graph with a custom depth bound.
// Bounds below 1 fall back to the default.
func NewWithDepth(maxDepth int) *Graph {
	if maxDepth < 1 {
		maxDepth = DefaultMaxDepth
	}
	return &Graph{
		targets:  make(map[token.ID]token.ID),
		children: make(map[token.ID]map[token.ID]struct{}),
		maxDepth: maxDepth,
	}
}

// Len returns the number of edges.
func (g *Graph) Len() int {
	return len(g.targets)
}

// Target returns source's current target, if any.
func (g *Graph) Target(source token.ID) (token.ID, bool) {
	t, ok := g.targets[source]
	return t, ok
}

// Children returns the nodes whose target is the given node, sorted by
// canonical ID for deterministic enumeration.
func (g *Graph) Children(target token.ID) []token.ID {
	set := g.children[target]
	if len(set) == 0 {
		return nil
	}
	out := make([]token.ID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// FindRoot walks target edges from node until a node with no outgoing edge
// is found. Returns ErrGraphCorrupted if the walk exceeds the depth bound.
func (g *Graph) FindRoot(node token.ID) (token.ID, error) {
	cur := node
	for i := 0; i < g.maxDepth; i++ {
		next, ok := g.targets[cur]
		if !ok {
			return cur, nil
		}
		cur = next
	}
	return token.ID{}, ErrGraphCorrupted
}

// CheckLink validates Link's preconditions without mutating.
func (g *Graph) CheckLink(source, target token.ID) error {
	if source == target {
		return ErrSelfLink
	}
	if _, ok := g.targets[source]; ok {
		return ErrAlreadyLinked
	}
	return g.checkNoCycle(source, target)
}

// Link inserts the edge source→target.
// Fails with ErrSelfLink, ErrAlreadyLinked, or ErrCycleDetected; on any
// failure the graph is unchanged.
func (g *Graph) Link(source, target token.ID) error {
	if err := g.CheckLink(source, target); err != nil {
		return err
	}
	g.insert(source, target)
	return nil
}

// CheckUpdateTarget validates UpdateTarget's preconditions without mutating.
func (g *Graph) CheckUpdateTarget(source, newTarget token.ID) error {
	if source == newTarget {
		return ErrSelfLink
	}
	if _, ok := g.targets[source]; !ok {
		return ErrNotLinked
	}
	// The old edge is conceptually removed before the check: a root-ward
	// walk from newTarget can only reach source as a terminal node, so the
	// same reachability test applies.
	return g.checkNoCycle(source, newTarget)
}

// UpdateTarget atomically replaces source's existing edge with
// source→newTarget. Fails with ErrNotLinked if source has no edge,
// ErrSelfLink, or ErrCycleDetected; on any failure the graph is unchanged.
func (g *Graph) UpdateTarget(source, newTarget token.ID) error {
	if err := g.CheckUpdateTarget(source, newTarget); err != nil {
		return err
	}
	g.remove(source)
	g.insert(source, newTarget)
	return nil
}

// Unlink removes source's outgoing edge; source becomes its own root.
// Fails with ErrNotLinked if source has no edge.
func (g *Graph) Unlink(source token.ID) error {
	if _, ok := g.targets[source]; !ok {
		return ErrNotLinked
	}
	g.remove(source)
	return nil
}

// checkNoCycle walks root-ward from `from` and fails with ErrCycleDetected
// if the walk reaches source. O(depth) per call, which is the right
// trade-off for a structure whose depth stays small while mutation and
// query rates dominate.
func (g *Graph) checkNoCycle(source, from token.ID) error {
	cur := from
	for i := 0; i < g.maxDepth; i++ {
		if cur == source {
			return ErrCycleDetected
		}
		next, ok := g.targets[cur]
		if !ok {
			return nil
		}
		cur = next
	}
	return ErrGraphCorrupted
}

func (g *Graph) insert(source, target token.ID) {
	g.targets[source] = target
	set, ok := g.children[target]
	if !ok {
		set = make(map[token.ID]struct{})
		g.children[target] = set
	}
	set[source] = struct{}{}
}

func (g *Graph) remove(source token.ID) {
	target := g.targets[source]
	delete(g.targets, source)
	if set, ok := g.children[target]; ok {
		delete(set, source)
		if len(set) == 0 {
			delete(g.children, target)
		}
	}
}

// Edges calls fn for every edge. Iteration order is unspecified.
// Used by persistence to snapshot the edge set.
func (g *Graph) Edges(fn func(source, target token.ID)) {
	for s, t := range g.targets {
		fn(s, t)
	}
}
