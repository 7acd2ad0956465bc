package graph

import "github.com/trellisgraph/trellis/internal/token"

// forceEdge inserts an edge without any invariant checks. Tests use it to
// manufacture states that Link/UpdateTarget refuse to create.
func (g *Graph) forceEdge(source, target token.ID) {
	g.insert(source, target)
}
