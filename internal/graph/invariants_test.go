package graph

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/trellisgraph/trellis/internal/token"
)

// TestGraph_Invariants_RandomOperations drives the graph through random
// link/retarget/unlink sequences and checks after every step that the
// forest invariants hold: acyclicity (every root walk terminates inside
// the bound), single parent (implied by the map representation but checked
// via reverse adjacency), and that failed operations left no trace.
func TestGraph_Invariants_RandomOperations(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g := NewWithDepth(256)

		// Small node universe so operations actually collide.
		universe := make([]token.ID, 12)
		for i := range universe {
			universe[i] = token.NewID("c", uint64(i+1))
		}
		pick := rapid.SampledFrom(universe)

		numOps := rapid.IntRange(1, 200).Draw(t, "numOps")
		for i := 0; i < numOps; i++ {
			source := pick.Draw(t, "source")
			target := pick.Draw(t, "target")

			before := snapshot(g)

			var err error
			switch rapid.IntRange(0, 2).Draw(t, "op") {
			case 0:
				err = g.Link(source, target)
			case 1:
				err = g.UpdateTarget(source, target)
			case 2:
				err = g.Unlink(source)
			}

			if err != nil {
				// Failed operations must leave state unchanged.
				require.Equal(t, before, snapshot(g))
			}

			checkForest(t, g, universe)
		}
	})
}

// snapshot captures the edge set as a plain map for equality checks.
func snapshot(g *Graph) map[token.ID]token.ID {
	out := make(map[token.ID]token.ID, g.Len())
	g.Edges(func(s, tgt token.ID) { out[s] = tgt })
	return out
}

// checkForest asserts acyclicity, root termination, and reverse-adjacency
// coherence for every node in the universe.
func checkForest(t require.TestingT, g *Graph, universe []token.ID) {
	for _, n := range universe {
		root, err := g.FindRoot(n)
		require.NoError(t, err, "root walk from %s must terminate", n)

		_, hasTarget := g.Target(root)
		require.False(t, hasTarget, "root %s must have no outgoing edge", root)

		if target, ok := g.Target(n); ok {
			require.Contains(t, g.Children(target), n,
				"reverse adjacency must contain %s under %s", n, target)
		}
	}
}
