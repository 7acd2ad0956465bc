package graph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trellisgraph/trellis/internal/token"
)

func node(col string, tok uint64) token.ID {
	return token.NewID(col, tok)
}

// === Link ===

func TestLink_RootResolvesThroughNewEdge(t *testing.T) {
	g := New()
	a, b := node("kanaria", 1), node("kanaria", 2)

	require.NoError(t, g.Link(a, b))

	rootA, err := g.FindRoot(a)
	require.NoError(t, err)
	require.Equal(t, b, rootA, "A's root should be B after link(A→B)")

	rootB, err := g.FindRoot(b)
	require.NoError(t, err)
	require.Equal(t, b, rootB, "B stays its own root")
}

func TestLink_SelfLinkFails(t *testing.T) {
	g := New()
	a := node("kanaria", 1)

	require.ErrorIs(t, g.Link(a, a), ErrSelfLink)
	require.Zero(t, g.Len())
}

func TestLink_SecondLinkFailsWithAlreadyLinked(t *testing.T) {
	g := New()
	a, b, c := node("kanaria", 1), node("kanaria", 2), node("kanaria", 3)

	require.NoError(t, g.Link(a, b))
	require.ErrorIs(t, g.Link(a, c), ErrAlreadyLinked)

	// State unchanged: A still targets B.
	got, ok := g.Target(a)
	require.True(t, ok)
	require.Equal(t, b, got)
}

func TestLink_DirectCycleFails(t *testing.T) {
	g := New()
	a, b := node("kanaria", 1), node("kanaria", 2)

	require.NoError(t, g.Link(a, b))
	require.ErrorIs(t, g.Link(b, a), ErrCycleDetected)

	// State after the failed link is identical to before it.
	require.Equal(t, 1, g.Len())
	_, ok := g.Target(b)
	require.False(t, ok)
}

func TestLink_TransitiveCycleFails(t *testing.T) {
	g := New()
	a, b, c, d := node("c", 1), node("c", 2), node("c", 3), node("c", 4)

	require.NoError(t, g.Link(a, b))
	require.NoError(t, g.Link(b, c))
	require.NoError(t, g.Link(c, d))
	require.ErrorIs(t, g.Link(d, a), ErrCycleDetected)
}

func TestLink_CrossCollection(t *testing.T) {
	g := New()
	a, b := node("kanaria", 7), node("gems", 7)

	require.NoError(t, g.Link(a, b))
	root, err := g.FindRoot(a)
	require.NoError(t, err)
	require.Equal(t, b, root)
}

// === UpdateTarget ===

func TestUpdateTarget_ReplacesEdge(t *testing.T) {
	g := New()
	a, b, c := node("c", 1), node("c", 2), node("c", 3)

	require.NoError(t, g.Link(a, b))
	require.NoError(t, g.UpdateTarget(a, c))

	got, ok := g.Target(a)
	require.True(t, ok)
	require.Equal(t, c, got)

	// Reverse adjacency follows the replace.
	require.Empty(t, g.Children(b))
	require.Equal(t, []token.ID{a}, g.Children(c))
}

func TestUpdateTarget_UnlinkedSourceFails(t *testing.T) {
	g := New()
	require.ErrorIs(t, g.UpdateTarget(node("c", 1), node("c", 2)), ErrNotLinked)
}

func TestUpdateTarget_SelfFails(t *testing.T) {
	g := New()
	a, b := node("c", 1), node("c", 2)
	require.NoError(t, g.Link(a, b))
	require.ErrorIs(t, g.UpdateTarget(a, a), ErrSelfLink)
}

func TestUpdateTarget_CycleFails(t *testing.T) {
	g := New()
	a, b, c := node("c", 1), node("c", 2), node("c", 3)

	require.NoError(t, g.Link(a, b))
	require.NoError(t, g.Link(b, c))

	// Re-targeting B under its own child A would close the loop A→B→A.
	require.ErrorIs(t, g.UpdateTarget(b, a), ErrCycleDetected)

	// State unchanged: B still targets C.
	got, ok := g.Target(b)
	require.True(t, ok)
	require.Equal(t, c, got)
}

func TestUpdateTarget_OldEdgeIgnoredInCycleCheck(t *testing.T) {
	g := New()
	a, b := node("c", 1), node("c", 2)

	// A→B exists. Re-targeting B's subtree is irrelevant here; the point is
	// that updating A to target a node whose root-walk ends at A's old
	// target must not trip the cycle check.
	require.NoError(t, g.Link(a, b))
	c := node("c", 3)
	require.NoError(t, g.Link(c, b))
	require.NoError(t, g.UpdateTarget(a, c)) // A→C→B
	root, err := g.FindRoot(a)
	require.NoError(t, err)
	require.Equal(t, b, root)
}

// === Unlink ===

func TestUnlink_RemovesEdge(t *testing.T) {
	g := New()
	a, b := node("c", 1), node("c", 2)

	require.NoError(t, g.Link(a, b))
	require.NoError(t, g.Unlink(a))

	_, ok := g.Target(a)
	require.False(t, ok)
	require.Empty(t, g.Children(b))

	root, err := g.FindRoot(a)
	require.NoError(t, err)
	require.Equal(t, a, root, "unlinked source becomes its own root")
}

func TestUnlink_NoEdgeFails(t *testing.T) {
	g := New()
	require.ErrorIs(t, g.Unlink(node("c", 1)), ErrNotLinked)
}

func TestUnlink_ChildrenKeepTheirEdges(t *testing.T) {
	g := New()
	a, b, c := node("c", 1), node("c", 2), node("c", 3)

	require.NoError(t, g.Link(a, b))
	require.NoError(t, g.Link(b, c))
	require.NoError(t, g.Unlink(b))

	// A still hangs under B; B is now a root.
	root, err := g.FindRoot(a)
	require.NoError(t, err)
	require.Equal(t, b, root)
}

// === FindRoot / queries ===

func TestFindRoot_IsolatedNodeIsItsOwnRoot(t *testing.T) {
	g := New()
	a := node("c", 99)
	root, err := g.FindRoot(a)
	require.NoError(t, err)
	require.Equal(t, a, root)
}

func TestFindRoot_DepthBoundReportsCorruption(t *testing.T) {
	g := NewWithDepth(8)
	a, b := node("c", 1), node("c", 2)

	// Manufacture a two-node cycle behind the invariant checks.
	g.forceEdge(a, b)
	g.forceEdge(b, a)

	_, err := g.FindRoot(a)
	require.ErrorIs(t, err, ErrGraphCorrupted)
}

func TestQueries_IdempotentWithoutMutation(t *testing.T) {
	g := New()
	a, b := node("c", 1), node("c", 2)
	require.NoError(t, g.Link(a, b))

	for i := 0; i < 3; i++ {
		got, ok := g.Target(a)
		require.True(t, ok)
		require.Equal(t, b, got)

		root, err := g.FindRoot(a)
		require.NoError(t, err)
		require.Equal(t, b, root)

		require.Equal(t, []token.ID{a}, g.Children(b))
	}
}

func TestChildren_SortedAndComplete(t *testing.T) {
	g := New()
	parent := node("c", 100)
	kids := []token.ID{node("c", 3), node("c", 1), node("c", 2)}
	for _, k := range kids {
		require.NoError(t, g.Link(k, parent))
	}

	got := g.Children(parent)
	require.Equal(t, []token.ID{node("c", 1), node("c", 2), node("c", 3)}, got)
}
