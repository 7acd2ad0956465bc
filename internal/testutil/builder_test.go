package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuilder_MintsAndLinks(t *testing.T) {
	f := NewFixture(t, "kanaria", "gold", "gems")

	b := f.Build(t).
		WithToken(1, "alice").
		WithToken(2, "alice").
		WithToken(3, "alice").
		WithLink("alice", 1, 2).
		WithLink("alice", 2, 3)
	p := b.Protocol()

	root, err := p.FindRootToken(b.ID(1))
	require.NoError(t, err)
	require.Equal(t, b.ID(3), root)

	owner, err := f.Collection.OwnerOf(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, "alice", owner, "root keeps its owner")

	owner, err = f.Collection.OwnerOf(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, p.EngineAddress(), owner, "linked token moves to engine custody")
}

func TestBuilder_SeedsBalances(t *testing.T) {
	f := NewFixture(t, "kanaria", "gold", "gems")

	f.Build(t).
		WithFunds("alice", 500).
		WithUnits("alice", 7, 12).
		Protocol()

	balance, err := f.Currency.BalanceOf(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, uint64(500), balance)

	units, err := f.MultiAsset.BalanceOf(context.Background(), "alice", 7)
	require.NoError(t, err)
	require.Equal(t, uint64(12), units)
}

func TestMintTokens_SequentialIDs(t *testing.T) {
	f := NewFixture(t, "kanaria", "gold", "gems")
	f.MintTokens(t, "bob", 3)

	for tok := uint64(1); tok <= 3; tok++ {
		owner, err := f.Collection.OwnerOf(context.Background(), tok)
		require.NoError(t, err)
		require.Equal(t, "bob", owner)
	}
}
