package assets_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trellisgraph/trellis/internal/assets"
	"github.com/trellisgraph/trellis/internal/testutil"
	"github.com/trellisgraph/trellis/internal/token"
)

func TestLocalCollection_MintOwnTransfer(t *testing.T) {
	db := testutil.NewTestDB(t)
	col := assets.NewLocalCollection(db.Connection(), "kanaria")
	ctx := context.Background()

	require.NoError(t, col.Mint(ctx, "alice", 1))

	owner, err := col.OwnerOf(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "alice", owner)

	require.NoError(t, col.Transfer(ctx, "alice", "bob", 1))
	owner, err = col.OwnerOf(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "bob", owner)
}

func TestLocalCollection_UnknownToken(t *testing.T) {
	db := testutil.NewTestDB(t)
	col := assets.NewLocalCollection(db.Connection(), "kanaria")

	_, err := col.OwnerOf(context.Background(), 99)
	require.ErrorIs(t, err, token.ErrNoSuchToken)
}

func TestLocalCollection_TransferByNonHolderFails(t *testing.T) {
	db := testutil.NewTestDB(t)
	col := assets.NewLocalCollection(db.Connection(), "kanaria")
	ctx := context.Background()

	require.NoError(t, col.Mint(ctx, "alice", 1))
	require.Error(t, col.Transfer(ctx, "bob", "carol", 1))

	owner, err := col.OwnerOf(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "alice", owner)
}

func TestLocalCollection_MintDuplicateFails(t *testing.T) {
	db := testutil.NewTestDB(t)
	col := assets.NewLocalCollection(db.Connection(), "kanaria")
	ctx := context.Background()

	require.NoError(t, col.Mint(ctx, "alice", 1))
	require.Error(t, col.Mint(ctx, "bob", 1))
}

func TestLocalCollection_Burn(t *testing.T) {
	db := testutil.NewTestDB(t)
	col := assets.NewLocalCollection(db.Connection(), "kanaria")
	ctx := context.Background()

	require.NoError(t, col.Mint(ctx, "alice", 1))
	require.NoError(t, col.Burn(ctx, 1))

	_, err := col.OwnerOf(ctx, 1)
	require.ErrorIs(t, err, token.ErrNoSuchToken)
	require.ErrorIs(t, col.Burn(ctx, 1), token.ErrNoSuchToken)
}

func TestCollectionsAreIndependent(t *testing.T) {
	db := testutil.NewTestDB(t)
	kanaria := assets.NewLocalCollection(db.Connection(), "kanaria")
	gems := assets.NewLocalCollection(db.Connection(), "gems")
	ctx := context.Background()

	require.NoError(t, kanaria.Mint(ctx, "alice", 1))
	require.NoError(t, gems.Mint(ctx, "bob", 1))

	owner, err := kanaria.OwnerOf(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "alice", owner)

	owner, err = gems.OwnerOf(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "bob", owner)
}

func TestLocalCurrency_MintAndTransfer(t *testing.T) {
	db := testutil.NewTestDB(t)
	gold := assets.NewLocalCurrency(db.Connection(), "gold")
	ctx := context.Background()

	require.NoError(t, gold.Mint(ctx, "alice", 1000))
	require.NoError(t, gold.Transfer(ctx, "alice", "bob", 300))

	balance, err := gold.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, uint64(700), balance)

	balance, err = gold.BalanceOf(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, uint64(300), balance)
}

func TestLocalCurrency_InsufficientFundsLeavesBalances(t *testing.T) {
	db := testutil.NewTestDB(t)
	gold := assets.NewLocalCurrency(db.Connection(), "gold")
	ctx := context.Background()

	require.NoError(t, gold.Mint(ctx, "alice", 100))
	require.Error(t, gold.Transfer(ctx, "alice", "bob", 101))

	balance, err := gold.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, uint64(100), balance)

	balance, err = gold.BalanceOf(ctx, "bob")
	require.NoError(t, err)
	require.Zero(t, balance)
}

func TestLocalCurrency_UnknownHolderHasZero(t *testing.T) {
	db := testutil.NewTestDB(t)
	gold := assets.NewLocalCurrency(db.Connection(), "gold")

	balance, err := gold.BalanceOf(context.Background(), "nobody")
	require.NoError(t, err)
	require.Zero(t, balance)
}

func TestLocalMultiAsset_PerAssetBalances(t *testing.T) {
	db := testutil.NewTestDB(t)
	gems := assets.NewLocalMultiAsset(db.Connection(), "gems")
	ctx := context.Background()

	require.NoError(t, gems.Mint(ctx, "alice", 7, 50))
	require.NoError(t, gems.Mint(ctx, "alice", 8, 5))
	require.NoError(t, gems.Transfer(ctx, "alice", "bob", 7, 20))

	balance, err := gems.BalanceOf(ctx, "alice", 7)
	require.NoError(t, err)
	require.Equal(t, uint64(30), balance)

	balance, err = gems.BalanceOf(ctx, "bob", 7)
	require.NoError(t, err)
	require.Equal(t, uint64(20), balance)

	// Asset 8 untouched.
	balance, err = gems.BalanceOf(ctx, "alice", 8)
	require.NoError(t, err)
	require.Equal(t, uint64(5), balance)

	require.Error(t, gems.Transfer(ctx, "alice", "bob", 8, 6))
}
