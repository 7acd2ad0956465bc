// Package testutil provides shared test fixtures: a migrated on-disk
// database and pre-seeded asset collaborators.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trellisgraph/trellis/internal/assets"
	"github.com/trellisgraph/trellis/internal/infrastructure/sqlite"
	"github.com/trellisgraph/trellis/internal/token"
)

// NewTestDB creates a fully migrated database under t.TempDir. It is
// closed automatically when the test finishes.
func NewTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.NewDB(filepath.Join(t.TempDir(), "trellis.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// Fixture bundles a test database with one local collaborator of each
// family, registered in a directory the way the daemon wires them.
type Fixture struct {
	DB         *sqlite.DB
	Directory  *token.StaticDirectory
	Collection *assets.LocalCollection
	Currency   *assets.LocalCurrency
	MultiAsset *assets.LocalMultiAsset
}

// NewFixture builds a Fixture with the collaborators registered under the
// given addresses.
func NewFixture(t *testing.T, collection, currency, multiAsset string) *Fixture {
	t.Helper()
	db := NewTestDB(t)
	f := &Fixture{
		DB:         db,
		Directory:  token.NewStaticDirectory(),
		Collection: assets.NewLocalCollection(db.Connection(), collection),
		Currency:   assets.NewLocalCurrency(db.Connection(), currency),
		MultiAsset: assets.NewLocalMultiAsset(db.Connection(), multiAsset),
	}
	f.Directory.RegisterCollection(collection, f.Collection)
	f.Directory.RegisterCurrency(currency, f.Currency)
	f.Directory.RegisterMultiAsset(multiAsset, f.MultiAsset)
	return f
}

// MintTokens mints sequential token ids starting at 1, all owned by owner.
func (f *Fixture) MintTokens(t *testing.T, owner string, count int) {
	t.Helper()
	for i := 1; i <= count; i++ {
		require.NoError(t, f.Collection.Mint(context.Background(), owner, uint64(i))) //nolint:gosec // small positive counts
	}
}
