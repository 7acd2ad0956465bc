// Package assets provides local reference collaborators backed by the
// SQLite asset tables. They exist so a single daemon can host complete
// compositions without external asset services: the CLI mints into them,
// the protocol moves custody through them.
//
// Authorization is deliberately thin. A transfer succeeds when the debited
// holder actually holds the asset; callers are trusted to act for the
// holder they name. Remote collaborators with real auth plug in behind the
// same token interfaces.
package assets

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/trellisgraph/trellis/internal/log"
	"github.com/trellisgraph/trellis/internal/token"
)

// LocalCollection implements token.Collection over the tokens table.
type LocalCollection struct {
	db      *sql.DB
	address string
}

// NewLocalCollection returns the collection registered at address.
func NewLocalCollection(db *sql.DB, address string) *LocalCollection {
	return &LocalCollection{db: db, address: address}
}

var _ token.Collection = (*LocalCollection)(nil)

// Address returns the collection's directory address.
func (c *LocalCollection) Address() string { return c.address }

// OwnerOf returns the holder of tok, or token.ErrNoSuchToken.
func (c *LocalCollection) OwnerOf(ctx context.Context, tok uint64) (string, error) {
	var owner string
	err := c.db.QueryRowContext(ctx,
		`SELECT owner FROM tokens WHERE collection = ? AND token_id = ?`,
		c.address, int64(tok), //nolint:gosec // token ids stay far below int64 max
	).Scan(&owner)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%s/%d: %w", c.address, tok, token.ErrNoSuchToken)
	}
	if err != nil {
		return "", fmt.Errorf("failed to query owner: %w", err)
	}
	return owner, nil
}

// Transfer moves custody of tok from one holder to another. Fails when tok
// does not exist or from does not hold it.
func (c *LocalCollection) Transfer(ctx context.Context, from, to string, tok uint64) error {
	result, err := c.db.ExecContext(ctx,
		`UPDATE tokens SET owner = ? WHERE collection = ? AND token_id = ? AND owner = ?`,
		to, c.address, int64(tok), from, //nolint:gosec // token ids stay far below int64 max
	)
	if err != nil {
		return fmt.Errorf("failed to transfer token: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("token %s/%d is not held by %s", c.address, tok, from)
	}
	log.Debug(log.CatAssets, "Token transferred", "collection", c.address, "token", tok, "from", from, "to", to)
	return nil
}

// Mint creates tok owned by owner. Fails when tok already exists.
func (c *LocalCollection) Mint(ctx context.Context, owner string, tok uint64) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO tokens (collection, token_id, owner) VALUES (?, ?, ?)`,
		c.address, int64(tok), owner, //nolint:gosec // token ids stay far below int64 max
	)
	if err != nil {
		return fmt.Errorf("failed to mint token %s/%d: %w", c.address, tok, err)
	}
	return nil
}

// Burn destroys tok. The graph is not consulted; a burned token simply
// stops resolving, which is exactly the lazy-existence model.
func (c *LocalCollection) Burn(ctx context.Context, tok uint64) error {
	result, err := c.db.ExecContext(ctx,
		`DELETE FROM tokens WHERE collection = ? AND token_id = ?`,
		c.address, int64(tok), //nolint:gosec // token ids stay far below int64 max
	)
	if err != nil {
		return fmt.Errorf("failed to burn token: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s/%d: %w", c.address, tok, token.ErrNoSuchToken)
	}
	return nil
}

// LocalCurrency implements token.Currency over the currency_balances table.
type LocalCurrency struct {
	db      *sql.DB
	address string
}

// NewLocalCurrency returns the currency registered at address.
func NewLocalCurrency(db *sql.DB, address string) *LocalCurrency {
	return &LocalCurrency{db: db, address: address}
}

var _ token.Currency = (*LocalCurrency)(nil)

// Address returns the currency's directory address.
func (c *LocalCurrency) Address() string { return c.address }

// BalanceOf returns holder's balance; unknown holders have zero.
func (c *LocalCurrency) BalanceOf(ctx context.Context, holder string) (uint64, error) {
	var amount int64
	err := c.db.QueryRowContext(ctx,
		`SELECT amount FROM currency_balances WHERE currency = ? AND holder = ?`,
		c.address, holder,
	).Scan(&amount)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query balance: %w", err)
	}
	return uint64(amount), nil
}

// Transfer moves amount from one holder to another. Fails when from holds
// less than amount. The debit and credit commit together.
func (c *LocalCurrency) Transfer(ctx context.Context, from, to string, amount uint64) error {
	return transferUnits(ctx, c.db,
		fmt.Sprintf("%d units of %s", amount, c.address),
		`UPDATE currency_balances SET amount = amount - ? WHERE currency = ? AND holder = ? AND amount >= ?`,
		[]any{int64(amount), c.address, from, int64(amount)}, //nolint:gosec // amounts stay far below int64 max
		`INSERT INTO currency_balances (currency, holder, amount) VALUES (?, ?, ?)
		 ON CONFLICT(currency, holder) DO UPDATE SET amount = amount + excluded.amount`,
		[]any{c.address, to, int64(amount)}, //nolint:gosec // amounts stay far below int64 max
		from,
	)
}

// Mint credits amount to holder out of thin air.
func (c *LocalCurrency) Mint(ctx context.Context, holder string, amount uint64) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO currency_balances (currency, holder, amount) VALUES (?, ?, ?)
		 ON CONFLICT(currency, holder) DO UPDATE SET amount = amount + excluded.amount`,
		c.address, holder, int64(amount), //nolint:gosec // amounts stay far below int64 max
	)
	if err != nil {
		return fmt.Errorf("failed to mint currency: %w", err)
	}
	return nil
}

// LocalMultiAsset implements token.MultiAsset over the multiasset_balances
// table.
type LocalMultiAsset struct {
	db      *sql.DB
	address string
}

// NewLocalMultiAsset returns the multi-asset collection registered at address.
func NewLocalMultiAsset(db *sql.DB, address string) *LocalMultiAsset {
	return &LocalMultiAsset{db: db, address: address}
}

var _ token.MultiAsset = (*LocalMultiAsset)(nil)

// Address returns the collection's directory address.
func (m *LocalMultiAsset) Address() string { return m.address }

// BalanceOf returns holder's count of the given asset; unknown holders
// have zero.
func (m *LocalMultiAsset) BalanceOf(ctx context.Context, holder string, asset uint64) (uint64, error) {
	var amount int64
	err := m.db.QueryRowContext(ctx,
		`SELECT amount FROM multiasset_balances WHERE collection = ? AND asset = ? AND holder = ?`,
		m.address, int64(asset), holder, //nolint:gosec // asset ids stay far below int64 max
	).Scan(&amount)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query balance: %w", err)
	}
	return uint64(amount), nil
}

// Transfer moves amount units of asset from one holder to another.
func (m *LocalMultiAsset) Transfer(ctx context.Context, from, to string, asset, amount uint64) error {
	return transferUnits(ctx, m.db,
		fmt.Sprintf("%d units of %s asset %d", amount, m.address, asset),
		`UPDATE multiasset_balances SET amount = amount - ?
		 WHERE collection = ? AND asset = ? AND holder = ? AND amount >= ?`,
		[]any{int64(amount), m.address, int64(asset), from, int64(amount)}, //nolint:gosec // amounts stay far below int64 max
		`INSERT INTO multiasset_balances (collection, asset, holder, amount) VALUES (?, ?, ?, ?)
		 ON CONFLICT(collection, asset, holder) DO UPDATE SET amount = amount + excluded.amount`,
		[]any{m.address, int64(asset), to, int64(amount)}, //nolint:gosec // amounts stay far below int64 max
		from,
	)
}

// Mint credits amount units of asset to holder.
func (m *LocalMultiAsset) Mint(ctx context.Context, holder string, asset, amount uint64) error {
	_, err := m.db.ExecContext(ctx,
		`INSERT INTO multiasset_balances (collection, asset, holder, amount) VALUES (?, ?, ?, ?)
		 ON CONFLICT(collection, asset, holder) DO UPDATE SET amount = amount + excluded.amount`,
		m.address, int64(asset), holder, int64(amount), //nolint:gosec // amounts stay far below int64 max
	)
	if err != nil {
		return fmt.Errorf("failed to mint asset units: %w", err)
	}
	return nil
}

// transferUnits runs a guarded debit followed by a credit upsert inside one
// transaction. The debit's WHERE clause enforces sufficient funds; zero
// rows affected means the holder lacked them.
func transferUnits(ctx context.Context, db *sql.DB, what, debitSQL string, debitArgs []any, creditSQL string, creditArgs []any, from string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transfer: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, debitSQL, debitArgs...)
	if err != nil {
		return fmt.Errorf("failed to debit: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s does not hold %s", from, what)
	}

	if _, err := tx.ExecContext(ctx, creditSQL, creditArgs...); err != nil {
		return fmt.Errorf("failed to credit: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transfer: %w", err)
	}
	log.Debug(log.CatAssets, "Units transferred", "what", what, "from", from)
	return nil
}
