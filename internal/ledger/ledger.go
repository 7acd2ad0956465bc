// Package ledger bookkeeps fungible and counted-multi-asset attachments:
// per owner node, the quantity of each resource held inside the graph.
//
// The ledger never calls out to asset collaborators. Keeping its state and
// actual custody in agreement is the composition protocol's job, which
// performs the collaborator transfer and the ledger mutation in the same
// atomic step.
package ledger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/trellisgraph/trellis/internal/token"
)

// ErrInvalidAmount is returned when a deposit amount is zero.
var ErrInvalidAmount = errors.New("amount must be positive")

// ErrNotFound is returned when withdrawing a zero balance. Failing loudly
// here keeps callers from moving a zero-value attachment and still
// emitting a notification for it.
var ErrNotFound = errors.New("no attachment recorded for owner")

// Kind distinguishes the two fungible resource families.
type Kind uint8

const (
	// KindCurrency is a currency-like resource identified by its contract
	// address alone.
	KindCurrency Kind = iota + 1
	// KindCountedAsset is a counted unit of a multi-asset resource,
	// identified by (collection address, asset id).
	KindCountedAsset
)

// String returns the stable name used in persistence and notifications.
func (k Kind) String() string {
	switch k {
	case KindCurrency:
		return "currency"
	case KindCountedAsset:
		return "counted"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "currency":
		return KindCurrency, nil
	case "counted":
		return KindCountedAsset, nil
	default:
		return 0, fmt.Errorf("unknown resource kind %q", s)
	}
}

// Key identifies one fungible resource. For KindCurrency the Asset field
// is zero and ignored.
type Key struct {
	Kind    Kind
	Address string
	Asset   uint64
}

// CurrencyKey builds the key for a currency resource.
func CurrencyKey(address string) Key {
	return Key{Kind: KindCurrency, Address: address}
}

// AssetKey builds the key for a counted multi-asset resource.
func AssetKey(address string, asset uint64) Key {
	return Key{Kind: KindCountedAsset, Address: address, Asset: asset}
}

// String returns the canonical form "kind:address[:asset]".
func (k Key) String() string {
	if k.Kind == KindCountedAsset {
		return k.Kind.String() + ":" + k.Address + ":" + strconv.FormatUint(k.Asset, 10)
	}
	return k.Kind.String() + ":" + k.Address
}

// ParseKey parses the form produced by String.
func ParseKey(s string) (Key, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 {
		return Key{}, fmt.Errorf("malformed resource key %q", s)
	}
	kind, err := ParseKind(parts[0])
	if err != nil {
		return Key{}, err
	}
	key := Key{Kind: kind, Address: parts[1]}
	if kind == KindCountedAsset {
		if len(parts) != 3 {
			return Key{}, fmt.Errorf("malformed counted resource key %q: missing asset id", s)
		}
		asset, err := strconv.ParseUint(parts[2], 10, 64)
		if err != nil {
			return Key{}, fmt.Errorf("malformed counted resource key %q: %w", s, err)
		}
		key.Asset = asset
	}
	return key, nil
}

// Ledger maps (resource key, owner node) to a recorded amount. Absent
// entries are zero; zero entries are never stored. Like the graph, the
// ledger is exclusively owned by the composition protocol and does no
// locking of its own.
type Ledger struct {
	balances map[Key]map[token.ID]uint64
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{balances: make(map[Key]map[token.ID]uint64)}
}

// BalanceOf returns the recorded amount for (key, owner); zero when absent.
func (l *Ledger) BalanceOf(key Key, owner token.ID) uint64 {
	return l.balances[key][owner]
}

// Total returns the sum recorded across all owners for a resource key.
// Conservation: this must never exceed what the system holds in custody.
func (l *Ledger) Total(key Key) uint64 {
	var sum uint64
	for _, amt := range l.balances[key] {
		sum += amt
	}
	return sum
}

// Deposit increments the balance for (key, owner).
// Fails with ErrInvalidAmount when amount is zero.
func (l *Ledger) Deposit(key Key, owner token.ID, amount uint64) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	owners, ok := l.balances[key]
	if !ok {
		owners = make(map[token.ID]uint64)
		l.balances[key] = owners
	}
	owners[owner] += amount
	return nil
}

// WithdrawAll returns and zeroes the balance for (key, owner).
// Fails with ErrNotFound when the balance is zero.
func (l *Ledger) WithdrawAll(key Key, owner token.ID) (uint64, error) {
	owners := l.balances[key]
	amount := owners[owner]
	if amount == 0 {
		return 0, ErrNotFound
	}
	delete(owners, owner)
	if len(owners) == 0 {
		delete(l.balances, key)
	}
	return amount, nil
}

// Entries calls fn for every non-zero attachment. Iteration order is
// unspecified. Used by persistence to snapshot the ledger.
func (l *Ledger) Entries(fn func(key Key, owner token.ID, amount uint64)) {
	for key, owners := range l.balances {
		for owner, amount := range owners {
			fn(key, owner, amount)
		}
	}
}
