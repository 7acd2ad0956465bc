package token

import (
	"context"
	"errors"
	"sync"
)

// ErrNoSuchToken is returned by collaborators when the queried token does
// not exist (was never minted, or has been burned).
var ErrNoSuchToken = errors.New("no such token")

// ErrNoSuchCollaborator is returned by a Directory when no collaborator is
// registered under the requested address.
var ErrNoSuchCollaborator = errors.New("no collaborator registered for address")

// Receiver acknowledgment values. An incoming custody transfer initiated by
// an asset collaborator must be answered with the matching value or the
// collaborator rejects the transfer. The bytes are the canonical receiver
// callback selectors of the respective token standards.
var (
	AckNonFungibleReceived  = [4]byte{0x15, 0x0b, 0x7a, 0x02}
	AckCountedAssetReceived = [4]byte{0xf2, 0x3a, 0x6e, 0x61}
)

// Collection is the non-fungible asset collaborator for one collection
// address. The graph core never mints or burns; it only asks who owns a
// token and moves custody as part of a composition operation.
type Collection interface {
	// OwnerOf returns the holder address of the given token.
	// Returns ErrNoSuchToken (possibly wrapped) when the token does not exist.
	OwnerOf(ctx context.Context, tok uint64) (string, error)

	// Transfer moves custody of tok from one holder to another.
	// The collaborator enforces its own authorization rules and may fail.
	Transfer(ctx context.Context, from, to string, tok uint64) error
}

// Currency is the fungible asset collaborator for one currency address.
type Currency interface {
	BalanceOf(ctx context.Context, holder string) (uint64, error)
	Transfer(ctx context.Context, from, to string, amount uint64) error
}

// MultiAsset is the counted multi-asset collaborator for one collection
// address: per asset id, holders own counted units.
type MultiAsset interface {
	BalanceOf(ctx context.Context, holder string, asset uint64) (uint64, error)
	Transfer(ctx context.Context, from, to string, asset, amount uint64) error
}

// Directory resolves collaborator addresses to their implementations.
// The composition protocol looks collaborators up per operation rather than
// holding references, so registrations can change between operations.
type Directory interface {
	Collection(address string) (Collection, error)
	Currency(address string) (Currency, error)
	MultiAsset(address string) (MultiAsset, error)
}

// StaticDirectory is a Directory backed by in-memory maps. It is what the
// CLI and daemon use after wiring up the local reference collaborators, and
// what tests use with fakes. Registrations may happen while the protocol is
// running (the daemon registers new collaborators on config reload), so
// access is guarded.
type StaticDirectory struct {
	mu          sync.RWMutex
	collections map[string]Collection
	currencies  map[string]Currency
	multiAssets map[string]MultiAsset
}

// NewStaticDirectory returns an empty StaticDirectory ready for Register calls.
func NewStaticDirectory() *StaticDirectory {
	return &StaticDirectory{
		collections: make(map[string]Collection),
		currencies:  make(map[string]Currency),
		multiAssets: make(map[string]MultiAsset),
	}
}

// RegisterCollection adds or replaces the collection at the given address.
func (d *StaticDirectory) RegisterCollection(address string, c Collection) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.collections[address] = c
}

// RegisterCurrency adds or replaces the currency at the given address.
func (d *StaticDirectory) RegisterCurrency(address string, c Currency) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.currencies[address] = c
}

// RegisterMultiAsset adds or replaces the multi-asset at the given address.
func (d *StaticDirectory) RegisterMultiAsset(address string, m MultiAsset) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.multiAssets[address] = m
}

// Collection implements Directory.
func (d *StaticDirectory) Collection(address string) (Collection, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.collections[address]
	if !ok {
		return nil, ErrNoSuchCollaborator
	}
	return c, nil
}

// Currency implements Directory.
func (d *StaticDirectory) Currency(address string) (Currency, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.currencies[address]
	if !ok {
		return nil, ErrNoSuchCollaborator
	}
	return c, nil
}

// MultiAsset implements Directory.
func (d *StaticDirectory) MultiAsset(address string) (MultiAsset, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, ok := d.multiAssets[address]
	if !ok {
		return nil, ErrNoSuchCollaborator
	}
	return m, nil
}
