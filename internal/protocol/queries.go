package protocol

import (
	"github.com/trellisgraph/trellis/internal/ledger"
	"github.com/trellisgraph/trellis/internal/token"
)

// Queries are read-only and side-effect-free. They take the same lock as
// mutations only to observe a consistent snapshot; repeated calls with no
// intervening mutation return identical results.

// FindRootToken resolves the root of node by walking target edges.
func (p *Protocol) FindRootToken(node token.ID) (token.ID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.findRoot(node)
}

// Target returns node's current target, if any.
func (p *Protocol) Target(node token.ID) (token.ID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.graph.Target(node)
}

// Children returns the nodes linked directly under node.
func (p *Protocol) Children(node token.ID) []token.ID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.graph.Children(node)
}

// EdgeCount returns the number of edges currently in the graph.
func (p *Protocol) EdgeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.graph.Len()
}

// BalanceOfFungible returns the recorded currency amount attached to owner.
func (p *Protocol) BalanceOfFungible(owner token.ID, currency string) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ledger.BalanceOf(ledger.CurrencyKey(currency), owner)
}

// BalanceOfCountedAsset returns the recorded counted-asset amount attached
// to owner.
func (p *Protocol) BalanceOfCountedAsset(owner token.ID, collection string, asset uint64) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ledger.BalanceOf(ledger.AssetKey(collection, asset), owner)
}
