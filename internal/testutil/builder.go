package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trellisgraph/trellis/internal/protocol"
	"github.com/trellisgraph/trellis/internal/token"
)

// tokenData holds a token to be minted.
type tokenData struct {
	id    uint64
	owner string
}

// fundData holds a currency balance to be minted.
type fundData struct {
	holder string
	amount uint64
}

// unitData holds counted multi-asset units to be minted.
type unitData struct {
	holder string
	asset  uint64
	amount uint64
}

// linkData holds an edge to be composed through the protocol.
type linkData struct {
	actor  string
	source uint64
	target uint64
}

// Builder accumulates a composition scenario and applies it in the correct
// order: mints first, then links through a live protocol so every edge
// passes the same checks production edges do.
type Builder struct {
	t      *testing.T
	f      *Fixture
	tokens []tokenData
	funds  []fundData
	units  []unitData
	links  []linkData
	opts   []protocol.Option
}

// Build starts a scenario over the fixture.
func (f *Fixture) Build(t *testing.T) *Builder {
	t.Helper()
	return &Builder{t: t, f: f}
}

// WithToken mints a token in the fixture collection.
func (b *Builder) WithToken(id uint64, owner string) *Builder {
	b.tokens = append(b.tokens, tokenData{id: id, owner: owner})
	return b
}

// WithFunds mints currency units to a holder.
func (b *Builder) WithFunds(holder string, amount uint64) *Builder {
	b.funds = append(b.funds, fundData{holder: holder, amount: amount})
	return b
}

// WithUnits mints counted multi-asset units to a holder.
func (b *Builder) WithUnits(holder string, asset, amount uint64) *Builder {
	b.units = append(b.units, unitData{holder: holder, asset: asset, amount: amount})
	return b
}

// WithLink composes source under target on behalf of actor. Links apply in
// declaration order, so declare a parent's link before its children's.
func (b *Builder) WithLink(actor string, source, target uint64) *Builder {
	b.links = append(b.links, linkData{actor: actor, source: source, target: target})
	return b
}

// WithProtocolOptions adds options to the protocol built by Protocol.
func (b *Builder) WithProtocolOptions(opts ...protocol.Option) *Builder {
	b.opts = append(b.opts, opts...)
	return b
}

// ID returns the token.ID for a token id in the fixture collection.
func (b *Builder) ID(tok uint64) token.ID {
	return token.NewID(b.f.Collection.Address(), tok)
}

// Protocol applies the scenario and returns a live protocol backed by the
// fixture database. The protocol is closed when the test finishes.
func (b *Builder) Protocol() *protocol.Protocol {
	b.t.Helper()
	ctx := context.Background()

	for _, tok := range b.tokens {
		require.NoError(b.t, b.f.Collection.Mint(ctx, tok.owner, tok.id))
	}
	for _, f := range b.funds {
		require.NoError(b.t, b.f.Currency.Mint(ctx, f.holder, f.amount))
	}
	for _, u := range b.units {
		require.NoError(b.t, b.f.MultiAsset.Mint(ctx, u.holder, u.asset, u.amount))
	}

	opts := append([]protocol.Option{
		protocol.WithStore(b.f.DB.CompositionStore()),
	}, b.opts...)
	p := protocol.New(b.f.Directory, opts...)
	b.t.Cleanup(p.Close)

	for _, l := range b.links {
		require.NoError(b.t, p.LinkNonFungible(ctx, l.actor, b.ID(l.source), b.ID(l.target), nil),
			"scenario link %d -> %d", l.source, l.target)
	}
	return p
}
