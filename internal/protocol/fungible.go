package protocol

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/trellisgraph/trellis/internal/ledger"
	"github.com/trellisgraph/trellis/internal/token"
)

// fungibleResource resolves the currency collaborator and builds the
// shared attachment adapter.
func (p *Protocol) fungibleResource(currency string) (attachmentResource, error) {
	cur, err := p.dir.Currency(currency)
	if err != nil {
		return attachmentResource{}, err
	}
	return attachmentResource{
		family:   FamilyFungible,
		key:      ledger.CurrencyKey(currency),
		transfer: cur.Transfer,
	}, nil
}

// LinkFungible attaches amount units of the currency to the owner node,
// pulling custody from the actor's currency balance.
func (p *Protocol) LinkFungible(ctx context.Context, actor, currency string, owner token.ID, amount uint64, annotation []byte) error {
	ctx, done := p.startOp(ctx, "protocol.LinkFungible",
		attribute.String("currency", currency),
		attribute.String("owner", owner.String()),
		attribute.Int64("amount", int64(amount))) //nolint:gosec // amounts stay far below int64 max in practice
	var err error
	defer func() { done(err) }()

	res, rerr := p.fungibleResource(currency)
	if rerr != nil {
		err = rerr
		return err
	}
	err = p.linkAttachment(ctx, actor, res, owner, amount, annotation)
	return err
}

// UpdateFungibleTarget moves the currency attachment from one owner node
// to another, trusting the ledger's recorded amount.
func (p *Protocol) UpdateFungibleTarget(ctx context.Context, actor, currency string, from, to token.ID, annotation []byte) error {
	ctx, done := p.startOp(ctx, "protocol.UpdateFungibleTarget",
		attribute.String("currency", currency),
		attribute.String("from", from.String()),
		attribute.String("to", to.String()))
	var err error
	defer func() { done(err) }()

	res, rerr := p.fungibleResource(currency)
	if rerr != nil {
		err = rerr
		return err
	}
	err = p.retargetAttachment(ctx, actor, res, from, to, annotation)
	return err
}

// UnlinkFungible removes the currency attachment from owner and releases
// custody of the full recorded amount to recipient.
func (p *Protocol) UnlinkFungible(ctx context.Context, actor, recipient, currency string, owner token.ID, annotation []byte) error {
	ctx, done := p.startOp(ctx, "protocol.UnlinkFungible",
		attribute.String("currency", currency),
		attribute.String("owner", owner.String()),
		attribute.String("recipient", recipient))
	var err error
	defer func() { done(err) }()

	res, rerr := p.fungibleResource(currency)
	if rerr != nil {
		err = rerr
		return err
	}
	err = p.unlinkAttachment(ctx, actor, recipient, res, owner, annotation)
	return err
}
