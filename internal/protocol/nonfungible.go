package protocol

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/trellisgraph/trellis/internal/log"
	"github.com/trellisgraph/trellis/internal/pubsub"
	"github.com/trellisgraph/trellis/internal/token"
)

// LinkNonFungible creates the edge source→target and takes custody of the
// source token. Fails without state change on any precondition violation
// or collaborator failure.
func (p *Protocol) LinkNonFungible(ctx context.Context, actor string, source, target token.ID, annotation []byte) error {
	ctx, done := p.startOp(ctx, "protocol.LinkNonFungible",
		attribute.String("source", source.String()),
		attribute.String("target", target.String()))
	var err error
	defer func() { done(err) }()

	if err = p.checkHalted(source, target); err != nil {
		return err
	}
	var srcOwner string
	if srcOwner, err = p.ownerOf(ctx, source); err != nil {
		return err
	}
	if _, err = p.ownerOf(ctx, target); err != nil {
		return err
	}
	if err = p.graph.CheckLink(source, target); err != nil {
		return err
	}
	if err = p.authorize(ctx, actor, source); err != nil {
		return err
	}

	// Take custody before committing. The source may already be in engine
	// custody when it arrived through the receiver callback.
	col, _ := p.dir.Collection(source.Collection)
	if srcOwner != p.engine {
		if terr := col.Transfer(ctx, srcOwner, p.engine, source.Token); terr != nil {
			err = custodyErr(terr)
			return err
		}
	}

	if err = p.persist(func(tx Tx) error { return tx.PutEdge(source, target) }); err != nil {
		p.returnCustody(ctx, col, source, p.engine, srcOwner)
		return err
	}

	// Post-check mutation cannot fail.
	_ = p.graph.Link(source, target)

	n := newNotification(pubsub.LinkEvent, FamilyNonFungible, actor, source, annotation)
	n.Target = &target
	p.emit(n)
	return nil
}

// UpdateNonFungibleTarget atomically re-parents source under newTarget.
// Custody does not move; the token stays held by the engine.
func (p *Protocol) UpdateNonFungibleTarget(ctx context.Context, actor string, source, newTarget token.ID, annotation []byte) error {
	ctx, done := p.startOp(ctx, "protocol.UpdateNonFungibleTarget",
		attribute.String("source", source.String()),
		attribute.String("target", newTarget.String()))
	var err error
	defer func() { done(err) }()

	if err = p.checkHalted(source, newTarget); err != nil {
		return err
	}
	if _, err = p.ownerOf(ctx, source); err != nil {
		return err
	}
	if _, err = p.ownerOf(ctx, newTarget); err != nil {
		return err
	}
	if err = p.graph.CheckUpdateTarget(source, newTarget); err != nil {
		return err
	}
	// Authority is checked against the current composition's root, before
	// the edge moves.
	if err = p.authorize(ctx, actor, source); err != nil {
		return err
	}

	if err = p.persist(func(tx Tx) error { return tx.PutEdge(source, newTarget) }); err != nil {
		return err
	}
	_ = p.graph.UpdateTarget(source, newTarget)

	n := newNotification(pubsub.RetargetEvent, FamilyNonFungible, actor, source, annotation)
	n.Target = &newTarget
	p.emit(n)
	return nil
}

// UnlinkNonFungible removes source's edge and releases custody of the
// source token to recipient.
func (p *Protocol) UnlinkNonFungible(ctx context.Context, actor, recipient string, source token.ID, annotation []byte) error {
	ctx, done := p.startOp(ctx, "protocol.UnlinkNonFungible",
		attribute.String("source", source.String()),
		attribute.String("recipient", recipient))
	var err error
	defer func() { done(err) }()

	if err = p.checkHalted(source); err != nil {
		return err
	}
	if _, err = p.ownerOf(ctx, source); err != nil {
		return err
	}
	if _, linked := p.graph.Target(source); !linked {
		err = errNotLinked(source)
		return err
	}
	if err = p.authorize(ctx, actor, source); err != nil {
		return err
	}

	col, _ := p.dir.Collection(source.Collection)
	if recipient != p.engine {
		if terr := col.Transfer(ctx, p.engine, recipient, source.Token); terr != nil {
			err = custodyErr(terr)
			return err
		}
	}

	if err = p.persist(func(tx Tx) error { return tx.DeleteEdge(source) }); err != nil {
		p.returnCustody(ctx, col, source, recipient, p.engine)
		return err
	}
	_ = p.graph.Unlink(source)

	n := newNotification(pubsub.UnlinkEvent, FamilyNonFungible, actor, source, annotation)
	n.Recipient = recipient
	p.emit(n)
	return nil
}

// returnCustody undoes a custody transfer after a failed commit. A failing
// compensation leaves custody and the store divergent and is logged
// loudly; the store commit is the point of no return.
func (p *Protocol) returnCustody(ctx context.Context, col token.Collection, node token.ID, from, to string) {
	if from == to {
		return
	}
	if err := col.Transfer(ctx, from, to, node.Token); err != nil {
		log.ErrorErr(log.CatCustody, "Compensating custody transfer failed; manual repair needed", err,
			"node", node, "from", from, "to", to)
	}
}
