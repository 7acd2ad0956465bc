package protocol

import (
	"context"
	"fmt"

	"github.com/trellisgraph/trellis/internal/graph"
	"github.com/trellisgraph/trellis/internal/ledger"
	"github.com/trellisgraph/trellis/internal/log"
	"github.com/trellisgraph/trellis/internal/pubsub"
	"github.com/trellisgraph/trellis/internal/token"
)

// attachmentResource adapts one fungible or counted resource to the shared
// attachment flow: a ledger key plus the collaborator's transfer primitive.
type attachmentResource struct {
	family   Family
	key      ledger.Key
	transfer func(ctx context.Context, from, to string, amount uint64) error
}

// linkAttachment deposits amount of the resource onto owner, pulling
// custody from the actor. Fails with ledger.ErrInvalidAmount on a zero
// amount and with graph.ErrAlreadyLinked when an attachment of this
// resource already exists on owner (create vs. replace stays unambiguous
// for attachments too; see DESIGN.md).
func (p *Protocol) linkAttachment(ctx context.Context, actor string, res attachmentResource, owner token.ID, amount uint64, annotation []byte) error {
	if amount == 0 {
		return ledger.ErrInvalidAmount
	}
	if err := p.checkHalted(owner); err != nil {
		return err
	}
	if _, err := p.ownerOf(ctx, owner); err != nil {
		return err
	}
	if p.ledger.BalanceOf(res.key, owner) > 0 {
		return fmt.Errorf("attachment %s on %s: %w", res.key, owner, errAlreadyAttached)
	}

	if terr := res.transfer(ctx, actor, p.engine, amount); terr != nil {
		return custodyErr(terr)
	}

	if err := p.persist(func(tx Tx) error { return tx.PutAttachment(res.key, owner, amount) }); err != nil {
		p.returnAmount(ctx, res, p.engine, actor, amount)
		return err
	}
	_ = p.ledger.Deposit(res.key, owner, amount)

	n := newNotification(pubsub.LinkEvent, res.family, actor, owner, annotation)
	n.Resource = res.key.String()
	n.Amount = amount
	n.Target = &owner
	p.emit(n)
	return nil
}

// retargetAttachment moves the whole recorded amount of the resource from
// one owner node to another. No external custody moves; conservation of
// the recorded total is the invariant.
func (p *Protocol) retargetAttachment(ctx context.Context, actor string, res attachmentResource, from, to token.ID, annotation []byte) error {
	// Same rule as edge retargets: a node is never its own target. Without
	// this the merged write below would add the balance to itself.
	if from == to {
		return fmt.Errorf("attachment %s on %s: %w", res.key, from, graph.ErrSelfLink)
	}
	if err := p.checkHalted(from, to); err != nil {
		return err
	}
	amount := p.ledger.BalanceOf(res.key, from)
	if amount == 0 {
		return fmt.Errorf("attachment %s on %s: %w", res.key, from, ledger.ErrNotFound)
	}
	if _, err := p.ownerOf(ctx, to); err != nil {
		return err
	}
	if err := p.authorize(ctx, actor, from); err != nil {
		return err
	}

	merged := p.ledger.BalanceOf(res.key, to) + amount
	err := p.persist(func(tx Tx) error {
		if err := tx.DeleteAttachment(res.key, from); err != nil {
			return err
		}
		return tx.PutAttachment(res.key, to, merged)
	})
	if err != nil {
		return err
	}
	_, _ = p.ledger.WithdrawAll(res.key, from)
	_ = p.ledger.Deposit(res.key, to, amount)

	n := newNotification(pubsub.RetargetEvent, res.family, actor, from, annotation)
	n.Resource = res.key.String()
	n.Amount = amount
	n.Target = &to
	p.emit(n)
	return nil
}

// unlinkAttachment zeroes the recorded amount and releases custody of it
// to recipient. Exactly one collaborator transfer of the full recorded
// amount happens per successful call.
func (p *Protocol) unlinkAttachment(ctx context.Context, actor, recipient string, res attachmentResource, owner token.ID, annotation []byte) error {
	if err := p.checkHalted(owner); err != nil {
		return err
	}
	amount := p.ledger.BalanceOf(res.key, owner)
	if amount == 0 {
		return fmt.Errorf("attachment %s on %s: %w", res.key, owner, ledger.ErrNotFound)
	}
	if err := p.authorize(ctx, actor, owner); err != nil {
		return err
	}

	if terr := res.transfer(ctx, p.engine, recipient, amount); terr != nil {
		return custodyErr(terr)
	}

	if err := p.persist(func(tx Tx) error { return tx.DeleteAttachment(res.key, owner) }); err != nil {
		p.returnAmount(ctx, res, recipient, p.engine, amount)
		return err
	}
	_, _ = p.ledger.WithdrawAll(res.key, owner)

	n := newNotification(pubsub.UnlinkEvent, res.family, actor, owner, annotation)
	n.Resource = res.key.String()
	n.Amount = amount
	n.Recipient = recipient
	p.emit(n)
	return nil
}

// returnAmount undoes a fungible custody transfer after a failed commit.
func (p *Protocol) returnAmount(ctx context.Context, res attachmentResource, from, to string, amount uint64) {
	if from == to {
		return
	}
	if err := res.transfer(ctx, from, to, amount); err != nil {
		log.ErrorErr(log.CatCustody, "Compensating fungible transfer failed; manual repair needed", err,
			"resource", res.key, "from", from, "to", to, "amount", amount)
	}
}
