package protocol

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/trellisgraph/trellis/internal/ledger"
	"github.com/trellisgraph/trellis/internal/token"
)

// countedResource resolves the multi-asset collaborator and builds the
// shared attachment adapter, currying the asset id into the transfer.
func (p *Protocol) countedResource(collection string, asset uint64) (attachmentResource, error) {
	ma, err := p.dir.MultiAsset(collection)
	if err != nil {
		return attachmentResource{}, err
	}
	return attachmentResource{
		family: FamilyCountedAsset,
		key:    ledger.AssetKey(collection, asset),
		transfer: func(ctx context.Context, from, to string, amount uint64) error {
			return ma.Transfer(ctx, from, to, asset, amount)
		},
	}, nil
}

// LinkCountedAsset attaches amount units of (collection, asset) to the
// owner node, pulling custody from the actor.
func (p *Protocol) LinkCountedAsset(ctx context.Context, actor, collection string, asset uint64, owner token.ID, amount uint64, annotation []byte) error {
	ctx, done := p.startOp(ctx, "protocol.LinkCountedAsset",
		attribute.String("collection", collection),
		attribute.Int64("asset", int64(asset)), //nolint:gosec // asset ids stay far below int64 max
		attribute.String("owner", owner.String()))
	var err error
	defer func() { done(err) }()

	res, rerr := p.countedResource(collection, asset)
	if rerr != nil {
		err = rerr
		return err
	}
	err = p.linkAttachment(ctx, actor, res, owner, amount, annotation)
	return err
}

// UpdateCountedAssetTarget moves the counted attachment from one owner
// node to another.
func (p *Protocol) UpdateCountedAssetTarget(ctx context.Context, actor, collection string, asset uint64, from, to token.ID, annotation []byte) error {
	ctx, done := p.startOp(ctx, "protocol.UpdateCountedAssetTarget",
		attribute.String("collection", collection),
		attribute.String("from", from.String()),
		attribute.String("to", to.String()))
	var err error
	defer func() { done(err) }()

	res, rerr := p.countedResource(collection, asset)
	if rerr != nil {
		err = rerr
		return err
	}
	err = p.retargetAttachment(ctx, actor, res, from, to, annotation)
	return err
}

// UnlinkCountedAsset removes the counted attachment from owner and
// releases custody of the full recorded amount to recipient.
func (p *Protocol) UnlinkCountedAsset(ctx context.Context, actor, recipient, collection string, asset uint64, owner token.ID, annotation []byte) error {
	ctx, done := p.startOp(ctx, "protocol.UnlinkCountedAsset",
		attribute.String("collection", collection),
		attribute.String("owner", owner.String()),
		attribute.String("recipient", recipient))
	var err error
	defer func() { done(err) }()

	res, rerr := p.countedResource(collection, asset)
	if rerr != nil {
		err = rerr
		return err
	}
	err = p.unlinkAttachment(ctx, actor, recipient, res, owner, annotation)
	return err
}
