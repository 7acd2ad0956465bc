package protocol

import (
	"context"

	"github.com/trellisgraph/trellis/internal/log"
	"github.com/trellisgraph/trellis/internal/token"
)

// Receiver callbacks. Asset collaborators invoke these when a custody
// transfer into the engine is initiated from their side; returning the
// mandated acknowledgment value accepts the transfer, anything else makes
// the collaborator reject it. The engine accepts all incoming transfers:
// a token parked under the engine address without an edge is held until a
// link operation claims it. A parked token is its own root and the engine
// owns it, so under the default root-owner policy no ordinary actor can
// claim it; deployments that park tokens this way install an Authorizer
// (WithAuthorizer) that grants the claim, typically to the address the
// token came from.

// OnNonFungibleReceived acknowledges an incoming non-fungible transfer.
func (p *Protocol) OnNonFungibleReceived(_ context.Context, operator, from string, tok uint64, _ []byte) ([4]byte, error) {
	log.Debug(log.CatCustody, "Non-fungible custody received", "operator", operator, "from", from, "token", tok)
	return token.AckNonFungibleReceived, nil
}

// OnCountedAssetReceived acknowledges an incoming counted-asset transfer.
func (p *Protocol) OnCountedAssetReceived(_ context.Context, operator, from string, asset, amount uint64, _ []byte) ([4]byte, error) {
	log.Debug(log.CatCustody, "Counted-asset custody received", "operator", operator, "from", from, "asset", asset, "amount", amount)
	return token.AckCountedAssetReceived, nil
}
