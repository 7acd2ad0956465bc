package protocol

import (
	"time"

	"github.com/google/uuid"

	"github.com/trellisgraph/trellis/internal/pubsub"
	"github.com/trellisgraph/trellis/internal/token"
)

// Family names the resource family a notification concerns.
type Family string

const (
	FamilyNonFungible  Family = "nonfungible"
	FamilyFungible     Family = "fungible"
	FamilyCountedAsset Family = "counted"
)

// Notification is the structured event emitted exactly once per successful
// mutating operation. The annotation is caller-supplied opaque bytes; its
// interpretation is entirely up to collaborators.
type Notification struct {
	ID     string           `json:"id"`
	Time   time.Time        `json:"time"`
	Op     pubsub.EventType `json:"op"`
	Family Family           `json:"family"`
	Actor  string           `json:"actor"`

	// Node is the source node for non-fungible operations, and the owner
	// node for fungible/counted operations.
	Node token.ID `json:"node"`

	// Resource and Amount are set for fungible/counted operations.
	Resource string `json:"resource,omitempty"`
	Amount   uint64 `json:"amount,omitempty"`

	// Target is the resulting target (link/retarget); Recipient is the
	// custody recipient address (unlink).
	Target    *token.ID `json:"target,omitempty"`
	Recipient string    `json:"recipient,omitempty"`

	Annotation []byte `json:"annotation,omitempty"`
}

func newNotification(op pubsub.EventType, family Family, actor string, node token.ID, annotation []byte) Notification {
	return Notification{
		ID:         uuid.NewString(),
		Time:       time.Now().UTC(),
		Op:         op,
		Family:     family,
		Actor:      actor,
		Node:       node,
		Annotation: annotation,
	}
}
