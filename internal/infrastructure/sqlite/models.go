package sqlite

import (
	"fmt"

	"github.com/trellisgraph/trellis/internal/ledger"
	"github.com/trellisgraph/trellis/internal/token"
)

// EdgeModel represents a row of the edges table. Source and Target hold
// the canonical "collection/id" form.
type EdgeModel struct {
	Source string
	Target string
}

func (m EdgeModel) toDomain() (source, target token.ID, err error) {
	source, err = token.ParseID(m.Source)
	if err != nil {
		return token.ID{}, token.ID{}, fmt.Errorf("bad edge source: %w", err)
	}
	target, err = token.ParseID(m.Target)
	if err != nil {
		return token.ID{}, token.ID{}, fmt.Errorf("bad edge target: %w", err)
	}
	return source, target, nil
}

// AttachmentModel represents a row of the attachments table. Resource
// holds the canonical ledger key form, Owner the node id, and Amount the
// absolute recorded balance.
type AttachmentModel struct {
	Resource string
	Owner    string
	Amount   int64
}

func (m AttachmentModel) toDomain() (key ledger.Key, owner token.ID, amount uint64, err error) {
	key, err = ledger.ParseKey(m.Resource)
	if err != nil {
		return ledger.Key{}, token.ID{}, 0, fmt.Errorf("bad attachment resource: %w", err)
	}
	owner, err = token.ParseID(m.Owner)
	if err != nil {
		return ledger.Key{}, token.ID{}, 0, fmt.Errorf("bad attachment owner: %w", err)
	}
	if m.Amount <= 0 {
		return ledger.Key{}, token.ID{}, 0, fmt.Errorf("bad attachment amount %d for %s on %s", m.Amount, m.Resource, m.Owner)
	}
	return key, owner, uint64(m.Amount), nil
}
