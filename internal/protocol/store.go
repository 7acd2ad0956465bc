package protocol

import (
	"github.com/trellisgraph/trellis/internal/ledger"
	"github.com/trellisgraph/trellis/internal/token"
)

// Store persists the edge and attachment tables. The protocol opens one
// transaction per mutating operation and commits it before touching the
// in-memory engines, so a crash can at worst lose an uncommitted
// operation, never half of one.
type Store interface {
	Begin() (Tx, error)
}

// Tx is one all-or-nothing batch of table writes.
type Tx interface {
	PutEdge(source, target token.ID) error
	DeleteEdge(source token.ID) error
	// PutAttachment records the absolute amount for (key, owner),
	// replacing any previous row.
	PutAttachment(key ledger.Key, owner token.ID, amount uint64) error
	DeleteAttachment(key ledger.Key, owner token.ID) error
	Commit() error
	Rollback() error
}

// NopStore returns a Store that records nothing. Used by tests and by
// embedders that manage durability themselves.
func NopStore() Store { return nopStore{} }

type nopStore struct{}

func (nopStore) Begin() (Tx, error) { return nopTx{}, nil }

type nopTx struct{}

func (nopTx) PutEdge(_, _ token.ID) error                        { return nil }
func (nopTx) DeleteEdge(_ token.ID) error                        { return nil }
func (nopTx) PutAttachment(_ ledger.Key, _ token.ID, _ uint64) error { return nil }
func (nopTx) DeleteAttachment(_ ledger.Key, _ token.ID) error    { return nil }
func (nopTx) Commit() error                                      { return nil }
func (nopTx) Rollback() error                                    { return nil }
