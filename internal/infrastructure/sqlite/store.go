package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/trellisgraph/trellis/internal/graph"
	"github.com/trellisgraph/trellis/internal/ledger"
	"github.com/trellisgraph/trellis/internal/protocol"
	"github.com/trellisgraph/trellis/internal/token"
)

// CompositionStore persists graph edges and ledger attachments. Writes go
// through protocol.Tx so each operation's rows commit atomically; the Load
// methods hydrate fresh engines at boot.
type CompositionStore struct {
	db *sql.DB
}

// NewCompositionStore creates a store over an open connection.
func NewCompositionStore(db *sql.DB) *CompositionStore {
	return &CompositionStore{db: db}
}

// Ensure CompositionStore implements protocol.Store.
var _ protocol.Store = (*CompositionStore)(nil)

// Begin opens a write transaction.
func (s *CompositionStore) Begin() (protocol.Tx, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &compositionTx{tx: tx}, nil
}

// LoadGraph rebuilds the link graph from the edges table with the default
// depth bound. Rows are replayed through the engine's own checks, so a
// corrupted table (cycle, duplicate source) fails loudly here instead of
// at first use.
func (s *CompositionStore) LoadGraph() (*graph.Graph, error) {
	return s.LoadGraphWithDepth(graph.DefaultMaxDepth)
}

// LoadGraphWithDepth is LoadGraph with a configured depth bound.
func (s *CompositionStore) LoadGraphWithDepth(maxDepth int) (*graph.Graph, error) {
	rows, err := s.db.Query(`SELECT source, target FROM edges`)
	if err != nil {
		return nil, fmt.Errorf("failed to load edges: %w", err)
	}
	defer func() { _ = rows.Close() }()

	g := graph.NewWithDepth(maxDepth)
	for rows.Next() {
		var m EdgeModel
		if err := rows.Scan(&m.Source, &m.Target); err != nil {
			return nil, fmt.Errorf("failed to scan edge row: %w", err)
		}
		source, target, err := m.toDomain()
		if err != nil {
			return nil, err
		}
		if err := g.Link(source, target); err != nil {
			return nil, fmt.Errorf("stored edge %s -> %s rejected: %w", source, target, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating edge rows: %w", err)
	}
	return g, nil
}

// LoadLedger rebuilds the attachment ledger from the attachments table.
func (s *CompositionStore) LoadLedger() (*ledger.Ledger, error) {
	rows, err := s.db.Query(`SELECT resource, owner, amount FROM attachments`)
	if err != nil {
		return nil, fmt.Errorf("failed to load attachments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	l := ledger.New()
	for rows.Next() {
		var m AttachmentModel
		if err := rows.Scan(&m.Resource, &m.Owner, &m.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan attachment row: %w", err)
		}
		key, owner, amount, err := m.toDomain()
		if err != nil {
			return nil, err
		}
		if err := l.Deposit(key, owner, amount); err != nil {
			return nil, fmt.Errorf("stored attachment %s on %s rejected: %w", key, owner, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attachment rows: %w", err)
	}
	return l, nil
}

// compositionTx implements protocol.Tx over a SQLite transaction.
type compositionTx struct {
	tx *sql.Tx
}

func (t *compositionTx) PutEdge(source, target token.ID) error {
	_, err := t.tx.Exec(
		`INSERT INTO edges (source, target) VALUES (?, ?)
		 ON CONFLICT(source) DO UPDATE SET target = excluded.target`,
		source.String(), target.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to put edge: %w", err)
	}
	return nil
}

func (t *compositionTx) DeleteEdge(source token.ID) error {
	_, err := t.tx.Exec(`DELETE FROM edges WHERE source = ?`, source.String())
	if err != nil {
		return fmt.Errorf("failed to delete edge: %w", err)
	}
	return nil
}

func (t *compositionTx) PutAttachment(key ledger.Key, owner token.ID, amount uint64) error {
	_, err := t.tx.Exec(
		`INSERT INTO attachments (resource, owner, amount) VALUES (?, ?, ?)
		 ON CONFLICT(resource, owner) DO UPDATE SET amount = excluded.amount, updated_at = unixepoch()`,
		key.String(), owner.String(), int64(amount), //nolint:gosec // amounts stay far below int64 max in practice
	)
	if err != nil {
		return fmt.Errorf("failed to put attachment: %w", err)
	}
	return nil
}

func (t *compositionTx) DeleteAttachment(key ledger.Key, owner token.ID) error {
	_, err := t.tx.Exec(
		`DELETE FROM attachments WHERE resource = ? AND owner = ?`,
		key.String(), owner.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	return nil
}

func (t *compositionTx) Commit() error {
	return t.tx.Commit()
}

func (t *compositionTx) Rollback() error {
	return t.tx.Rollback()
}
