// Package token provides the identity layer for the composability graph:
// canonical node identifiers and the narrow contracts of the external asset
// collaborators that actually hold custody of tokens.
//
// This package has no state of its own. A node "exists" exactly when its
// collection's ownership query succeeds, and that answer is never cached
// here because tokens can be burned out from under the graph at any time.
package token

import (
	"fmt"
	"strconv"
	"strings"
)

// ID identifies a node as (collection address, per-collection token id).
// IDs are value types: two IDs are the same node iff they compare equal.
type ID struct {
	Collection string
	Token      uint64
}

// NewID builds an ID from a collection address and token number.
func NewID(collection string, tok uint64) ID {
	return ID{Collection: collection, Token: tok}
}

// IsZero reports whether the ID is the zero value (no node).
func (id ID) IsZero() bool {
	return id.Collection == "" && id.Token == 0
}

// String returns the canonical wire form "collection/id".
func (id ID) String() string {
	return id.Collection + "/" + strconv.FormatUint(id.Token, 10)
}

// ParseID parses the canonical "collection/id" form produced by String.
func ParseID(s string) (ID, error) {
	idx := strings.LastIndex(s, "/")
	if idx <= 0 || idx == len(s)-1 {
		return ID{}, fmt.Errorf("malformed node id %q: want collection/id", s)
	}
	tok, err := strconv.ParseUint(s[idx+1:], 10, 64)
	if err != nil {
		return ID{}, fmt.Errorf("malformed node id %q: %w", s, err)
	}
	return ID{Collection: s[:idx], Token: tok}, nil
}

// MarshalText implements encoding.TextMarshaler so IDs can key JSON maps.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(b []byte) error {
	parsed, err := ParseID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
