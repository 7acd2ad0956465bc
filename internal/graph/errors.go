package graph

import "errors"

// ErrAlreadyLinked is returned when Link is called on a source that already
// has a target. Re-parenting must go through UpdateTarget so that "create"
// and "replace" stay unambiguous.
var ErrAlreadyLinked = errors.New("source is already linked")

// ErrNotLinked is returned when UpdateTarget or Unlink is called on a
// source that has no outgoing edge.
var ErrNotLinked = errors.New("source is not linked")

// ErrSelfLink is returned when source and target are the same node.
var ErrSelfLink = errors.New("source and target are the same node")

// ErrCycleDetected is returned when inserting or replacing an edge would
// make the edge relation cyclic.
var ErrCycleDetected = errors.New("operation would create a cycle")

// ErrGraphCorrupted is returned when a root-ward walk exceeds the defensive
// depth bound. It signals a broken forest invariant, not bad input, and
// must never be silently retried.
var ErrGraphCorrupted = errors.New("graph corrupted: depth bound exceeded during root resolution")
