package protocol

import (
	"errors"
	"fmt"

	"github.com/trellisgraph/trellis/internal/graph"
	"github.com/trellisgraph/trellis/internal/token"
)

// ErrUnauthorized is returned when the acting caller lacks authority over
// the node being mutated. The default policy requires the actor to own the
// node's resolved root; deployments can substitute their own Authorizer.
var ErrUnauthorized = errors.New("caller lacks authority over the node's root")

// ErrCustodyTransferFailed is returned when the external asset
// collaborator's transfer step failed. The operation is aborted with no
// core-state change.
var ErrCustodyTransferFailed = errors.New("custody transfer failed")

// ErrNodeHalted is returned for mutations touching a node whose subtree
// tripped the corruption bound. The latch is only cleared by restarting
// the engine against a repaired store.
var ErrNodeHalted = errors.New("node is halted pending corruption investigation")

// NodeNotFoundError reports that a referenced node does not exist
// according to its collection collaborator.
type NodeNotFoundError struct {
	Node token.ID
	Err  error
}

func (e *NodeNotFoundError) Error() string {
	return fmt.Sprintf("node %s not found: %v", e.Node, e.Err)
}

func (e *NodeNotFoundError) Unwrap() error { return e.Err }

// errAlreadyAttached keeps the create-vs-replace distinction for
// attachments; it matches errors.Is(err, graph.ErrAlreadyLinked).
var errAlreadyAttached = fmt.Errorf("attachment already exists: %w", graph.ErrAlreadyLinked)

func errNotLinked(node token.ID) error {
	return fmt.Errorf("node %s: %w", node, graph.ErrNotLinked)
}
