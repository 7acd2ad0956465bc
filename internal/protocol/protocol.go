// Package protocol is the composition protocol: the orchestration layer
// that sequences link-graph and attachment-ledger mutations atomically per
// external call, performs collaborator custody transfers, and emits one
// structured notification per successful operation.
//
// The protocol exclusively owns the graph and ledger engines and provides
// the one-operation-at-a-time guarantee they rely on. Any precondition or
// mid-sequence failure aborts the whole operation with no core-state
// change; errors are specific sentinels so callers can tell "already
// composed, retarget instead" from "would create a cycle" from
// "insufficient authority".
package protocol

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/trellisgraph/trellis/internal/graph"
	"github.com/trellisgraph/trellis/internal/ledger"
	"github.com/trellisgraph/trellis/internal/log"
	"github.com/trellisgraph/trellis/internal/pubsub"
	"github.com/trellisgraph/trellis/internal/token"
)

// DefaultEngineAddress is the holder address under which the engine keeps
// custody of linked assets, unless overridden.
const DefaultEngineAddress = "trellis:engine"

// Authorizer decides whether an actor may mutate a subtree, given the
// subtree's resolved root and the root's current owner as reported by the
// collection collaborator. Returning a non-nil error (conventionally
// wrapping ErrUnauthorized) refuses the operation.
type Authorizer func(ctx context.Context, actor string, root token.ID, rootOwner string) error

// RootOwnerAuthorizer is the default policy: the actor must be the owner
// of the resolved root.
func RootOwnerAuthorizer(_ context.Context, actor string, root token.ID, rootOwner string) error {
	if actor != rootOwner {
		return fmt.Errorf("actor %s does not own root %s (owner %s): %w", actor, root, rootOwner, ErrUnauthorized)
	}
	return nil
}

// Protocol orchestrates the graph, the ledger, persistence, and the asset
// collaborators behind a single mutation lock.
type Protocol struct {
	mu     sync.Mutex
	graph  *graph.Graph
	ledger *ledger.Ledger
	dir    token.Directory
	store  Store
	broker *pubsub.Broker[Notification]
	auth   Authorizer
	engine string
	tracer trace.Tracer
	halted map[token.ID]struct{}
}

// Option configures a Protocol.
type Option func(*Protocol)

// WithState installs pre-hydrated engines (e.g. loaded from a store at
// boot) instead of empty ones.
func WithState(g *graph.Graph, l *ledger.Ledger) Option {
	return func(p *Protocol) {
		p.graph = g
		p.ledger = l
	}
}

// WithStore installs a persistence store; defaults to NopStore.
func WithStore(s Store) Option {
	return func(p *Protocol) { p.store = s }
}

// WithAuthorizer replaces the default root-owner policy.
func WithAuthorizer(a Authorizer) Option {
	return func(p *Protocol) { p.auth = a }
}

// WithEngineAddress sets the custody holder address for linked assets.
func WithEngineAddress(addr string) Option {
	return func(p *Protocol) { p.engine = addr }
}

// WithTracer installs an OpenTelemetry tracer for per-operation spans.
func WithTracer(t trace.Tracer) Option {
	return func(p *Protocol) { p.tracer = t }
}

// New builds a Protocol over the given collaborator directory.
func New(dir token.Directory, opts ...Option) *Protocol {
	p := &Protocol{
		graph:  graph.New(),
		ledger: ledger.New(),
		dir:    dir,
		store:  NopStore(),
		broker: pubsub.NewBroker[Notification](),
		auth:   RootOwnerAuthorizer,
		engine: DefaultEngineAddress,
		tracer: noop.NewTracerProvider().Tracer("protocol"),
		halted: make(map[token.ID]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Close shuts down the notification broker.
func (p *Protocol) Close() {
	p.broker.Close()
}

// Subscribe returns a stream of notifications. The channel closes when ctx
// is cancelled or the protocol is closed.
func (p *Protocol) Subscribe(ctx context.Context) <-chan pubsub.Event[Notification] {
	return p.broker.Subscribe(ctx)
}

// EngineAddress returns the custody holder address.
func (p *Protocol) EngineAddress() string { return p.engine }

// === shared operation plumbing ===

// startOp opens a span for a mutating operation and takes the mutation lock.
// The returned func releases both.
func (p *Protocol) startOp(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(err error)) {
	ctx, span := p.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	p.mu.Lock()
	return ctx, func(err error) {
		p.mu.Unlock()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// ownerOf resolves the current holder of a node via its collection
// collaborator. Existence is never cached: a node exists exactly when this
// lookup succeeds.
func (p *Protocol) ownerOf(ctx context.Context, node token.ID) (string, error) {
	col, err := p.dir.Collection(node.Collection)
	if err != nil {
		return "", &NodeNotFoundError{Node: node, Err: err}
	}
	owner, err := col.OwnerOf(ctx, node.Token)
	if err != nil {
		return "", &NodeNotFoundError{Node: node, Err: err}
	}
	return owner, nil
}

// authorize resolves node's root, asks the collection who owns it, and
// applies the authorization policy.
func (p *Protocol) authorize(ctx context.Context, actor string, node token.ID) error {
	root, err := p.findRoot(node)
	if err != nil {
		return err
	}
	rootOwner, err := p.ownerOf(ctx, root)
	if err != nil {
		return err
	}
	return p.auth(ctx, actor, root, rootOwner)
}

// findRoot wraps graph.FindRoot with the corruption latch: a walk that
// trips the depth bound halts the node against further mutation.
func (p *Protocol) findRoot(node token.ID) (token.ID, error) {
	root, err := p.graph.FindRoot(node)
	if err != nil {
		p.halted[node] = struct{}{}
		log.Error(log.CatProtocol, "Root resolution tripped corruption bound; halting node", "node", node)
		return token.ID{}, fmt.Errorf("resolving root of %s: %w", node, err)
	}
	return root, nil
}

// checkHalted refuses mutations touching halted nodes.
func (p *Protocol) checkHalted(nodes ...token.ID) error {
	for _, n := range nodes {
		if _, bad := p.halted[n]; bad {
			return fmt.Errorf("node %s: %w", n, ErrNodeHalted)
		}
	}
	return nil
}

// persist runs one store transaction. The caller's writes either all
// commit or the transaction is rolled back and the error returned.
func (p *Protocol) persist(writes func(Tx) error) error {
	tx, err := p.store.Begin()
	if err != nil {
		return fmt.Errorf("begin store tx: %w", err)
	}
	if err := writes(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit store tx: %w", err)
	}
	return nil
}

// emit publishes the notification for a committed operation.
func (p *Protocol) emit(n Notification) {
	log.Debug(log.CatProtocol, "Operation committed",
		"op", string(n.Op), "family", string(n.Family), "node", n.Node, "actor", n.Actor)
	p.broker.Publish(n.Op, n)
}

// custodyErr wraps a collaborator transfer failure.
func custodyErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrCustodyTransferFailed, err)
}

// IsInputError reports whether the error is a caller-correctable input
// error (as opposed to corruption or collaborator failure).
func IsInputError(err error) bool {
	return errors.Is(err, graph.ErrAlreadyLinked) ||
		errors.Is(err, graph.ErrNotLinked) ||
		errors.Is(err, graph.ErrSelfLink) ||
		errors.Is(err, graph.ErrCycleDetected) ||
		errors.Is(err, ledger.ErrInvalidAmount) ||
		errors.Is(err, ledger.ErrNotFound)
}
