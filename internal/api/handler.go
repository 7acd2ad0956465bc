// Package api exposes the composition protocol over HTTP.
// It provides REST endpoints for graph mutations and queries plus SSE for
// notification streaming. Error kinds map to distinct statuses and codes
// so callers can tell "already linked" from "would create a cycle" from
// "insufficient authority" without parsing messages.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/trellisgraph/trellis/internal/graph"
	"github.com/trellisgraph/trellis/internal/ledger"
	"github.com/trellisgraph/trellis/internal/log"
	"github.com/trellisgraph/trellis/internal/protocol"
	"github.com/trellisgraph/trellis/internal/token"
)

// Handler provides HTTP endpoints for protocol operations.
type Handler struct {
	proto *protocol.Protocol
}

// NewHandler creates a new API handler wrapping the given protocol.
func NewHandler(p *protocol.Protocol) *Handler {
	return &Handler{proto: p}
}

// Routes returns an http.Handler with all API routes registered.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	// Mutations
	mux.HandleFunc("POST /link", h.Link)
	mux.HandleFunc("POST /retarget", h.Retarget)
	mux.HandleFunc("POST /unlink", h.Unlink)

	// Queries
	mux.HandleFunc("GET /nodes/{collection}/{id}/root", h.Root)
	mux.HandleFunc("GET /nodes/{collection}/{id}/target", h.Target)
	mux.HandleFunc("GET /nodes/{collection}/{id}/children", h.Children)
	mux.HandleFunc("GET /nodes/{collection}/{id}/balance", h.Balance)

	// Event streaming
	mux.HandleFunc("GET /events", h.StreamEvents)

	// Health check
	mux.HandleFunc("GET /health", h.Health)

	return mux
}

// === Request/Response Types ===

// MutationRequest is the request body shared by link, retarget, and
// unlink. Family selects the resource family; the remaining fields are
// family-dependent.
type MutationRequest struct {
	// Actor is the address performing the operation (required).
	Actor string `json:"actor"`
	// Family is "nonfungible", "fungible", or "counted" (required).
	Family string `json:"family"`
	// Node is the source node (nonfungible) or owner node (fungible,
	// counted) in "collection/id" form (required).
	Node string `json:"node"`
	// Target is the target node for link and retarget.
	Target string `json:"target,omitempty"`
	// Recipient is the custody recipient address for unlink.
	Recipient string `json:"recipient,omitempty"`
	// Resource is the currency address (fungible) or multi-asset
	// collection address (counted).
	Resource string `json:"resource,omitempty"`
	// Asset is the asset id within the multi-asset collection (counted).
	Asset uint64 `json:"asset,omitempty"`
	// Amount is the number of units to attach (link only).
	Amount uint64 `json:"amount,omitempty"`
	// Annotation is opaque bytes passed through to the notification.
	Annotation []byte `json:"annotation,omitempty"`
}

// RootResponse is the response body for the root query.
type RootResponse struct {
	Node string `json:"node"`
	Root string `json:"root"`
}

// TargetResponse is the response body for the target query.
type TargetResponse struct {
	Node   string `json:"node"`
	Linked bool   `json:"linked"`
	Target string `json:"target,omitempty"`
}

// ChildrenResponse is the response body for the children query.
type ChildrenResponse struct {
	Node     string   `json:"node"`
	Children []string `json:"children"`
	Total    int      `json:"total"`
}

// BalanceResponse is the response body for the balance query.
type BalanceResponse struct {
	Node     string `json:"node"`
	Resource string `json:"resource"`
	Amount   uint64 `json:"amount"`
}

// HealthResponse is the response body for the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Edges  int    `json:"edges"`
}

// ErrorResponse is the response body for errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// === Handlers ===

// Link creates a new edge or attachment.
// POST /link
func (h *Handler) Link(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, req MutationRequest, node token.ID) error {
		switch req.Family {
		case string(protocol.FamilyNonFungible):
			target, err := token.ParseID(req.Target)
			if err != nil {
				return badRequest(err)
			}
			return h.proto.LinkNonFungible(ctx, req.Actor, node, target, req.Annotation)
		case string(protocol.FamilyFungible):
			return h.proto.LinkFungible(ctx, req.Actor, req.Resource, node, req.Amount, req.Annotation)
		case string(protocol.FamilyCountedAsset):
			return h.proto.LinkCountedAsset(ctx, req.Actor, req.Resource, req.Asset, node, req.Amount, req.Annotation)
		default:
			return badRequest(fmt.Errorf("unknown family %q", req.Family))
		}
	})
}

// Retarget moves an existing edge or attachment to a new target.
// POST /retarget
func (h *Handler) Retarget(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, req MutationRequest, node token.ID) error {
		target, err := token.ParseID(req.Target)
		if err != nil {
			return badRequest(err)
		}
		switch req.Family {
		case string(protocol.FamilyNonFungible):
			return h.proto.UpdateNonFungibleTarget(ctx, req.Actor, node, target, req.Annotation)
		case string(protocol.FamilyFungible):
			return h.proto.UpdateFungibleTarget(ctx, req.Actor, req.Resource, node, target, req.Annotation)
		case string(protocol.FamilyCountedAsset):
			return h.proto.UpdateCountedAssetTarget(ctx, req.Actor, req.Resource, req.Asset, node, target, req.Annotation)
		default:
			return badRequest(fmt.Errorf("unknown family %q", req.Family))
		}
	})
}

// Unlink removes an edge or attachment, releasing custody to the recipient.
// POST /unlink
func (h *Handler) Unlink(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, req MutationRequest, node token.ID) error {
		if req.Recipient == "" {
			return badRequest(fmt.Errorf("recipient is required"))
		}
		switch req.Family {
		case string(protocol.FamilyNonFungible):
			return h.proto.UnlinkNonFungible(ctx, req.Actor, req.Recipient, node, req.Annotation)
		case string(protocol.FamilyFungible):
			return h.proto.UnlinkFungible(ctx, req.Actor, req.Recipient, req.Resource, node, req.Annotation)
		case string(protocol.FamilyCountedAsset):
			return h.proto.UnlinkCountedAsset(ctx, req.Actor, req.Recipient, req.Resource, req.Asset, node, req.Annotation)
		default:
			return badRequest(fmt.Errorf("unknown family %q", req.Family))
		}
	})
}

// mutate decodes the shared request shape and maps the operation error.
func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, req MutationRequest, node token.ID) error) {
	var req MutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_json", "Invalid JSON body", err.Error())
		return
	}
	if req.Actor == "" {
		h.writeError(w, http.StatusBadRequest, "validation_error", "actor is required", "")
		return
	}
	node, err := token.ParseID(req.Node)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_error", "node must be collection/id", err.Error())
		return
	}

	if err := op(r.Context(), req, node); err != nil {
		h.writeProtocolError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Root resolves a node's root.
// GET /nodes/{collection}/{id}/root
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	node, ok := h.pathNode(w, r)
	if !ok {
		return
	}
	root, err := h.proto.FindRootToken(node)
	if err != nil {
		h.writeProtocolError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, RootResponse{Node: node.String(), Root: root.String()})
}

// Target returns a node's current target, if any.
// GET /nodes/{collection}/{id}/target
func (h *Handler) Target(w http.ResponseWriter, r *http.Request) {
	node, ok := h.pathNode(w, r)
	if !ok {
		return
	}
	resp := TargetResponse{Node: node.String()}
	if target, linked := h.proto.Target(node); linked {
		resp.Linked = true
		resp.Target = target.String()
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Children returns the nodes linked directly under a node.
// GET /nodes/{collection}/{id}/children
func (h *Handler) Children(w http.ResponseWriter, r *http.Request) {
	node, ok := h.pathNode(w, r)
	if !ok {
		return
	}
	children := h.proto.Children(node)
	resp := ChildrenResponse{Node: node.String(), Children: make([]string, 0, len(children)), Total: len(children)}
	for _, child := range children {
		resp.Children = append(resp.Children, child.String())
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Balance returns the recorded attachment amount for one resource.
// GET /nodes/{collection}/{id}/balance?family=fungible&resource=gold
// GET /nodes/{collection}/{id}/balance?family=counted&resource=gems&asset=7
func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	node, ok := h.pathNode(w, r)
	if !ok {
		return
	}
	family := r.URL.Query().Get("family")
	resource := r.URL.Query().Get("resource")
	if resource == "" {
		h.writeError(w, http.StatusBadRequest, "validation_error", "resource query parameter is required", "")
		return
	}

	switch family {
	case string(protocol.FamilyFungible):
		amount := h.proto.BalanceOfFungible(node, resource)
		h.writeJSON(w, http.StatusOK, BalanceResponse{
			Node: node.String(), Resource: ledger.CurrencyKey(resource).String(), Amount: amount,
		})
	case string(protocol.FamilyCountedAsset):
		asset, err := strconv.ParseUint(r.URL.Query().Get("asset"), 10, 64)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "validation_error", "asset query parameter must be a number", err.Error())
			return
		}
		amount := h.proto.BalanceOfCountedAsset(node, resource, asset)
		h.writeJSON(w, http.StatusOK, BalanceResponse{
			Node: node.String(), Resource: ledger.AssetKey(resource, asset).String(), Amount: amount,
		})
	default:
		h.writeError(w, http.StatusBadRequest, "validation_error", "family must be \"fungible\" or \"counted\"", "")
	}
}

// StreamEvents streams protocol notifications via SSE.
// GET /events
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	events := h.proto.Subscribe(r.Context())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "streaming_unsupported", "Streaming not supported", "")
		return
	}

	_, _ = fmt.Fprintf(w, "event: connected\ndata: {}\n\n")
	flusher.Flush()

	// Heartbeat comments keep idle connections alive through proxies.
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event.Payload)
			if err != nil {
				log.Error(log.CatAPI, "Failed to marshal notification", "error", err)
				continue
			}
			_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			flusher.Flush()
		}
	}
}

// Health returns the daemon health status.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Edges: h.proto.EdgeCount()})
}

// === Helpers ===

func (h *Handler) pathNode(w http.ResponseWriter, r *http.Request) (token.ID, bool) {
	node, err := token.ParseID(r.PathValue("collection") + "/" + r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_error", "node must be collection/id", err.Error())
		return token.ID{}, false
	}
	return node, true
}

// badRequestError marks a validation failure detected inside an operation
// closure.
type badRequestError struct{ err error }

func (e badRequestError) Error() string { return e.err.Error() }
func (e badRequestError) Unwrap() error { return e.err }

func badRequest(err error) error { return badRequestError{err: err} }

// writeProtocolError maps protocol error kinds to HTTP statuses and codes.
func (h *Handler) writeProtocolError(w http.ResponseWriter, err error) {
	var br badRequestError
	var notFound *protocol.NodeNotFoundError

	switch {
	case errors.As(err, &br):
		h.writeError(w, http.StatusBadRequest, "validation_error", br.Error(), "")
	case errors.As(err, &notFound):
		h.writeError(w, http.StatusNotFound, "node_not_found", "Node not found", notFound.Node.String())
	case errors.Is(err, token.ErrNoSuchCollaborator):
		h.writeError(w, http.StatusNotFound, "no_such_collaborator", "No collaborator registered", err.Error())
	case errors.Is(err, ledger.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "no_attachment", "No attachment exists", err.Error())
	case errors.Is(err, graph.ErrSelfLink):
		h.writeError(w, http.StatusBadRequest, "self_link", "A node cannot target itself", "")
	case errors.Is(err, ledger.ErrInvalidAmount):
		h.writeError(w, http.StatusBadRequest, "invalid_amount", "Amount must be positive", "")
	case errors.Is(err, graph.ErrAlreadyLinked):
		h.writeError(w, http.StatusConflict, "already_linked", "Source is already linked; retarget instead", err.Error())
	case errors.Is(err, graph.ErrNotLinked):
		h.writeError(w, http.StatusConflict, "not_linked", "Source is not linked", err.Error())
	case errors.Is(err, graph.ErrCycleDetected):
		h.writeError(w, http.StatusConflict, "cycle_detected", "Operation would create a cycle", err.Error())
	case errors.Is(err, protocol.ErrUnauthorized):
		h.writeError(w, http.StatusForbidden, "unauthorized", "Actor does not control the subtree root", err.Error())
	case errors.Is(err, protocol.ErrCustodyTransferFailed):
		h.writeError(w, http.StatusBadGateway, "custody_transfer_failed", "Collaborator refused the custody transfer", err.Error())
	case errors.Is(err, protocol.ErrNodeHalted):
		h.writeError(w, http.StatusConflict, "node_halted", "Node is halted pending corruption repair", err.Error())
	case errors.Is(err, graph.ErrGraphCorrupted):
		h.writeError(w, http.StatusInternalServerError, "graph_corrupted", "Root resolution exceeded the depth bound", err.Error())
	default:
		h.writeError(w, http.StatusInternalServerError, "internal", "Operation failed", err.Error())
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error(log.CatAPI, "Failed to encode JSON response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message, details string) {
	h.writeJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}
