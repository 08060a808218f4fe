// Package pool implements the connection pool of spec.md §4.3: a
// map from server name to a live MCP transport, health-checked before
// reuse and reconstructed on failure, with construction for a given
// server name serialized across concurrent callers.
package pool

import (
	"context"
	"encoding/json"

	"github.com/mvp-joe/mcpline/internal/protocol"
)

// Transport is the capability abstraction spec.md §9 "Polymorphic
// transports" calls for: the pool stores this interface, not a concrete
// stdio or HTTP type, so both can be lent out identically. The method set
// mirrors the two MCP operations the daemon's dispatch table forwards
// (spec.md §4.2).
type Transport interface {
	// ListTools returns the tool descriptors the MCP server exposes.
	ListTools(ctx context.Context) ([]protocol.ToolDescriptor, error)
	// CallTool invokes a named tool with opaque JSON arguments and
	// returns its opaque JSON result.
	CallTool(ctx context.Context, tool string, arguments json.RawMessage) (json.RawMessage, error)
	// HealthCheck performs a cheap round-trip to decide whether the
	// transport is still usable. It must respect ctx's deadline.
	HealthCheck(ctx context.Context) error
	// Close releases the transport's underlying OS resources.
	Close() error
}

// Factory constructs a fresh Transport for the given server configuration.
// Supplied by the caller so this package has no direct dependency on
// internal/mcptransport's concrete stdio/HTTP implementations.
type Factory func(ctx context.Context, cfg protocol.ServerConfig) (Transport, error)
