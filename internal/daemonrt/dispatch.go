package daemonrt

import (
	"context"
	"errors"

	"github.com/mvp-joe/mcpline/internal/protocol"
)

// dispatch implements spec.md §4.2's per-connection dispatch table: one
// request in, one response out, never a panic escaping to the peer.
func (s *Server) dispatch(ctx context.Context, req protocol.DaemonRequest) protocol.DaemonResponse {
	if err := req.Validate(); err != nil {
		return protocol.ErrorResponse(req.ID, protocol.NewError(protocol.ErrClient, "%v", err))
	}

	switch req.Kind {
	case protocol.RequestPing:
		return protocol.PongResponse(req.ID)

	case protocol.RequestGetConfigFingerprint:
		return protocol.ConfigFingerprintResponse(req.ID, s.fingerprint)

	case protocol.RequestListServers:
		return protocol.ServerListResponse(req.ID, s.cfg.ServerNames())

	case protocol.RequestListTools:
		return s.dispatchListTools(ctx, req)

	case protocol.RequestExecuteTool:
		return s.dispatchExecuteTool(ctx, req)

	case protocol.RequestShutdown:
		s.beginShutdown()
		return protocol.ShutdownAckResponse(req.ID)

	default:
		return protocol.ErrorResponse(req.ID, protocol.NewError(protocol.ErrClient, "unknown request kind %q", req.Kind))
	}
}

func (s *Server) dispatchListTools(ctx context.Context, req protocol.DaemonRequest) protocol.DaemonResponse {
	t, err := s.pool.Get(ctx, req.Server)
	if err != nil {
		return errorResponse(req.ID, err)
	}

	tools, err := t.ListTools(ctx)
	if err != nil {
		s.pool.Evict(req.Server)
		return errorResponse(req.ID, err)
	}
	return protocol.ToolListResponse(req.ID, tools)
}

func (s *Server) dispatchExecuteTool(ctx context.Context, req protocol.DaemonRequest) protocol.DaemonResponse {
	t, err := s.pool.Get(ctx, req.Server)
	if err != nil {
		return errorResponse(req.ID, err)
	}

	result, err := t.CallTool(ctx, req.Tool, req.Arguments)
	if err != nil {
		s.pool.Evict(req.Server)
		return errorResponse(req.ID, err)
	}
	return protocol.ToolResultResponse(req.ID, result)
}

// errorResponse unwraps a *protocol.Error from err where possible, so a
// typed error raised deep in a transport or the pool survives onto the
// wire with its original code instead of collapsing to a generic one.
func errorResponse(requestID string, err error) protocol.DaemonResponse {
	var perr *protocol.Error
	if errors.As(err, &perr) {
		return protocol.ErrorResponse(requestID, perr)
	}
	return protocol.ErrorResponse(requestID, protocol.NewError(protocol.ErrServer, "%v", err))
}
