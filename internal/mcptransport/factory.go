package mcptransport

import (
	"context"
	"fmt"

	"github.com/mvp-joe/mcpline/internal/pool"
	"github.com/mvp-joe/mcpline/internal/protocol"
)

// NewFactory returns a pool.Factory that dispatches to StdioTransport or
// HTTPTransport based on each server's configured transport kind. The
// pool calls this exactly once per (re)construction, so neither branch
// needs its own caching.
func NewFactory(cfg protocol.Config) pool.Factory {
	cfg = cfg.WithDefaults()
	return func(_ context.Context, serverCfg protocol.ServerConfig) (pool.Transport, error) {
		switch serverCfg.Transport {
		case protocol.TransportStdio:
			return NewStdioTransport(serverCfg), nil
		case protocol.TransportHTTP:
			return NewHTTPTransport(serverCfg, cfg.RetryMax, cfg.RetryBaseDelay), nil
		default:
			return nil, fmt.Errorf("mcptransport: unknown transport kind %q for server %q", serverCfg.Transport, serverCfg.Name)
		}
	}
}
