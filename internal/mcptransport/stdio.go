// Package mcptransport implements the two concrete pool.Transport
// backends spec.md §4.5 calls for: a stdio transport that spawns an MCP
// server as a subprocess, and an HTTP transport that speaks JSON-RPC to
// a remote MCP server with retry and backoff.
package mcptransport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	sdkclient "github.com/mark3labs/mcp-go/client"
	sdkmcp "github.com/mark3labs/mcp-go/mcp"

	"github.com/mvp-joe/mcpline/internal/protocol"
)

const clientName = "mcpline"

// clientVersion is reported to MCP servers during the initialize
// handshake. It does not need to track the module's own release version.
const clientVersion = "0.1.0"

// StdioTransport runs an MCP server as a subprocess and speaks to it
// over newline-delimited JSON-RPC on stdin/stdout, via mark3labs/mcp-go's
// client package. The subprocess is not started until the first call;
// the handshake result is cached for the lifetime of the transport.
type StdioTransport struct {
	cfg protocol.ServerConfig

	mu     sync.Mutex
	inner  sdkclient.MCPClient
	closed bool
}

// NewStdioTransport returns a StdioTransport bound to cfg. The
// subprocess is not spawned until the first ListTools, CallTool or
// HealthCheck call reaches it.
func NewStdioTransport(cfg protocol.ServerConfig) *StdioTransport {
	return &StdioTransport{cfg: cfg}
}

// connect lazily starts the subprocess and performs the MCP initialize
// handshake. Caller must hold t.mu.
func (t *StdioTransport) connect(ctx context.Context) (sdkclient.MCPClient, error) {
	if t.inner != nil {
		return t.inner, nil
	}
	if t.closed {
		return nil, fmt.Errorf("mcptransport: stdio transport %q is closed", t.cfg.Name)
	}

	cli, err := sdkclient.NewStdioMCPClient(t.cfg.Command, envSlice(t.cfg.Env), t.cfg.Args...)
	if err != nil {
		return nil, fmt.Errorf("mcptransport: start stdio server %q: %w", t.cfg.Name, err)
	}

	if _, err := cli.Initialize(ctx, sdkmcp.InitializeRequest{
		Params: sdkmcp.InitializeParams{
			ProtocolVersion: sdkmcp.LATEST_PROTOCOL_VERSION,
			ClientInfo: sdkmcp.Implementation{
				Name:    clientName,
				Version: clientVersion,
			},
		},
	}); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("mcptransport: initialize server %q: %w", t.cfg.Name, err)
	}

	t.inner = cli
	return cli, nil
}

// envSlice converts the map-shaped config environment into the
// "KEY=VALUE" slice exec.Cmd and mcp-go's stdio client expect.
func envSlice(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

func (t *StdioTransport) ListTools(ctx context.Context) ([]protocol.ToolDescriptor, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cli, err := t.connect(ctx)
	if err != nil {
		return nil, err
	}

	result, err := cli.ListTools(ctx, sdkmcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("mcptransport: list tools %q: %w", t.cfg.Name, err)
	}

	tools := make([]protocol.ToolDescriptor, 0, len(result.Tools))
	for _, tool := range result.Tools {
		schema, err := json.Marshal(tool.InputSchema)
		if err != nil {
			schema = json.RawMessage("{}")
		}
		tools = append(tools, protocol.ToolDescriptor{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: schema,
		})
	}
	return tools, nil
}

func (t *StdioTransport) CallTool(ctx context.Context, tool string, arguments json.RawMessage) (json.RawMessage, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cli, err := t.connect(ctx)
	if err != nil {
		return nil, err
	}

	var args map[string]any
	if len(arguments) > 0 {
		if err := json.Unmarshal(arguments, &args); err != nil {
			return nil, protocol.NewError(protocol.ErrClient, "decode arguments for tool %q: %v", tool, err)
		}
	}

	req := sdkmcp.CallToolRequest{}
	req.Params.Name = tool
	req.Params.Arguments = args

	result, err := cli.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("mcptransport: call tool %q on %q: %w", tool, t.cfg.Name, err)
	}

	out, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("mcptransport: encode result of %q on %q: %w", tool, t.cfg.Name, err)
	}
	if result.IsError {
		return out, protocol.NewError(protocol.ErrServer, "tool %q reported an error", tool)
	}
	return out, nil
}

// pinger is implemented by mcp-go's stdio client; checked with a type
// assertion since client.MCPClient itself does not declare Ping.
type pinger interface {
	Ping(ctx context.Context) error
}

func (t *StdioTransport) HealthCheck(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	cli, err := t.connect(ctx)
	if err != nil {
		return err
	}

	if p, ok := cli.(pinger); ok {
		return p.Ping(ctx)
	}
	_, err = cli.ListTools(ctx, sdkmcp.ListToolsRequest{})
	return err
}

func (t *StdioTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	if t.inner == nil {
		return nil
	}
	err := t.inner.Close()
	t.inner = nil
	return err
}
