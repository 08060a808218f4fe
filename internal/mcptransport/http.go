package mcptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/mvp-joe/mcpline/internal/protocol"
)

// httpRetryCap bounds the per-request backoff spec.md §4.5 describes as
// "exponential, capped" regardless of how many retries RetryMax allows.
const httpRetryCap = 30 * time.Second

// jsonrpcRequest is the wire envelope for a single JSON-RPC 2.0 call.
type jsonrpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// jsonrpcResponse is the wire envelope for a single JSON-RPC 2.0 reply.
type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpcError   `json:"error,omitempty"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// HTTPTransport speaks MCP's JSON-RPC 2.0 wire format to a remote server
// over HTTP, retrying transient failures with exponential backoff per
// spec.md §4.5.
type HTTPTransport struct {
	cfg    protocol.ServerConfig
	client *retryablehttp.Client
	nextID int64
}

// NewHTTPTransport builds an HTTPTransport for cfg, configuring retry
// behavior from the daemon-wide config (cfg and limits come from the
// same protocol.Config the pool was built with).
func NewHTTPTransport(cfg protocol.ServerConfig, retryMax int, retryBaseDelay time.Duration) *HTTPTransport {
	rc := retryablehttp.NewClient()
	rc.Logger = nil
	rc.RetryMax = retryMax
	rc.RetryWaitMin = retryBaseDelay
	rc.RetryWaitMax = httpRetryCap
	rc.Backoff = retryablehttp.DefaultBackoff
	rc.CheckRetry = checkRetry

	return &HTTPTransport{cfg: cfg, client: rc}
}

// checkRetry retries on connection-level errors and on the status codes
// spec.md §4.5 names: 429 (rate limited) and 502/503/504 (upstream
// unavailable). Any other 4xx/5xx is treated as final.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true, nil
	}
	return false, nil
}

func (t *HTTPTransport) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := atomic.AddInt64(&t.nextID, 1)
	body, err := json.Marshal(jsonrpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("mcptransport: marshal %s request: %w", method, err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, t.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("mcptransport: build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range t.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mcptransport: %s request to %q: %w", method, t.cfg.Name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("mcptransport: read %s response from %q: %w", method, t.cfg.Name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, protocol.NewError(protocol.ErrServer, "%s on %q: HTTP %d: %s", method, t.cfg.Name, resp.StatusCode, bytes.TrimSpace(raw))
	}

	var rpcResp jsonrpcResponse
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return nil, protocol.NewError(protocol.ErrServer, "%s on %q: decode response: %v", method, t.cfg.Name, err)
	}
	if rpcResp.Error != nil {
		return nil, protocol.NewError(protocol.ErrServer, "%s on %q: %s", method, t.cfg.Name, rpcResp.Error.Message)
	}
	return rpcResp.Result, nil
}

func (t *HTTPTransport) ListTools(ctx context.Context) ([]protocol.ToolDescriptor, error) {
	raw, err := t.call(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Tools []struct {
			Name        string          `json:"name"`
			Description string          `json:"description"`
			InputSchema json.RawMessage `json:"inputSchema"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, protocol.NewError(protocol.ErrServer, "list tools on %q: decode result: %v", t.cfg.Name, err)
	}

	tools := make([]protocol.ToolDescriptor, 0, len(parsed.Tools))
	for _, tl := range parsed.Tools {
		schema := tl.InputSchema
		if len(schema) == 0 {
			schema = json.RawMessage("{}")
		}
		tools = append(tools, protocol.ToolDescriptor{Name: tl.Name, Description: tl.Description, InputSchema: schema})
	}
	return tools, nil
}

func (t *HTTPTransport) CallTool(ctx context.Context, tool string, arguments json.RawMessage) (json.RawMessage, error) {
	params := struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments,omitempty"`
	}{Name: tool, Arguments: arguments}

	return t.call(ctx, "tools/call", params)
}

func (t *HTTPTransport) HealthCheck(ctx context.Context) error {
	_, err := t.call(ctx, "tools/list", nil)
	return err
}

// Close is a no-op: the underlying HTTP client has no persistent
// connection state that outlives a request.
func (t *HTTPTransport) Close() error {
	return nil
}
