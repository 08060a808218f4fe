package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// ErrorCode is the IPC response error taxonomy from spec.md §7.
type ErrorCode int

const (
	// ErrClient marks a malformed request, unknown server name, or
	// argument schema mismatch.
	ErrClient ErrorCode = 1
	// ErrServer marks an MCP server error, exit, or unreachability.
	ErrServer ErrorCode = 2
	// ErrTransport marks an IPC framing error or transport-level failure
	// outside a transport's own retry envelope.
	ErrTransport ErrorCode = 3
)

// Error is the daemon's typed error payload. It also satisfies the error
// interface so it can flow through normal Go error handling up to the
// point it is serialized onto the wire.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("daemon error %d: %s", e.Code, e.Message)
}

func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// RequestKind tags a DaemonRequest's variant.
type RequestKind string

const (
	RequestPing                 RequestKind = "ping"
	RequestGetConfigFingerprint RequestKind = "get_config_fingerprint"
	RequestListServers          RequestKind = "list_servers"
	RequestListTools            RequestKind = "list_tools"
	RequestExecuteTool          RequestKind = "execute_tool"
	RequestShutdown             RequestKind = "shutdown"
)

// DaemonRequest is the tagged union sent client->daemon (spec.md §3). Only
// the fields relevant to Kind are populated; the rest are left zero.
type DaemonRequest struct {
	ID   string      `json:"id"`
	Kind RequestKind `json:"kind"`

	Server    string          `json:"server,omitempty"`
	Tool      string          `json:"tool,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

func newRequest(kind RequestKind) DaemonRequest {
	return DaemonRequest{ID: uuid.NewString(), Kind: kind}
}

func NewPingRequest() DaemonRequest { return newRequest(RequestPing) }

func NewGetConfigFingerprintRequest() DaemonRequest {
	return newRequest(RequestGetConfigFingerprint)
}

func NewListServersRequest() DaemonRequest { return newRequest(RequestListServers) }

func NewListToolsRequest(server string) DaemonRequest {
	r := newRequest(RequestListTools)
	r.Server = server
	return r
}

func NewExecuteToolRequest(server, tool string, arguments json.RawMessage) DaemonRequest {
	r := newRequest(RequestExecuteTool)
	r.Server = server
	r.Tool = tool
	r.Arguments = arguments
	return r
}

func NewShutdownRequest() DaemonRequest { return newRequest(RequestShutdown) }

// Validate checks that a decoded request is well-formed enough to
// dispatch. The daemon answers a request that fails it with a code-1
// error (spec.md §4.2 "Per-connection dispatch").
func (r DaemonRequest) Validate() error {
	switch r.Kind {
	case RequestPing, RequestGetConfigFingerprint, RequestListServers, RequestShutdown:
		return nil
	case RequestListTools:
		if r.Server == "" {
			return fmt.Errorf("list_tools: server is required")
		}
		return nil
	case RequestExecuteTool:
		if r.Server == "" {
			return fmt.Errorf("execute_tool: server is required")
		}
		if r.Tool == "" {
			return fmt.Errorf("execute_tool: tool is required")
		}
		return nil
	default:
		return fmt.Errorf("unknown request kind %q", r.Kind)
	}
}

// ResponseKind tags a DaemonResponse's variant.
type ResponseKind string

const (
	ResponsePong              ResponseKind = "pong"
	ResponseConfigFingerprint ResponseKind = "config_fingerprint"
	ResponseServerList        ResponseKind = "server_list"
	ResponseToolList          ResponseKind = "tool_list"
	ResponseToolResult        ResponseKind = "tool_result"
	ResponseShutdownAck       ResponseKind = "shutdown_ack"
	ResponseError             ResponseKind = "error"
)

// ToolDescriptor mirrors the tool metadata shape of spec.md §3's ListTools
// response entry.
type ToolDescriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

// DaemonResponse is the tagged union sent daemon->client (spec.md §3).
type DaemonResponse struct {
	ID   string       `json:"id"`
	Kind ResponseKind `json:"kind"`

	Fingerprint string           `json:"fingerprint,omitempty"`
	Servers     []string         `json:"servers,omitempty"`
	Tools       []ToolDescriptor `json:"tools,omitempty"`
	Result      json.RawMessage  `json:"result,omitempty"`
	Error       *Error           `json:"error,omitempty"`
}

func PongResponse(requestID string) DaemonResponse {
	return DaemonResponse{ID: requestID, Kind: ResponsePong}
}

func ConfigFingerprintResponse(requestID, fingerprint string) DaemonResponse {
	return DaemonResponse{ID: requestID, Kind: ResponseConfigFingerprint, Fingerprint: fingerprint}
}

func ServerListResponse(requestID string, servers []string) DaemonResponse {
	return DaemonResponse{ID: requestID, Kind: ResponseServerList, Servers: servers}
}

func ToolListResponse(requestID string, tools []ToolDescriptor) DaemonResponse {
	return DaemonResponse{ID: requestID, Kind: ResponseToolList, Tools: tools}
}

func ToolResultResponse(requestID string, result json.RawMessage) DaemonResponse {
	return DaemonResponse{ID: requestID, Kind: ResponseToolResult, Result: result}
}

func ShutdownAckResponse(requestID string) DaemonResponse {
	return DaemonResponse{ID: requestID, Kind: ResponseShutdownAck}
}

func ErrorResponse(requestID string, err *Error) DaemonResponse {
	return DaemonResponse{ID: requestID, Kind: ResponseError, Error: err}
}

// AsError returns the response's Error payload, or nil if Kind is not
// ResponseError.
func (r DaemonResponse) AsError() *Error {
	if r.Kind != ResponseError {
		return nil
	}
	return r.Error
}
