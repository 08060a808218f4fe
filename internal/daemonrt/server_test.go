//go:build unix

package daemonrt

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/mcpline/internal/ipc"
	"github.com/mvp-joe/mcpline/internal/pool"
	"github.com/mvp-joe/mcpline/internal/protocol"
)

// Test Plan for the daemon runtime:
// - New writes PID and fingerprint files atomically before Run is called
// - The dispatch table answers all six request kinds correctly
// - An unhealthy transport is evicted and its error surfaces as an Error response
// - A shutdown request drains the accept loop and Run returns
// - The idle timer drains the accept loop on its own
// - Run removes the PID and fingerprint files on the way out
// - A handler panic never escapes to the peer as anything but an Error response

type fakeTransport struct {
	tools      []protocol.ToolDescriptor
	callResult json.RawMessage
	callErr    error
	healthErr  error
	closed     bool
	panics     bool
}

func (f *fakeTransport) ListTools(ctx context.Context) ([]protocol.ToolDescriptor, error) {
	if f.panics {
		panic("boom")
	}
	return f.tools, nil
}

func (f *fakeTransport) CallTool(ctx context.Context, tool string, arguments json.RawMessage) (json.RawMessage, error) {
	if f.callErr != nil {
		return nil, f.callErr
	}
	return f.callResult, nil
}

func (f *fakeTransport) HealthCheck(ctx context.Context) error { return f.healthErr }
func (f *fakeTransport) Close() error                          { f.closed = true; return nil }

func testEndpoint(t *testing.T) ipc.Endpoint {
	t.Helper()
	dir := t.TempDir()
	return ipc.Endpoint{AppName: "mcpline-test", SocketBase: filepath.Join(dir, "daemon.sock")}
}

func testConfig() protocol.Config {
	return protocol.Config{
		Servers: []protocol.ServerConfig{
			{Name: "fs", Transport: protocol.TransportStdio, Command: "fs-server"},
		},
		IdleTTL: protocol.IdleTTLUnset,
	}.WithDefaults()
}

func newTestServer(t *testing.T, factory pool.Factory) (*Server, ipc.Endpoint) {
	t.Helper()
	e := testEndpoint(t)
	s, err := New(testConfig(), e, factory, nil)
	require.NoError(t, err)
	return s, e
}

func TestNew_WritesPIDAndFingerprintFiles(t *testing.T) {
	t.Parallel()

	s, e := newTestServer(t, func(ctx context.Context, cfg protocol.ServerConfig) (pool.Transport, error) {
		return &fakeTransport{}, nil
	})
	defer s.listener.Close()

	pidBytes, err := os.ReadFile(e.PIDPath())
	require.NoError(t, err)
	pid, err := strconv.Atoi(string(pidBytes))
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	fpBytes, err := os.ReadFile(e.FingerprintPath())
	require.NoError(t, err)
	assert.Equal(t, s.fingerprint, string(fpBytes))
}

func TestDispatch_Ping(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, nil)
	defer s.listener.Close()

	resp := s.dispatch(context.Background(), protocol.NewPingRequest())
	assert.Equal(t, protocol.ResponsePong, resp.Kind)
}

func TestDispatch_GetConfigFingerprint(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, nil)
	defer s.listener.Close()

	resp := s.dispatch(context.Background(), protocol.NewGetConfigFingerprintRequest())
	assert.Equal(t, protocol.ResponseConfigFingerprint, resp.Kind)
	assert.Equal(t, s.fingerprint, resp.Fingerprint)
}

func TestDispatch_ListServers(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, nil)
	defer s.listener.Close()

	resp := s.dispatch(context.Background(), protocol.NewListServersRequest())
	assert.Equal(t, protocol.ResponseServerList, resp.Kind)
	assert.Equal(t, []string{"fs"}, resp.Servers)
}

func TestDispatch_ListTools(t *testing.T) {
	t.Parallel()

	want := []protocol.ToolDescriptor{{Name: "grep"}}
	s, _ := newTestServer(t, func(ctx context.Context, cfg protocol.ServerConfig) (pool.Transport, error) {
		return &fakeTransport{tools: want}, nil
	})
	defer s.listener.Close()

	resp := s.dispatch(context.Background(), protocol.NewListToolsRequest("fs"))
	assert.Equal(t, protocol.ResponseToolList, resp.Kind)
	assert.Equal(t, want, resp.Tools)
}

func TestDispatch_ListTools_UnknownServerIsClientError(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, nil)
	defer s.listener.Close()

	resp := s.dispatch(context.Background(), protocol.NewListToolsRequest("nope"))
	require.Equal(t, protocol.ResponseError, resp.Kind)
	assert.Equal(t, protocol.ErrClient, resp.Error.Code)
}

func TestDispatch_ExecuteTool(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t, func(ctx context.Context, cfg protocol.ServerConfig) (pool.Transport, error) {
		return &fakeTransport{callResult: json.RawMessage(`{"ok":true}`)}, nil
	})
	defer s.listener.Close()

	resp := s.dispatch(context.Background(), protocol.NewExecuteToolRequest("fs", "grep", json.RawMessage(`{}`)))
	assert.Equal(t, protocol.ResponseToolResult, resp.Kind)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Result))
}

func TestDispatch_ExecuteTool_TransportErrorEvicts(t *testing.T) {
	t.Parallel()

	tp := &fakeTransport{callErr: protocol.NewError(protocol.ErrServer, "boom")}
	s, _ := newTestServer(t, func(ctx context.Context, cfg protocol.ServerConfig) (pool.Transport, error) {
		return tp, nil
	})
	defer s.listener.Close()

	resp := s.dispatch(context.Background(), protocol.NewExecuteToolRequest("fs", "grep", json.RawMessage(`{}`)))
	require.Equal(t, protocol.ResponseError, resp.Kind)
	assert.Equal(t, protocol.ErrServer, resp.Error.Code)
	assert.Equal(t, 0, s.pool.Len())
}

func TestDispatch_UnknownKindIsClientError(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, nil)
	defer s.listener.Close()

	resp := s.dispatch(context.Background(), protocol.DaemonRequest{ID: "x", Kind: "bogus"})
	require.Equal(t, protocol.ResponseError, resp.Kind)
	assert.Equal(t, protocol.ErrClient, resp.Error.Code)
}

func TestDispatch_Shutdown_BeginsDraining(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t, nil)
	defer s.listener.Close()

	resp := s.dispatch(context.Background(), protocol.NewShutdownRequest())
	assert.Equal(t, protocol.ResponseShutdownAck, resp.Kind)
	assert.True(t, s.isDraining())
}

func TestRun_ShutdownRequestStopsAcceptLoopAndRemovesFiles(t *testing.T) {
	t.Parallel()

	s, e := newTestServer(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runDone := make(chan error, 1)
	go func() { runDone <- s.Run(ctx) }()

	// Give the accept loop a moment to start before triggering shutdown
	// via a real connection, exercising handleConn end to end.
	time.Sleep(20 * time.Millisecond)

	conn, err := ipc.Dial(context.Background(), e)
	require.NoError(t, err)
	require.NoError(t, protocol.WriteMessage(conn, protocol.NewShutdownRequest()))
	conn.Close()

	select {
	case err := <-runDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after a shutdown request")
	}

	_, err = os.Stat(e.PIDPath())
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(e.FingerprintPath())
	assert.True(t, os.IsNotExist(err))
}

func TestHandleConn_PanicBecomesErrorResponse(t *testing.T) {
	t.Parallel()

	s, e := newTestServer(t, func(ctx context.Context, cfg protocol.ServerConfig) (pool.Transport, error) {
		return &fakeTransport{panics: true}, nil
	})
	defer s.listener.Close()

	go func() {
		conn, err := s.listener.Accept()
		if err == nil {
			s.handleConn(conn)
		}
	}()

	conn, err := ipc.Dial(context.Background(), e)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, protocol.WriteMessage(conn, protocol.NewListToolsRequest("fs")))

	var resp protocol.DaemonResponse
	require.NoError(t, protocol.ReadMessage(bufio.NewReader(conn), &resp))
	require.Equal(t, protocol.ResponseError, resp.Kind)
	assert.Equal(t, protocol.ErrServer, resp.Error.Code)
}

func TestRun_IdleTimeoutDrainsAcceptLoop(t *testing.T) {
	t.Parallel()

	e := testEndpoint(t)
	cfg := testConfig()
	cfg.IdleTTL = 30 * time.Millisecond

	s, err := New(cfg, e, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runDone := make(chan error, 1)
	go func() { runDone <- s.Run(ctx) }()

	select {
	case err := <-runDone:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after the idle timeout elapsed")
	}
}
