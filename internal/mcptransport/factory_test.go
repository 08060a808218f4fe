package mcptransport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/mcpline/internal/protocol"
)

// Test Plan for NewFactory:
// - stdio transport config produces a *StdioTransport
// - http transport config produces a *HTTPTransport
// - an unrecognized transport kind is an error

func TestNewFactory_DispatchesByTransportKind(t *testing.T) {
	t.Parallel()

	factory := NewFactory(protocol.Config{})

	stdioTr, err := factory(context.Background(), protocol.ServerConfig{Name: "fs", Transport: protocol.TransportStdio, Command: "fs-server"})
	require.NoError(t, err)
	_, ok := stdioTr.(*StdioTransport)
	assert.True(t, ok)

	httpTr, err := factory(context.Background(), protocol.ServerConfig{Name: "remote", Transport: protocol.TransportHTTP, URL: "http://example.invalid"})
	require.NoError(t, err)
	_, ok = httpTr.(*HTTPTransport)
	assert.True(t, ok)

	_, err = factory(context.Background(), protocol.ServerConfig{Name: "bad", Transport: "carrier-pigeon"})
	require.Error(t, err)
}

func TestEnvSlice(t *testing.T) {
	t.Parallel()

	assert.Nil(t, envSlice(nil))
	out := envSlice(map[string]string{"FOO": "bar"})
	require.Len(t, out, 1)
	assert.Equal(t, "FOO=bar", out[0])
}
