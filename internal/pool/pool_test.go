package pool

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/mcpline/internal/protocol"
)

// Test Plan for Pool:
// - Get constructs a transport on first call, reuses it while healthy
// - A healthy entry is not reconstructed (factory called exactly once)
// - Repeated health check failures past the threshold evict and reconstruct
// - A definitive close error evicts on the first failure
// - Concurrent Get calls for the same server construct exactly once
// - Get for an unconfigured server returns a client error
// - Construction failure surfaces as a server error

type fakeTransport struct {
	name        string
	healthErr   error
	healthCalls int32
	closed      int32
}

func (f *fakeTransport) ListTools(ctx context.Context) ([]protocol.ToolDescriptor, error) {
	return nil, nil
}

func (f *fakeTransport) CallTool(ctx context.Context, tool string, arguments json.RawMessage) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func (f *fakeTransport) HealthCheck(ctx context.Context) error {
	atomic.AddInt32(&f.healthCalls, 1)
	return f.healthErr
}

func (f *fakeTransport) Close() error {
	atomic.AddInt32(&f.closed, 1)
	return nil
}

func testConfig() protocol.Config {
	return protocol.Config{
		Servers: []protocol.ServerConfig{
			{Name: "fs", Transport: protocol.TransportStdio, Command: "fs-server"},
		},
		ConcurrencyLimit: 4,
	}
}

func TestPool_Get_ConstructsThenReuses(t *testing.T) {
	t.Parallel()

	var constructions int32
	factory := func(ctx context.Context, cfg protocol.ServerConfig) (Transport, error) {
		atomic.AddInt32(&constructions, 1)
		return &fakeTransport{name: cfg.Name}, nil
	}
	p := New(testConfig(), factory)

	t1, err := p.Get(context.Background(), "fs")
	require.NoError(t, err)
	t2, err := p.Get(context.Background(), "fs")
	require.NoError(t, err)

	assert.Same(t, t1, t2)
	assert.EqualValues(t, 1, constructions)
	assert.Equal(t, 1, p.Len())
}

func TestPool_Get_UnknownServer(t *testing.T) {
	t.Parallel()

	p := New(testConfig(), func(ctx context.Context, cfg protocol.ServerConfig) (Transport, error) {
		return &fakeTransport{}, nil
	})

	_, err := p.Get(context.Background(), "does-not-exist")
	require.Error(t, err)
	var perr *protocol.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, protocol.ErrClient, perr.Code)
}

func TestPool_Get_ConstructionFailureIsServerError(t *testing.T) {
	t.Parallel()

	p := New(testConfig(), func(ctx context.Context, cfg protocol.ServerConfig) (Transport, error) {
		return nil, errors.New("spawn failed")
	})

	_, err := p.Get(context.Background(), "fs")
	require.Error(t, err)
	var perr *protocol.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, protocol.ErrServer, perr.Code)
}

func TestPool_Get_EvictsAfterThreshold(t *testing.T) {
	t.Parallel()

	var current *fakeTransport
	var constructions int32
	factory := func(ctx context.Context, cfg protocol.ServerConfig) (Transport, error) {
		atomic.AddInt32(&constructions, 1)
		current = &fakeTransport{name: cfg.Name}
		return current, nil
	}
	p := New(testConfig(), factory)

	_, err := p.Get(context.Background(), "fs")
	require.NoError(t, err)
	first := current

	first.healthErr = errors.New("timeout")
	for i := 0; i < maxConsecutiveFailures-1; i++ {
		_, err := p.Get(context.Background(), "fs")
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, constructions, "below threshold: no reconstruction yet")

	_, err = p.Get(context.Background(), "fs")
	require.NoError(t, err)
	assert.EqualValues(t, 2, constructions, "threshold crossed: reconstructed")
	assert.EqualValues(t, 1, atomic.LoadInt32(&first.closed))
}

func TestPool_Get_DefinitiveCloseEvictsImmediately(t *testing.T) {
	t.Parallel()

	var constructions int32
	var current *fakeTransport
	factory := func(ctx context.Context, cfg protocol.ServerConfig) (Transport, error) {
		atomic.AddInt32(&constructions, 1)
		current = &fakeTransport{name: cfg.Name}
		return current, nil
	}
	p := New(testConfig(), factory)

	_, err := p.Get(context.Background(), "fs")
	require.NoError(t, err)
	current.healthErr = errors.New("broken pipe")

	_, err = p.Get(context.Background(), "fs")
	require.NoError(t, err)
	assert.EqualValues(t, 2, constructions)
}

func TestPool_Get_ConcurrentCallsConstructOnce(t *testing.T) {
	t.Parallel()

	var constructions int32
	factory := func(ctx context.Context, cfg protocol.ServerConfig) (Transport, error) {
		atomic.AddInt32(&constructions, 1)
		time.Sleep(20 * time.Millisecond)
		return &fakeTransport{name: cfg.Name}, nil
	}
	p := New(testConfig(), factory)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Get(context.Background(), "fs")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, constructions)
}

func TestPool_Evict(t *testing.T) {
	t.Parallel()

	var current *fakeTransport
	factory := func(ctx context.Context, cfg protocol.ServerConfig) (Transport, error) {
		current = &fakeTransport{name: cfg.Name}
		return current, nil
	}
	p := New(testConfig(), factory)

	_, err := p.Get(context.Background(), "fs")
	require.NoError(t, err)
	p.Evict("fs")

	assert.Equal(t, 0, p.Len())
	assert.EqualValues(t, 1, atomic.LoadInt32(&current.closed))
}

func TestPool_Close_ClosesAllEntries(t *testing.T) {
	t.Parallel()

	var current *fakeTransport
	factory := func(ctx context.Context, cfg protocol.ServerConfig) (Transport, error) {
		current = &fakeTransport{name: cfg.Name}
		return current, nil
	}
	p := New(testConfig(), factory)

	_, err := p.Get(context.Background(), "fs")
	require.NoError(t, err)
	p.Close()

	assert.Equal(t, 0, p.Len())
	assert.EqualValues(t, 1, atomic.LoadInt32(&current.closed))
}
