package pool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/mvp-joe/mcpline/internal/protocol"
)

// maxConsecutiveFailures is the fixed eviction threshold from spec.md §4.3.
const maxConsecutiveFailures = 3

// healthCheckTimeout is the per-check deadline spec.md §4.3 caps at ≤5s.
const healthCheckTimeout = 5 * time.Second

type entry struct {
	transport           Transport
	createdAt           time.Time
	lastUsed            time.Time
	consecutiveFailures int
}

// Pool holds at most one transport per configured server name. Get serves
// concurrent callers for distinct server names independently; calls for
// the same server name are serialized through a singleflight group, which
// both satisfies "exactly one construction in flight" (spec.md §5) and
// keeps a health check from racing a second caller's construction.
type Pool struct {
	cfg     protocol.Config
	factory Factory

	mu      sync.Mutex
	entries map[string]*entry

	sf  singleflight.Group
	sem *semaphore.Weighted
}

// New builds a Pool bounded by cfg.ConcurrencyLimit concurrent in-flight
// Get calls, constructing fresh transports via factory.
func New(cfg protocol.Config, factory Factory) *Pool {
	cfg = cfg.WithDefaults()
	return &Pool{
		cfg:     cfg,
		factory: factory,
		entries: make(map[string]*entry),
		sem:     semaphore.NewWeighted(int64(cfg.ConcurrencyLimit)),
	}
}

// Get implements spec.md §4.3's contract: reuse a healthy pooled
// transport, evict and reconstruct an unhealthy one, or construct fresh
// if none exists.
func (p *Pool) Get(ctx context.Context, serverName string) (Transport, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("pool: acquire concurrency slot: %w", err)
	}
	defer p.sem.Release(1)

	v, err, _ := p.sf.Do(serverName, func() (any, error) {
		return p.getOrConstruct(ctx, serverName)
	})
	if err != nil {
		return nil, err
	}
	return v.(Transport), nil
}

func (p *Pool) getOrConstruct(ctx context.Context, serverName string) (Transport, error) {
	p.mu.Lock()
	e, ok := p.entries[serverName]
	p.mu.Unlock()

	if ok {
		hctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		err := e.transport.HealthCheck(hctx)
		cancel()

		if err == nil {
			p.mu.Lock()
			e.lastUsed = time.Now()
			e.consecutiveFailures = 0
			p.mu.Unlock()
			return e.transport, nil
		}

		p.mu.Lock()
		e.consecutiveFailures++
		evict := e.consecutiveFailures >= maxConsecutiveFailures || isDefinitiveClose(err)
		if evict {
			delete(p.entries, serverName)
		}
		p.mu.Unlock()

		if !evict {
			// Below the eviction threshold: lend the existing transport
			// back out. The caller's own request will surface any
			// persistent problem.
			return e.transport, nil
		}
		e.transport.Close()
	}

	serverCfg, found := p.cfg.ServerByName(serverName)
	if !found {
		return nil, protocol.NewError(protocol.ErrClient, "unknown server %q", serverName)
	}

	t, err := p.factory(ctx, serverCfg)
	if err != nil {
		return nil, protocol.NewError(protocol.ErrServer, "construct transport for %q: %v", serverName, err)
	}

	p.mu.Lock()
	p.entries[serverName] = &entry{transport: t, createdAt: time.Now(), lastUsed: time.Now()}
	p.mu.Unlock()
	return t, nil
}

// Evict removes and closes the pooled entry for serverName, if any. Used
// by the daemon runtime when a caller observes a definitive failure
// outside the health-check path (e.g. a send that returns broken pipe).
func (p *Pool) Evict(serverName string) {
	p.mu.Lock()
	e, ok := p.entries[serverName]
	if ok {
		delete(p.entries, serverName)
	}
	p.mu.Unlock()
	if ok {
		e.transport.Close()
	}
}

// Close closes every pooled transport. Called during daemon shutdown.
func (p *Pool) Close() {
	p.mu.Lock()
	entries := p.entries
	p.entries = make(map[string]*entry)
	p.mu.Unlock()
	for _, e := range entries {
		e.transport.Close()
	}
}

// Len reports the number of live pooled entries. Test/introspection only.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// isDefinitiveClose reports whether err indicates the underlying
// connection is permanently gone, warranting immediate eviction
// regardless of the consecutive-failure count.
func isDefinitiveClose(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	msg := err.Error()
	for _, marker := range []string{"broken pipe", "connection reset", "use of closed network connection", "connection refused"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
