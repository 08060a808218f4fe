package daemonrt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/mvp-joe/mcpline/internal/ipc"
	"github.com/mvp-joe/mcpline/internal/mlog"
	"github.com/mvp-joe/mcpline/internal/pool"
	"github.com/mvp-joe/mcpline/internal/protocol"
)

// state tracks spec.md §4.2's "Starting → Running → Draining → Stopped"
// transitions.
type state int32

const (
	stateStarting state = iota
	stateRunning
	stateDraining
	stateStopped
)

// idleTick is the resolution of the idle-shutdown check, "implementation
// defined, ~1s" per spec.md §4.2.
const idleTick = time.Second

// drainDeadline bounds how long Run waits for in-flight connections to
// finish once draining begins before it stops waiting regardless.
const drainDeadline = 10 * time.Second

// Server is the daemon-side runtime: one IPC listener, one connection
// pool, one idle timer, one shutdown flag observed by the accept loop.
type Server struct {
	endpoint ipc.Endpoint
	cfg      protocol.Config
	pool     *pool.Pool
	logger   *mlog.Logger

	fingerprint string
	idleTTL     time.Duration

	listener net.Listener

	mu           sync.Mutex
	lastActivity time.Time

	state        atomic.Int32
	shutdownOnce sync.Once
	done         chan struct{}
	wg           sync.WaitGroup
}

// New performs spec.md §4.2 steps 1-2: compute the fingerprint, bind
// the IPC listener, and write the PID and fingerprint files atomically.
// It does not yet install signal handlers or start serving; call Run
// for that.
func New(cfg protocol.Config, endpoint ipc.Endpoint, factory pool.Factory, logger *mlog.Logger) (*Server, error) {
	cfg = cfg.WithDefaults()
	if logger == nil {
		logger = mlog.Discard()
	}

	fp, err := protocol.Fingerprint(cfg)
	if err != nil {
		return nil, fmt.Errorf("daemonrt: compute fingerprint: %w", err)
	}

	l, err := ipc.Listen(endpoint)
	if err != nil {
		return nil, fmt.Errorf("daemonrt: bind endpoint: %w", err)
	}

	if err := writeFileAtomic(endpoint.PIDPath(), []byte(strconv.Itoa(os.Getpid()))); err != nil {
		l.Close()
		return nil, err
	}
	if err := writeFileAtomic(endpoint.FingerprintPath(), []byte(fp)); err != nil {
		l.Close()
		os.Remove(endpoint.PIDPath())
		return nil, err
	}

	s := &Server{
		endpoint:     endpoint,
		cfg:          cfg,
		pool:         pool.New(cfg, factory),
		logger:       logger,
		fingerprint:  fp,
		idleTTL:      cfg.IdleTTL,
		listener:     l,
		lastActivity: time.Now(),
		done:         make(chan struct{}),
	}
	s.state.Store(int32(stateStarting))
	return s, nil
}

// Run installs signal handlers, starts the idle timer, and enters the
// accept loop. It blocks until the daemon drains and stops, then
// removes the PID and fingerprint files (the listener's own Close,
// triggered by beginShutdown, removes the socket file).
func (s *Server) Run(ctx context.Context) error {
	defer s.removeMetadataFiles()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			s.logger.Infof("received signal %v, draining", sig)
			s.beginShutdown()
		case <-ctx.Done():
			s.beginShutdown()
		case <-s.done:
		}
	}()

	go s.idleLoop()

	s.state.Store(int32(stateRunning))
	s.logger.Infof("daemon listening, fingerprint=%s", s.fingerprint)

	acceptErr := s.acceptLoop()

	s.state.Store(int32(stateDraining))
	if !s.waitDrained(drainDeadline) {
		s.logger.Warnf("drain deadline exceeded, stopping with connections still in flight")
	}
	s.state.Store(int32(stateStopped))

	s.pool.Close()
	return acceptErr
}

func (s *Server) acceptLoop() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.isDraining() {
				return nil
			}
			return fmt.Errorf("daemonrt: accept: %w", err)
		}

		s.touchActivity()
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(s.cfg.OperationTimeout)); err != nil {
		return
	}

	var req protocol.DaemonRequest
	if err := protocol.ReadMessage(bufio.NewReader(conn), &req); err != nil {
		if errors.Is(err, protocol.ErrFraming) {
			_ = protocol.WriteMessage(conn, protocol.ErrorResponse("", protocol.NewError(protocol.ErrClient, "%v", err)))
		}
		return
	}

	s.touchActivity()

	resp := s.dispatchRecovered(req)
	_ = protocol.WriteMessage(conn, resp)
}

// dispatchRecovered calls dispatch under a recover so a panic anywhere
// in a transport or the pool becomes a code-2 Error response instead of
// crashing the daemon or leaving the peer without a reply. The context
// deadline is spec.md §5's operation timeout, wrapping the entire
// CLI-to-tool-result flow including any transport-level retries.
func (s *Server) dispatchRecovered(req protocol.DaemonRequest) (resp protocol.DaemonResponse) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.OperationTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorf("panic handling request %s: %v", req.ID, r)
			resp = protocol.ErrorResponse(req.ID, protocol.NewError(protocol.ErrServer, "internal error: %v", r))
		}
	}()

	return s.dispatch(ctx, req)
}

func (s *Server) touchActivity() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

func (s *Server) idleSince() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastActivity)
}

func (s *Server) idleLoop() {
	ticker := time.NewTicker(idleTick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if s.idleSince() >= s.idleTTL {
				s.logger.Infof("idle for %v, draining", s.idleTTL)
				s.beginShutdown()
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *Server) isDraining() bool {
	st := state(s.state.Load())
	return st == stateDraining || st == stateStopped
}

// beginShutdown sets the draining flag, unblocking the accept loop by
// closing the listener. Idempotent.
func (s *Server) beginShutdown() {
	s.shutdownOnce.Do(func() {
		s.state.Store(int32(stateDraining))
		close(s.done)
		s.listener.Close()
	})
}

// waitDrained waits for in-flight connections to finish, up to timeout.
// Reports whether all connections finished before the deadline.
func (s *Server) waitDrained(timeout time.Duration) bool {
	doneCh := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(doneCh)
	}()

	select {
	case <-doneCh:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (s *Server) removeMetadataFiles() {
	_ = os.Remove(s.endpoint.PIDPath())
	_ = os.Remove(s.endpoint.FingerprintPath())
}
