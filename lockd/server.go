package lockd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"runtime"
	"sync"
	"time"

	"github.com/mgdigital/resolvelock/clock"
	"github.com/mgdigital/resolvelock/ipc"
	"github.com/mgdigital/resolvelock/logger"
	"github.com/mgdigital/resolvelock/metrics"
)

// Config configures a daemon Server.
type Config struct {
	// Network is the listener family: "unix" or "tcp". On a platform
	// without unix socket support, "unix" falls back to "tcp" on
	// loopback, with a warning logged.
	Network string

	// Address is the listen address: a filesystem path for "unix", or a
	// host:port for "tcp".
	Address string

	// IdleTimeout is how long a context may sit unused before the daemon
	// closes it and releases its locks.
	IdleTimeout time.Duration

	// HandshakeNetwork/HandshakeAddress/HandshakeNonce, if HandshakeNonce
	// is non-empty, make the daemon dial back once after it starts
	// listening, to announce its real address to the process that spawned
	// it. Used by the auto-spawn client flow; unused when a daemon is
	// started directly (e.g. under a supervisor).
	HandshakeNetwork string
	HandshakeAddress string
	HandshakeNonce   string

	// MaxRequestsPerSecond and RequestBurst bound how fast the server
	// accepts requests across all connections. A non-positive
	// MaxRequestsPerSecond disables rate limiting.
	MaxRequestsPerSecond int
	RequestBurst         int

	Clock   clock.Clock
	Logger  logger.Logger
	Metrics metrics.DaemonMetrics
}

// Server is the lock daemon's connection-accepting frontend over a
// Registry.
type Server struct {
	cfg      Config
	registry *Registry
	conns    ConnectionManager
	limiter  RateLimiter
	log      logger.Logger
	clock    clock.Clock
	metrics  metrics.DaemonMetrics

	mu       sync.Mutex
	listener net.Listener
}

// NewServer constructs a Server. Call ListenAndServe to start it.
func NewServer(cfg Config) *Server {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNoOpLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoOpDaemonMetrics()
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}

	var limiter RateLimiter
	if cfg.MaxRequestsPerSecond > 0 {
		limiter = NewTokenBucketRateLimiter(cfg.MaxRequestsPerSecond, cfg.RequestBurst, time.Second, cfg.Logger)
	}

	return &Server{
		cfg:      cfg,
		registry: NewRegistryWithMetrics(cfg.Clock, cfg.Logger, cfg.Metrics),
		conns:    NewConnectionManager(cfg.Metrics, cfg.Logger, cfg.Clock),
		limiter:  limiter,
		log:      cfg.Logger.WithComponent("lockd.server"),
		clock:    cfg.Clock,
		metrics:  cfg.Metrics,
	}
}

// Addr returns the listener's address. Valid only after ListenAndServe has
// started listening.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ListenAndServe opens the configured listener, performs the handshake
// dial-back if configured, runs the idle-expiry loop, and serves
// connections until ctx is canceled or Stop is observed from a client.
func (s *Server) ListenAndServe(ctx context.Context) error {
	network := s.cfg.Network
	if network == "" {
		network = "tcp"
	}
	if network == "unix" && !unixSocketsSupported() {
		s.log.Warnw("unix sockets unavailable on this platform, falling back to tcp on loopback")
		network = "tcp"
		s.cfg.Address = "127.0.0.1:0"
	}

	ln, err := net.Listen(network, s.cfg.Address)
	if err != nil {
		return fmt.Errorf("lockd: listen on %s %s: %w", network, s.cfg.Address, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	defer ln.Close()

	if s.cfg.HandshakeNonce != "" {
		if err := s.dialBackHandshake(); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.idleExpiryLoop(ctx)
	}()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				wg.Wait()
				return nil
			default:
				return fmt.Errorf("lockd: accept: %w", err)
			}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConn(ctx, conn, cancel)
		}()
	}
}

func (s *Server) dialBackHandshake() error {
	network := s.cfg.HandshakeNetwork
	if network == "" {
		network = "tcp"
	}
	conn, err := net.DialTimeout(network, s.cfg.HandshakeAddress, 5*time.Second)
	if err != nil {
		return fmt.Errorf("lockd: handshake dial-back to %s: %w", s.cfg.HandshakeAddress, err)
	}
	defer conn.Close()

	err = ipc.WriteHandshake(conn, ipc.Handshake{
		Nonce:   s.cfg.HandshakeNonce,
		Address: s.listener.Addr().String(),
	})
	if err != nil {
		return fmt.Errorf("lockd: write handshake: %w", err)
	}
	return nil
}

func (s *Server) idleExpiryLoop(ctx context.Context) {
	ticker := s.clock.NewTicker(s.cfg.IdleTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.registry.ExpireIdle(s.cfg.IdleTimeout)
		}
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn, stopServer context.CancelFunc) {
	defer conn.Close()

	remoteAddr := conn.RemoteAddr().String()
	s.conns.OnConnect(remoteAddr)
	defer s.conns.OnDisconnect(remoteAddr)

	connCtx, cancelConn := context.WithCancel(ctx)
	defer cancelConn()

	opened := newConnContexts()

	var writeMu sync.Mutex
	var wg sync.WaitGroup

	for {
		frame, err := ipc.ReadFrame(conn)
		if err != nil {
			break
		}
		s.conns.OnRequest(remoteAddr)

		if s.limiter != nil {
			if err := s.limiter.Wait(connCtx); err != nil {
				writeMu.Lock()
				_ = ipc.WriteFrame(conn, errorFrame(frame.RequestID, "rate limited: "+err.Error()))
				writeMu.Unlock()
				continue
			}
		}

		wg.Add(1)
		go func(f ipc.Frame) {
			defer wg.Done()
			resp, drop, stop := s.dispatch(connCtx, f, opened)
			if !drop {
				writeMu.Lock()
				_ = ipc.WriteFrame(conn, resp)
				writeMu.Unlock()
			}
			if stop {
				stopServer()
			}
		}(frame)
	}

	cancelConn()
	wg.Wait()

	// §4.C.4: a dropped connection implicitly CLOSEs every context it
	// opened that wasn't already closed explicitly.
	for _, id := range opened.drain() {
		s.registry.CloseContextOnDisconnect(id)
	}
}

// dispatch executes one request Frame and returns its response, whether
// the response should be dropped instead of sent (an ACQUIRE cancelled by
// a concurrent CLOSE on its own context, per §4.C.3), and whether the
// request was STOP (so the caller can trigger shutdown after the response
// has been flushed).
func (s *Server) dispatch(ctx context.Context, f ipc.Frame, opened *connContexts) (ipc.Frame, bool, bool) {
	switch f.Command() {
	case ipc.CmdContext:
		if len(f.Args) < 2 {
			return errorFrame(f.RequestID, "CONTEXT requires a shared flag"), false, false
		}
		c := s.registry.OpenContext(ipc.ParseBoolArg(f.Args[1]))
		opened.add(c.ID)
		return ipc.Frame{RequestID: f.RequestID, Args: []string{ipc.CmdContext, c.ID}}, false, false

	case ipc.CmdAcquire:
		resp, drop := s.dispatchAcquire(ctx, f)
		return resp, drop, false

	case ipc.CmdClose:
		if len(f.Args) < 2 {
			return errorFrame(f.RequestID, "CLOSE requires a context id"), false, false
		}
		s.registry.CloseContext(f.Args[1])
		opened.remove(f.Args[1])
		return ipc.Frame{RequestID: f.RequestID, Args: []string{ipc.CmdClose}}, false, false

	case ipc.CmdStop:
		return ipc.Frame{RequestID: f.RequestID, Args: []string{ipc.CmdStop}}, false, true

	default:
		return errorFrame(f.RequestID, fmt.Sprintf("unknown command %q", f.Command())), false, false
	}
}

func (s *Server) dispatchAcquire(ctx context.Context, f ipc.Frame) (ipc.Frame, bool) {
	if len(f.Args) < 3 {
		return errorFrame(f.RequestID, "ACQUIRE requires a context id and at least one key"), false
	}
	contextID := f.Args[1]
	keys := f.Args[2:]

	owner := s.registry.LookupContext(contextID)
	if owner == nil {
		return errorFrame(f.RequestID, fmt.Sprintf("unknown context %q", contextID)), false
	}

	for _, key := range keys {
		if err := s.registry.Acquire(ctx, owner, key); err != nil {
			if errors.Is(err, ErrContextClosed) {
				return ipc.Frame{}, true
			}
			return errorFrame(f.RequestID, err.Error()), false
		}
	}
	return ipc.Frame{RequestID: f.RequestID, Args: []string{ipc.CmdAcquire}}, false
}

// connContexts tracks the context IDs a single connection has opened but
// not yet explicitly closed, so handleConn can CLOSE them implicitly when
// the connection drops. Safe for concurrent use: CONTEXT/CLOSE requests on
// one connection run on their own per-frame goroutine.
type connContexts struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func newConnContexts() *connContexts {
	return &connContexts{ids: make(map[string]struct{})}
}

func (cc *connContexts) add(id string) {
	cc.mu.Lock()
	cc.ids[id] = struct{}{}
	cc.mu.Unlock()
}

func (cc *connContexts) remove(id string) {
	cc.mu.Lock()
	delete(cc.ids, id)
	cc.mu.Unlock()
}

// drain returns every still-open id and clears the set. Intended to run
// once, after the connection's request loop has fully drained.
func (cc *connContexts) drain() []string {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	ids := make([]string, 0, len(cc.ids))
	for id := range cc.ids {
		ids = append(ids, id)
	}
	cc.ids = make(map[string]struct{})
	return ids
}

func errorFrame(requestID uint32, message string) ipc.Frame {
	return ipc.Frame{RequestID: requestID, Args: []string{ipc.RespError, message}}
}

func unixSocketsSupported() bool {
	return runtime.GOOS != "windows" && runtime.GOOS != "js" && runtime.GOOS != "wasip1"
}
