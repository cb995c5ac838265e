package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const (
	// shutdownTimeout bounds how long in-flight requests may take to finish
	// once shutdown has been requested.
	shutdownTimeout = 5 * time.Second

	// readHeaderTimeout stops idle clients from holding connections open
	// before sending a request.
	readHeaderTimeout = 10 * time.Second
)

var (
	// ErrBind is returned by [Server.Listen] when the address cannot be bound.
	ErrBind = errors.New("failed to bind")

	// ErrNotListening is returned by [Server.Serve] when called before a
	// successful [Server.Listen].
	ErrNotListening = errors.New("server is not listening")
)

// Server serves HTTP requests for a single handler on a single address.
//
// The lifecycle is Listen, then Serve, then cancel the Serve context. A
// Server is not reusable after Serve returns.
type Server struct {
	addr       string
	handler    http.Handler
	logger     *slog.Logger
	httpServer *http.Server
	ln         net.Listener
	ready      chan struct{}
	done       chan struct{}
}

// New creates a new [Server] for addr ("host:port").
//
// The handler is wrapped with request id, access log and panic recovery
// middleware. Nothing is bound until [Server.Listen] is called.
func New(addr string, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		addr:    addr,
		handler: handler,
		logger:  logger,
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Listen binds the listening socket.
//
// Listen blocks until the socket is bound and returns an error wrapping
// [ErrBind] if the port is in use or cannot be opened. On success [Server.Ready]
// is closed and [Server.Addr] reports the bound address.
func (s *Server) Listen() error {
	if s.ln != nil {
		return fmt.Errorf("%w %s: already listening", ErrBind, s.addr)
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrBind, s.addr, err)
	}

	s.ln = ln
	s.httpServer = &http.Server{
		Handler:           chain(s.handler, s.logger),
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	// publish the bound listener; readers wait on ready before touching ln
	close(s.ready)
	return nil
}

// Serve processes requests until ctx is cancelled, then shuts down gracefully.
//
// Serve blocks. It returns nil after a clean shutdown and an error if the
// listener fails while serving. Request contexts derive from ctx, so
// long-running handlers observe shutdown too.
func (s *Server) Serve(ctx context.Context) error {
	select {
	case <-s.ready:
	default:
		return ErrNotListening
	}
	defer close(s.done)

	// BaseContext derives all request contexts from the server context.
	s.httpServer.BaseContext = func(_ net.Listener) context.Context {
		return ctx
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(s.ln)
	}()

	s.logger.Info("http server listening", "addr", s.ln.Addr().String())

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("http server shutdown error", "error", err)
		_ = s.httpServer.Close()
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	s.logger.Info("http server stopped")
	return nil
}

// Ready returns a channel that is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Done returns a channel that is closed once [Server.Serve] has returned.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Addr returns the bound address, or nil before [Server.Listen] succeeds.
//
// With port 0 the operating system picks the port; Addr reports it.
func (s *Server) Addr() net.Addr {
	select {
	case <-s.ready:
		return s.ln.Addr()
	default:
		return nil
	}
}
