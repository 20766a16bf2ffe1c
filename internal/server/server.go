package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
)

// Server accepts connections on the fixed listener address and hands each one
// to the handler on its own goroutine.
type Server struct {
	addr    string
	handler *Handler
	logger  *slog.Logger

	mu    sync.Mutex
	bound string
}

// New constructs a server for the given listen address.
func New(addr string, handler *Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{addr: addr, handler: handler, logger: logger}
}

// ListenAndServe blocks accepting connections until the context is cancelled,
// then closes the listener and waits for in-flight handlers to finish.
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.mu.Lock()
	s.bound = listener.Addr().String()
	s.mu.Unlock()

	s.logger.Info("calendar sync server listening", "addr", listener.Addr().String())

	var wg sync.WaitGroup
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Warn("accept failed", "error", err)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handler.Handle(ctx, conn)
		}()
	}

	wg.Wait()
	return nil
}

// Addr reports the bound listener address, useful when the configured address
// carries port zero. It is empty until ListenAndServe has bound.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bound
}
