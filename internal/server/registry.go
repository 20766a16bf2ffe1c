// Package server implements the synchronization authority: the session
// registry, the shared event store with its broadcast fan-out, the
// per-connection protocol handler and the TCP listener.
package server

import (
	"log/slog"
	"sync"
)

// Session is the live handle a connected client is registered under. Send
// must be safe for concurrent use; broadcasts and the owning handler write
// interleaved.
type Session interface {
	Send(line string) error
	Close() error
}

// Registry maps display names to live sessions. A second registration under
// an existing name displaces the prior session, which the caller is expected
// to close so its socket is not orphaned.
type Registry struct {
	mu       sync.RWMutex
	logger   *slog.Logger
	sessions map[string]Session
}

// NewRegistry constructs an empty session registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger:   logger,
		sessions: make(map[string]Session),
	}
}

// Register stores the session under the display name and returns the session
// it displaced, if any.
func (r *Registry) Register(name string, sess Session) Session {
	r.mu.Lock()
	prior := r.sessions[name]
	r.sessions[name] = sess
	count := len(r.sessions)
	r.mu.Unlock()

	r.logger.Info("client registered", "name", name, "connected", count)
	return prior
}

// Unregister removes the name's entry, but only while it still points at the
// given session. A handler whose session was displaced must not remove its
// replacement during cleanup.
func (r *Registry) Unregister(name string, sess Session) {
	r.mu.Lock()
	current, ok := r.sessions[name]
	if ok && current == sess {
		delete(r.sessions, name)
	}
	count := len(r.sessions)
	r.mu.Unlock()

	if ok && current == sess {
		r.logger.Info("client unregistered", "name", name, "connected", count)
	}
}

// Len reports how many sessions are currently registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Broadcast delivers one message to every registered session and returns the
// number of successful deliveries. A single session's write failure is logged
// and contained; it never prevents delivery to the others.
func (r *Registry) Broadcast(message string) int {
	r.mu.RLock()
	targets := make(map[string]Session, len(r.sessions))
	for name, sess := range r.sessions {
		targets[name] = sess
	}
	r.mu.RUnlock()

	delivered := 0
	for name, sess := range targets {
		if err := sess.Send(message); err != nil {
			r.logger.Warn("broadcast delivery failed", "name", name, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}
