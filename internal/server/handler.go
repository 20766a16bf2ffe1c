package server

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/example/calendar-sync/internal/event"
	"github.com/example/calendar-sync/internal/wire"
)

// Handler runs the per-connection protocol state machine:
// AwaitingName -> Registered -> Streaming -> Closed.
type Handler struct {
	registry *Registry
	store    *Store
	idGen    event.IDGenerator
	now      func() time.Time
	logger   *slog.Logger
}

// NewHandler wires the connection handler. The id generator and now func are
// injectable in the usual way; nil selects the production implementations.
func NewHandler(registry *Registry, store *Store, idGen event.IDGenerator, now func() time.Time, logger *slog.Logger) *Handler {
	if idGen == nil {
		idGen = event.NewIDGenerator(now)
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		registry: registry,
		store:    store,
		idGen:    idGen,
		now:      now,
		logger:   logger,
	}
}

// session wraps a connection with a write lock so broadcasts from other
// handlers and this handler's own replies can interleave safely.
type session struct {
	name string
	conn net.Conn
	mu   sync.Mutex
}

func (s *session) Send(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.conn, "%s\n", line)
	return err
}

func (s *session) Close() error {
	return s.conn.Close()
}

// Handle owns the connection until it closes. AwaitingName reads the display
// name; an empty or absent name closes without registering. On success the
// client is registered, acknowledged, given a cache clear plus a full replay
// of the current store, and then streamed commands until the read loop ends.
func (h *Handler) Handle(ctx context.Context, conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), wire.MaxLineBytes)

	// AwaitingName
	if !scanner.Scan() {
		conn.Close()
		return
	}
	name := strings.TrimSpace(scanner.Text())
	if name == "" {
		conn.Close()
		return
	}

	// Registered: a duplicate name displaces the prior session, whose socket
	// is closed here so it is not orphaned.
	sess := &session{name: name, conn: conn}
	if prior := h.registry.Register(name, sess); prior != nil {
		h.logger.Warn("display name already connected, closing prior session", "name", name)
		prior.Close()
	}

	logger := h.logger.With("name", name)
	defer func() {
		// Closed
		h.registry.Unregister(name, sess)
		conn.Close()
	}()

	if err := sess.Send(wire.Message{Command: wire.CmdConnected, Payload: name}.String()); err != nil {
		logger.Warn("handshake ack failed", "error", err)
		return
	}

	// Replay to this connection only: clear first so a reconnecting client
	// drops stale cache entries, then one EXISTING_TODO per stored event.
	if err := sess.Send(wire.Message{Command: wire.CmdClearSharedCache}.String()); err != nil {
		logger.Warn("replay failed", "error", err)
		return
	}
	for _, ev := range h.store.Snapshot() {
		if err := sess.Send(wire.Message{Command: wire.CmdExistingTodo, Payload: wire.Encode(ev)}.String()); err != nil {
			logger.Warn("replay failed", "error", err)
			return
		}
	}

	// Streaming
	for scanner.Scan() {
		h.dispatch(ctx, sess, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		logger.Info("connection read ended", "error", err)
	}
}

func (h *Handler) dispatch(ctx context.Context, sess *session, line string) {
	msg, ok := wire.ParseMessage(line)
	if !ok {
		return
	}

	logger := h.logger.With("name", sess.name, "command", msg.Command)

	switch msg.Command {
	case wire.CmdShareTodo:
		var ev event.SharedEvent
		var err error
		if wire.FieldCount(msg.Payload) >= wire.FullFieldCount {
			ev, err = wire.DecodeComplete(msg.Payload, h.now)
		} else {
			ev, err = wire.DecodeLegacy(msg.Payload, sess.name, h.idGen)
		}
		if err != nil {
			logger.Warn("dropping malformed share", "error", err)
			return
		}
		encoded := h.store.Add(ctx, ev)
		h.registry.Broadcast(wire.Message{Command: wire.CmdNewTodo, Payload: encoded}.String())

	case wire.CmdUpdateTodo:
		ev, err := wire.DecodeComplete(msg.Payload, h.now)
		if err != nil {
			logger.Warn("dropping malformed update", "error", err)
			return
		}
		if ev.Creator != sess.name {
			logger.Warn("update rejected, requester is not the creator", "id", ev.ID, "creator", ev.Creator)
			return
		}
		if h.store.Update(ctx, ev) {
			h.registry.Broadcast(wire.Message{Command: wire.CmdUpdateTodo, Payload: wire.Encode(ev)}.String())
		}

	case wire.CmdDeleteTodo:
		id := msg.Payload
		if h.store.Delete(ctx, id, sess.name) {
			h.registry.Broadcast(wire.Message{Command: wire.CmdDeleteTodo, Payload: id}.String())
		}

	default:
		// Unrecognized commands are ignored.
	}
}
