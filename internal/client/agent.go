package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/example/calendar-sync/internal/event"
	"github.com/example/calendar-sync/internal/wire"
)

// ErrNotConnected is returned by outbound operations while no live connection
// exists. Sends are best-effort; nothing is queued for later.
var ErrNotConnected = errors.New("client: not connected to server")

// ErrHandshakeRejected is returned when the server closes or answers the
// handshake with something other than the CONNECTED acknowledgment.
var ErrHandshakeRejected = errors.New("client: handshake rejected")

// Agent owns the socket to the server, a background receive loop and the
// outbound command senders. Inbound messages are decoded and forwarded to the
// reconciler. Disconnection is terminal: the agent never reconnects on its
// own.
type Agent struct {
	addr   string
	rec    *Reconciler
	now    func() time.Time
	logger *slog.Logger

	mu        sync.Mutex
	conn      net.Conn
	name      string
	connected atomic.Bool
}

// NewAgent constructs an agent that will dial the given address.
func NewAgent(addr string, rec *Reconciler, now func() time.Time, logger *slog.Logger) *Agent {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{addr: addr, rec: rec, now: now, logger: logger}
}

// Connect dials the server, sends the display name and blocks for the
// acknowledgment line. On success the background receive loop is started; on
// failure the caller falls back to an offline mode with no live sync.
func (a *Agent) Connect(ctx context.Context, name string) error {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", a.addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", a.addr, err)
	}

	if _, err := fmt.Fprintf(conn, "%s\n", name); err != nil {
		conn.Close()
		return fmt.Errorf("send display name: %w", err)
	}

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil {
		conn.Close()
		return fmt.Errorf("%w: %v", ErrHandshakeRejected, err)
	}
	if !strings.HasPrefix(strings.TrimSpace(line), wire.CmdConnected) {
		conn.Close()
		return fmt.Errorf("%w: unexpected response %q", ErrHandshakeRejected, strings.TrimSpace(line))
	}

	a.mu.Lock()
	a.conn = conn
	a.name = name
	a.mu.Unlock()
	a.connected.Store(true)

	go a.receiveLoop(ctx, reader)

	a.logger.Info("connected to calendar server", "addr", a.addr, "name", name)
	return nil
}

// Connected reports whether the agent currently holds a live connection.
func (a *Agent) Connected() bool {
	return a.connected.Load()
}

// Close tears the connection down. The receive loop observes the closed
// socket and exits.
func (a *Agent) Close() error {
	a.connected.Store(false)
	a.mu.Lock()
	conn := a.conn
	a.conn = nil
	a.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

// receiveLoop reads one line at a time and dispatches it to the reconciler.
// Any read failure marks the agent disconnected and ends the loop.
func (a *Agent) receiveLoop(ctx context.Context, reader *bufio.Reader) {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), wire.MaxLineBytes)
	for scanner.Scan() {
		a.dispatch(ctx, scanner.Text())
	}
	if a.connected.Swap(false) {
		a.logger.Warn("server connection lost", "error", scanner.Err())
	}
}

func (a *Agent) dispatch(ctx context.Context, line string) {
	msg, ok := wire.ParseMessage(line)
	if !ok {
		return
	}

	switch msg.Command {
	case wire.CmdClearSharedCache:
		a.rec.Clear(ctx)

	case wire.CmdNewTodo:
		ev, err := wire.DecodeComplete(msg.Payload, a.now)
		if err != nil {
			a.logger.Warn("dropping malformed push", "command", msg.Command, "error", err)
			return
		}
		a.rec.ApplyNew(ctx, ev, true)

	case wire.CmdExistingTodo:
		ev, err := wire.DecodeComplete(msg.Payload, a.now)
		if err != nil {
			a.logger.Warn("dropping malformed push", "command", msg.Command, "error", err)
			return
		}
		a.rec.ApplyExisting(ctx, ev)

	case wire.CmdUpdateTodo:
		ev, err := wire.DecodeComplete(msg.Payload, a.now)
		if err != nil {
			a.logger.Warn("dropping malformed push", "command", msg.Command, "error", err)
			return
		}
		a.rec.ApplyUpdate(ctx, ev)

	case wire.CmdDeleteTodo:
		a.rec.ApplyDelete(ctx, msg.Payload)

	default:
		// Unrecognized commands are ignored.
	}
}

// Share publishes a complete event encoding, identifier included.
func (a *Agent) Share(ev event.SharedEvent) error {
	return a.send(wire.Message{Command: wire.CmdShareTodo, Payload: wire.Encode(ev)})
}

// ShareDraft publishes the 16-field legacy encoding; the server supplies the
// creator and assigns a fresh identifier.
func (a *Agent) ShareDraft(ev event.SharedEvent) error {
	return a.send(wire.Message{Command: wire.CmdShareTodo, Payload: wire.EncodeLegacy(ev)})
}

// Update requests an in-place replacement of an owned event.
func (a *Agent) Update(ev event.SharedEvent) error {
	return a.send(wire.Message{Command: wire.CmdUpdateTodo, Payload: wire.Encode(ev)})
}

// Delete requests removal of an owned event by identifier.
func (a *Agent) Delete(id string) error {
	return a.send(wire.Message{Command: wire.CmdDeleteTodo, Payload: id})
}

func (a *Agent) send(msg wire.Message) error {
	if !a.connected.Load() {
		return ErrNotConnected
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == nil {
		return ErrNotConnected
	}
	if _, err := fmt.Fprintf(a.conn, "%s\n", msg.String()); err != nil {
		return fmt.Errorf("send %s: %w", msg.Command, err)
	}
	return nil
}
