package client

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/example/calendar-sync/internal/testfixtures"
	"github.com/example/calendar-sync/internal/wire"
)

// fakeServer accepts a single connection, answers the name handshake and then
// exposes both directions to the test.
type fakeServer struct {
	listener net.Listener
	conns    chan net.Conn
}

func newFakeServer(t *testing.T, ack func(name string) string) *fakeServer {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	srv := &fakeServer{listener: listener, conns: make(chan net.Conn, 1)}
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(time.Second))
		reader := bufio.NewReader(conn)
		name, err := reader.ReadString('\n')
		if err != nil {
			conn.Close()
			return
		}
		if _, err := conn.Write([]byte(ack(strings.TrimSpace(name)) + "\n")); err != nil {
			conn.Close()
			return
		}
		conn.SetReadDeadline(time.Time{})
		srv.conns <- conn
	}()
	return srv
}

func connectedAck(name string) string {
	return wire.Message{Command: wire.CmdConnected, Payload: name}.String()
}

func (s *fakeServer) addr() string {
	return s.listener.Addr().String()
}

func (s *fakeServer) conn(t *testing.T) net.Conn {
	t.Helper()
	select {
	case conn := <-s.conns:
		t.Cleanup(func() { conn.Close() })
		return conn
	case <-time.After(time.Second):
		t.Fatal("server never completed the handshake")
		return nil
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestAgent_ConnectPerformsHandshake(t *testing.T) {
	t.Parallel()

	srv := newFakeServer(t, connectedAck)
	rec := NewReconciler("alice", nil, nil, discardLogger())
	agent := NewAgent(srv.addr(), rec, nil, discardLogger())

	if err := agent.Connect(context.Background(), "alice"); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer agent.Close()

	if !agent.Connected() {
		t.Fatal("expected agent to report connected")
	}
	srv.conn(t)
}

func TestAgent_ConnectRejectsBadAck(t *testing.T) {
	t.Parallel()

	srv := newFakeServer(t, func(string) string { return "GO_AWAY|" })
	rec := NewReconciler("alice", nil, nil, discardLogger())
	agent := NewAgent(srv.addr(), rec, nil, discardLogger())

	err := agent.Connect(context.Background(), "alice")
	if !errors.Is(err, ErrHandshakeRejected) {
		t.Fatalf("expected ErrHandshakeRejected, got %v", err)
	}
	if agent.Connected() {
		t.Fatal("expected agent to stay disconnected")
	}
}

func TestAgent_PushedCommandsReachReconciler(t *testing.T) {
	t.Parallel()

	srv := newFakeServer(t, connectedAck)
	notifier := &testfixtures.RecordingNotifier{}
	rec := NewReconciler("alice", nil, notifier, discardLogger())
	agent := NewAgent(srv.addr(), rec, nil, discardLogger())

	if err := agent.Connect(context.Background(), "alice"); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer agent.Close()
	conn := srv.conn(t)

	existing := testfixtures.NewEvent("alice_1_0001", "alice", "Mine")
	pushed := testfixtures.NewEvent("bob_2_0002", "bob", "Theirs")
	lines := []string{
		wire.Message{Command: wire.CmdClearSharedCache}.String(),
		wire.Message{Command: wire.CmdExistingTodo, Payload: wire.Encode(existing)}.String(),
		wire.Message{Command: wire.CmdNewTodo, Payload: wire.Encode(pushed)}.String(),
	}
	if _, err := conn.Write([]byte(strings.Join(lines, "\n") + "\n")); err != nil {
		t.Fatalf("push failed: %v", err)
	}

	waitFor(t, "reconciler to absorb the push", func() bool { return len(rec.Events()) == 2 })
	shared, _, _ := notifier.Counts()
	if shared != 1 || notifier.Shared[0].Creator != "bob" {
		t.Fatalf("expected one notification for bob's event, got %d", shared)
	}
}

func TestAgent_ReceivesLinesBeyondDefaultScannerBuffer(t *testing.T) {
	t.Parallel()

	srv := newFakeServer(t, connectedAck)
	rec := NewReconciler("alice", nil, nil, discardLogger())
	agent := NewAgent(srv.addr(), rec, nil, discardLogger())

	if err := agent.Connect(context.Background(), "alice"); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer agent.Close()
	conn := srv.conn(t)

	ev := testfixtures.NewEvent("bob_1_0001", "bob", "Standup")
	ev.Memo = strings.Repeat("m", 100*1024)
	line := wire.Message{Command: wire.CmdNewTodo, Payload: wire.Encode(ev)}.String()
	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		t.Fatalf("push failed: %v", err)
	}

	waitFor(t, "long push to land", func() bool { return len(rec.Events()) == 1 })
	if got := rec.Events()[0]; len(got.Memo) != len(ev.Memo) {
		t.Fatalf("long memo truncated to %d bytes", len(got.Memo))
	}
	if !agent.Connected() {
		t.Fatal("long line killed the connection")
	}
}

func TestAgent_OutboundCommandsHitTheWire(t *testing.T) {
	t.Parallel()

	srv := newFakeServer(t, connectedAck)
	rec := NewReconciler("alice", nil, nil, discardLogger())
	agent := NewAgent(srv.addr(), rec, nil, discardLogger())

	if err := agent.Connect(context.Background(), "alice"); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer agent.Close()
	conn := srv.conn(t)
	reader := bufio.NewReader(conn)

	ev := testfixtures.NewEvent("alice_1_0001", "alice", "Standup")
	if err := agent.Share(ev); err != nil {
		t.Fatalf("share failed: %v", err)
	}
	if err := agent.Delete(ev.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(time.Second))
	if line, err := reader.ReadString('\n'); err != nil || strings.TrimSpace(line) != "SHARE_TODO|"+wire.Encode(ev) {
		t.Fatalf("unexpected share line %q (err %v)", line, err)
	}
	if line, err := reader.ReadString('\n'); err != nil || strings.TrimSpace(line) != "DELETE_TODO|"+ev.ID {
		t.Fatalf("unexpected delete line %q (err %v)", line, err)
	}
}

func TestAgent_SendWhileDisconnectedReturnsError(t *testing.T) {
	t.Parallel()

	rec := NewReconciler("alice", nil, nil, discardLogger())
	agent := NewAgent("127.0.0.1:1", rec, nil, discardLogger())

	ev := testfixtures.NewEvent("alice_1_0001", "alice", "Standup")
	if err := agent.Share(ev); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestAgent_ServerCloseMarksDisconnected(t *testing.T) {
	t.Parallel()

	srv := newFakeServer(t, connectedAck)
	rec := NewReconciler("alice", nil, nil, discardLogger())
	agent := NewAgent(srv.addr(), rec, nil, discardLogger())

	if err := agent.Connect(context.Background(), "alice"); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	srv.conn(t).Close()

	waitFor(t, "disconnect detection", func() bool { return !agent.Connected() })
	if err := agent.Delete("whatever"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected after loss, got %v", err)
	}
}
