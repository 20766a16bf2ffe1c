// Package wire implements the line-oriented text protocol shared by the
// server and the client: command framing and the pipe-delimited event
// encodings in their legacy and complete variants.
package wire

import "strings"

// Delimiter separates the command from its payload and the fields inside an
// event encoding.
const Delimiter = "|"

// MaxLineBytes bounds one protocol line. Read loops size their scanner
// buffers with it so a long memo does not hit the default 64 KiB scanner cap
// and kill the connection.
const MaxLineBytes = 1 << 20

// Commands pushed from the server to clients.
const (
	CmdConnected        = "CONNECTED"
	CmdClearSharedCache = "CLEAR_SHARED_CACHE"
	CmdNewTodo          = "NEW_TODO"
	CmdExistingTodo     = "EXISTING_TODO"
	CmdUpdateTodo       = "UPDATE_TODO"
	CmdDeleteTodo       = "DELETE_TODO"
)

// Commands sent from clients to the server.
const (
	CmdShareTodo = "SHARE_TODO"
)

// Message is one protocol line: a command and an opaque payload.
type Message struct {
	Command string
	Payload string
}

// ParseMessage splits a line at the first delimiter occurrence. Lines without
// a delimiter carry no payload and are not valid messages.
func ParseMessage(line string) (Message, bool) {
	command, payload, ok := strings.Cut(line, Delimiter)
	if !ok {
		return Message{}, false
	}
	return Message{Command: command, Payload: payload}, true
}

// String renders the message as a single protocol line, without the trailing
// newline.
func (m Message) String() string {
	return m.Command + Delimiter + m.Payload
}
