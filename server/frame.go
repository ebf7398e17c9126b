// File: server/frame.go
// Author: momentics <momentics@gmail.com>

package server

import "github.com/momentics/hioload-liveplot/protocol"

// Frame is one command received from a producer.
type Frame struct {
	// Key identifies the producer session by its segment key.
	Key string

	Header  protocol.Header
	Command protocol.Command

	// Array is the decoded payload, nil for header-only commands.
	Array *protocol.Array
}

// Kind is a shorthand for the command kind.
func (f *Frame) Kind() protocol.Kind {
	return f.Header.Operation
}
