// File: fake/channel.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package fake

import (
	"fmt"
	"sync"
	"time"

	"github.com/momentics/hioload-liveplot/api"
	"github.com/momentics/hioload-liveplot/protocol"
)

// Channel is a fake api.ControlChannel. Writes are recorded; reads are served
// from bytes queued with Feed, or synthesized acks when AutoAck is on.
type Channel struct {
	mu       sync.Mutex
	writes   [][]byte
	inbox    []byte
	autoAck  bool
	acks     int
	writeErr error
	closed   bool
	peerGone bool
	handlers []func()
	done     chan struct{}
	wake     chan struct{}

	// Trace, when set, receives "ack", "write" and "close" events.
	Trace *Trace
}

// NewChannel returns an open channel with an empty inbox.
func NewChannel() *Channel {
	return &Channel{
		done: make(chan struct{}),
		wake: make(chan struct{}, 1),
	}
}

// NewAutoAckChannel returns a channel whose consumer is always ready.
func NewAutoAckChannel() *Channel {
	c := NewChannel()
	c.autoAck = true
	return c
}

// SetAutoAck toggles ack synthesis.
func (c *Channel) SetAutoAck(on bool) {
	c.mu.Lock()
	c.autoAck = on
	c.mu.Unlock()
	c.notify()
}

// SetWriteError makes every later Write fail with err.
func (c *Channel) SetWriteError(err error) {
	c.mu.Lock()
	c.writeErr = err
	c.mu.Unlock()
}

// Feed queues bytes for ReadExact, as if the peer had sent them.
func (c *Channel) Feed(p []byte) {
	c.mu.Lock()
	c.inbox = append(c.inbox, p...)
	c.mu.Unlock()
	c.notify()
}

// Disconnect simulates the peer going away.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed, c.peerGone = true, true
	handlers := c.handlers
	c.handlers = nil
	close(c.done)
	c.mu.Unlock()
	for _, fn := range handlers {
		fn()
	}
}

func (c *Channel) notify() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Write records a copy of p.
func (c *Channel) Write(p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("fake write: %w", api.ErrTransportClosed)
	}
	if c.writeErr != nil {
		return c.writeErr
	}
	c.writes = append(c.writes, append([]byte(nil), p...))
	c.Trace.Record("write")
	return nil
}

// ReadExact returns n queued bytes. With AutoAck and an empty inbox an ack
// token is served instead.
func (c *Channel) ReadExact(n int, timeout time.Duration) ([]byte, error) {
	var deadline <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		deadline = t.C
	}
	for {
		c.mu.Lock()
		switch {
		case len(c.inbox) >= n:
			out := append([]byte(nil), c.inbox[:n]...)
			c.inbox = c.inbox[n:]
			c.acks++
			c.Trace.Record("ack")
			c.mu.Unlock()
			return out, nil
		case c.autoAck && !c.closed && n == protocol.AckSize:
			c.acks++
			c.Trace.Record("ack")
			c.mu.Unlock()
			return append([]byte(nil), protocol.AckToken...), nil
		case c.closed:
			c.mu.Unlock()
			return nil, fmt.Errorf("fake read: %w", api.ErrTransportClosed)
		}
		c.mu.Unlock()

		select {
		case <-c.wake:
		case <-c.done:
		case <-deadline:
			return nil, fmt.Errorf("fake read of %d bytes: %w", n, api.ErrReadTimeout)
		}
	}
}

// OnDisconnect registers fn; it runs immediately if the peer is already gone.
func (c *Channel) OnDisconnect(fn func()) {
	c.mu.Lock()
	if c.peerGone {
		c.mu.Unlock()
		fn()
		return
	}
	c.handlers = append(c.handlers, fn)
	c.mu.Unlock()
}

// Done is closed once the channel is closed from either side.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Close closes the channel locally without firing disconnect handlers.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.handlers = nil
	close(c.done)
	c.Trace.Record("close")
	return nil
}

// Writes returns copies of every successful write in order.
func (c *Channel) Writes() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.writes))
	for i, w := range c.writes {
		out[i] = append([]byte(nil), w...)
	}
	return out
}

// Headers decodes every write after the handshake key as a header block.
func (c *Channel) Headers() ([]protocol.Header, error) {
	writes := c.Writes()
	var out []protocol.Header
	for i, w := range writes {
		if i == 0 && len(w) == protocol.KeyLen {
			continue
		}
		h, err := protocol.DecodeHeader(w)
		if err != nil {
			return nil, fmt.Errorf("write %d: %w", i, err)
		}
		out = append(out, h)
	}
	return out, nil
}

// AcksServed counts ReadExact calls that returned data.
func (c *Channel) AcksServed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acks
}

// Closed reports whether Close or Disconnect was called.
func (c *Channel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
