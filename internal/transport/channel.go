// File: internal/transport/channel.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/momentics/hioload-liveplot/api"
	"github.com/momentics/hioload-liveplot/pool"
	"go.uber.org/zap"
)

// incomingDepth bounds the chunks buffered between the reader and ReadExact.
const incomingDepth = 64

var _ api.ControlChannel = (*Channel)(nil)

// Channel implements api.ControlChannel over a stream connection.
type Channel struct {
	conn   net.Conn
	pool   *pool.BytePool
	logger *zap.Logger

	incoming chan []byte
	done     chan struct{} // peer closed or read failed
	closed   chan struct{} // Close called locally

	rmu     sync.Mutex
	pending []byte

	wmu sync.Mutex

	mu       sync.Mutex
	handlers []func()
	fired    bool
	peer     bool
	readErr  error

	closeOnce sync.Once
}

// Wrap builds a channel on an established connection and starts its reader.
func Wrap(conn net.Conn, logger *zap.Logger) *Channel {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Channel{
		conn:     conn,
		pool:     pool.DefaultPool(),
		logger:   logger,
		incoming: make(chan []byte, incomingDepth),
		done:     make(chan struct{}),
		closed:   make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *Channel) readLoop() {
	for {
		buf := c.pool.GetBuffer()
		n, err := c.conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			c.pool.PutBuffer(buf)
			select {
			case c.incoming <- chunk:
			case <-c.closed:
				c.finish(nil)
				return
			}
		} else {
			c.pool.PutBuffer(buf)
		}
		if err != nil {
			c.finish(err)
			return
		}
	}
}

// finish records why reading stopped and, unless the channel was closed
// locally, notifies disconnect subscribers once.
func (c *Channel) finish(err error) {
	local := false
	select {
	case <-c.closed:
		local = true
	default:
	}

	c.mu.Lock()
	if err != nil && !errors.Is(err, io.EOF) && !local {
		c.readErr = err
	}
	handlers := c.handlers
	c.handlers = nil
	c.fired = true
	c.peer = !local
	c.mu.Unlock()
	close(c.done)

	if local {
		return
	}
	c.logger.Debug("control channel closed by peer", zap.Error(err))
	for _, fn := range handlers {
		fn()
	}
}

// Write sends p in full.
func (c *Channel) Write(p []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	select {
	case <-c.closed:
		return api.ErrTransportClosed
	case <-c.done:
		return api.ErrTransportClosed
	default:
	}
	for len(p) > 0 {
		n, err := c.conn.Write(p)
		if err != nil {
			return fmt.Errorf("%w: %v", api.ErrTransportClosed, err)
		}
		p = p[n:]
	}
	return nil
}

// ReadExact returns exactly n bytes. On timeout nothing is consumed, so a
// later call still sees the stream intact.
func (c *Channel) ReadExact(n int, timeout time.Duration) ([]byte, error) {
	c.rmu.Lock()
	defer c.rmu.Unlock()

	var expire <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expire = t.C
	}
	for len(c.pending) < n {
		select {
		case chunk := <-c.incoming:
			c.pending = append(c.pending, chunk...)
		case <-expire:
			return nil, fmt.Errorf("%w: %d of %d bytes after %v", api.ErrReadTimeout, len(c.pending), n, timeout)
		case <-c.closed:
			return nil, api.ErrTransportClosed
		case <-c.done:
			c.drain()
			if len(c.pending) < n {
				return nil, api.ErrTransportClosed
			}
		}
	}
	out := make([]byte, n)
	copy(out, c.pending)
	c.pending = c.pending[n:]
	if len(c.pending) == 0 {
		c.pending = nil
	}
	return out, nil
}

// drain moves whatever the reader delivered before stopping into pending.
func (c *Channel) drain() {
	for {
		select {
		case chunk := <-c.incoming:
			c.pending = append(c.pending, chunk...)
		default:
			return
		}
	}
}

// OnDisconnect registers fn for the peer-close notification.
func (c *Channel) OnDisconnect(fn func()) {
	c.mu.Lock()
	if !c.fired {
		c.handlers = append(c.handlers, fn)
		c.mu.Unlock()
		return
	}
	peer := c.peer
	c.mu.Unlock()
	if peer {
		fn()
	}
}

// Done is closed once reading has stopped.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Err reports a read failure other than a clean peer close.
func (c *Channel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readErr
}

// Close shuts the connection down; idempotent. Local close does not fire
// disconnect subscribers.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}
