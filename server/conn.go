// File: server/conn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/momentics/hioload-liveplot/api"
	"github.com/momentics/hioload-liveplot/control"
	"github.com/momentics/hioload-liveplot/internal/shm"
	"github.com/momentics/hioload-liveplot/internal/transport"
	"github.com/momentics/hioload-liveplot/pool"
	"github.com/momentics/hioload-liveplot/protocol"
	"go.uber.org/zap"
)

// Conn is the consumer end of one producer session.
type Conn struct {
	key    string
	ch     *transport.Channel
	seg    *shm.Segment
	logger *zap.Logger
	ctl    *control.Control
	pool   *pool.BytePool

	mu        sync.Mutex // one Next at a time
	closeOnce sync.Once
	onClose   func(key string)
}

// handshake reads the producer's key, attaches its segment and releases the
// buffer with the first ack.
func handshake(ch *transport.Channel, timeout time.Duration, l *Listener) (*Conn, error) {
	key, err := protocol.ReadKey(ch, timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", api.ErrHandshakeFailed, err)
	}
	seg, err := shm.Attach(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", api.ErrHandshakeFailed, err)
	}
	if err := protocol.WriteAck(ch); err != nil {
		seg.Detach()
		return nil, fmt.Errorf("%w: initial ack: %w", api.ErrHandshakeFailed, err)
	}
	c := &Conn{
		key:     key,
		ch:      ch,
		seg:     seg,
		logger:  l.logger.With(zap.String("key", key)),
		ctl:     l.ctl,
		pool:    l.pool,
		onClose: l.forget,
	}
	ch.OnDisconnect(func() {
		c.logger.Info("producer disconnected")
		if c.ctl != nil {
			c.ctl.Metrics.ObserveDisconnect()
		}
	})
	c.logger.Debug("producer attached", zap.Int("capacity", seg.Capacity()))
	return c, nil
}

// Key is the producer's segment key.
func (c *Conn) Key() string {
	return c.key
}

// Done is closed when the producer goes away or the Conn is closed.
func (c *Conn) Done() <-chan struct{} {
	return c.ch.Done()
}

// Next reads the next header and, for payload commands, copies the array out
// of the segment under its lock and acks. A non-positive timeout waits
// indefinitely. Once the producer is gone Next fails with api.ErrTransportClosed.
func (c *Conn) Next(timeout time.Duration) (*Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hdr, err := protocol.ReadHeader(c.ch, timeout)
	if err != nil {
		return nil, err
	}
	cmd, err := hdr.Command()
	if err != nil {
		return nil, err
	}
	f := &Frame{Key: c.key, Header: hdr, Command: cmd}
	if hdr.HasPayload() {
		arr, err := c.readPayload(hdr)
		// The buffer is free again whatever the decode outcome.
		if aerr := protocol.WriteAck(c.ch); aerr != nil && err == nil {
			err = aerr
		}
		if err != nil {
			return nil, err
		}
		f.Array = &arr
	}
	if c.ctl != nil {
		c.ctl.Metrics.ObserveCommand(hdr.Operation.String(), hdr.ArrSize)
	}
	return f, nil
}

func (c *Conn) readPayload(hdr protocol.Header) (protocol.Array, error) {
	if err := c.seg.Fits(hdr.ArrSize); err != nil {
		return protocol.Array{}, err
	}
	if err := c.seg.Lock(); err != nil {
		return protocol.Array{}, err
	}
	buf := c.pool.Get(hdr.ArrSize)
	defer c.pool.PutBuffer(buf)
	err := c.seg.ReadInto(buf)
	if uerr := c.seg.Unlock(); err == nil {
		err = uerr
	}
	if err != nil {
		return protocol.Array{}, err
	}
	return protocol.DecodeArray(hdr.DType, hdr.Shape, buf)
}

// serve feeds frames to h until the producer leaves or h fails.
func (c *Conn) serve(ctx context.Context, h Handler) error {
	for {
		f, err := c.Next(0)
		if err != nil {
			if errors.Is(err, api.ErrTransportClosed) {
				return nil
			}
			return fmt.Errorf("session %s: %w", c.key, err)
		}
		if err := h.HandleFrame(ctx, f); err != nil {
			return fmt.Errorf("session %s: %w", c.key, err)
		}
	}
}

// Close releases the control channel and detaches the segment. The producer
// sees a disconnect.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = errors.Join(c.ch.Close(), c.seg.Detach())
		if c.onClose != nil {
			c.onClose(c.key)
		}
	})
	return err
}
