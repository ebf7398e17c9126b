// File: server/listener.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/momentics/hioload-liveplot/api"
	"github.com/momentics/hioload-liveplot/control"
	"github.com/momentics/hioload-liveplot/internal/session"
	"github.com/momentics/hioload-liveplot/internal/transport"
	"github.com/momentics/hioload-liveplot/pool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// payloadBufferSize is the pooled buffer size payloads are copied into.
const payloadBufferSize = 64 << 10

// Option customizes a Listener.
type Option func(*Listener)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(ln *Listener) {
		if l != nil {
			ln.logger = l
		}
	}
}

// WithControl reports metrics into c.
func WithControl(c *control.Control) Option {
	return func(ln *Listener) {
		ln.ctl = c
	}
}

// Listener owns a named endpoint and accepts producers.
type Listener struct {
	ln     net.Listener
	cfg    control.Config
	logger *zap.Logger
	ctl    *control.Control
	pool   *pool.BytePool
	conns  *session.Store[*Conn]

	closeOnce sync.Once
	closed    chan struct{}
}

// Listen binds cfg.Endpoint.
func Listen(cfg *control.Config, opts ...Option) (*Listener, error) {
	if cfg == nil {
		cfg = control.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ln, err := transport.Listen(cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	l := &Listener{
		ln:     ln,
		cfg:    *cfg,
		logger: zap.NewNop(),
		pool:   pool.NewBytePool(payloadBufferSize),
		conns:  session.NewStore[*Conn](16),
		closed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With(zap.String("endpoint", cfg.Endpoint))
	if l.ctl != nil {
		l.ctl.Debug.RegisterProbe("server.conns", func() any { return l.conns.Len() })
	}
	return l, nil
}

// Path is the socket path the listener is bound to.
func (l *Listener) Path() string {
	return transport.EndpointPath(l.cfg.Endpoint)
}

// Accept waits for a producer and completes its handshake. A non-positive
// timeout waits indefinitely; expiry yields api.ErrReadTimeout and a closed
// listener api.ErrTransportClosed.
func (l *Listener) Accept(timeout time.Duration) (*Conn, error) {
	if d, ok := l.ln.(interface{ SetDeadline(time.Time) error }); ok {
		var deadline time.Time
		if timeout > 0 {
			deadline = time.Now().Add(timeout)
		}
		d.SetDeadline(deadline)
	}
	nc, err := l.ln.Accept()
	if err != nil {
		var ne net.Error
		switch {
		case errors.Is(err, net.ErrClosed):
			return nil, fmt.Errorf("accept: %w", api.ErrTransportClosed)
		case errors.As(err, &ne) && ne.Timeout():
			return nil, fmt.Errorf("accept: %w", api.ErrReadTimeout)
		}
		return nil, fmt.Errorf("accept: %w", err)
	}
	ch := transport.Wrap(nc, l.logger)
	c, err := handshake(ch, l.cfg.ReadTimeout, l)
	if err != nil {
		ch.Close()
		return nil, err
	}
	if !l.conns.Add(c.key, c) {
		c.onClose = nil
		c.Close()
		return nil, fmt.Errorf("%w: segment key %s already attached", api.ErrAlreadyExists, c.key)
	}
	return c, nil
}

// Serve accepts producers and feeds their frames to h until ctx is done or
// Close is called. Handshake failures are logged and do not stop the loop.
func (l *Listener) Serve(ctx context.Context, h Handler) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case <-ctx.Done():
			l.Close()
		case <-l.closed:
		}
		return nil
	})
	g.Go(func() error {
		for {
			c, err := l.Accept(0)
			switch {
			case errors.Is(err, api.ErrTransportClosed):
				return nil
			case errors.Is(err, api.ErrHandshakeFailed), errors.Is(err, api.ErrAlreadyExists):
				l.logger.Warn("rejected producer", zap.Error(err))
				continue
			case err != nil:
				return err
			}
			l.logger.Info("producer connected", zap.String("key", c.Key()))
			g.Go(func() error {
				defer c.Close()
				return c.serve(ctx, h)
			})
		}
	})
	return g.Wait()
}

// Conns counts attached producers.
func (l *Listener) Conns() int {
	return l.conns.Len()
}

func (l *Listener) forget(key string) {
	l.conns.Delete(key)
}

// Close unbinds the endpoint and closes every attached producer.
func (l *Listener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.closed)
		if l.ctl != nil {
			l.ctl.Debug.UnregisterProbe("server.conns")
		}
		err = errors.Join(l.ln.Close(), l.conns.CloseAll())
	})
	return err
}
