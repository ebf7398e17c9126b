// File: client/session.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package client

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-liveplot/api"
	"github.com/momentics/hioload-liveplot/control"
	"github.com/momentics/hioload-liveplot/internal/shm"
	"github.com/momentics/hioload-liveplot/internal/transport"
	"github.com/momentics/hioload-liveplot/protocol"
	"go.uber.org/zap"
)

// barrierArray is the minimal payload carried by every barrier command.
var barrierArray = protocol.Vector([]int64{0})

// ChannelDialer opens the control channel to a named endpoint.
type ChannelDialer func(name string, timeout time.Duration, logger *zap.Logger) (api.ControlChannel, error)

// SegmentFactory creates a shared memory segment.
type SegmentFactory func(key string, capacity int) (api.Segment, error)

// Option customizes a Session at Dial time.
type Option func(*Session)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithControl reports metrics and debug probes into c.
func WithControl(c *control.Control) Option {
	return func(s *Session) {
		s.ctl = c
	}
}

// WithChannelDialer replaces the unix socket dialer.
func WithChannelDialer(d ChannelDialer) Option {
	return func(s *Session) {
		s.dial = d
	}
}

// WithSegmentFactory replaces the /dev/shm segment factory.
func WithSegmentFactory(f SegmentFactory) Option {
	return func(s *Session) {
		s.create = f
	}
}

func dialUnix(name string, timeout time.Duration, logger *zap.Logger) (api.ControlChannel, error) {
	return transport.Dial(name, timeout, logger)
}

func createShm(key string, capacity int) (api.Segment, error) {
	return shm.Create(key, capacity)
}

// Session is one producer to consumer relationship.
type Session struct {
	cfg    control.Config
	logger *zap.Logger
	ctl    *control.Control
	dial   ChannelDialer
	create SegmentFactory

	ch  api.ControlChannel
	seg api.Segment

	mu       sync.Mutex // serializes sends so delivery follows call order
	state    atomic.Int32
	unlinked bool // guarded by mu

	closeOnce sync.Once
	closeErr  error
}

// Dial performs the handshake: connect the control channel, create the
// segment under a fresh key, and send the key. Any failure is wrapped in
// api.ErrHandshakeFailed and leaves nothing behind.
func Dial(cfg *control.Config, opts ...Option) (*Session, error) {
	if cfg == nil {
		cfg = control.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", api.ErrHandshakeFailed, err)
	}
	s := &Session{
		cfg:    *cfg,
		logger: zap.NewNop(),
		dial:   dialUnix,
		create: createShm,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("endpoint", cfg.Endpoint))

	ch, err := s.dial(cfg.Endpoint, cfg.ConnectTimeout, s.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", api.ErrHandshakeFailed, err)
	}
	key := protocol.NewKey()
	seg, err := s.create(key, cfg.SegmentSize)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("%w: %w", api.ErrHandshakeFailed, err)
	}
	if err := protocol.WriteKey(ch, key); err != nil {
		seg.Detach()
		ch.Close()
		return nil, fmt.Errorf("%w: send segment key: %w", api.ErrHandshakeFailed, err)
	}
	s.ch, s.seg = ch, seg
	s.logger = s.logger.With(zap.String("key", key))
	s.state.Store(int32(api.StateConnected))
	ch.OnDisconnect(s.peerDisconnected)
	s.registerProbes()

	s.logger.Debug("session established", zap.Int("capacity", seg.Capacity()))
	return s, nil
}

// State reports the connection state.
func (s *Session) State() api.State {
	return api.State(s.state.Load())
}

// IsConnected is false once the consumer went away or the session was closed.
func (s *Session) IsConnected() bool {
	return s.State() == api.StateConnected
}

// Key is the shared memory segment key sent during the handshake.
func (s *Session) Key() string {
	return s.seg.Key()
}

// Capacity is the largest payload, in bytes, a single send accepts.
func (s *Session) Capacity() int {
	return s.seg.Capacity()
}

// Send delivers cmd with an optional array. Synchronous kinds are followed by
// a barrier. Validation errors leave the channel and segment untouched, so the
// caller may retry. While disconnected Send does nothing and returns nil.
func (s *Session) Send(cmd protocol.Command, arr *protocol.Array) error {
	if cmd == nil {
		return fmt.Errorf("%w: nil command", api.ErrInvalidArgument)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.IsConnected() {
		return nil
	}
	if err := s.send(cmd, arr); err != nil {
		return err
	}
	if cmd.Kind().Synchronous() && s.IsConnected() {
		return s.send(protocol.Barrier{}, &barrierArray)
	}
	return nil
}

func (s *Session) send(cmd protocol.Command, arr *protocol.Array) error {
	kind := cmd.Kind()
	switch {
	case kind.CarriesPayload() && arr == nil:
		return fmt.Errorf("%w: %s requires an array", api.ErrInvalidArgument, kind)
	case !kind.CarriesPayload() && arr != nil:
		return fmt.Errorf("%w: %s carries no array", api.ErrInvalidArgument, kind)
	}

	var payload *protocol.Payload
	if arr != nil {
		p, err := protocol.EncodeArray(*arr)
		if err != nil {
			return err
		}
		if p.Len() == 0 {
			return fmt.Errorf("%w: empty array", api.ErrInvalidArgument)
		}
		payload = &p
	}
	block, err := protocol.EncodeHeader(protocol.NewHeader(cmd, payload))
	if err != nil {
		return err
	}

	if payload == nil {
		if err := s.ch.Write(block); err != nil {
			return s.transportFailure(err)
		}
		s.observe(kind, 0)
		return nil
	}

	// Checked before the ack wait: a rejected payload must not consume the
	// consumer's release token or touch the lock.
	if err := s.seg.Fits(payload.Len()); err != nil {
		return err
	}
	start := time.Now()
	if err := protocol.ReadAck(s.ch, s.cfg.AckTimeout); err != nil {
		return s.transportFailure(err)
	}
	if s.ctl != nil {
		s.ctl.Metrics.ObserveAckWait(time.Since(start))
	}
	s.releaseName()

	if err := s.seg.Lock(); err != nil {
		return err
	}
	err = s.ch.Write(block)
	if err == nil {
		err = s.seg.Write(payload.Bytes)
	}
	if uerr := s.seg.Unlock(); err == nil {
		err = uerr
	}
	if err != nil {
		return s.transportFailure(err)
	}
	s.observe(kind, payload.Len())
	return nil
}

// releaseName drops the segment's name after the first ack, which proves the
// consumer holds its own mapping. From then on the memory goes away with the
// last process that maps it, however this one exits.
func (s *Session) releaseName() {
	if s.unlinked {
		return
	}
	s.unlinked = true
	if err := s.seg.Unlink(); err != nil {
		s.logger.Warn("unlink shared memory segment", zap.Error(err))
	}
}

// transportFailure turns a closed channel into the disconnect transition and
// passes every other error through.
func (s *Session) transportFailure(err error) error {
	if errors.Is(err, api.ErrTransportClosed) {
		s.peerDisconnected()
		return nil
	}
	return err
}

func (s *Session) observe(kind protocol.Kind, n int) {
	if s.ctl != nil {
		s.ctl.Metrics.ObserveCommand(kind.String(), n)
	}
}

// peerDisconnected runs at most once per session, from the channel reader or
// from a send that found the channel closed.
func (s *Session) peerDisconnected() {
	if !s.state.CompareAndSwap(int32(api.StateConnected), int32(api.StateDisconnected)) {
		return
	}
	s.logger.Warn("disconnected from liveplot consumer, plotting has been disabled")
	if s.ctl != nil {
		s.ctl.Metrics.ObserveDisconnect()
	}
}

// Close detaches the segment and closes the control channel. It is safe to
// call more than once; later sends are no-ops.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		// The channel goes first: a send parked in the ack wait holds s.mu
		// and only unwinds once its read fails.
		s.state.Store(int32(api.StateDisconnected))
		cerr := s.ch.Close()
		s.mu.Lock()
		defer s.mu.Unlock()
		s.unregisterProbes()
		derr := s.seg.Detach()
		s.closeErr = errors.Join(cerr, derr)
		s.logger.Debug("session closed")
	})
	return s.closeErr
}

// Shutdown implements api.GracefulShutdown.
func (s *Session) Shutdown() error {
	return s.Close()
}

func (s *Session) probeName(field string) string {
	return "session." + s.seg.Key() + "." + field
}

func (s *Session) registerProbes() {
	if s.ctl == nil {
		return
	}
	s.ctl.Debug.RegisterProbe(s.probeName("state"), func() any { return s.State().String() })
	s.ctl.Debug.RegisterProbe(s.probeName("capacity"), func() any { return s.seg.Capacity() })
}

func (s *Session) unregisterProbes() {
	if s.ctl == nil {
		return
	}
	s.ctl.Debug.UnregisterProbe(s.probeName("state"))
	s.ctl.Debug.UnregisterProbe(s.probeName("capacity"))
}
