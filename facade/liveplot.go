// File: facade/liveplot.go
// Unified entry point for producers.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// LivePlot owns every session a process opens, shares one logger and one
// metrics registry between them, and closes them all on Shutdown or, once
// CloseOnExit is armed, when the process receives a termination signal.

package facade

import (
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/momentics/hioload-liveplot/api"
	"github.com/momentics/hioload-liveplot/client"
	"github.com/momentics/hioload-liveplot/control"
	"github.com/momentics/hioload-liveplot/internal/session"
	"go.uber.org/zap"
)

// ErrShutdown is returned by Connect after Shutdown.
var ErrShutdown = errors.New("liveplot facade is shut down")

// Option customizes a LivePlot.
type Option func(*LivePlot)

// WithLogger replaces the logger built from the config.
func WithLogger(l *zap.Logger) Option {
	return func(lp *LivePlot) {
		if l != nil {
			lp.logger = l
		}
	}
}

// WithSessionOptions appends options passed to every client.Dial.
func WithSessionOptions(opts ...client.Option) Option {
	return func(lp *LivePlot) {
		lp.dialOpts = append(lp.dialOpts, opts...)
	}
}

// LivePlot is the process-wide owner of producer sessions.
// It implements api.GracefulShutdown.
type LivePlot struct {
	cfg      *control.Config
	logger   *zap.Logger
	ctl      *control.Control
	sessions *session.Store[*client.Session]
	dialOpts []client.Option

	mu       sync.Mutex
	shutdown bool
	stopExit func()
}

var _ api.GracefulShutdown = (*LivePlot)(nil)

// New validates cfg and prepares the shared logger and metrics.
func New(cfg *control.Config, opts ...Option) (*LivePlot, error) {
	if cfg == nil {
		cfg = control.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	lp := &LivePlot{
		cfg:      cfg,
		ctl:      control.New(),
		sessions: session.NewStore[*client.Session](16),
	}
	for _, opt := range opts {
		opt(lp)
	}
	if lp.logger == nil {
		logger, err := control.NewLogger(cfg)
		if err != nil {
			return nil, err
		}
		lp.logger = logger
	}
	lp.ctl.Debug.RegisterProbe("facade.sessions", func() any { return lp.sessions.Len() })
	return lp, nil
}

// Connect opens a session to the configured consumer and registers it for
// Shutdown.
func (lp *LivePlot) Connect() (*client.Session, error) {
	lp.mu.Lock()
	defer lp.mu.Unlock()
	if lp.shutdown {
		return nil, ErrShutdown
	}
	opts := append([]client.Option{client.WithLogger(lp.logger), client.WithControl(lp.ctl)}, lp.dialOpts...)
	s, err := client.Dial(lp.cfg, opts...)
	if err != nil {
		lp.logger.Warn("liveplot connect failed", zap.Error(err))
		return nil, err
	}
	lp.sessions.Add(s.Key(), s)
	return s, nil
}

// Release closes s and forgets it.
func (lp *LivePlot) Release(s *client.Session) error {
	lp.sessions.Delete(s.Key())
	return s.Close()
}

// Sessions counts registered sessions, connected or not.
func (lp *LivePlot) Sessions() int {
	return lp.sessions.Len()
}

// Control exposes the shared metrics and debug probes.
func (lp *LivePlot) Control() *control.Control {
	return lp.ctl
}

// Logger is the shared logger.
func (lp *LivePlot) Logger() *zap.Logger {
	return lp.logger
}

// CloseOnExit arms a hook that shuts the facade down when the process gets
// SIGINT or SIGTERM, so segments are detached and removed before exit. The
// signal is then re-raised with default handling restored. The returned
// function disarms the hook.
func (lp *LivePlot) CloseOnExit() (stop func()) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	disarmed := make(chan struct{})
	stop = sync.OnceFunc(func() {
		signal.Stop(sigs)
		close(disarmed)
	})

	lp.mu.Lock()
	if lp.stopExit != nil {
		lp.stopExit()
	}
	lp.stopExit = stop
	lp.mu.Unlock()

	go func() {
		select {
		case sig := <-sigs:
			lp.logger.Info("closing liveplot sessions on signal", zap.Stringer("signal", sig))
			lp.Shutdown()
			if p, err := os.FindProcess(os.Getpid()); err == nil {
				p.Signal(sig)
			}
		case <-disarmed:
		}
	}()
	return stop
}

// Shutdown closes every registered session. Later Connect calls fail.
func (lp *LivePlot) Shutdown() error {
	lp.mu.Lock()
	lp.shutdown = true
	stop := lp.stopExit
	lp.stopExit = nil
	lp.mu.Unlock()
	if stop != nil {
		stop()
	}
	err := lp.sessions.CloseAll()
	lp.ctl.Debug.UnregisterProbe("facade.sessions")
	lp.logger.Sync()
	return err
}
