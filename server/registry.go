// File: server/registry.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/eapache/queue"
	"github.com/momentics/hioload-liveplot/api"
	"github.com/momentics/hioload-liveplot/protocol"
)

// Target is a snapshot of one named plot.
type Target struct {
	Name   string
	Kind   protocol.Kind // last plot or append kind applied
	Label  string
	Hidden bool

	// Data is the last plotted array.
	Data *protocol.Array

	// Steps is the origin/step mapping of the last plot or image append.
	Steps protocol.StepOrigins

	// Points holds appended values oldest first: float64 for series,
	// [2]float64 for xy, protocol.Array for images.
	Points []any

	// Dropped counts appended values evicted by the history limit.
	Dropped int
}

type target struct {
	Target
	history *queue.Queue
}

// Registry applies frames to named targets. Plot commands replace a target's
// data, appends extend a bounded history, and clear, hide and remove act on
// one target or, for the wildcard name, on all of them.
type Registry struct {
	mu      sync.RWMutex
	limit   int
	targets map[string]*target
}

// NewRegistry keeps at most limit appended values per target; 0 means no bound.
func NewRegistry(limit int) *Registry {
	return &Registry{limit: limit, targets: make(map[string]*target)}
}

// HandleFrame implements Handler.
func (r *Registry) HandleFrame(_ context.Context, f *Frame) error {
	return r.Apply(f.Command, f.Array)
}

// Apply updates the registry with one command.
func (r *Registry) Apply(cmd protocol.Command, arr *protocol.Array) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch c := cmd.(type) {
	case protocol.PlotSeries:
		r.plot(c.Target(), c.Kind(), c.Label, protocol.StepOrigins{c.StartStep}, arr)
	case protocol.PlotImage:
		r.plot(c.Target(), c.Kind(), "", c.Steps, arr)
	case protocol.PlotXY:
		r.plot(c.Target(), c.Kind(), c.Label, nil, arr)
	case protocol.AppendSeries:
		t := r.get(c.Target(), c.Kind())
		if c.Label != "" {
			t.Label = c.Label
		}
		t.Steps = protocol.StepOrigins{c.StartStep}
		r.push(t, c.Value)
	case protocol.AppendXY:
		t := r.get(c.Target(), c.Kind())
		if c.Label != "" {
			t.Label = c.Label
		}
		r.push(t, [2]float64{c.X, c.Y})
	case protocol.AppendImage:
		if arr == nil {
			return fmt.Errorf("%w: append_image without payload", api.ErrInvalidArgument)
		}
		t := r.get(c.Target(), c.Kind())
		if c.Steps != nil {
			t.Steps = c.Steps
		}
		r.push(t, *arr)
	case protocol.SetLabel:
		r.get(c.Target(), "").Label = c.Text
	case protocol.Clear:
		r.each(c.Target(), func(t *target) {
			t.Data = nil
			t.history = queue.New()
			t.Dropped = 0
		})
	case protocol.Hide:
		r.each(c.Target(), func(t *target) { t.Hidden = true })
	case protocol.Remove:
		if c.Target() == protocol.Wildcard {
			r.targets = make(map[string]*target)
		} else {
			delete(r.targets, c.Target())
		}
	case protocol.Barrier:
	default:
		return fmt.Errorf("%w: command %T", api.ErrNotSupported, cmd)
	}
	return nil
}

func (r *Registry) get(name string, kind protocol.Kind) *target {
	t, ok := r.targets[name]
	if !ok {
		t = &target{Target: Target{Name: name}, history: queue.New()}
		r.targets[name] = t
	}
	if kind != "" {
		t.Kind = kind
	}
	t.Hidden = false
	return t
}

func (r *Registry) plot(name string, kind protocol.Kind, label string, steps protocol.StepOrigins, arr *protocol.Array) {
	t := r.get(name, kind)
	if label != "" {
		t.Label = label
	}
	t.Steps = steps
	t.Data = arr
	t.history = queue.New()
	t.Dropped = 0
}

func (r *Registry) push(t *target, v any) {
	t.history.Add(v)
	for r.limit > 0 && t.history.Length() > r.limit {
		t.history.Remove()
		t.Dropped++
	}
}

// each applies fn to the named target, or to every target for the wildcard.
func (r *Registry) each(name string, fn func(*target)) {
	if name == protocol.Wildcard {
		for _, t := range r.targets {
			fn(t)
		}
		return
	}
	if t, ok := r.targets[name]; ok {
		fn(t)
	}
}

// Get returns a snapshot of the named target.
func (r *Registry) Get(name string) (Target, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.targets[name]
	if !ok {
		return Target{}, false
	}
	snap := t.Target
	snap.Points = make([]any, t.history.Length())
	for i := range snap.Points {
		snap.Points[i] = t.history.Get(i)
	}
	return snap, true
}

// Names lists target names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.targets))
	for n := range r.targets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
