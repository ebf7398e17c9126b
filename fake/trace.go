// File: fake/trace.go
// Author: momentics <momentics@gmail.com>

package fake

import "sync"

// Trace is an ordered event log shared between fakes.
type Trace struct {
	mu     sync.Mutex
	events []string
}

// Record appends an event. A nil Trace ignores it.
func (t *Trace) Record(ev string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.events = append(t.events, ev)
	t.mu.Unlock()
}

// Events returns a copy of the log.
func (t *Trace) Events() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.events...)
}

// Reset drops every recorded event.
func (t *Trace) Reset() {
	t.mu.Lock()
	t.events = nil
	t.mu.Unlock()
}
