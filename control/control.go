// control/control.go
// Author: momentics <momentics@gmail.com>
//
// Control bundles metrics and debug probes behind one handle that sessions
// and the reference consumer report into.

package control

import (
	"os"
	"runtime"
)

// Control combines the metrics registry and debug probes.
type Control struct {
	Metrics *MetricsRegistry
	Debug   *DebugProbes
}

// New creates a Control with platform probes registered.
func New() *Control {
	c := &Control{
		Metrics: NewMetricsRegistry(),
		Debug:   NewDebugProbes(),
	}
	registerPlatformProbes(c.Debug)
	return c
}

// Stats merges the metrics snapshot with the probe outputs, the latter
// prefixed with "debug.".
func (c *Control) Stats() map[string]any {
	combined := c.Metrics.GetSnapshot()
	for k, v := range c.Debug.DumpState() {
		combined["debug."+k] = v
	}
	return combined
}

func registerPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.os", func() any {
		return runtime.GOOS
	})
	dp.RegisterProbe("platform.pid", func() any {
		return os.Getpid()
	})
	dp.RegisterProbe("platform.devshm", func() any {
		info, err := os.Stat("/dev/shm")
		return err == nil && info.IsDir()
	})
}
