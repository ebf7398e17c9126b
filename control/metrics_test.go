package control_test

import (
	"testing"
	"time"

	"github.com/momentics/hioload-liveplot/control"
	"github.com/stretchr/testify/assert"
)

func TestMetricsSnapshot(t *testing.T) {
	mr := control.NewMetricsRegistry()
	mr.ObserveCommand("plot_series", 40)
	mr.ObserveCommand("plot_series", 8)
	mr.ObserveCommand("clear", 0)
	mr.ObserveDisconnect()
	mr.ObserveAckWait(3 * time.Millisecond)
	mr.Set("segment.capacity", 1024)

	snap := mr.GetSnapshot()
	assert.Equal(t, 2.0, snap["liveplot_commands_total{kind=plot_series}"])
	assert.Equal(t, 1.0, snap["liveplot_commands_total{kind=clear}"])
	assert.Equal(t, 48.0, snap["liveplot_payload_bytes_total"])
	assert.Equal(t, 1.0, snap["liveplot_disconnects_total"])
	assert.Equal(t, uint64(1), snap["liveplot_ack_wait_seconds_count"])
	assert.Equal(t, 1024, snap["segment.capacity"])
}

func TestRegistriesAreIndependent(t *testing.T) {
	a := control.NewMetricsRegistry()
	b := control.NewMetricsRegistry()
	a.ObserveDisconnect()
	assert.Equal(t, 0.0, b.GetSnapshot()["liveplot_disconnects_total"])
}

func TestControlStatsIncludesProbes(t *testing.T) {
	c := control.New()
	c.Debug.RegisterProbe("session.state", func() any { return "connected" })
	stats := c.Stats()
	assert.Equal(t, "connected", stats["debug.session.state"])
	assert.Contains(t, stats, "debug.platform.os")

	c.Debug.UnregisterProbe("session.state")
	assert.NotContains(t, c.Stats(), "debug.session.state")
}
