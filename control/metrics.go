// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics for the transport. Counters live in a private Prometheus
// registry so several sessions in one process never collide; GetSnapshot
// flattens them for logging and tests.

package control

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// MetricsRegistry holds transport counters plus free-form values set at runtime.
type MetricsRegistry struct {
	reg          *prometheus.Registry
	commands     *prometheus.CounterVec
	payloadBytes prometheus.Counter
	disconnects  prometheus.Counter
	ackWait      prometheus.Histogram

	mu      sync.RWMutex
	metrics map[string]any
	updated time.Time
}

// NewMetricsRegistry creates a registry with the transport collectors registered.
func NewMetricsRegistry() *MetricsRegistry {
	mr := &MetricsRegistry{
		reg: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "liveplot_commands_total",
			Help: "Commands written to the control channel, by kind.",
		}, []string{"kind"}),
		payloadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "liveplot_payload_bytes_total",
			Help: "Payload bytes copied through the shared memory segment.",
		}),
		disconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "liveplot_disconnects_total",
			Help: "Peer disconnects observed.",
		}),
		ackWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "liveplot_ack_wait_seconds",
			Help:    "Time spent waiting for the consumer to release the segment.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		metrics: make(map[string]any),
	}
	mr.reg.MustRegister(mr.commands, mr.payloadBytes, mr.disconnects, mr.ackWait)
	return mr
}

// Registry exposes the underlying Prometheus registry, e.g. for an HTTP handler.
func (mr *MetricsRegistry) Registry() *prometheus.Registry {
	return mr.reg
}

// ObserveCommand counts one command of kind carrying n payload bytes.
func (mr *MetricsRegistry) ObserveCommand(kind string, n int) {
	mr.commands.WithLabelValues(kind).Inc()
	if n > 0 {
		mr.payloadBytes.Add(float64(n))
	}
}

// ObserveAckWait records how long the producer blocked on an ack.
func (mr *MetricsRegistry) ObserveAckWait(d time.Duration) {
	mr.ackWait.Observe(d.Seconds())
}

// ObserveDisconnect counts a peer disconnect.
func (mr *MetricsRegistry) ObserveDisconnect() {
	mr.disconnects.Inc()
}

// Set sets or updates a free-form metric key.
func (mr *MetricsRegistry) Set(key string, value any) {
	mr.mu.Lock()
	mr.metrics[key] = value
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// GetSnapshot returns free-form values and every gathered sample. Counter
// samples are keyed name{label=value,...}; histograms report _count and _sum.
func (mr *MetricsRegistry) GetSnapshot() map[string]any {
	mr.mu.RLock()
	out := make(map[string]any, len(mr.metrics))
	for k, v := range mr.metrics {
		out[k] = v
	}
	mr.mu.RUnlock()

	families, err := mr.reg.Gather()
	if err != nil {
		out["gather_error"] = err.Error()
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := sampleKey(mf.GetName(), m.GetLabel())
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				out[key] = m.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				out[key] = m.GetGauge().GetValue()
			case dto.MetricType_HISTOGRAM:
				out[key+"_count"] = m.GetHistogram().GetSampleCount()
				out[key+"_sum"] = m.GetHistogram().GetSampleSum()
			}
		}
	}
	return out
}

func sampleKey(name string, labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return name
	}
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, l.GetName()+"="+l.GetValue())
	}
	sort.Strings(parts)
	return name + "{" + strings.Join(parts, ",") + "}"
}
