package metrics

import (
	"io"
	"strings"
	"time"

	vm "github.com/VictoriaMetrics/metrics"
	rcmetrics "github.com/rcrowley/go-metrics"
)

// Metrics bundles the counters/gauges a running client reports. Callers
// obtain one per client instance (so values don't leak across unrelated
// Clients in the same process) via New, and call its record methods from
// the facade and pool.
type Metrics struct {
	name string
	set  *vm.Set

	callsStarted *vm.Counter
	callsFailed  *vm.Counter
	callsRemote  *vm.Counter
	pingsSent    *vm.Counter
	activeConns  *vm.Gauge

	callLatency rcmetrics.Timer
}

// PoolSizer is satisfied by pool.Pool; kept narrow here so this package
// never imports pool (which would create an import cycle through client).
type PoolSizer interface {
	Size() int
}

// New creates an isolated metrics set (so WritePrometheus output doesn't
// collide across independently-created clients in the same process) and
// registers a latency timer in the default go-metrics registry under name.
// name is sanitized into a valid Prometheus metric-name prefix: any rune
// outside [a-zA-Z0-9_:] becomes an underscore.
func New(name string, pool PoolSizer) *Metrics {
	name = sanitizeName(name)
	set := vm.NewSet()

	m := &Metrics{
		name:         name,
		set:          set,
		callsStarted: set.NewCounter(name + `_calls_started_total`),
		callsFailed:  set.NewCounter(name + `_calls_failed_total`),
		callsRemote:  set.NewCounter(name + `_calls_remote_error_total`),
		pingsSent:    set.NewCounter(name + `_pings_sent_total`),
		callLatency:  rcmetrics.NewTimer(),
	}

	if pool != nil {
		m.activeConns = set.NewGauge(name+`_active_connections`, func() float64 {
			return float64(pool.Size())
		})
	}

	rcmetrics.Register(name+".call_latency", m.callLatency)
	vm.RegisterSet(set)
	log.Debugf("registered metrics set %q", name)
	return m
}

// CallStarted records a call being submitted.
func (m *Metrics) CallStarted() {
	m.callsStarted.Inc()
}

// CallFailed records a locally-classified call failure (connect-refused,
// timeout, local I/O, client-stopped, unknown-host).
func (m *Metrics) CallFailed() {
	m.callsFailed.Inc()
}

// CallRemoteError records a response carrying a remote exception.
func (m *Metrics) CallRemoteError() {
	m.callsRemote.Inc()
}

// PingSent records a heartbeat ping emitted by a connection's reader.
func (m *Metrics) PingSent() {
	m.pingsSent.Inc()
}

// ObserveLatency records how long a completed call took end to end.
func (m *Metrics) ObserveLatency(d time.Duration) {
	m.callLatency.Update(d)
}

// WritePrometheus writes this client's counters/gauges in Prometheus
// exposition format. The CLI's --stats output is built on it; an
// operator-facing /metrics handler can use it the same way.
func (m *Metrics) WritePrometheus(w io.Writer) {
	m.set.WritePrometheus(w)
}

// LatencySnapshot exposes the go-metrics timer's percentile snapshot for
// diagnostics (the CLI's --stats output).
func (m *Metrics) LatencySnapshot() rcmetrics.Timer {
	return m.callLatency.Snapshot()
}

// Unregister removes this instance's metrics from both underlying
// registries, used when a Client is torn down so repeated test runs (or
// repeated CLI invocations in one process) don't collide on metric names.
func (m *Metrics) Unregister() {
	vm.UnregisterSet(m.set)
	rcmetrics.Unregister(m.name + ".call_latency")
}

func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == ':':
			return r
		default:
			return '_'
		}
	}, name)
}
