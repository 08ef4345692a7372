// Package metrics instruments the client's call path: counters and gauges
// via VictoriaMetrics/metrics (and its /metrics Prometheus exposition),
// and per-call latency timers via rcrowley/go-metrics, so the two
// libraries each cover a distinct, non-overlapping concern.
package metrics

import "github.com/lni/dragonboat/v4/logger"

var log = logger.GetLogger("ipc/metrics")
