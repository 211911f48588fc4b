// Package metrics exposes advisory Prometheus counters for store operation
// latency, following the teacher's internal/plugin/store/metrics/metrics.go
// Wrap-and-observe pattern, scaled down to the single histogram this CLI's
// one-shot process lifetime can usefully populate.
package metrics

import (
	"bytes"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// StoreLatency records operation latency in seconds, labeled by operation
// name. Populated by internal/store's Save/List/Search/Delete paths.
var StoreLatency *prometheus.HistogramVec

var registry = prometheus.NewRegistry()

var initOnce sync.Once

// Init registers the metric set with a private registry. Safe to call
// multiple times; only the first call registers.
func Init() {
	initOnce.Do(func() {
		f := promauto.With(registry)
		StoreLatency = f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agent_memory_store_latency_seconds",
				Help:    "Store operation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		)
	})
}

// Observe records the elapsed time since start against the named operation.
// A no-op until Init has run, so instrumented store methods don't need a
// nil check of their own.
func Observe(operation string, start time.Time) {
	if StoreLatency == nil {
		return
	}
	StoreLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Gather renders the current process's metrics in Prometheus text exposition
// format, for "agent-memory stats metrics" to print. Since each CLI
// invocation is its own process, this reports only that invocation's
// operations rather than a running server's cumulative counters.
func Gather() ([]byte, error) {
	families, err := registry.Gather()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
