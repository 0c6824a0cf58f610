// Package promhooks exports cache events as Prometheus counters, labelled
// by namespace.
package promhooks

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/fncache"
)

const metricNS = "fncache"

type Hooks struct {
	hits        *prometheus.CounterVec
	misses      *prometheus.CounterVec
	fallbacks   *prometheus.CounterVec
	stored      *prometheus.CounterVec
	storedBytes *prometheus.CounterVec
	evicted     *prometheus.CounterVec
	invalidated *prometheus.CounterVec

	batchRequested prometheus.Counter
	batchHits      prometheus.Counter
}

var _ fncache.Hooks = (*Hooks)(nil)

func counterVec(name, help string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricNS,
		Name:      name,
		Help:      help,
	}, []string{"namespace"})
}

func counter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricNS,
		Subsystem: "batch",
		Name:      name,
		Help:      help,
	})
}

// New creates the counters and registers them with reg (nil =>
// prometheus.DefaultRegisterer).
func New(reg prometheus.Registerer) (*Hooks, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	h := &Hooks{
		hits:        counterVec("hits_total", "Calls served from the store"),
		misses:      counterVec("misses_total", "Calls that ran the wrapped function"),
		fallbacks:   counterVec("fallbacks_total", "Calls computed uncached after a store read error"),
		stored:      counterVec("stored_total", "Results written to the store"),
		storedBytes: counterVec("stored_bytes_total", "Bytes of results written to the store"),
		evicted:     counterVec("evicted_total", "Entries evicted to honour the namespace limit"),
		invalidated: counterVec("invalidated_total", "Keys removed by Invalidate and InvalidateAll"),

		batchRequested: counter("requested_total", "Requests resolved through MGet"),
		batchHits:      counter("hits_total", "MGet requests served from the store"),
	}
	for _, c := range []prometheus.Collector{
		h.hits, h.misses, h.fallbacks, h.stored, h.storedBytes, h.evicted, h.invalidated,
		h.batchRequested, h.batchHits,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *Hooks) Hit(ns, _ string)  { h.hits.WithLabelValues(ns).Inc() }
func (h *Hooks) Miss(ns, _ string) { h.misses.WithLabelValues(ns).Inc() }

func (h *Hooks) Fallback(ns, _ string, _ error) { h.fallbacks.WithLabelValues(ns).Inc() }

func (h *Hooks) Stored(ns, _ string, size int) {
	h.stored.WithLabelValues(ns).Inc()
	h.storedBytes.WithLabelValues(ns).Add(float64(size))
}

func (h *Hooks) Evicted(ns string, n int64) { h.evicted.WithLabelValues(ns).Add(float64(n)) }

func (h *Hooks) BatchRead(requested, hits int) {
	h.batchRequested.Add(float64(requested))
	h.batchHits.Add(float64(hits))
}

func (h *Hooks) Invalidated(ns string, n int64) { h.invalidated.WithLabelValues(ns).Add(float64(n)) }
