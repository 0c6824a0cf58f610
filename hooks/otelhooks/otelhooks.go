// Package otelhooks records cache events as OpenTelemetry counters.
// Every data point carries the fncache.namespace attribute, except the batch
// counters which are client-wide.
package otelhooks

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/unkn0wn-root/fncache"
)

const scope = "github.com/unkn0wn-root/fncache"

// AttrNamespace is the attribute key for the memoized function's namespace.
const AttrNamespace = attribute.Key("fncache.namespace")

type Hooks struct {
	hits        metric.Int64Counter
	misses      metric.Int64Counter
	fallbacks   metric.Int64Counter
	stored      metric.Int64Counter
	storedBytes metric.Int64Counter
	evicted     metric.Int64Counter
	invalidated metric.Int64Counter
	batchReqs   metric.Int64Counter
	batchHits   metric.Int64Counter
}

var _ fncache.Hooks = (*Hooks)(nil)

// New creates the instruments on mp (nil => the global MeterProvider).
func New(mp metric.MeterProvider) (*Hooks, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(scope)

	h := &Hooks{}
	for _, in := range []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&h.hits, "fncache.hits", "Calls served from the store", "{call}"},
		{&h.misses, "fncache.misses", "Calls that ran the wrapped function", "{call}"},
		{&h.fallbacks, "fncache.fallbacks", "Calls computed uncached after a store read error", "{call}"},
		{&h.stored, "fncache.stored", "Results written to the store", "{entry}"},
		{&h.storedBytes, "fncache.stored.size", "Bytes of results written to the store", "By"},
		{&h.evicted, "fncache.evicted", "Entries evicted to honour the namespace limit", "{entry}"},
		{&h.invalidated, "fncache.invalidated", "Keys removed by Invalidate and InvalidateAll", "{key}"},
		{&h.batchReqs, "fncache.batch.requests", "Requests resolved through MGet", "{request}"},
		{&h.batchHits, "fncache.batch.hits", "MGet requests served from the store", "{request}"},
	} {
		c, err := meter.Int64Counter(in.name, metric.WithDescription(in.desc), metric.WithUnit(in.unit))
		if err != nil {
			return nil, err
		}
		*in.dst = c
	}
	return h, nil
}

func nsAttr(ns string) metric.AddOption {
	return metric.WithAttributes(AttrNamespace.String(ns))
}

func (h *Hooks) Hit(ns, _ string)  { h.hits.Add(context.Background(), 1, nsAttr(ns)) }
func (h *Hooks) Miss(ns, _ string) { h.misses.Add(context.Background(), 1, nsAttr(ns)) }

func (h *Hooks) Fallback(ns, _ string, _ error) {
	h.fallbacks.Add(context.Background(), 1, nsAttr(ns))
}

func (h *Hooks) Stored(ns, _ string, size int) {
	ctx := context.Background()
	opt := nsAttr(ns)
	h.stored.Add(ctx, 1, opt)
	h.storedBytes.Add(ctx, int64(size), opt)
}

func (h *Hooks) Evicted(ns string, n int64) {
	h.evicted.Add(context.Background(), n, nsAttr(ns))
}

func (h *Hooks) BatchRead(requested, hits int) {
	ctx := context.Background()
	h.batchReqs.Add(ctx, int64(requested))
	h.batchHits.Add(ctx, int64(hits))
}

func (h *Hooks) Invalidated(ns string, n int64) {
	h.invalidated.Add(context.Background(), n, nsAttr(ns))
}
