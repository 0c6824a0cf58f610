// Package asynchook moves hook delivery off the call path: events are queued
// to a fixed pool of workers and dropped when the queue is full.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    HitEvery:  100, // sample logs: ~every 100th hit
//	    MissEvery: 10,
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	c, _ := fncache.New(fncache.Options{
//	    Store: rs,
//	    Hooks: hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/fncache"
)

type Hooks struct {
	inner   fncache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex // guards closed against sends on a closed q
	closed  bool
	dropped atomic.Uint64
}

var _ fncache.Hooks = (*Hooks)(nil)

func New(inner fncache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events sent afterwards
// are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped reports how many events were discarded because the queue was full
// or the hooks were closed.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) Hit(ns, k string)               { h.try(func() { h.inner.Hit(ns, k) }) }
func (h *Hooks) Miss(ns, k string)              { h.try(func() { h.inner.Miss(ns, k) }) }
func (h *Hooks) Evicted(ns string, n int64)     { h.try(func() { h.inner.Evicted(ns, n) }) }
func (h *Hooks) Invalidated(ns string, n int64) { h.try(func() { h.inner.Invalidated(ns, n) }) }
func (h *Hooks) BatchRead(requested, hits int)  { h.try(func() { h.inner.BatchRead(requested, hits) }) }
func (h *Hooks) Fallback(ns, k string, err error) {
	h.try(func() { h.inner.Fallback(ns, k, err) })
}
func (h *Hooks) Stored(ns, k string, size int) {
	h.try(func() { h.inner.Stored(ns, k, size) })
}
