package fncache

// Hooks are lightweight callbacks for cache events.
// Implementations MUST be cheap and non-blocking: they run inline on every
// call. Wrap slow sinks with hooks/async.
//
// key is always the full store key ("{prefix:namespace}:<args>").
type Hooks interface {
	Hit(namespace, key string)
	Miss(namespace, key string)

	// The store read failed with an error in the fallback set; the wrapped
	// function ran and its result was returned without caching.
	Fallback(namespace, key string, err error)

	// A fresh result of size bytes was written.
	Stored(namespace, key string, size int)

	// A write pushed the namespace over its limit and n older entries were
	// removed. Not called when n == 0.
	Evicted(namespace string, n int64)

	// One MGet round: requested keys, hits served from the store.
	BatchRead(requested, hits int)

	// Invalidate or InvalidateAll removed n keys.
	Invalidated(namespace string, n int64)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) Hit(string, string)             {}
func (NopHooks) Miss(string, string)            {}
func (NopHooks) Fallback(string, string, error) {}
func (NopHooks) Stored(string, string, int)     {}
func (NopHooks) Evicted(string, int64)          {}
func (NopHooks) BatchRead(int, int)             {}
func (NopHooks) Invalidated(string, int64)      {}
