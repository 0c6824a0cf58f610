// Package store defines the remote key-value capability the cache runs on.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly the
// bytes previously written for a key (no framing, no re-encoding).
//
// Important: keys of the form "{<prefix>:<namespace>}:*" are owned by fncache.
// External code MUST NOT write under them; InvalidateAll deletes everything
// matching that prefix.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnavailable marks connectivity failures: refused/reset connections,
// timeouts, closed clients, exhausted pools. Callers opt into falling back on
// it with errors.Is.
var ErrUnavailable = errors.New("store unavailable")

// ScriptError is a server-side failure of the store-and-evict program.
type ScriptError struct {
	Key string
	Err error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("store-and-evict %q: %v", e.Key, e.Err)
}

func (e *ScriptError) Unwrap() error { return e.Err }

// Write is one store-and-evict request.
type Write struct {
	Key      string        // entry key
	IndexKey string        // namespace eviction index
	Value    []byte        // serialized result
	TTL      time.Duration // <= 0 => no expiry
	Limit    int64         // <= 0 => no index bookkeeping
}

// Entry is one slot of an MGet result. Found distinguishes an empty stored
// value from a missing key.
type Entry struct {
	Value []byte
	Found bool
}

// Pipe queues commands for a single round trip. Nothing is atomic across
// queued commands.
type Pipe interface {
	StoreAndEvict(w Write)
	Del(keys ...string)
	ZRem(indexKey string, members ...string)
}

// Store is the capability required by fncache.
// Must be safe for concurrent use.
type Store interface {
	// Get returns (value, true, nil) on hit and (nil, false, nil) on miss.
	// An empty value is a hit.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// MGet returns one Entry per key, positionally.
	MGet(ctx context.Context, keys ...string) ([]Entry, error)

	// StoreAndEvict writes w.Value under w.Key and, when w.Limit > 0, records
	// the key in w.IndexKey and evicts the oldest members beyond the limit,
	// all as one atomic unit. It returns the number of evicted entries.
	StoreAndEvict(ctx context.Context, w Write) (evicted int64, err error)

	// Pipelined runs fn against a Pipe and sends everything it queued in one
	// round trip. evicted has one element per StoreAndEvict queued, in order.
	Pipelined(ctx context.Context, fn func(Pipe)) (evicted []int64, err error)

	// ScanPrefix calls fn with batches of at most batch keys starting with
	// prefix. The scan is not restartable; keys written meanwhile may or may
	// not be seen, and deleting keys from fn can make later batches skip
	// some. Callers that delete rescan until nothing is left.
	ScanPrefix(ctx context.Context, prefix string, batch int64, fn func(keys []string) error) error

	// Del removes keys and returns how many existed.
	Del(ctx context.Context, keys ...string) (int64, error)

	// Close releases resources.
	Close(ctx context.Context) error
}
