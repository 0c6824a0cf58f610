package fncache

import (
	"context"
	"time"

	"github.com/unkn0wn-root/fncache/args"
	"github.com/unkn0wn-root/fncache/codec"
	"github.com/unkn0wn-root/fncache/store"
)

// Fn is a function whose results can be memoized. It receives the
// normalized arguments of a call; see args.Value for unpacking them.
// A non-nil error is returned to the caller as is and nothing is cached.
type Fn[V any] func(ctx context.Context, in args.Map) (V, error)

// Memoized is a wrapped Fn plus the controls over its cached results.
type Memoized[V any] interface {
	// Call returns the cached result for call, computing and storing it on
	// a miss.
	Call(ctx context.Context, call args.Call) (V, error)

	// Uncached runs the wrapped function directly; the store is not touched.
	Uncached(ctx context.Context, call args.Call) (V, error)

	// Key returns the store key call maps to.
	Key(call args.Call) (string, error)

	// Invalidate drops the cached result of call, if any.
	Invalidate(ctx context.Context, call args.Call) error

	// InvalidateAll drops every cached result of the namespace together with
	// its eviction index and returns how many keys were deleted.
	InvalidateAll(ctx context.Context) (int64, error)

	Namespace() string
	FullPrefix() string // "{prefix:namespace}"

	// Request binds call for a batched Client.MGet.
	Request(call args.Call) Request
}

// Options configure a Client. Only Store is required.
type Options struct {
	Store store.Store

	Prefix     string                  // first part of every key; "" => "rc"
	KeyEncoder codec.Encoder[args.Map] // nil => codec.JSON[args.Map]
	Logger     Logger                  // nil => NopLogger
	Hooks      Hooks                   // nil => NopHooks
	ScanBatch  int64                   // keys per SCAN/DEL round in InvalidateAll; 0 => 500
}

// WrapOptions tune a single memoized function.
type WrapOptions[V any] struct {
	// Namespace groups the function's entries; "" => the fully qualified Go
	// name of the function, e.g. "github.com/acme/app/users.Lookup".
	// Anonymous functions get compiler names (pkg.F.func1) which shift when
	// code moves, so set it explicitly for closures. Instantiated generic
	// functions have no usable name and must set it (ErrNamespaceRequired).
	Namespace string

	TTL   time.Duration  // 0 => no expiry; rounded up to whole seconds
	Limit int64          // max entries in the namespace; 0 => unbounded
	Codec codec.Codec[V] // nil => codec.JSON[V]

	// Store read errors that make Call compute without the cache instead of
	// failing. Matched with errors.Is; FallbackIf is consulted as well.
	// Writes are skipped on fallback.
	FallbackOn []error
	FallbackIf func(error) bool

	// StrictArgs rejects calls carrying values no parameter can take
	// (args.ErrUnexpectedArgument). By default they are dropped.
	StrictArgs bool
}

// Request is one call of one Memoized, ready for Client.MGet.
type Request struct {
	target batchable
	call   args.Call
}

// batchable is the type-erased view of a memoized function MGet works on.
type batchable interface {
	owner() *Client
	namespace() string
	prepare(call args.Call) (args.Map, string, error)
	decodeAny(raw []byte) (any, error)
	computeAny(ctx context.Context, in args.Map, key string) (any, store.Write, error)
}
