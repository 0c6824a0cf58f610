package fncache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/unkn0wn-root/fncache/args"
	"github.com/unkn0wn-root/fncache/codec"
	"github.com/unkn0wn-root/fncache/internal/keyspace"
	"github.com/unkn0wn-root/fncache/store"
)

var errNilClient = errors.New("fncache: client is required")

type memoized[V any] struct {
	c   *Client
	sig args.Signature
	fn  Fn[V]

	ns    string
	full  string // {prefix:ns}
	index string

	ttl   time.Duration
	limit int64
	codec codec.Codec[V]

	fallbackOn []error
	fallbackIf func(error) bool
	strict     bool
}

var _ Memoized[struct{}] = (*memoized[struct{}])(nil)

// Wrap memoizes fn under c. sig describes the parameters fn is called with;
// it decides how positional and named values of a call are normalized, and
// therefore which calls share a cache entry.
func Wrap[V any](c *Client, sig args.Signature, fn Fn[V], opts WrapOptions[V]) (Memoized[V], error) {
	if c == nil {
		return nil, errNilClient
	}
	if fn == nil {
		return nil, errNilFunc
	}
	ns := opts.Namespace
	if ns == "" {
		ns = funcName(fn)
		if strings.Contains(ns, "[...]") {
			return nil, ErrNamespaceRequired
		}
	}
	if err := keyspace.Validate("namespace", ns); err != nil {
		return nil, err
	}
	full := keyspace.FullPrefix(c.prefix, ns)

	m := &memoized[V]{
		c:          c,
		sig:        sig,
		fn:         fn,
		ns:         ns,
		full:       full,
		index:      keyspace.IndexKey(full),
		ttl:        max(opts.TTL, 0),
		limit:      max(opts.Limit, 0),
		codec:      coalesce[codec.Codec[V]](opts.Codec, codec.JSON[V]{}),
		fallbackOn: append([]error(nil), opts.FallbackOn...),
		fallbackIf: opts.FallbackIf,
		strict:     opts.StrictArgs,
	}
	return m, nil
}

// MustWrap is Wrap that panics on error, for package-level declarations.
func MustWrap[V any](c *Client, sig args.Signature, fn Fn[V], opts WrapOptions[V]) Memoized[V] {
	m, err := Wrap(c, sig, fn, opts)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *memoized[V]) Namespace() string  { return m.ns }
func (m *memoized[V]) FullPrefix() string { return m.full }

func (m *memoized[V]) Call(ctx context.Context, call args.Call) (V, error) {
	var zero V
	in, key, err := m.prepare(call)
	if err != nil {
		return zero, err
	}

	raw, ok, err := m.c.store.Get(ctx, key)
	if err != nil {
		if !m.fallback(err) {
			return zero, err
		}
		m.c.hooks.Fallback(m.ns, key, err)
		m.c.log.Warn("store read failed; computing uncached", Fields{"ns": m.ns, "key": key, "err": err})
		return m.fn(ctx, in)
	}
	if ok {
		m.c.hooks.Hit(m.ns, key)
		return m.decode(raw)
	}

	m.c.hooks.Miss(m.ns, key)
	m.c.log.Debug("miss", Fields{"ns": m.ns, "key": key})
	v, w, err := m.compute(ctx, in, key)
	if err != nil {
		return zero, err
	}
	evicted, err := m.c.store.StoreAndEvict(ctx, w)
	if err != nil {
		m.c.log.Error("store write failed", Fields{"ns": m.ns, "key": key, "err": err})
		return zero, err
	}
	m.c.stored(m.ns, key, len(w.Value), evicted)
	return v, nil
}

func (m *memoized[V]) Uncached(ctx context.Context, call args.Call) (V, error) {
	in, err := m.normalize(call)
	if err != nil {
		var zero V
		return zero, err
	}
	return m.fn(ctx, in)
}

func (m *memoized[V]) Key(call args.Call) (string, error) {
	_, key, err := m.prepare(call)
	return key, err
}

func (m *memoized[V]) Invalidate(ctx context.Context, call args.Call) error {
	_, key, err := m.prepare(call)
	if err != nil {
		return err
	}
	_, err = m.c.store.Pipelined(ctx, func(p store.Pipe) {
		p.Del(key)
		p.ZRem(m.index, key)
	})
	if err != nil {
		return err
	}
	m.c.hooks.Invalidated(m.ns, 1)
	m.c.log.Debug("invalidated", Fields{"ns": m.ns, "key": key})
	return nil
}

// InvalidateAll deletes while scanning, which can shift the scan cursor past
// live keys, so it repeats full passes until one deletes nothing.
func (m *memoized[V]) InvalidateAll(ctx context.Context) (int64, error) {
	var total int64
	prefix := keyspace.ScanPrefix(m.full)
	var err error
	for {
		var pass int64
		err = m.c.store.ScanPrefix(ctx, prefix, m.c.scanBatch, func(keys []string) error {
			n, err := m.c.store.Del(ctx, keys...)
			pass += n
			return err
		})
		total += pass
		if err != nil || pass == 0 {
			break
		}
	}
	if total > 0 {
		m.c.hooks.Invalidated(m.ns, total)
	}
	if err != nil {
		m.c.log.Error("invalidate all failed", Fields{"ns": m.ns, "deleted": total, "err": err})
		return total, err
	}
	m.c.log.Info("invalidated namespace", Fields{"ns": m.ns, "deleted": total})
	return total, nil
}

func (m *memoized[V]) Request(call args.Call) Request {
	return Request{target: m, call: call}
}

func (m *memoized[V]) normalize(call args.Call) (args.Map, error) {
	if m.strict {
		return args.NormalizeStrict(m.sig, call)
	}
	return args.Normalize(m.sig, call), nil
}

func (m *memoized[V]) prepare(call args.Call) (args.Map, string, error) {
	in, err := m.normalize(call)
	if err != nil {
		return args.Map{}, "", err
	}
	b, err := m.c.keyEnc.Encode(in)
	if err != nil {
		return args.Map{}, "", &SerializationError{Op: opEncodeKey, Namespace: m.ns, Err: err}
	}
	return in, keyspace.EntryKey(m.full, b), nil
}

func (m *memoized[V]) decode(raw []byte) (V, error) {
	v, err := m.codec.Decode(raw)
	if err != nil {
		var zero V
		return zero, &SerializationError{Op: opDecodeValue, Namespace: m.ns, Err: err}
	}
	return v, nil
}

// compute runs fn and prepares the write of its result.
func (m *memoized[V]) compute(ctx context.Context, in args.Map, key string) (V, store.Write, error) {
	var zero V
	v, err := m.fn(ctx, in)
	if err != nil {
		return zero, store.Write{}, err
	}
	b, err := m.codec.Encode(v)
	if err != nil {
		return zero, store.Write{}, &SerializationError{Op: opEncodeValue, Namespace: m.ns, Err: err}
	}
	return v, store.Write{Key: key, IndexKey: m.index, Value: b, TTL: m.ttl, Limit: m.limit}, nil
}

func (m *memoized[V]) fallback(err error) bool {
	for _, target := range m.fallbackOn {
		if errors.Is(err, target) {
			return true
		}
	}
	return m.fallbackIf != nil && m.fallbackIf(err)
}

// batchable

func (m *memoized[V]) owner() *Client    { return m.c }
func (m *memoized[V]) namespace() string { return m.ns }
func (m *memoized[V]) decodeAny(raw []byte) (any, error) {
	return m.decode(raw)
}

func (m *memoized[V]) computeAny(ctx context.Context, in args.Map, key string) (any, store.Write, error) {
	return m.compute(ctx, in, key)
}

func (c *Client) stored(ns, key string, size int, evicted int64) {
	c.hooks.Stored(ns, key, size)
	if evicted > 0 {
		c.hooks.Evicted(ns, evicted)
		c.log.Debug("evicted", Fields{"ns": ns, "key": key, "evicted": evicted})
	}
}
