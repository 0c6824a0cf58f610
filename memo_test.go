package fncache

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/unkn0wn-root/fncache/args"
	"github.com/unkn0wn-root/fncache/codec"
	"github.com/unkn0wn-root/fncache/store"
)

func squareFn(calls *atomic.Int64) Fn[int] {
	return func(_ context.Context, in args.Map) (int, error) {
		calls.Add(1)
		x, err := args.Value[int](in, "x")
		return x * x, err
	}
}

func cube(_ context.Context, in args.Map) (int, error) {
	x, err := args.Value[int](in, "x")
	return x * x * x, err
}

func mustWrapSquare(t *testing.T, c *Client, calls *atomic.Int64, opts WrapOptions[int]) Memoized[int] {
	t.Helper()
	if opts.Namespace == "" {
		opts.Namespace = "square"
	}
	m, err := Wrap(c, args.Names("x"), squareFn(calls), opts)
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	return m
}

func TestCallComputesOnceThenHits(t *testing.T) {
	ctx := context.Background()
	hooks := &recHooks{}
	c, mr := newRedisClient(t, func(o *Options) { o.Hooks = hooks })

	var calls atomic.Int64
	sq := mustWrapSquare(t, c, &calls, WrapOptions[int]{})

	for i := 0; i < 3; i++ {
		v, err := sq.Call(ctx, args.Of(4))
		if err != nil {
			t.Fatalf("Call %d: %v", i, err)
		}
		if v != 16 {
			t.Fatalf("Call %d = %d want 16", i, v)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("fn ran %d times, want 1", n)
	}
	if got, _ := mr.Get("{rc:square}:eyJ4Ijo0fQ=="); got != "16" {
		t.Fatalf("stored=%q want 16", got)
	}
	if hooks.misses != 1 || hooks.hits != 2 || hooks.stored != 1 {
		t.Fatalf("hooks: misses=%d hits=%d stored=%d", hooks.misses, hooks.hits, hooks.stored)
	}
}

func TestKeyLayout(t *testing.T) {
	c, _ := newRedisClient(t, nil)
	var calls atomic.Int64
	sq := mustWrapSquare(t, c, &calls, WrapOptions[int]{})

	key, err := sq.Key(args.Of(4))
	if err != nil {
		t.Fatal(err)
	}
	if key != "{rc:square}:eyJ4Ijo0fQ==" {
		t.Fatalf("key=%q", key)
	}
	if sq.FullPrefix() != "{rc:square}" || sq.Namespace() != "square" {
		t.Fatalf("prefix=%q ns=%q", sq.FullPrefix(), sq.Namespace())
	}
	if calls.Load() != 0 {
		t.Fatalf("Key must not run the function")
	}
}

func TestPositionalAndNamedShareEntry(t *testing.T) {
	ctx := context.Background()
	c, _ := newRedisClient(t, nil)

	var calls atomic.Int64
	add, err := Wrap(c, args.Names("a", "b"), func(_ context.Context, in args.Map) (int, error) {
		calls.Add(1)
		a, _ := args.Value[int](in, "a")
		b, _ := args.Value[int](in, "b")
		return a + b, nil
	}, WrapOptions[int]{Namespace: "add"})
	if err != nil {
		t.Fatal(err)
	}

	for _, call := range []args.Call{
		args.Of(1, 2),
		args.Of().With("a", 1).With("b", 2),
		args.Of().With("b", 2).With("a", 1),
		args.Of(1).With("b", 2),
	} {
		if v, err := add.Call(ctx, call); err != nil || v != 3 {
			t.Fatalf("add(%+v)=%d err=%v", call, v, err)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("fn ran %d times, want 1", n)
	}
}

func TestDefaultNamespaceIsFuncName(t *testing.T) {
	c, _ := newRedisClient(t, nil)
	m, err := Wrap(c, args.Names("x"), cube, WrapOptions[int]{})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := m.Namespace(), "github.com/unkn0wn-root/fncache.cube"; got != want {
		t.Fatalf("namespace=%q want %q", got, want)
	}
	if got := m.FullPrefix(); got != "{rc:github.com/unkn0wn-root/fncache.cube}" {
		t.Fatalf("full prefix=%q", got)
	}
}

func genericLookup[T any](_ context.Context, in args.Map) (T, error) {
	return args.Value[T](in, "x")
}

func TestGenericFuncNeedsNamespace(t *testing.T) {
	ctx := context.Background()
	c, _ := newRedisClient(t, nil)

	if _, err := Wrap(c, args.Names("x"), genericLookup[int], WrapOptions[int]{}); !errors.Is(err, ErrNamespaceRequired) {
		t.Fatalf("int instantiation: want ErrNamespaceRequired, got %v", err)
	}
	if _, err := Wrap(c, args.Names("x"), genericLookup[string], WrapOptions[string]{}); !errors.Is(err, ErrNamespaceRequired) {
		t.Fatalf("string instantiation: want ErrNamespaceRequired, got %v", err)
	}

	ints, err := Wrap(c, args.Names("x"), genericLookup[int], WrapOptions[int]{Namespace: "lookup_int"})
	if err != nil {
		t.Fatal(err)
	}
	strs, err := Wrap(c, args.Names("x"), genericLookup[string], WrapOptions[string]{Namespace: "lookup_string"})
	if err != nil {
		t.Fatal(err)
	}
	ki, _ := ints.Key(args.Of(1))
	ks, _ := strs.Key(args.Of(1))
	if ki == ks {
		t.Fatalf("instantiations share key %q", ki)
	}
	if v, err := ints.Call(ctx, args.Of(7)); err != nil || v != 7 {
		t.Fatalf("int call: v=%d err=%v", v, err)
	}
	if v, err := strs.Call(ctx, args.Of("q")); err != nil || v != "q" {
		t.Fatalf("string call: v=%q err=%v", v, err)
	}
}

func TestWrapValidation(t *testing.T) {
	c, _ := newRedisClient(t, nil)

	cases := map[string]func() error{
		"nil_client": func() error {
			_, err := Wrap[int](nil, args.Names("x"), cube, WrapOptions[int]{})
			return err
		},
		"nil_func": func() error {
			_, err := Wrap[int](c, args.Names("x"), nil, WrapOptions[int]{})
			return err
		},
		"brace_namespace": func() error {
			_, err := Wrap(c, args.Names("x"), cube, WrapOptions[int]{Namespace: "a{b"})
			if !errors.Is(err, ErrInvalidKeyPart) {
				return fmt.Errorf("want ErrInvalidKeyPart, got %v", err)
			}
			return err
		},
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			if err := fn(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	if _, err := New(Options{}); !errors.Is(err, errStoreRequired) {
		t.Fatalf("New without store: %v", err)
	}
	if _, err := New(Options{Store: newMemStore(), Prefix: "x}"}); !errors.Is(err, ErrInvalidKeyPart) {
		t.Fatalf("New with brace prefix: %v", err)
	}
}

func TestMustWrapPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	c, err := New(Options{Store: newMemStore()})
	if err != nil {
		t.Fatal(err)
	}
	MustWrap(c, args.Names("x"), cube, WrapOptions[int]{Namespace: "}"})
}

func TestFnErrorIsNotCached(t *testing.T) {
	ctx := context.Background()
	ms := newMemStore()
	c, _ := New(Options{Store: ms})

	boom := errors.New("boom")
	var calls atomic.Int64
	m, _ := Wrap(c, args.Names("x"), func(context.Context, args.Map) (int, error) {
		calls.Add(1)
		return 0, boom
	}, WrapOptions[int]{Namespace: "fail"})

	for i := 0; i < 2; i++ {
		if _, err := m.Call(ctx, args.Of(1)); err != boom {
			t.Fatalf("want the function's error unchanged, got %v", err)
		}
	}
	if calls.Load() != 2 || ms.writes != 0 {
		t.Fatalf("calls=%d writes=%d", calls.Load(), ms.writes)
	}
}

func TestFallbackComputesWithoutWriting(t *testing.T) {
	ctx := context.Background()
	ms := newMemStore()
	ms.getErr = fmt.Errorf("%w: dial tcp: connection refused", store.ErrUnavailable)
	hooks := &recHooks{}
	c, _ := New(Options{Store: ms, Hooks: hooks})

	var calls atomic.Int64
	sq := mustWrapSquare(t, c, &calls, WrapOptions[int]{FallbackOn: []error{ErrStoreUnavailable}})

	v, err := sq.Call(ctx, args.Of(3))
	if err != nil || v != 9 {
		t.Fatalf("v=%d err=%v", v, err)
	}
	if ms.writes != 0 {
		t.Fatalf("fallback must not write, writes=%d", ms.writes)
	}
	if hooks.fallbacks != 1 {
		t.Fatalf("fallback hook=%d", hooks.fallbacks)
	}
}

func TestReadErrorOutsideFallbackSetPropagates(t *testing.T) {
	ctx := context.Background()
	ms := newMemStore()
	ms.getErr = fmt.Errorf("%w: timeout", store.ErrUnavailable)
	c, _ := New(Options{Store: ms})

	var calls atomic.Int64
	sq := mustWrapSquare(t, c, &calls, WrapOptions[int]{})
	if _, err := sq.Call(ctx, args.Of(3)); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("want ErrStoreUnavailable, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("function must not run")
	}
}

func TestFallbackIf(t *testing.T) {
	ctx := context.Background()
	ms := newMemStore()
	odd := errors.New("odd")
	ms.getErr = odd
	c, _ := New(Options{Store: ms})

	var calls atomic.Int64
	sq := mustWrapSquare(t, c, &calls, WrapOptions[int]{
		FallbackIf: func(err error) bool { return err == odd },
	})
	if v, err := sq.Call(ctx, args.Of(5)); err != nil || v != 25 {
		t.Fatalf("v=%d err=%v", v, err)
	}
}

func TestFallbackAgainstClosedRedis(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisClient(t, nil)

	var calls atomic.Int64
	sq := mustWrapSquare(t, c, &calls, WrapOptions[int]{FallbackOn: []error{ErrStoreUnavailable}})
	mr.Close()

	if v, err := sq.Call(ctx, args.Of(6)); err != nil || v != 36 {
		t.Fatalf("v=%d err=%v", v, err)
	}
}

func TestEmptyResultIsAHit(t *testing.T) {
	ctx := context.Background()
	c, _ := newRedisClient(t, nil)

	var calls atomic.Int64
	m, err := Wrap(c, args.Names("x"), func(context.Context, args.Map) (string, error) {
		calls.Add(1)
		return "", nil
	}, WrapOptions[string]{Namespace: "empty", Codec: codec.String{}})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, err := m.Call(ctx, args.Of(1)); err != nil {
			t.Fatal(err)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("empty result recomputed: calls=%d", calls.Load())
	}
}

func TestTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisClient(t, nil)

	var calls atomic.Int64
	sq := mustWrapSquare(t, c, &calls, WrapOptions[int]{TTL: time.Second})
	if _, err := sq.Call(ctx, args.Of(2)); err != nil {
		t.Fatal(err)
	}
	key, _ := sq.Key(args.Of(2))
	if ttl := mr.TTL(key); ttl != time.Second {
		t.Fatalf("ttl=%v want 1s", ttl)
	}
	mr.FastForward(time.Second)
	if _, err := sq.Call(ctx, args.Of(2)); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expired entry should be recomputed, calls=%d", calls.Load())
	}
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	hooks := &recHooks{}
	c, mr := newRedisClient(t, func(o *Options) { o.Hooks = hooks })

	var calls atomic.Int64
	sq := mustWrapSquare(t, c, &calls, WrapOptions[int]{Limit: 10})
	if _, err := sq.Call(ctx, args.Of(4)); err != nil {
		t.Fatal(err)
	}
	if err := sq.Invalidate(ctx, args.Of().With("x", 4)); err != nil {
		t.Fatal(err)
	}
	key, _ := sq.Key(args.Of(4))
	if mr.Exists(key) {
		t.Fatalf("entry still present")
	}
	if members, _ := mr.ZMembers("{rc:square}:keys"); len(members) != 0 {
		t.Fatalf("index still references %v", members)
	}
	if _, err := sq.Call(ctx, args.Of(4)); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 || hooks.invalidated != 1 {
		t.Fatalf("calls=%d invalidated=%d", calls.Load(), hooks.invalidated)
	}
}

func TestInvalidateAll(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisClient(t, func(o *Options) { o.ScanBatch = 2 })

	var sqCalls, otherCalls atomic.Int64
	sq := mustWrapSquare(t, c, &sqCalls, WrapOptions[int]{Limit: 100})
	other := mustWrapSquare(t, c, &otherCalls, WrapOptions[int]{Namespace: "other"})

	for i := 0; i < 5; i++ {
		if _, err := sq.Call(ctx, args.Of(i)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := other.Call(ctx, args.Of(1)); err != nil {
		t.Fatal(err)
	}

	n, err := sq.InvalidateAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 6 { // 5 entries + index
		t.Fatalf("deleted=%d want 6", n)
	}
	for _, k := range mr.Keys() {
		if strings.HasPrefix(k, sq.FullPrefix()) {
			t.Fatalf("key %q survived", k)
		}
	}
	if got := namespaceKeys(mr, other.FullPrefix()); len(got) != 1 {
		t.Fatalf("other namespace touched: %v", got)
	}

	if n, err := sq.InvalidateAll(ctx); err != nil || n != 0 {
		t.Fatalf("second pass: n=%d err=%v", n, err)
	}
}

func TestLimitBoundsNamespace(t *testing.T) {
	ctx := context.Background()
	hooks := &recHooks{}
	c, mr := newRedisClient(t, func(o *Options) { o.Hooks = hooks })

	var calls atomic.Int64
	sq := mustWrapSquare(t, c, &calls, WrapOptions[int]{Limit: 3})

	base := time.Unix(1_700_000_000, 0)
	for i := 0; i < 5; i++ {
		mr.SetTime(base.Add(time.Duration(i) * time.Second))
		if _, err := sq.Call(ctx, args.Of(i)); err != nil {
			t.Fatal(err)
		}
	}
	if got := namespaceKeys(mr, sq.FullPrefix()); len(got) != 3 {
		t.Fatalf("entries=%d want 3", len(got))
	}
	for _, x := range []int{0, 1} {
		k, _ := sq.Key(args.Of(x))
		if mr.Exists(k) {
			t.Fatalf("oldest entry x=%d should be evicted", x)
		}
	}
	if hooks.evicted != 2 {
		t.Fatalf("evicted hook total=%d want 2", hooks.evicted)
	}
}

func TestLimitHoldsUnderConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisClient(t, nil)

	var calls atomic.Int64
	sq := mustWrapSquare(t, c, &calls, WrapOptions[int]{Limit: 5})

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(x int) {
			defer wg.Done()
			if _, err := sq.Call(ctx, args.Of(x)); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}

	if got := namespaceKeys(mr, sq.FullPrefix()); len(got) != 5 {
		t.Fatalf("entries=%d want 5", len(got))
	}
	members, err := mr.ZMembers("{rc:square}:keys")
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 5 {
		t.Fatalf("index size=%d want 5", len(members))
	}
	for _, k := range members {
		if !mr.Exists(k) {
			t.Fatalf("index references missing key %q", k)
		}
	}
}

func TestStrictArgs(t *testing.T) {
	ctx := context.Background()
	c, _ := New(Options{Store: newMemStore()})

	var calls atomic.Int64
	loose := mustWrapSquare(t, c, &calls, WrapOptions[int]{Namespace: "loose"})
	strict := mustWrapSquare(t, c, &calls, WrapOptions[int]{Namespace: "strict", StrictArgs: true})

	if v, err := loose.Call(ctx, args.Of(2, 99)); err != nil || v != 4 {
		t.Fatalf("loose: v=%d err=%v", v, err)
	}
	if _, err := strict.Call(ctx, args.Of(2, 99)); !errors.Is(err, args.ErrUnexpectedArgument) {
		t.Fatalf("strict: want ErrUnexpectedArgument, got %v", err)
	}
	if _, err := strict.Uncached(ctx, args.Of(2).With("y", 1)); !errors.Is(err, args.ErrUnexpectedArgument) {
		t.Fatalf("strict uncached: want ErrUnexpectedArgument, got %v", err)
	}
}

func TestUncachedBypassesStore(t *testing.T) {
	ctx := context.Background()
	ms := newMemStore()
	c, _ := New(Options{Store: ms})

	var calls atomic.Int64
	sq := mustWrapSquare(t, c, &calls, WrapOptions[int]{})
	for i := 0; i < 2; i++ {
		if v, err := sq.Uncached(ctx, args.Of(7)); err != nil || v != 49 {
			t.Fatalf("v=%d err=%v", v, err)
		}
	}
	if calls.Load() != 2 || ms.writes != 0 {
		t.Fatalf("calls=%d writes=%d", calls.Load(), ms.writes)
	}
}

func TestSerializationErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("key", func(t *testing.T) {
		boom := errors.New("no keys today")
		c, _ := New(Options{
			Store:      newMemStore(),
			KeyEncoder: codec.EncoderFunc[args.Map](func(args.Map) ([]byte, error) { return nil, boom }),
		})
		var calls atomic.Int64
		sq := mustWrapSquare(t, c, &calls, WrapOptions[int]{})
		_, err := sq.Call(ctx, args.Of(1))
		var se *SerializationError
		if !errors.As(err, &se) || se.Op != opEncodeKey || !errors.Is(err, boom) {
			t.Fatalf("want key SerializationError, got %v", err)
		}
	})

	t.Run("encode_value", func(t *testing.T) {
		ms := newMemStore()
		c, _ := New(Options{Store: ms})
		m, _ := Wrap(c, args.Names("x"), func(context.Context, args.Map) (float64, error) {
			return math.NaN(), nil
		}, WrapOptions[float64]{Namespace: "nan"})
		_, err := m.Call(ctx, args.Of(1))
		var se *SerializationError
		if !errors.As(err, &se) || se.Op != opEncodeValue || se.Namespace != "nan" {
			t.Fatalf("want encode SerializationError, got %v", err)
		}
		if ms.writes != 0 {
			t.Fatalf("nothing should be written")
		}
	})

	t.Run("decode_value", func(t *testing.T) {
		c, mr := newRedisClient(t, nil)
		var calls atomic.Int64
		sq := mustWrapSquare(t, c, &calls, WrapOptions[int]{})
		key, _ := sq.Key(args.Of(1))
		if err := mr.Set(key, "not json"); err != nil {
			t.Fatal(err)
		}
		_, err := sq.Call(ctx, args.Of(1))
		var se *SerializationError
		if !errors.As(err, &se) || se.Op != opDecodeValue {
			t.Fatalf("want decode SerializationError, got %v", err)
		}
		if calls.Load() != 0 {
			t.Fatalf("decode failure must not recompute")
		}
	})
}

func TestScriptErrorPropagates(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedisClient(t, nil)

	var calls atomic.Int64
	sq := mustWrapSquare(t, c, &calls, WrapOptions[int]{Limit: 1})
	if err := mr.Set("{rc:square}:keys", "not a zset"); err != nil {
		t.Fatal(err)
	}
	_, err := sq.Call(ctx, args.Of(1))
	var se *ScriptError
	if !errors.As(err, &se) {
		t.Fatalf("want ScriptError, got %v", err)
	}
}

func TestCustomPrefix(t *testing.T) {
	c, _ := newRedisClient(t, func(o *Options) { o.Prefix = "app" })
	var calls atomic.Int64
	sq := mustWrapSquare(t, c, &calls, WrapOptions[int]{})
	if key, _ := sq.Key(args.Of(4)); key != "{app:square}:eyJ4Ijo0fQ==" {
		t.Fatalf("key=%q", key)
	}
}
