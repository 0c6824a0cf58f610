package fncache

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/fncache/store"
	"github.com/unkn0wn-root/fncache/store/redisstore"
)

// memStore is a map-backed store.Store without eviction; getErr makes every
// read fail.
type memStore struct {
	mu     sync.Mutex
	m      map[string][]byte
	getErr error
	writes int
}

var _ store.Store = (*memStore)(nil)

func newMemStore() *memStore { return &memStore{m: make(map[string][]byte)} }

func (s *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *memStore) MGet(_ context.Context, keys ...string) ([]store.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	out := make([]store.Entry, len(keys))
	for i, k := range keys {
		v, ok := s.m[k]
		out[i] = store.Entry{Value: v, Found: ok}
	}
	return out, nil
}

func (s *memStore) StoreAndEvict(_ context.Context, w store.Write) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[w.Key] = w.Value
	s.writes++
	return 0, nil
}

type memPipe struct{ ops []func(s *memStore) int64 }

func (p *memPipe) StoreAndEvict(w store.Write) {
	p.ops = append(p.ops, func(s *memStore) int64 {
		s.m[w.Key] = w.Value
		s.writes++
		return -1
	})
}

func (p *memPipe) Del(keys ...string) {
	p.ops = append(p.ops, func(s *memStore) int64 {
		for _, k := range keys {
			delete(s.m, k)
		}
		return 0
	})
}

func (p *memPipe) ZRem(string, ...string) {}

func (s *memStore) Pipelined(_ context.Context, fn func(store.Pipe)) ([]int64, error) {
	p := &memPipe{}
	fn(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	var evicted []int64
	for _, op := range p.ops {
		if op(s) < 0 {
			evicted = append(evicted, 0)
		}
	}
	return evicted, nil
}

func (s *memStore) ScanPrefix(_ context.Context, prefix string, batch int64, fn func([]string) error) error {
	s.mu.Lock()
	var keys []string
	for k := range s.m {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	s.mu.Unlock()
	sort.Strings(keys)
	for len(keys) > 0 {
		n := min(int64(len(keys)), batch)
		if err := fn(keys[:n]); err != nil {
			return err
		}
		keys = keys[n:]
	}
	return nil
}

func (s *memStore) Del(_ context.Context, keys ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := s.m[k]; ok {
			delete(s.m, k)
			n++
		}
	}
	return n, nil
}

func (s *memStore) Close(context.Context) error { return nil }

// recHooks counts events.
type recHooks struct {
	mu                              sync.Mutex
	hits, misses, fallbacks, stored int
	evicted, invalidated            int64
	batchRequested, batchHits       int
}

var _ Hooks = (*recHooks)(nil)

func (h *recHooks) Hit(string, string)  { h.mu.Lock(); h.hits++; h.mu.Unlock() }
func (h *recHooks) Miss(string, string) { h.mu.Lock(); h.misses++; h.mu.Unlock() }
func (h *recHooks) Fallback(string, string, error) {
	h.mu.Lock()
	h.fallbacks++
	h.mu.Unlock()
}
func (h *recHooks) Stored(string, string, int) { h.mu.Lock(); h.stored++; h.mu.Unlock() }
func (h *recHooks) Evicted(_ string, n int64)  { h.mu.Lock(); h.evicted += n; h.mu.Unlock() }
func (h *recHooks) BatchRead(requested, hits int) {
	h.mu.Lock()
	h.batchRequested += requested
	h.batchHits += hits
	h.mu.Unlock()
}
func (h *recHooks) Invalidated(_ string, n int64) {
	h.mu.Lock()
	h.invalidated += n
	h.mu.Unlock()
}

func newRedisClient(t *testing.T, opt func(*Options)) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        mr.Addr(),
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	rs, err := redisstore.New(redisstore.Config{Client: rdb, CloseClient: true})
	if err != nil {
		t.Fatalf("redisstore.New: %v", err)
	}
	opts := Options{Store: rs}
	if opt != nil {
		opt(&opts)
	}
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c, mr
}

// namespaceKeys lists the entry keys (index excluded) under a full prefix.
func namespaceKeys(mr *miniredis.Miniredis, full string) []string {
	var out []string
	for _, k := range mr.Keys() {
		if strings.HasPrefix(k, full+":") && k != full+":keys" {
			out = append(out, k)
		}
	}
	return out
}
