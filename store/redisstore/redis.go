// Package redisstore implements store.Store on go-redis.
//
// Works with any redis.UniversalClient: single node, failover and cluster.
// On a cluster, MGet falls back to pipelined GETs (keys of different
// namespaces live on different slots) and ScanPrefix walks every master.
package redisstore

import (
	"context"
	"errors"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/fncache/store"
)

var ErrNilClient = errors.New("redis store: nil client")

type Store struct {
	rdb         goredis.UniversalClient
	closeClient bool
	script      *goredis.Script // registered once per store
}

var _ store.Store = (*Store)(nil)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this store exclusively owns the client
}

func New(cfg Config) (*Store, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Store{
		rdb:         cfg.Client,
		closeClient: cfg.CloseClient,
		script:      newStoreAndEvict(),
	}, nil
}

// Load uploads the store-and-evict script to the server(s). Optional: the
// script is sent in full on the first NOSCRIPT reply anyway.
func (s *Store) Load(ctx context.Context) error {
	return classify(s.script.Load(ctx, s.rdb).Err())
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, classify(err)
	}
	return b, true, nil
}

func (s *Store) MGet(ctx context.Context, keys ...string) ([]store.Entry, error) {
	out := make([]store.Entry, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	if _, ok := s.rdb.(*goredis.ClusterClient); ok {
		return s.pipelinedGet(ctx, keys, out)
	}

	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, classify(err)
	}
	for i, v := range vals {
		switch vv := v.(type) {
		case nil:
		case string:
			out[i] = store.Entry{Value: []byte(vv), Found: true}
		case []byte:
			out[i] = store.Entry{Value: vv, Found: true}
		}
	}
	return out, nil
}

func (s *Store) pipelinedGet(ctx context.Context, keys []string, out []store.Entry) ([]store.Entry, error) {
	cmds := make([]*goredis.StringCmd, len(keys))
	_, err := s.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
		for i, k := range keys {
			cmds[i] = p.Get(ctx, k)
		}
		return nil
	})
	if err != nil && err != goredis.Nil {
		return nil, classify(err)
	}
	for i, c := range cmds {
		b, err := c.Bytes()
		if err == goredis.Nil {
			continue
		}
		if err != nil {
			return nil, classify(err)
		}
		out[i] = store.Entry{Value: b, Found: true}
	}
	return out, nil
}

func (s *Store) StoreAndEvict(ctx context.Context, w store.Write) (int64, error) {
	n, err := s.script.Run(ctx, s.rdb, writeKeys(w), writeArgs(w)...).Int64()
	if err != nil {
		return 0, scriptErr(w.Key, err)
	}
	return n, nil
}

func (s *Store) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := s.rdb.Del(ctx, keys...).Result()
	return n, classify(err)
}

func (s *Store) ScanPrefix(ctx context.Context, prefix string, batch int64, fn func(keys []string) error) error {
	if batch <= 0 {
		batch = 500
	}
	match := escapeGlob(prefix) + "*"

	cc, ok := s.rdb.(*goredis.ClusterClient)
	if !ok {
		return scanNode(ctx, s.rdb, match, batch, fn)
	}
	// masters are scanned concurrently; fn is not required to be thread-safe
	var mu sync.Mutex
	locked := func(keys []string) error {
		mu.Lock()
		defer mu.Unlock()
		return fn(keys)
	}
	return classify(cc.ForEachMaster(ctx, func(ctx context.Context, node *goredis.Client) error {
		return scanNode(ctx, node, match, batch, locked)
	}))
}

func scanNode(ctx context.Context, c goredis.Cmdable, match string, batch int64, fn func([]string) error) error {
	iter := c.Scan(ctx, 0, match, batch).Iterator()
	keys := make([]string, 0, batch)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if int64(len(keys)) >= batch {
			if err := fn(keys); err != nil {
				return err
			}
			keys = make([]string, 0, batch)
		}
	}
	if err := iter.Err(); err != nil {
		return classify(err)
	}
	if len(keys) > 0 {
		return fn(keys)
	}
	return nil
}

// Close releases the underlying redis client only when this store owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (s *Store) Close(context.Context) error {
	if s.closeClient {
		if err := s.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

func writeKeys(w store.Write) []string {
	return []string{w.Key, w.IndexKey}
}

func writeArgs(w store.Write) []any {
	return []any{w.Value, ttlSeconds(w.TTL), max(w.Limit, 0)}
}

// ttlSeconds rounds up so that a positive sub-second TTL never turns into
// "no expiry".
func ttlSeconds(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return int64((ttl + time.Second - 1) / time.Second)
}

// escapeGlob quotes the characters SCAN MATCH treats as patterns.
func escapeGlob(s string) string {
	var out []byte
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '*', '?', '[', ']', '\\':
			out = append(out, '\\', c)
		default:
			out = append(out, c)
		}
	}
	return string(out)
}
