package redisstore

import (
	"context"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/fncache/store"
)

type opKind uint8

const (
	opStore opKind = iota
	opDel
	opZRem
)

type op struct {
	kind  opKind
	w     store.Write
	keys  []string
	index string
}

type pipe struct{ ops []op }

func (p *pipe) StoreAndEvict(w store.Write) {
	p.ops = append(p.ops, op{kind: opStore, w: w})
}

func (p *pipe) Del(keys ...string) {
	if len(keys) > 0 {
		p.ops = append(p.ops, op{kind: opDel, keys: keys})
	}
}

func (p *pipe) ZRem(indexKey string, members ...string) {
	if len(members) > 0 {
		p.ops = append(p.ops, op{kind: opZRem, index: indexKey, keys: members})
	}
}

// Pipelined sends everything fn queued in one round trip. Store-and-evict
// ops go out as EVALSHA; any that come back NOSCRIPT are re-sent once with
// the full script body. The first failure is returned after all results are
// collected, so evicted counts of the successful writes are still reported.
func (s *Store) Pipelined(ctx context.Context, fn func(store.Pipe)) ([]int64, error) {
	p := &pipe{}
	fn(p)
	if len(p.ops) == 0 {
		return nil, nil
	}

	cmds := make([]goredis.Cmder, len(p.ops))
	_, err := s.rdb.Pipelined(ctx, func(pl goredis.Pipeliner) error {
		for i, o := range p.ops {
			cmds[i] = s.queue(ctx, pl, o, false)
		}
		return nil
	})
	if err != nil && isUnavailable(err) {
		return nil, classify(err)
	}

	var retry []int
	for i, c := range cmds {
		if p.ops[i].kind == opStore && isNoScript(c.Err()) {
			retry = append(retry, i)
		}
	}
	if len(retry) > 0 {
		_, err := s.rdb.Pipelined(ctx, func(pl goredis.Pipeliner) error {
			for _, i := range retry {
				cmds[i] = s.queue(ctx, pl, p.ops[i], true)
			}
			return nil
		})
		if err != nil && isUnavailable(err) {
			return nil, classify(err)
		}
	}

	var (
		evicted  []int64
		firstErr error
	)
	for i, o := range p.ops {
		c := cmds[i]
		if o.kind != opStore {
			if err := c.Err(); err != nil && firstErr == nil {
				firstErr = classify(err)
			}
			continue
		}
		n, err := c.(*goredis.Cmd).Int64()
		if err != nil && firstErr == nil {
			firstErr = scriptErr(o.w.Key, err)
		}
		evicted = append(evicted, n)
	}
	return evicted, firstErr
}

func (s *Store) queue(ctx context.Context, pl goredis.Pipeliner, o op, full bool) goredis.Cmder {
	switch o.kind {
	case opDel:
		return pl.Del(ctx, o.keys...)
	case opZRem:
		members := make([]any, len(o.keys))
		for i, k := range o.keys {
			members[i] = k
		}
		return pl.ZRem(ctx, o.index, members...)
	default:
		if full {
			return s.script.Eval(ctx, pl, writeKeys(o.w), writeArgs(o.w)...)
		}
		return s.script.EvalSha(ctx, pl, writeKeys(o.w), writeArgs(o.w)...)
	}
}
