package fncache

import (
	"context"

	"github.com/unkn0wn-root/fncache/args"
	"github.com/unkn0wn-root/fncache/store"
)

// MGet resolves many requests, possibly of different memoized functions, in
// one store read. Misses are computed one after another in request order and
// all their writes go out in a single pipeline. Results keep request order;
// element i has the value type of reqs[i]'s function.
//
// There is no fallback here: any store error is returned. If a function
// fails, MGet returns its error and nothing is written.
func (c *Client) MGet(ctx context.Context, reqs ...Request) ([]any, error) {
	out := make([]any, len(reqs))
	if len(reqs) == 0 {
		return out, nil
	}

	ins := make([]args.Map, len(reqs))
	keys := make([]string, len(reqs))
	for i, r := range reqs {
		if r.target == nil || r.target.owner() != c {
			return nil, ErrForeignRequest
		}
		in, key, err := r.target.prepare(r.call)
		if err != nil {
			return nil, err
		}
		ins[i], keys[i] = in, key
	}

	entries, err := c.store.MGet(ctx, keys...)
	if err != nil {
		return nil, err
	}

	var (
		writes []store.Write
		nss    []string
		hits   int
	)
	for i, e := range entries {
		t := reqs[i].target
		if e.Found {
			v, err := t.decodeAny(e.Value)
			if err != nil {
				return nil, err
			}
			out[i] = v
			hits++
			c.hooks.Hit(t.namespace(), keys[i])
			continue
		}
		c.hooks.Miss(t.namespace(), keys[i])
		v, w, err := t.computeAny(ctx, ins[i], keys[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
		writes = append(writes, w)
		nss = append(nss, t.namespace())
	}
	c.hooks.BatchRead(len(reqs), hits)
	c.log.Debug("batch read", Fields{"requested": len(reqs), "hits": hits})

	if len(writes) == 0 {
		return out, nil
	}
	evicted, err := c.store.Pipelined(ctx, func(p store.Pipe) {
		for _, w := range writes {
			p.StoreAndEvict(w)
		}
	})
	if err != nil {
		c.log.Error("batch write failed", Fields{"writes": len(writes), "err": err})
		return nil, err
	}
	for i, n := range evicted {
		if i < len(writes) {
			c.stored(nss[i], writes[i].Key, len(writes[i].Value), n)
		}
	}
	return out, nil
}

// MGetOf is MGet for calls of a single memoized function.
func MGetOf[V any](ctx context.Context, m Memoized[V], calls ...args.Call) ([]V, error) {
	out := make([]V, len(calls))
	if len(calls) == 0 {
		return out, nil
	}
	reqs := make([]Request, len(calls))
	for i, call := range calls {
		reqs[i] = m.Request(call)
	}
	t := reqs[0].target
	if t == nil {
		return nil, ErrForeignRequest
	}
	vals, err := t.owner().MGet(ctx, reqs...)
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		if tv, ok := v.(V); ok {
			out[i] = tv
		}
	}
	return out, nil
}
