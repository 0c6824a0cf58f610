// Package fncache memoizes function results in Redis.
//
// A call is normalized against the function's parameter signature (package
// args), so add(1, 2) and add(a=1, b=2) share an entry. The normalized
// arguments are serialized (JSON by default), base64 encoded and placed
// under a hash-tagged namespace:
//
//	{<prefix>:<namespace>}:<base64 args>  - cached results
//	{<prefix>:<namespace>}:keys           - eviction index (sorted set)
//
// Writes run as one atomic server-side script that stores the result and,
// when the namespace has a Limit, records it in the index and evicts the
// oldest entries beyond the limit. Insertion order comes from the server
// clock, so every process agrees on what "oldest" means.
//
// Components:
//   - args: Signature, Call and the ordered Map handed to wrapped functions.
//   - codec: key encoder and value codecs (JSON, CBOR, Msgpack, Protobuf, raw).
//   - store: the capability the cache needs; store/redisstore implements it
//     with go-redis for single node, failover and cluster clients.
//
// Usage:
//
//	rs, _ := redisstore.New(redisstore.Config{Client: rdb})
//	c, _ := fncache.New(fncache.Options{Store: rs})
//	square, _ := fncache.Wrap(c, args.Names("x"), func(ctx context.Context, in args.Map) (int, error) {
//	    x, err := args.Value[int](in, "x")
//	    return x * x, err
//	}, fncache.WrapOptions[int]{Namespace: "square", TTL: time.Minute, Limit: 1000})
//
//	v, err := square.Call(ctx, args.Of(4))
package fncache
