package fncache

import (
	"context"

	"github.com/unkn0wn-root/fncache/args"
	"github.com/unkn0wn-root/fncache/codec"
	"github.com/unkn0wn-root/fncache/internal/keyspace"
	"github.com/unkn0wn-root/fncache/store"
)

const (
	defaultPrefix    = "rc"
	defaultScanBatch = 500
)

// Client binds a store to a key layout. It is immutable and safe for
// concurrent use; share one per store.
type Client struct {
	store     store.Store
	prefix    string
	keyEnc    codec.Encoder[args.Map]
	log       Logger
	hooks     Hooks
	scanBatch int64
}

func New(opts Options) (*Client, error) {
	if opts.Store == nil {
		return nil, errStoreRequired
	}
	c := &Client{store: opts.Store}
	c.prefix = coalesce(opts.Prefix, defaultPrefix)
	if err := keyspace.Validate("prefix", c.prefix); err != nil {
		return nil, err
	}
	c.keyEnc = coalesce[codec.Encoder[args.Map]](opts.KeyEncoder, codec.JSON[args.Map]{})
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	c.scanBatch = coalesce(opts.ScanBatch, defaultScanBatch)
	if c.scanBatch < 0 {
		c.scanBatch = defaultScanBatch
	}
	return c, nil
}

func (c *Client) Prefix() string { return c.prefix }

// Close closes the store.
func (c *Client) Close(ctx context.Context) error {
	return c.store.Close(ctx)
}

// coalesce returns def when v is the zero value of T, otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
