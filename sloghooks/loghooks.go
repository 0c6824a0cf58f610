// Package sloghooks reports cache events as log/slog records. Hits and misses
// are high volume, so they are sampled and logged at Debug; keys are redacted
// because they carry encoded call arguments.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/fncache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	HitEvery  uint64
	MissEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	hitCtr  atomic.Uint64
	missCtr atomic.Uint64
}

var _ fncache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Hit(ns, key string) {
	if h.l == nil || !sample(h.opts.HitEvery, &h.hitCtr) {
		return
	}
	h.l.Debug("fncache.hit", "ns", ns, "key", h.redact(key))
}

func (h *Hooks) Miss(ns, key string) {
	if h.l == nil || !sample(h.opts.MissEvery, &h.missCtr) {
		return
	}
	h.l.Debug("fncache.miss", "ns", ns, "key", h.redact(key))
}

func (h *Hooks) Fallback(ns, key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("fncache.fallback",
		"ns", ns,
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) Stored(ns, key string, size int) {
	if h.l == nil {
		return
	}
	h.l.Debug("fncache.stored",
		"ns", ns,
		"key", h.redact(key),
		"bytes", size)
}

func (h *Hooks) Evicted(ns string, n int64) {
	if h.l == nil {
		return
	}
	h.l.Info("fncache.evicted", "ns", ns, "count", n)
}

func (h *Hooks) BatchRead(requested, hits int) {
	if h.l == nil {
		return
	}
	h.l.Debug("fncache.batch_read", "requested", requested, "hits", hits)
}

func (h *Hooks) Invalidated(ns string, n int64) {
	if h.l == nil {
		return
	}
	h.l.Info("fncache.invalidated", "ns", ns, "count", n)
}
