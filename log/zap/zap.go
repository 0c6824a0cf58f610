// Package zap adapts go.uber.org/zap to fncache.Logger.
package zap

import (
	"sort"

	"go.uber.org/zap"

	"github.com/unkn0wn-root/fncache"
)

var _ fncache.Logger = Logger{}

type Logger struct{ L *zap.Logger }

// New names l "fncache". A nil l logs nowhere.
func New(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return Logger{L: l.Named("fncache")}
}

func (z Logger) Debug(msg string, f fncache.Fields) { z.L.Debug(msg, fields(f)...) }
func (z Logger) Info(msg string, f fncache.Fields)  { z.L.Info(msg, fields(f)...) }
func (z Logger) Warn(msg string, f fncache.Fields)  { z.L.Warn(msg, fields(f)...) }
func (z Logger) Error(msg string, f fncache.Fields) { z.L.Error(msg, fields(f)...) }

// fields sorts by name so entries encode the same way every time.
func fields(f fncache.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	names := make([]string, 0, len(f))
	for k := range f {
		names = append(names, k)
	}
	sort.Strings(names)
	out := make([]zap.Field, 0, len(f))
	for _, k := range names {
		if err, ok := f[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, f[k]))
	}
	return out
}
