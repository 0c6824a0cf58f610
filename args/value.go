package args

import (
	"errors"
	"fmt"
)

var ErrMissingArgument = errors.New("args: missing argument")

// Value fetches name from m as a T.
// Wrapped functions use it to unpack their normalized arguments.
func Value[T any](m Map, name string) (T, error) {
	var zero T
	v, ok := m.Get(name)
	if !ok {
		return zero, fmt.Errorf("%w: %q", ErrMissingArgument, name)
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("args: argument %q is %T, want %T", name, v, zero)
	}
	return t, nil
}

// ValueOr is Value with a default for absent names.
func ValueOr[T any](m Map, name string, def T) (T, error) {
	if !m.Has(name) {
		return def, nil
	}
	return Value[T](m, name)
}

// Rest returns the var-positional values collected under name, if any.
func Rest(m Map, name string) []any {
	v, _ := m.Get(name)
	rest, _ := v.([]any)
	return rest
}

// Extra returns the var-keyword values collected under name, if any.
func Extra(m Map, name string) Map {
	v, _ := m.Get(name)
	kw, _ := v.(Map)
	return kw
}
