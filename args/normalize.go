package args

import (
	"errors"
	"fmt"
)

var ErrUnexpectedArgument = errors.New("args: unexpected argument")

// UnexpectedArgumentError is returned by NormalizeStrict for a value that no
// parameter or collector can take.
type UnexpectedArgumentError struct {
	Name     string // set for named values
	Position int    // set for positional values; -1 otherwise
}

func (e *UnexpectedArgumentError) Error() string {
	if e.Position >= 0 {
		return fmt.Sprintf("args: unexpected positional argument at index %d", e.Position)
	}
	return fmt.Sprintf("args: unexpected named argument %q", e.Name)
}

func (e *UnexpectedArgumentError) Unwrap() error { return ErrUnexpectedArgument }

// Normalize maps call onto sig.
//
// Positional values fill ordinary params by index; the rest go to the
// var-positional collector, or are dropped when there is none. Named values
// matching an ordinary or keyword-only param are stored under that name; the
// rest go to the var-keyword collector, or are dropped when there is none.
//
// The result lists entries in declaration order, so the same logical call
// always yields the same map. Arity is never checked: missing params are
// simply absent.
func Normalize(sig Signature, call Call) Map {
	m, _ := normalize(sig, call, false)
	return m
}

// NormalizeStrict is Normalize, except that a value which would be dropped
// yields an *UnexpectedArgumentError instead.
func NormalizeStrict(sig Signature, call Call) (Map, error) {
	return normalize(sig, call, true)
}

func normalize(sig Signature, call Call, strict bool) (Map, error) {
	values := make(map[string]any, len(sig.params))

	var extra []any
	for i, v := range call.Positional {
		if i < len(sig.ordinary) {
			values[sig.ordinary[i]] = v
			continue
		}
		if sig.varPos == "" {
			if strict {
				return Map{}, &UnexpectedArgumentError{Position: i}
			}
			break
		}
		extra = append(extra, v)
	}
	if extra != nil {
		values[sig.varPos] = extra
	}

	var kw Map
	for _, p := range call.Named {
		switch {
		case sig.acceptsNamed(p.Name):
			values[p.Name] = p.Value
		case sig.varKw != "":
			kw.set(p.Name, p.Value)
		case strict:
			return Map{}, &UnexpectedArgumentError{Name: p.Name, Position: -1}
		}
	}
	if kw.Len() > 0 {
		values[sig.varKw] = kw
	}

	var out Map
	for _, p := range sig.params {
		if v, ok := values[p.Name]; ok {
			out.set(p.Name, v)
		}
	}
	return out, nil
}
