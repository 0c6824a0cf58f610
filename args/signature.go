// Package args turns a call into a canonical, ordered name -> value map so that
// the same logical call always derives the same cache key, whether values were
// passed positionally or by name.
package args

import (
	"errors"
	"fmt"
)

// Kind is how a parameter consumes call values.
type Kind uint8

const (
	// Ordinary params take one value, positionally or by name.
	Ordinary Kind = iota
	// KeywordOnly params can only be filled by name.
	KeywordOnly
	// VarPositional collects positional values beyond the ordinary params.
	VarPositional
	// VarKeyword collects named values that match no other param.
	VarKeyword
)

func (k Kind) String() string {
	switch k {
	case Ordinary:
		return "ordinary"
	case KeywordOnly:
		return "keyword-only"
	case VarPositional:
		return "var-positional"
	case VarKeyword:
		return "var-keyword"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

var ErrInvalidSignature = errors.New("args: invalid signature")

// Param is a single declared parameter.
type Param struct {
	Name string
	Kind Kind
}

func Arg(name string) Param         { return Param{Name: name, Kind: Ordinary} }
func KwOnly(name string) Param      { return Param{Name: name, Kind: KeywordOnly} }
func Variadic(name string) Param    { return Param{Name: name, Kind: VarPositional} }
func VarKeywords(name string) Param { return Param{Name: name, Kind: VarKeyword} }

// Signature is the static parameter list of a wrapped function.
// The zero value is a function without parameters.
type Signature struct {
	params   []Param
	ordinary []string
	byName   map[string]Kind
	varPos   string
	varKw    string
}

// NewSignature validates params and builds a Signature.
// Names must be non-empty and unique; at most one VarPositional and one
// VarKeyword param may be declared.
func NewSignature(params ...Param) (Signature, error) {
	s := Signature{
		params: make([]Param, 0, len(params)),
		byName: make(map[string]Kind, len(params)),
	}
	for _, p := range params {
		if p.Name == "" {
			return Signature{}, fmt.Errorf("%w: empty parameter name", ErrInvalidSignature)
		}
		if _, dup := s.byName[p.Name]; dup {
			return Signature{}, fmt.Errorf("%w: duplicate parameter %q", ErrInvalidSignature, p.Name)
		}
		switch p.Kind {
		case Ordinary:
			s.ordinary = append(s.ordinary, p.Name)
		case KeywordOnly:
		case VarPositional:
			if s.varPos != "" {
				return Signature{}, fmt.Errorf("%w: second var-positional %q (have %q)", ErrInvalidSignature, p.Name, s.varPos)
			}
			s.varPos = p.Name
		case VarKeyword:
			if s.varKw != "" {
				return Signature{}, fmt.Errorf("%w: second var-keyword %q (have %q)", ErrInvalidSignature, p.Name, s.varKw)
			}
			s.varKw = p.Name
		default:
			return Signature{}, fmt.Errorf("%w: parameter %q has unknown kind %s", ErrInvalidSignature, p.Name, p.Kind)
		}
		s.byName[p.Name] = p.Kind
		s.params = append(s.params, p)
	}
	return s, nil
}

// MustSignature is like NewSignature but panics on error.
// Handy for package-level signatures.
func MustSignature(params ...Param) Signature {
	s, err := NewSignature(params...)
	if err != nil {
		panic(err)
	}
	return s
}

// Names is shorthand for a signature of ordinary params only.
func Names(names ...string) Signature {
	ps := make([]Param, len(names))
	for i, n := range names {
		ps[i] = Arg(n)
	}
	return MustSignature(ps...)
}

// Params returns a copy of the declared params.
func (s Signature) Params() []Param {
	out := make([]Param, len(s.params))
	copy(out, s.params)
	return out
}

func (s Signature) VarPositionalName() string { return s.varPos }
func (s Signature) VarKeywordName() string    { return s.varKw }

// acceptsNamed reports whether name can be filled directly by a named value.
func (s Signature) acceptsNamed(name string) bool {
	k, ok := s.byName[name]
	return ok && (k == Ordinary || k == KeywordOnly)
}
