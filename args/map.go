package args

import (
	"bytes"
	"encoding/json"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// Pair is one name/value entry.
type Pair struct {
	Name  string
	Value any
}

// Map is an insertion-ordered name -> value mapping.
// Setting an existing name replaces the value in place and keeps its position.
// Encoders (JSON, msgpack, CBOR) emit entries in map order, which is what makes
// the derived cache keys deterministic.
type Map struct {
	pairs []Pair
	index map[string]int
}

// MapOf builds a Map from pairs, in order.
func MapOf(pairs ...Pair) Map {
	var m Map
	for _, p := range pairs {
		m.set(p.Name, p.Value)
	}
	return m
}

func (m *Map) set(name string, v any) {
	if i, ok := m.index[name]; ok {
		m.pairs[i].Value = v
		return
	}
	if m.index == nil {
		m.index = make(map[string]int)
	}
	m.index[name] = len(m.pairs)
	m.pairs = append(m.pairs, Pair{Name: name, Value: v})
}

func (m Map) Len() int { return len(m.pairs) }

// Get returns the value for name and whether it was present.
func (m Map) Get(name string) (any, bool) {
	i, ok := m.index[name]
	if !ok {
		return nil, false
	}
	return m.pairs[i].Value, true
}

// Has reports whether name is present.
func (m Map) Has(name string) bool {
	_, ok := m.index[name]
	return ok
}

// Keys returns the names in map order.
func (m Map) Keys() []string {
	out := make([]string, len(m.pairs))
	for i, p := range m.pairs {
		out[i] = p.Name
	}
	return out
}

// Pairs returns a copy of the entries in map order.
func (m Map) Pairs() []Pair {
	out := make([]Pair, len(m.pairs))
	copy(out, m.pairs)
	return out
}

// Range calls fn for each entry in order until fn returns false.
func (m Map) Range(fn func(name string, v any) bool) {
	for _, p := range m.pairs {
		if !fn(p.Name, p.Value) {
			return
		}
	}
}

// Equal reports whether both maps hold the same names in the same order with
// equal JSON encodings of their values.
func (m Map) Equal(o Map) bool {
	if len(m.pairs) != len(o.pairs) {
		return false
	}
	a, errA := json.Marshal(m)
	b, errB := json.Marshal(o)
	return errA == nil && errB == nil && bytes.Equal(a, b)
}

// MarshalJSON encodes the map as a JSON object with keys in map order.
func (m Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	out := make([]byte, 0, 16*len(m.pairs)+2)
	out = append(out, '{')
	for i, p := range m.pairs {
		if i > 0 {
			out = append(out, ',')
		}
		buf.Reset()
		if err := enc.Encode(p.Name); err != nil {
			return nil, err
		}
		out = append(out, bytes.TrimRight(buf.Bytes(), "\n")...)
		out = append(out, ':')

		buf.Reset()
		if err := enc.Encode(p.Value); err != nil {
			return nil, err
		}
		out = append(out, bytes.TrimRight(buf.Bytes(), "\n")...)
	}
	out = append(out, '}')
	return out, nil
}

var _ msgpack.CustomEncoder = Map{}

// EncodeMsgpack writes the map as a msgpack map with keys in map order.
func (m Map) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(len(m.pairs)); err != nil {
		return err
	}
	for _, p := range m.pairs {
		if err := enc.EncodeString(p.Name); err != nil {
			return err
		}
		if err := enc.Encode(p.Value); err != nil {
			return err
		}
	}
	return nil
}

var _ cbor.Marshaler = Map{}

var cborValues, cborValuesErr = cbor.CoreDetEncOptions().EncMode()

// MarshalCBOR writes the map as a CBOR map with keys in map order.
// Values are encoded with RFC 8949 core deterministic options.
func (m Map) MarshalCBOR() ([]byte, error) {
	if cborValuesErr != nil {
		return nil, cborValuesErr
	}
	em := cborValues
	out := appendCBORHead(nil, 5, uint64(len(m.pairs))) // major type 5: map
	for _, p := range m.pairs {
		kb, err := em.Marshal(p.Name)
		if err != nil {
			return nil, err
		}
		vb, err := em.Marshal(p.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, kb...)
		out = append(out, vb...)
	}
	return out, nil
}

func appendCBORHead(b []byte, major byte, n uint64) []byte {
	mt := major << 5
	switch {
	case n < 24:
		return append(b, mt|byte(n))
	case n <= 0xff:
		return append(b, mt|24, byte(n))
	case n <= 0xffff:
		return append(b, mt|25, byte(n>>8), byte(n))
	case n <= 0xffffffff:
		return append(b, mt|26, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	default:
		return append(b, mt|27,
			byte(n>>56), byte(n>>48), byte(n>>40), byte(n>>32),
			byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	}
}
