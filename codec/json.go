package codec

import (
	"bytes"
	"encoding/json"
)

// JSON is the default codec for both values and keys.
// Output is compact, without HTML escaping and without a trailing newline.
// Struct fields encode in declaration order and maps with sorted keys, so
// equal values always encode to equal bytes.
type JSON[V any] struct{}

var _ Codec[struct{}] = JSON[struct{}]{}

func (JSON[V]) Encode(v V) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}
