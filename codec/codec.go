// Package codec serializes cached values and call arguments to bytes.
//
// A value codec must round-trip: Decode(Encode(v)) == v. A key encoder only
// has to be deterministic: equal inputs must always produce equal bytes.
package codec

// Encoder turns V into bytes.
type Encoder[V any] interface {
	Encode(V) ([]byte, error)
}

// Decoder turns bytes back into V.
type Decoder[V any] interface {
	Decode([]byte) (V, error)
}

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encoder[V]
	Decoder[V]
}

// EncoderFunc adapts a plain function to Encoder.
type EncoderFunc[V any] func(V) ([]byte, error)

func (f EncoderFunc[V]) Encode(v V) ([]byte, error) { return f(v) }
