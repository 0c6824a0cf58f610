package codec

import (
	"errors"

	"google.golang.org/protobuf/proto"
)

var errNoMessageCtor = errors.New("codec: protobuf codec without message constructor")

// equal messages encode to equal bytes
var protoMarshal = proto.MarshalOptions{Deterministic: true}

// Protobuf stores results of functions returning generated messages.
// It is a value codec; cache keys always come from the normalized arguments.
type Protobuf[T proto.Message] struct {
	ctor func() T
}

// NewProtobuf takes the constructor of an empty message, e.g.
// func() *userpb.User { return new(userpb.User) }.
func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{ctor: ctor}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) { return protoMarshal.Marshal(v) }

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	if c.ctor == nil {
		var zero T
		return zero, errNoMessageCtor
	}
	m := c.ctor()
	if err := proto.Unmarshal(b, m); err != nil {
		var zero T
		return zero, err
	}
	return m, nil
}
