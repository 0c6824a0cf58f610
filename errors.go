package fncache

import (
	"errors"
	"fmt"

	"github.com/unkn0wn-root/fncache/internal/keyspace"
	"github.com/unkn0wn-root/fncache/store"
)

var (
	// ErrStoreUnavailable marks connectivity failures of the store. Put it in
	// WrapOptions.FallbackOn to compute uncached while the store is down.
	ErrStoreUnavailable = store.ErrUnavailable

	// ErrInvalidKeyPart rejects a prefix or namespace containing '{' or '}'.
	ErrInvalidKeyPart = keyspace.ErrInvalidPart

	// ErrForeignRequest is returned by MGet for a Request built by a
	// Memoized of another Client (or a zero Request).
	ErrForeignRequest = errors.New("fncache: request does not belong to this client")

	// ErrNamespaceRequired is returned by Wrap for an instantiated generic
	// function without WrapOptions.Namespace: the runtime gives every
	// instantiation the same name.
	ErrNamespaceRequired = errors.New("fncache: generic function needs an explicit namespace")

	errStoreRequired = errors.New("fncache: store is required")
	errNilFunc       = errors.New("fncache: function is required")
)

// ScriptError is a server-side failure of the store-and-evict program.
type ScriptError = store.ScriptError

// SerializationError reports a key or value that could not be (de)serialized.
// Op is one of "encode_key", "encode_value", "decode_value".
type SerializationError struct {
	Op        string
	Namespace string
	Err       error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("fncache %s %q: %v", e.Op, e.Namespace, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

const (
	opEncodeKey   = "encode_key"
	opEncodeValue = "encode_value"
	opDecodeValue = "decode_value"
)
