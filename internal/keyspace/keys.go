// Package keyspace owns the store key layout:
//
//	{<prefix>:<namespace>}:<base64 args>  - cached results
//	{<prefix>:<namespace>}:keys           - eviction index (sorted set)
//
// The braces are a cluster hash tag: every key of a namespace, index included,
// lands on the same slot so the eviction script can touch them atomically.
package keyspace

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidPart = errors.New("invalid key part")

// IndexSuffix names the eviction index within a namespace.
const IndexSuffix = "keys"

// Validate rejects prefix/namespace values that would break the hash tag.
func Validate(what, part string) error {
	if part == "" {
		return fmt.Errorf("%w: empty %s", ErrInvalidPart, what)
	}
	if strings.ContainsAny(part, "{}") {
		return fmt.Errorf("%w: %s %q contains '{' or '}'", ErrInvalidPart, what, part)
	}
	return nil
}

// FullPrefix returns "{prefix:namespace}".
func FullPrefix(prefix, namespace string) string {
	return "{" + prefix + ":" + namespace + "}"
}

// IndexKey returns the eviction index key of a namespace.
func IndexKey(fullPrefix string) string {
	return fullPrefix + ":" + IndexSuffix
}

// EntryKey returns the key of a cached result for serialized arguments.
func EntryKey(fullPrefix string, serialized []byte) string {
	return fullPrefix + ":" + base64.StdEncoding.EncodeToString(serialized)
}

// ScanPrefix is the prefix every key of the namespace starts with.
func ScanPrefix(fullPrefix string) string {
	return fullPrefix + ":"
}
