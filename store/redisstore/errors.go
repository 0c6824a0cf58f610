package redisstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/fncache/store"
)

// replies that mean "the server cannot serve you right now"
var unavailableReplies = []string{"LOADING", "MASTERDOWN", "CLUSTERDOWN", "TRYAGAIN"}

func isUnavailable(err error) bool {
	switch {
	case errors.Is(err, goredis.ErrClosed),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, context.DeadlineExceeded):
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	var re goredis.Error
	if errors.As(err, &re) {
		msg := re.Error()
		for _, p := range unavailableReplies {
			if strings.HasPrefix(msg, p) {
				return true
			}
		}
	}
	return strings.Contains(err.Error(), "connection pool timeout")
}

// classify tags connectivity failures with store.ErrUnavailable and leaves
// everything else untouched.
func classify(err error) error {
	if err == nil || errors.Is(err, store.ErrUnavailable) {
		return err
	}
	if isUnavailable(err) {
		return fmt.Errorf("%w: %w", store.ErrUnavailable, err)
	}
	return err
}

// scriptErr is classify for the store-and-evict program: server error replies
// become *store.ScriptError.
func scriptErr(key string, err error) error {
	if err == nil {
		return nil
	}
	if isUnavailable(err) {
		return classify(err)
	}
	var re goredis.Error
	if errors.As(err, &re) {
		return &store.ScriptError{Key: key, Err: err}
	}
	return err
}

func isNoScript(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "NOSCRIPT")
}
