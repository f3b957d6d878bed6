package cache

import (
	"errors"

	"github.com/MrEthical07/authcache/internal/retry"
)

var (
	// ErrNotFound is returned when a key, field or pointer is absent.
	ErrNotFound = errors.New("cache entry not found")
	// ErrInvalidRequest is returned for requests missing required ids.
	ErrInvalidRequest = errors.New("invalid cache request")
	// ErrUnexpectedReply is returned when a script reply has the wrong shape.
	ErrUnexpectedReply = errors.New("unexpected script reply")

	ErrStoreUnavailable = retry.ErrStoreUnavailable
	ErrOutOfMemory      = retry.ErrOutOfMemory
	ErrScriptMissing    = retry.ErrScriptMissing
)
