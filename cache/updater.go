package cache

import (
	"context"
	"sort"

	"github.com/MrEthical07/authcache/internal/retry"
)

// Updater mutates live sessions only. None of its calls can create a
// session hash.
type Updater struct {
	*base
}

// UpdateField sets one field. It returns false and writes nothing when the
// session does not exist.
//
//	Performance: 1 EVALSHA.
func (u *Updater) UpdateField(ctx context.Context, sessionID, field, value string) (bool, error) {
	return u.UpdateFields(ctx, sessionID, map[string]string{field: value})
}

// UpdateFields sets several fields in one atomic call.
//
//	Performance: 1 EVALSHA.
func (u *Updater) UpdateFields(ctx context.Context, sessionID string, fields map[string]string) (bool, error) {
	if sessionID == "" || len(fields) == 0 {
		return false, ErrInvalidRequest
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		if name == "" {
			return false, ErrInvalidRequest
		}
		names = append(names, name)
	}
	sort.Strings(names)

	args := make([]interface{}, 0, len(fields)*2)
	for _, name := range names {
		args = append(args, name, fields[name])
	}

	n, err := u.runScript(ctx, retry.OpUpdate, GuardedUpdate, []string{SessionKey(sessionID)}, args...)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// MarkInactive sets status=off on a live session and leaves an off:{sid}
// marker for ReapInactive.
//
//	Performance: 1 EVALSHA.
func (u *Updater) MarkInactive(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, ErrInvalidRequest
	}
	n, err := u.runScript(ctx, retry.OpUpdate, MarkInactive,
		[]string{SessionKey(sessionID), InactiveKey(sessionID)},
	)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
