package cache

import (
	"context"
	"fmt"

	"github.com/MrEthical07/authcache/internal/retry"
	"github.com/redis/go-redis/v9"
)

// incrementAndCheckScript refuses the increment once the counter reached the
// limit, so the stored value never exceeds it.
//
// KEYS: ra:{sid}
// ARGV: limit, window seconds
const incrementAndCheckScript = `
local limit = tonumber(ARGV[1])
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
if current >= limit then
  return 0
end
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[2])
end
if count >= 1 and count <= limit then
  return count
end
return 0
`

// multiKeyCreateScript writes every key of one issuance. Replaying the same
// refresh payload against a live session returns the current count without
// a second increment.
//
// KEYS: re:{jti}, ra:{sid}, email index, s:{sid}
// ARGV: refresh json, refresh ttl, limit, window, sid, session ttl, field/value pairs...
const multiKeyCreateScript = `
local limit = tonumber(ARGV[3])
local existing = redis.call("GET", KEYS[1])
if existing and existing == ARGV[1] and redis.call("EXISTS", KEYS[4]) == 1 then
  local current = tonumber(redis.call("GET", KEYS[2]) or "0")
  if current >= 1 and current <= limit then
    return current
  end
end
if #ARGV > 6 then
  redis.call("HSET", KEYS[4], unpack(ARGV, 7))
end
redis.call("EXPIRE", KEYS[4], ARGV[6])
redis.call("SET", KEYS[1], ARGV[1], "EX", ARGV[2])
local current = tonumber(redis.call("GET", KEYS[2]) or "0")
if current >= limit then
  return 0
end
local count = redis.call("INCR", KEYS[2])
if count == 1 then
  redis.call("EXPIRE", KEYS[2], ARGV[4])
end
redis.call("HSET", KEYS[3], "status", ARGV[5])
return count
`

// multiKeyRevokeScript deletes refresh record, rate counter and session in
// that order, then the inactive marker, then the email index when it still
// points at this session.
//
// KEYS: re:{jti}, ra:{sid}, s:{sid}, off:{sid}, [email index]
// ARGV: sid
const multiKeyRevokeScript = `
local removed = 0
removed = removed + redis.call("DEL", KEYS[1])
removed = removed + redis.call("DEL", KEYS[2])
removed = removed + redis.call("DEL", KEYS[3])
redis.call("DEL", KEYS[4])
if KEYS[5] and redis.call("HGET", KEYS[5], "status") == ARGV[1] then
  redis.call("DEL", KEYS[5])
end
return removed
`

// guardedUpdateScript never creates the session hash.
//
// KEYS: s:{sid}
// ARGV: field/value pairs...
const guardedUpdateScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
redis.call("HSET", KEYS[1], unpack(ARGV))
return 1
`

// markInactiveScript flags a live session and leaves an off:{sid} marker
// holding its jti for the reaper. The marker expires with the session.
//
// KEYS: s:{sid}, off:{sid}
const markInactiveScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
local jti = redis.call("HGET", KEYS[1], "jti")
if not jti then
  jti = ""
end
redis.call("HSET", KEYS[1], "status", "off")
local ttl = redis.call("PTTL", KEYS[1])
if ttl > 0 then
  redis.call("SET", KEYS[2], jti, "PX", ttl)
else
  redis.call("SET", KEYS[2], jti)
end
return 1
`

var (
	IncrementAndCheck = redis.NewScript(incrementAndCheckScript)
	MultiKeyCreate    = redis.NewScript(multiKeyCreateScript)
	MultiKeyRevoke    = redis.NewScript(multiKeyRevokeScript)
	GuardedUpdate     = redis.NewScript(guardedUpdateScript)
	MarkInactive      = redis.NewScript(markInactiveScript)
)

// evalSha runs a script by digest. On NOSCRIPT it registers the body once
// and retries once; a second NOSCRIPT is returned to the retry policy, which
// treats it as fatal.
func evalSha(ctx context.Context, rdb redis.Scripter, s *redis.Script, keys []string, args ...interface{}) (interface{}, error) {
	v, err := s.EvalSha(ctx, rdb, keys, args...).Result()
	if err == nil || !retry.IsScriptMissing(err) {
		return v, err
	}
	if err := s.Load(ctx, rdb).Err(); err != nil {
		return nil, err
	}
	return s.EvalSha(ctx, rdb, keys, args...).Result()
}

func (b *base) runScript(ctx context.Context, op retry.Op, s *redis.Script, keys []string, args ...interface{}) (int64, error) {
	var out interface{}
	err := b.policy.Do(ctx, op, func(ctx context.Context) error {
		v, err := evalSha(ctx, b.rdb, s, keys, args...)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		return 0, err
	}
	n, ok := out.(int64)
	if !ok {
		return 0, fmt.Errorf("%w: %T", ErrUnexpectedReply, out)
	}
	return n, nil
}
