package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	goretry "github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

var (
	// ErrStoreUnavailable marks a store failure that survived every attempt.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrOutOfMemory marks a store capacity failure. It is never retried.
	ErrOutOfMemory = errors.New("store out of memory")
	// ErrScriptMissing marks a server-side script that stayed unregistered
	// after one re-registration.
	ErrScriptMissing = errors.New("store script missing")
)

const (
	DefaultAttempts = 2
	DefaultMinWait  = 2 * time.Second
)

// Op names a store operation class and the longest backoff it tolerates.
type Op struct {
	Name    string
	MaxWait time.Duration
}

var (
	OpRead          = Op{Name: "read", MaxWait: 8 * time.Second}
	OpWriteRefresh  = Op{Name: "write_refresh", MaxWait: 8 * time.Second}
	OpRateCheck     = Op{Name: "rate_check", MaxWait: 6 * time.Second}
	OpCreateSession = Op{Name: "create_session", MaxWait: 16 * time.Second}
	OpMagicLink     = Op{Name: "magic_link", MaxWait: 16 * time.Second}
	OpUpdate        = Op{Name: "update", MaxWait: 4 * time.Second}
	OpRevoke        = Op{Name: "revoke", MaxWait: 8 * time.Second}
	OpDeleteRefresh = Op{Name: "delete_refresh", MaxWait: 6 * time.Second}
	OpReap          = Op{Name: "reap", MaxWait: 6 * time.Second}
)

// Config tunes the policy. Zero values select the defaults; MaxWaitOverride,
// when positive, replaces every per-operation cap.
type Config struct {
	Attempts        int
	MinWait         time.Duration
	MaxWaitOverride time.Duration
}

// Hooks lets callers count retries and capacity alarms.
type Hooks struct {
	OnRetry       func(op Op)
	OnOutOfMemory func(op Op)
}

// Policy wraps store calls with bounded exponential backoff.
type Policy struct {
	attempts        int
	minWait         time.Duration
	maxWaitOverride time.Duration
	logger          *zap.Logger
	hooks           Hooks
}

// New returns a policy. A nil logger is replaced with a no-op logger.
func New(cfg Config, logger *zap.Logger, hooks Hooks) *Policy {
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultAttempts
	}
	if cfg.MinWait <= 0 {
		cfg.MinWait = DefaultMinWait
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Policy{
		attempts:        cfg.Attempts,
		minWait:         cfg.MinWait,
		maxWaitOverride: cfg.MaxWaitOverride,
		logger:          logger.Named("retry"),
		hooks:           hooks,
	}
}

// Attempts returns the configured attempt ceiling.
func (p *Policy) Attempts() int {
	return p.attempts
}

func (p *Policy) backoff(op Op) goretry.Backoff {
	maxWait := op.MaxWait
	if p.maxWaitOverride > 0 {
		maxWait = p.maxWaitOverride
	}
	if maxWait < p.minWait {
		maxWait = p.minWait
	}
	b := goretry.NewExponential(p.minWait)
	b = goretry.WithCappedDuration(maxWait, b)
	return goretry.WithMaxRetries(uint64(p.attempts-1), b)
}

// Do runs fn under the policy.
//
// redis.Nil and caller-context errors are returned untouched. Capacity
// errors are logged as alarms and returned wrapped in ErrOutOfMemory on the
// first attempt. Transient errors are retried and, once attempts run out,
// returned wrapped in ErrStoreUnavailable.
func (p *Policy) Do(ctx context.Context, op Op, fn func(context.Context) error) error {
	attempt := 0
	exhaustedTransient := false

	err := goretry.Do(ctx, p.backoff(op), func(ctx context.Context) error {
		attempt++
		exhaustedTransient = false

		err := fn(ctx)
		if err == nil {
			return nil
		}

		switch classify(ctx, err) {
		case kindPass:
			return err
		case kindOutOfMemory:
			p.logger.Error("store capacity alarm",
				zap.String("alarm", "capacity"),
				zap.String("op", op.Name),
				zap.Error(err),
			)
			if p.hooks.OnOutOfMemory != nil {
				p.hooks.OnOutOfMemory(op)
			}
			return fmt.Errorf("%w: %s: %v", ErrOutOfMemory, op.Name, err)
		case kindScriptMissing:
			return fmt.Errorf("%w: %s: %v", ErrScriptMissing, op.Name, err)
		case kindRejected:
			return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op.Name, err)
		}

		exhaustedTransient = true
		if attempt < p.attempts {
			p.logger.Warn("store call failed, retrying",
				zap.String("op", op.Name),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			if p.hooks.OnRetry != nil {
				p.hooks.OnRetry(op)
			}
		}
		return goretry.RetryableError(err)
	})
	if err == nil {
		return nil
	}
	if exhaustedTransient && ctx.Err() == nil {
		p.logger.Error("store call failed",
			zap.String("op", op.Name),
			zap.Int("attempts", attempt),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op.Name, err)
	}
	return err
}

type errKind int

const (
	kindTransient errKind = iota
	kindPass
	kindOutOfMemory
	kindScriptMissing
	kindRejected
)

var transientReplyPrefixes = []string{"LOADING", "BUSY", "TRYAGAIN", "CLUSTERDOWN", "MASTERDOWN", "READONLY"}

func classify(ctx context.Context, err error) errKind {
	if errors.Is(err, redis.Nil) {
		return kindPass
	}
	if ctx.Err() != nil {
		return kindPass
	}
	if errors.Is(err, redis.ErrClosed) {
		return kindRejected
	}

	var reply redis.Error
	if errors.As(err, &reply) {
		msg := reply.Error()
		switch {
		case strings.HasPrefix(msg, "OOM"):
			return kindOutOfMemory
		case strings.HasPrefix(msg, "NOSCRIPT"):
			return kindScriptMissing
		}
		for _, prefix := range transientReplyPrefixes {
			if strings.HasPrefix(msg, prefix) {
				return kindTransient
			}
		}
		return kindRejected
	}

	return kindTransient
}

// IsOutOfMemory reports whether err is a store capacity failure, raw or wrapped.
func IsOutOfMemory(err error) bool {
	if errors.Is(err, ErrOutOfMemory) {
		return true
	}
	var reply redis.Error
	return errors.As(err, &reply) && strings.HasPrefix(reply.Error(), "OOM")
}

// IsScriptMissing reports whether err is a raw NOSCRIPT reply.
func IsScriptMissing(err error) bool {
	var reply redis.Error
	return errors.As(err, &reply) && strings.HasPrefix(reply.Error(), "NOSCRIPT")
}
