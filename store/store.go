package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultPoolSize            = 8
	DefaultSocketTimeout       = 5 * time.Second
	DefaultHealthCheckInterval = 10 * time.Second
)

var (
	// ErrAddrRequired is returned by Open when no address is configured.
	ErrAddrRequired = errors.New("redis address required")
	// ErrUnreachable is returned when the initial ping fails.
	ErrUnreachable = errors.New("redis unreachable")
)

// Options configures the pooled connection.
type Options struct {
	Addr                string
	Username            string
	Password            string
	DB                  int
	PoolSize            int
	SocketTimeout       time.Duration
	HealthCheckInterval time.Duration
	Logger              *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.PoolSize <= 0 {
		o.PoolSize = DefaultPoolSize
	}
	if o.SocketTimeout <= 0 {
		o.SocketTimeout = DefaultSocketTimeout
	}
	if o.HealthCheckInterval <= 0 {
		o.HealthCheckInterval = DefaultHealthCheckInterval
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Validate checks the options without touching the network.
func (o Options) Validate() error {
	if strings.TrimSpace(o.Addr) == "" {
		return ErrAddrRequired
	}
	return nil
}

// Client owns the one pooled Redis handle shared by every cache component.
// It is built once by Open and released once by Close.
type Client struct {
	rdb     *redis.Client
	logger  *zap.Logger
	healthy atomic.Bool

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Open builds the pool, verifies it with a PING and starts the background
// health check. Any failure here must abort startup.
//
//	Performance: 1 Redis PING.
func Open(ctx context.Context, opts Options) (*Client, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.Username,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		DialTimeout:  opts.SocketTimeout,
		ReadTimeout:  opts.SocketTimeout,
		WriteTimeout: opts.SocketTimeout,
		// Retries belong to the retry policy; a second layer would break its attempt bound.
		MaxRetries: -1,
	})

	pingCtx, cancel := context.WithTimeout(ctx, opts.SocketTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	c := &Client{
		rdb:    rdb,
		logger: opts.Logger.Named("store"),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	c.healthy.Store(true)

	go c.healthLoop(opts.HealthCheckInterval, opts.SocketTimeout)

	c.logger.Info("redis pool opened",
		zap.String("addr", opts.Addr),
		zap.Int("pool_size", opts.PoolSize),
		zap.Duration("socket_timeout", opts.SocketTimeout),
	)
	return c, nil
}

// Redis returns the shared handle.
func (c *Client) Redis() redis.UniversalClient {
	return c.rdb
}

// Healthy reports the outcome of the most recent health check.
func (c *Client) Healthy() bool {
	return c != nil && c.healthy.Load()
}

// Close stops the health check and closes the pool. Subsequent calls return
// the result of the first.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.closeOnce.Do(func() {
		close(c.stop)
		<-c.done
		c.closeErr = c.rdb.Close()
		c.healthy.Store(false)
		c.logger.Info("redis pool closed")
	})
	return c.closeErr
}

func (c *Client) healthLoop(interval, timeout time.Duration) {
	defer close(c.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			err := c.rdb.Ping(ctx).Err()
			cancel()

			wasHealthy := c.healthy.Swap(err == nil)
			switch {
			case err != nil && wasHealthy:
				c.logger.Warn("redis health check failed", zap.Error(err))
			case err == nil && !wasHealthy:
				c.logger.Info("redis health check recovered")
			}
		}
	}
}
