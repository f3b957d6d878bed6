package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/authcache"
	"github.com/alicebob/miniredis/v2"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

type accountState struct {
	mu      sync.Mutex
	access  string
	refresh string
}

func loadtestCommand() *cli.Command {
	return &cli.Command{
		Name:  "loadtest",
		Usage: "seed accounts, then measure verify, refresh and logout throughput",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "accounts", Value: 200, Usage: "accounts to sign up"},
			&cli.IntFlag{Name: "concurrency", Value: 64, Usage: "concurrent workers"},
			&cli.IntFlag{Name: "ops", Value: 20000, Usage: "operations per phase"},
			&cli.BoolFlag{Name: "strict", Usage: "verify access tokens against the store"},
			&cli.BoolFlag{Name: "rotate", Usage: "rotate refresh tokens on every exchange"},
		},
		Action: func(c *cli.Context) error {
			accounts, concurrency, ops := c.Int("accounts"), c.Int("concurrency"), c.Int("ops")
			if accounts <= 0 || concurrency <= 0 || ops <= 0 {
				return cli.Exit("accounts, concurrency and ops must be > 0", 2)
			}

			cfg := configFrom(c)
			logger := loggerFrom(c)
			out := c.App.Writer

			if cfg.Redis.Addr == "" {
				mr, err := miniredis.Run()
				if err != nil {
					return fmt.Errorf("start miniredis: %w", err)
				}
				defer mr.Close()
				cfg.Redis.Addr = mr.Addr()
				fmt.Fprintf(out, "using miniredis at %s\n", cfg.Redis.Addr)
			} else {
				fmt.Fprintf(out, "using redis at %s\n", cfg.Redis.Addr)
			}

			// the run issues far more requests per session than any real client
			cfg.Engine.Cache.RateLimit = 1 << 40
			cfg.Engine.Session.StrictAccess = c.Bool("strict")
			cfg.Engine.JWT.RotateRefresh = c.Bool("rotate")
			cfg.Engine.Audit.Enabled = false

			ctx := c.Context
			rt, err := openRuntime(ctx, cfg, logger.Named("loadtest"))
			if err != nil {
				return err
			}
			defer rt.close(context.Background())

			states, err := seed(ctx, rt.engine, accounts, out)
			if err != nil {
				return err
			}

			verifyStats := runPhase(ops, concurrency, func(r *rand.Rand, _ int) error {
				s := &states[r.Intn(len(states))]
				s.mu.Lock()
				tok := s.access
				s.mu.Unlock()
				_, err := rt.engine.VerifyAccess(ctx, tok)
				return err
			})
			refreshStats := runPhase(ops, concurrency, func(r *rand.Rand, _ int) error {
				s := &states[r.Intn(len(states))]
				s.mu.Lock()
				defer s.mu.Unlock()
				sess, err := rt.engine.Refresh(ctx, s.refresh)
				if err != nil {
					return err
				}
				s.access = sess.AccessToken
				if sess.RefreshToken != "" {
					s.refresh = sess.RefreshToken
				}
				return nil
			})
			logoutStats := runPhase(len(states), concurrency, func(_ *rand.Rand, i int) error {
				s := &states[i]
				s.mu.Lock()
				defer s.mu.Unlock()
				return rt.engine.Logout(ctx, s.refresh)
			})

			fmt.Fprintln(out, "---- results ----")
			printStats(out, "verify", verifyStats)
			printStats(out, "refresh", refreshStats)
			printStats(out, "logout", logoutStats)
			logger.Debug("loadtest metrics", zap.Any("counters", rt.engine.MetricsSnapshot().Counters))
			return nil
		},
	}
}

func seed(ctx context.Context, engine *authcache.Engine, n int, out io.Writer) ([]accountState, error) {
	states := make([]accountState, n)
	fmt.Fprintf(out, "signing up %d accounts...\n", n)
	start := time.Now()
	for i := range states {
		sess, err := engine.Signup(ctx, authcache.SignupRequest{
			Email:    fmt.Sprintf("load-%d@example.test", i),
			Password: fmt.Sprintf("load-password-%06d", i),
			Name:     fmt.Sprintf("Load %d", i),
		})
		if err != nil {
			return nil, fmt.Errorf("signup %d: %w", i, err)
		}
		states[i].access = sess.AccessToken
		states[i].refresh = sess.RefreshToken
	}
	fmt.Fprintf(out, "seeded in %s\n", time.Since(start).Round(time.Millisecond))
	return states, nil
}

// runPhase spreads ops calls of fn across concurrency workers. fn gets a
// per-worker rand and the operation index.
func runPhase(ops, concurrency int, fn func(r *rand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := fn(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	return samples[(len(samples)-1)*p/100]
}

func printStats(w io.Writer, name string, s phaseStats) {
	fmt.Fprintf(w, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
