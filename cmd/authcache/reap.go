package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func reapCommand() *cli.Command {
	return &cli.Command{
		Name:  "reap",
		Usage: "delete inactive sessions once, or periodically with --interval",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "interval", Usage: "repeat every interval until interrupted"},
		},
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := openRuntime(ctx, configFrom(c), loggerFrom(c))
			if err != nil {
				return err
			}
			defer rt.close(context.Background())

			interval := c.Duration("interval")
			if interval <= 0 {
				removed, err := rt.engine.ReapInactive(ctx)
				if err != nil {
					return err
				}
				rt.logger.Info("reap finished", zap.Int64("keys", removed))
				return nil
			}
			reapLoop(ctx, rt, interval)
			return nil
		},
	}
}

// reapLoop runs until ctx ends. A failed pass is logged and retried on the
// next tick.
// startReaper runs reapLoop in the background. The returned func cancels
// the loop and waits for an in-flight pass to finish, so it must run
// before the runtime is closed.
func startReaper(ctx context.Context, rt *runtime, interval time.Duration) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		reapLoop(ctx, rt, interval)
	}()
	return func() {
		cancel()
		<-done
	}
}

func reapLoop(ctx context.Context, rt *runtime, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := rt.engine.ReapInactive(ctx); err != nil && ctx.Err() == nil {
				rt.logger.Error("reap failed", zap.Error(err))
			}
		}
	}
}
