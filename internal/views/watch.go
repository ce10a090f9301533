package views

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/najahiiii/lunetctl/internal/api"
)

// Loop is one periodic job of a watched view. Every is asked again after each
// tick so a changed preference applies without restarting.
type Loop struct {
	Name  string
	Every func() time.Duration
	Tick  func(ctx context.Context) error
}

// Watch runs every loop immediately and then on its interval until ctx ends.
// A tick failing with api.ErrUnauthorized stops all loops and is returned;
// other failures are logged and retried on the next tick.
func Watch(ctx context.Context, log *slog.Logger, loops ...Loop) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, l := range loops {
		g.Go(func() error {
			return runLoop(ctx, log, l)
		})
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runLoop(ctx context.Context, log *slog.Logger, l Loop) error {
	intv := l.interval()
	ticker := time.NewTicker(intv)
	defer ticker.Stop()

	for {
		if err := l.Tick(ctx); err != nil {
			if errors.Is(err, api.ErrUnauthorized) {
				return err
			}
			if ctx.Err() != nil {
				return nil
			}
			log.Warn(l.Name, "err", err)
		}

		if next := l.interval(); next != intv {
			intv = next
			ticker.Reset(intv)
			log.Debug("interval changed", "loop", l.Name, "every", intv)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (l Loop) interval() time.Duration {
	if l.Every == nil {
		return 15 * time.Second
	}
	if d := l.Every(); d > 0 {
		return d
	}
	return 15 * time.Second
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
