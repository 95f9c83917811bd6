package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// Runner drives transfers on a bounded goroutine pool.
type Runner struct {
	pool   *ants.Pool
	logger *slog.Logger
	wg     sync.WaitGroup
}

func NewRunner(size int, logger *slog.Logger) (*Runner, error) {
	pool, err := ants.NewPool(size, ants.WithPanicHandler(func(p interface{}) {
		logger.Error("transfer worker panicked", "panic", p)
	}))
	if err != nil {
		return nil, fmt.Errorf("NewRunner: %w", err)
	}
	return &Runner{pool: pool, logger: logger}, nil
}

func (r *Runner) Go(fn func()) error {
	r.wg.Add(1)
	err := r.pool.Submit(func() {
		defer r.wg.Done()
		fn()
	})
	if err != nil {
		r.wg.Done()
		return fmt.Errorf("Go: %w", err)
	}
	return nil
}

func (r *Runner) Running() int { return r.pool.Running() }

func (r *Runner) Capacity() int { return r.pool.Cap() }

// Shutdown waits for in-flight transfers until ctx is done, then releases
// the pool.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.logger.Info("shutting down transfer runner", "running_workers", r.pool.Running())

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	defer r.pool.Release()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("Shutdown: %w", ctx.Err())
	}
}
