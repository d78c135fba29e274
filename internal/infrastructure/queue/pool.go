package queue

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const defaultWorkers = 8

// Pool runs batches of independent tasks on at most a fixed number of
// goroutines. Task errors are the task's own business; Run only fails when
// the batch itself cannot complete (cancellation or a panicking task).
type Pool struct {
	workers int
	log     zerolog.Logger
}

// NewPool creates a Pool with numWorkers concurrent slots.
// If numWorkers <= 0, defaultWorkers is used.
func NewPool(numWorkers int, log zerolog.Logger) *Pool {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	return &Pool{workers: numWorkers, log: log}
}

// Run calls task(ctx, i) for every i in [0, n) and waits for all started
// tasks to return. Once ctx is cancelled or a task panics, no further tasks
// are started and the cause is returned.
func (p *Pool) Run(ctx context.Context, n int, task func(ctx context.Context, i int)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					p.log.Error().
						Int("task", i).
						Interface("panic", r).
						Bytes("stack", debug.Stack()).
						Msg("pool task panicked")
					err = fmt.Errorf("task %d panicked: %v", i, r)
				}
			}()
			if err := gctx.Err(); err != nil {
				return err
			}
			task(gctx, i)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
