// Package batch runs independent items on a bounded worker pool.
package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultConcurrency = 6
	MaxConcurrency     = 32
	DefaultItemTimeout = 15 * time.Second
)

// ErrCancelled marks items that were never started because the batch context ended
var ErrCancelled = errors.New("batch: cancelled")

// Options bounds a batch run
type Options struct {
	Concurrency int
	ItemTimeout time.Duration
}

// DefaultOptions returns concurrency 6 with a 15s per-item timeout
func DefaultOptions() Options {
	return Options{Concurrency: DefaultConcurrency, ItemTimeout: DefaultItemTimeout}
}

// Normalize clamps concurrency to 1..32 and defaults the timeout
func (o Options) Normalize() Options {
	if o.Concurrency < 1 {
		o.Concurrency = DefaultConcurrency
	}
	if o.Concurrency > MaxConcurrency {
		o.Concurrency = MaxConcurrency
	}
	if o.ItemTimeout <= 0 {
		o.ItemTimeout = DefaultItemTimeout
	}
	return o
}

// Outcome is the result of one item
type Outcome[R any] struct {
	Value R
	Err   error
}

// Cancelled reports whether the item was skipped
func (o Outcome[R]) Cancelled() bool {
	return errors.Is(o.Err, ErrCancelled)
}

// Run calls fn for every item with at most Concurrency calls in flight.
// Each call gets its own ItemTimeout. Once ctx is done no further item is
// started; those items report ErrCancelled while in-flight calls finish.
// Item errors never stop the batch. Outcomes are in input order.
func Run[T, R any](ctx context.Context, items []T, opts Options, fn func(ctx context.Context, item T) (R, error)) []Outcome[R] {
	opts = opts.Normalize()
	out := make([]Outcome[R], len(items))

	var g errgroup.Group
	g.SetLimit(opts.Concurrency)

	for i, item := range items {
		if ctx.Err() != nil {
			for j := i; j < len(items); j++ {
				out[j].Err = ErrCancelled
			}
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				out[i].Err = ErrCancelled
				return nil
			}
			itemCtx, cancel := context.WithTimeout(ctx, opts.ItemTimeout)
			defer cancel()
			out[i].Value, out[i].Err = call(itemCtx, item, fn)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func call[T, R any](ctx context.Context, item T, fn func(ctx context.Context, item T) (R, error)) (v R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("batch: item panicked: %v", r)
		}
	}()
	return fn(ctx, item)
}
