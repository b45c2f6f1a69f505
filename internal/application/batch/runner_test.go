package batch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions_Normalize(t *testing.T) {
	assert.Equal(t, DefaultOptions(), Options{}.Normalize())
	assert.Equal(t, MaxConcurrency, Options{Concurrency: 100}.Normalize().Concurrency)
	assert.Equal(t, 3, Options{Concurrency: 3}.Normalize().Concurrency)
}

func TestRun_PreservesOrderAndErrors(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8}
	out := Run(context.Background(), items, Options{Concurrency: 3}, func(ctx context.Context, n int) (int, error) {
		if n%4 == 0 {
			return 0, errors.New("multiple of four")
		}
		time.Sleep(time.Duration(10-n) * time.Millisecond)
		return n * n, nil
	})

	require.Len(t, out, len(items))
	for i, n := range items {
		if n%4 == 0 {
			assert.EqualError(t, out[i].Err, "multiple of four")
			continue
		}
		assert.NoError(t, out[i].Err)
		assert.Equal(t, n*n, out[i].Value)
	}
}

func TestRun_BoundsConcurrency(t *testing.T) {
	var inFlight, peak int32
	items := make([]int, 20)

	Run(context.Background(), items, Options{Concurrency: 4}, func(ctx context.Context, _ int) (struct{}, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return struct{}{}, nil
	})

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(4))
	assert.Greater(t, atomic.LoadInt32(&peak), int32(0))
}

func TestRun_ItemTimeout(t *testing.T) {
	out := Run(context.Background(), []int{1}, Options{Concurrency: 1, ItemTimeout: 10 * time.Millisecond},
		func(ctx context.Context, _ int) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		})
	assert.ErrorIs(t, out[0].Err, context.DeadlineExceeded)
}

func TestRun_CancellationStopsNewItems(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var started int32

	out := Run(ctx, []int{1, 2, 3, 4, 5}, Options{Concurrency: 1}, func(ctx context.Context, n int) (int, error) {
		atomic.AddInt32(&started, 1)
		if n == 2 {
			cancel()
		}
		return n, nil
	})

	assert.Equal(t, int32(2), atomic.LoadInt32(&started))
	assert.NoError(t, out[0].Err)
	assert.NoError(t, out[1].Err, "in-flight item finishes")
	for _, o := range out[2:] {
		assert.True(t, o.Cancelled())
	}
}

func TestRun_RecoversPanics(t *testing.T) {
	out := Run(context.Background(), []int{1}, DefaultOptions(), func(ctx context.Context, _ int) (int, error) {
		panic("boom")
	})
	assert.ErrorContains(t, out[0].Err, "boom")
}
