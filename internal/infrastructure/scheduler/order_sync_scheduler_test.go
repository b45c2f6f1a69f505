package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apporder "github.com/omnisync/backend/internal/application/order"
	"github.com/omnisync/backend/internal/domain/channel"
	"github.com/omnisync/backend/internal/domain/integration"
	"github.com/omnisync/backend/internal/domain/order"
)

type stubSource struct{ ch channel.Channel }

func (s stubSource) Channel() channel.Channel { return s.ch }

func (s stubSource) FetchOrders(context.Context, time.Time, time.Time) ([]order.RawRow, error) {
	return nil, nil
}

type sourceRegistry struct {
	channels []channel.Channel
	missing  map[channel.Channel]bool
}

func (r sourceRegistry) InvoiceSink(channel.Channel) (integration.InvoiceSink, error) {
	return nil, integration.ErrChannelNotConfigured
}

func (r sourceRegistry) StockPusher(channel.Channel) (integration.StockPusher, error) {
	return nil, integration.ErrChannelNotConfigured
}

func (r sourceRegistry) OrderSource(ch channel.Channel) (integration.OrderSource, error) {
	if r.missing[ch] {
		return nil, integration.ErrChannelNotConfigured
	}
	return stubSource{ch: ch}, nil
}

func (r sourceRegistry) Channels() []channel.Channel { return r.channels }

type windowCall struct {
	ch       channel.Channel
	from, to time.Time
}

type recordingIngester struct {
	mu    sync.Mutex
	calls []windowCall
	fail  map[channel.Channel]error
	block chan struct{}
}

func (i *recordingIngester) Ingest(ctx context.Context, src integration.OrderSource, from, to time.Time) (*apporder.IngestResult, error) {
	i.mu.Lock()
	i.calls = append(i.calls, windowCall{ch: src.Channel(), from: from, to: to})
	block := i.block
	i.mu.Unlock()
	if block != nil {
		<-block
	}
	if err := i.fail[src.Channel()]; err != nil {
		return nil, err
	}
	return &apporder.IngestResult{Channel: src.Channel()}, nil
}

func TestOrderSyncScheduler_SyncAll(t *testing.T) {
	reg := sourceRegistry{
		channels: []channel.Channel{channel.Cafe24, channel.Naver, channel.Coupang},
		missing:  map[channel.Channel]bool{channel.Coupang: true},
	}
	ing := &recordingIngester{fail: map[channel.Channel]error{channel.Cafe24: errors.New("401")}}
	s := NewOrderSyncScheduler(OrderSyncConfig{Lookback: 6 * time.Hour}, reg, ing, nil)
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	results, err := s.SyncAll(context.Background())
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, channel.Naver, results[0].Channel)
	require.Len(t, ing.calls, 2)
	assert.Equal(t, now.Add(-6*time.Hour), ing.calls[1].from)
	assert.Equal(t, now, ing.calls[1].to)
}

func TestOrderSyncScheduler_SingleRound(t *testing.T) {
	reg := sourceRegistry{channels: []channel.Channel{channel.Naver}}
	ing := &recordingIngester{block: make(chan struct{})}
	s := NewOrderSyncScheduler(DefaultOrderSyncConfig(), reg, ing, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.SyncAll(context.Background())
	}()
	require.Eventually(t, func() bool {
		ing.mu.Lock()
		defer ing.mu.Unlock()
		return len(ing.calls) == 1
	}, time.Second, 5*time.Millisecond)

	_, err := s.SyncAll(context.Background())
	assert.ErrorIs(t, err, ErrOrderSyncAlreadyInProgress)

	close(ing.block)
	<-done
}

func TestOrderSyncScheduler_DisabledStart(t *testing.T) {
	s := NewOrderSyncScheduler(DefaultOrderSyncConfig(), sourceRegistry{}, &recordingIngester{}, nil)
	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.isRunning)
	require.NoError(t, s.Stop(context.Background()))
}

func TestOrderSyncScheduler_Periodic(t *testing.T) {
	reg := sourceRegistry{channels: []channel.Channel{channel.Cafe24}}
	ing := &recordingIngester{}
	s := NewOrderSyncScheduler(OrderSyncConfig{Interval: 10 * time.Millisecond}, reg, ing, nil)
	require.NoError(t, s.Start(context.Background()))

	require.Eventually(t, func() bool {
		ing.mu.Lock()
		defer ing.mu.Unlock()
		return len(ing.calls) >= 2
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
}
