package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/omnisync/backend/internal/domain/carrier"
	"github.com/omnisync/backend/internal/domain/channel"
	"github.com/omnisync/backend/internal/domain/order"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOrderRepository is a mock implementation of order.OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByKey(ctx context.Context, key order.Key) (*order.UnifiedOrder, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.UnifiedOrder), args.Error(1)
}

func (m *MockOrderRepository) FindByKeys(ctx context.Context, keys []order.Key) (map[order.Key]*order.UnifiedOrder, error) {
	args := m.Called(ctx, keys)
	return args.Get(0).(map[order.Key]*order.UnifiedOrder), args.Error(1)
}

func (m *MockOrderRepository) FindByOrderNo(ctx context.Context, orderNo string) ([]*order.UnifiedOrder, error) {
	args := m.Called(ctx, orderNo)
	return args.Get(0).([]*order.UnifiedOrder), args.Error(1)
}

func (m *MockOrderRepository) Query(ctx context.Context, filter order.Filter) ([]*order.UnifiedOrder, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*order.UnifiedOrder), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) Stats(ctx context.Context, filter *order.Filter) (order.Stats, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(order.Stats), args.Error(1)
}

func (m *MockOrderRepository) Upsert(ctx context.Context, o *order.UnifiedOrder) error {
	return m.Called(ctx, o).Error(0)
}

func (m *MockOrderRepository) UpdateInvoice(ctx context.Context, o *order.UnifiedOrder) error {
	return m.Called(ctx, o).Error(0)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, key order.Key, status order.Status) error {
	return m.Called(ctx, key, status).Error(0)
}

func (m *MockOrderRepository) Delete(ctx context.Context, key order.Key) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockOrderRepository) CountByChannel(ctx context.Context, ch channel.Channel) (int64, error) {
	args := m.Called(ctx, ch)
	return args.Get(0).(int64), args.Error(1)
}

type stubSource struct {
	ch   channel.Channel
	rows []order.RawRow
	err  error
	from time.Time
	to   time.Time
}

func (s *stubSource) Channel() channel.Channel { return s.ch }

func (s *stubSource) FetchOrders(_ context.Context, from, to time.Time) ([]order.RawRow, error) {
	s.from, s.to = from, to
	return s.rows, s.err
}

func newTestService(repo order.OrderRepository) *Service {
	return NewService(repo, carrier.Default(), nil)
}

func TestService_Query(t *testing.T) {
	ctx := context.Background()

	t.Run("filtered stats", func(t *testing.T) {
		repo := new(MockOrderRepository)
		stats := order.NewStats()
		stats.Total = 1
		repo.On("Query", ctx, mock.MatchedBy(func(f order.Filter) bool {
			return f.SortBy == order.SortByOrderedAt && f.Page.PageSize == 50
		})).Return([]*order.UnifiedOrder{{Channel: channel.Naver, OrderNo: "1"}}, int64(1), nil)
		repo.On("Stats", ctx, mock.MatchedBy(func(f *order.Filter) bool { return f != nil && f.Status == order.StatusShipped })).
			Return(stats, nil)

		page, err := newTestService(repo).Query(ctx, order.Filter{Status: order.StatusShipped})
		require.NoError(t, err)
		assert.Len(t, page.Orders, 1)
		assert.Equal(t, int64(1), page.Stats.Total)
		assert.Equal(t, 1, page.Page.Page)
		repo.AssertExpectations(t)
	})

	t.Run("global stats pass no filter", func(t *testing.T) {
		repo := new(MockOrderRepository)
		repo.On("Query", ctx, mock.Anything).Return([]*order.UnifiedOrder{}, int64(0), nil)
		repo.On("Stats", ctx, (*order.Filter)(nil)).Return(order.NewStats(), nil)

		_, err := newTestService(repo).Query(ctx, order.Filter{GlobalStats: true})
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("repository error", func(t *testing.T) {
		repo := new(MockOrderRepository)
		repo.On("Query", ctx, mock.Anything).Return([]*order.UnifiedOrder(nil), int64(0), errors.New("db down"))

		_, err := newTestService(repo).Query(ctx, order.Filter{})
		assert.ErrorContains(t, err, "db down")
	})
}

func TestService_Resolve(t *testing.T) {
	ctx := context.Background()
	o := &order.UnifiedOrder{Channel: channel.Cafe24, OrderNo: "A-1"}

	t.Run("by key", func(t *testing.T) {
		repo := new(MockOrderRepository)
		repo.On("FindByKey", ctx, order.NewKey(channel.Cafe24, "A-1")).Return(o, nil)

		got, err := newTestService(repo).Resolve(ctx, "cafe24_A-1")
		require.NoError(t, err)
		assert.Same(t, o, got)
	})

	t.Run("by bare order number", func(t *testing.T) {
		repo := new(MockOrderRepository)
		repo.On("FindByOrderNo", ctx, "A-1").Return([]*order.UnifiedOrder{o}, nil)

		got, err := newTestService(repo).Resolve(ctx, "A-1")
		require.NoError(t, err)
		assert.Same(t, o, got)
	})

	t.Run("missing", func(t *testing.T) {
		repo := new(MockOrderRepository)
		repo.On("FindByOrderNo", ctx, "nope").Return([]*order.UnifiedOrder{}, nil)

		_, err := newTestService(repo).Resolve(ctx, "nope")
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.EqualError(t, err, "order not found")
	})

	t.Run("ambiguous", func(t *testing.T) {
		repo := new(MockOrderRepository)
		repo.On("FindByOrderNo", ctx, "7").Return([]*order.UnifiedOrder{o, o}, nil)

		_, err := newTestService(repo).Resolve(ctx, "7")
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestService_Ingest(t *testing.T) {
	ctx := context.Background()
	src := &stubSource{
		ch: channel.Naver,
		rows: []order.RawRow{
			order.NaverRawRow(order.NaverRow{OrderID: "1", ProductOrderID: "1-a", Quantity: 1, TotalPaymentAmount: decimal.NewFromInt(100)}),
			order.NaverRawRow(order.NaverRow{OrderID: "1", ProductOrderID: "1-b", Quantity: 2, TotalPaymentAmount: decimal.NewFromInt(200)}),
			order.NaverRawRow(order.NaverRow{OrderID: "2", ProductOrderID: "2-a", Quantity: 1}),
			order.NaverRawRow(order.NaverRow{ProductOrderID: "orphan"}),
		},
	}

	repo := new(MockOrderRepository)
	repo.On("Upsert", ctx, mock.MatchedBy(func(o *order.UnifiedOrder) bool { return o.OrderNo == "1" })).Return(nil)
	repo.On("Upsert", ctx, mock.MatchedBy(func(o *order.UnifiedOrder) bool { return o.OrderNo == "2" })).Return(errors.New("constraint"))

	svc := newTestService(repo)
	fixed := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	res, err := svc.Ingest(ctx, src, time.Time{}, time.Time{})
	require.NoError(t, err)

	assert.Equal(t, 4, res.Fetched)
	assert.Equal(t, 2, res.Orders)
	assert.Equal(t, 1, res.Upserted)
	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors[0], "row 3")
	assert.Contains(t, res.Errors[1], "naver_2: constraint")
	assert.Equal(t, fixed, src.to)
	assert.Equal(t, fixed.Add(-DefaultSyncWindow), src.from)
}

func TestService_Ingest_SourceError(t *testing.T) {
	src := &stubSource{ch: channel.Cafe24, err: errors.New("401")}
	_, err := newTestService(new(MockOrderRepository)).Ingest(context.Background(), src, time.Now().Add(-time.Hour), time.Now())
	assert.ErrorContains(t, err, "fetch cafe24 orders: 401")
}

func TestService_BulkUpdateStatus(t *testing.T) {
	ctx := context.Background()
	repo := new(MockOrderRepository)
	repo.On("UpdateStatus", ctx, order.NewKey(channel.Naver, "1"), order.StatusDelivered).Return(nil)
	repo.On("UpdateStatus", ctx, order.NewKey(channel.Naver, "2"), order.StatusDelivered).Return(shared.ErrNotFound)

	res, err := newTestService(repo).BulkUpdateStatus(ctx, []string{"naver_1", "naver_2", "bogus"}, order.StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, 1, res.SuccessCount)
	assert.Equal(t, 2, res.FailCount)
	assert.Equal(t, []string{"naver_2", "bogus"}, res.Failed())

	_, err = newTestService(repo).BulkUpdateStatus(ctx, []string{"naver_1"}, "lost")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestService_BulkDelete(t *testing.T) {
	ctx := context.Background()
	repo := new(MockOrderRepository)
	repo.On("Delete", ctx, order.NewKey(channel.Coupang, "9")).Return(nil)

	res := newTestService(repo).BulkDelete(ctx, []string{"coupang_9"})
	assert.Equal(t, 1, res.SuccessCount)
	assert.Empty(t, res.Errors)
	repo.AssertExpectations(t)
}
