package testutil

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/omnisync/backend/internal/domain/channel"
	"github.com/omnisync/backend/internal/domain/inventory"
	"github.com/omnisync/backend/internal/domain/order"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMockDB(t *testing.T) {
	m := NewMockDB(t)
	m.Mock.ExpectExec("DELETE FROM orders").WillReturnResult(sqlmock.NewResult(0, 3))

	res := m.DB.Exec("DELETE FROM orders")
	require.NoError(t, res.Error)
	assert.Equal(t, int64(3), res.RowsAffected)
	m.ExpectationsWereMet(t)
}

func TestNewTestUUID(t *testing.T) {
	assert.Equal(t, NewTestUUID("main"), NewTestUUID("main"))
	assert.NotEqual(t, NewTestUUID("main"), NewTestUUID("east"))
}

func TestMemoryOrderRepository_ReturnsCopies(t *testing.T) {
	o := &order.UnifiedOrder{Channel: channel.Naver, OrderNo: "1", Status: order.StatusPreparing}
	repo := NewMemoryOrderRepository(o)
	ctx := context.Background()

	got, err := repo.FindByKey(ctx, o.Key())
	require.NoError(t, err)
	got.Status = order.StatusCancelled

	again, err := repo.FindByKey(ctx, o.Key())
	require.NoError(t, err)
	assert.Equal(t, order.StatusPreparing, again.Status)

	_, err = repo.FindByKey(ctx, order.NewKey(channel.Naver, "2"))
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestMemoryStockRepository_DecrementIfAvailable(t *testing.T) {
	main := inventory.NewWarehouse("MAIN", "Main", true)
	rec := inventory.NewStockRecord(main.ID, "SKU-A", 3)
	repo := NewMemoryStockRepository(NewMemoryWarehouseRepository(main), rec)
	ctx := context.Background()

	ok, err := repo.DecrementIfAvailable(ctx, rec.ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.DecrementIfAvailable(ctx, rec.ID, 2)
	require.NoError(t, err)
	assert.False(t, ok, "never goes below zero")
	assert.Equal(t, 1, repo.Quantity(main.ID, "SKU-A"))
	assert.Equal(t, -1, repo.Quantity(main.ID, "SKU-Z"))
}
