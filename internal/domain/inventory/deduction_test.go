package inventory

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStockRecord_Available(t *testing.T) {
	r := NewStockRecord(uuid.New(), "SKU", 10)
	r.Reserved = 4
	assert.Equal(t, 6, r.Available())
	assert.True(t, r.CanDeduct(6))
	assert.False(t, r.CanDeduct(7))
	assert.False(t, r.CanDeduct(0))

	r.Reserved = 12
	assert.Equal(t, 0, r.Available())

	r.Reserved = 0
	r.SafetyStock = 20
	assert.True(t, r.IsBelowSafetyStock())
}

func TestPlanDeduction(t *testing.T) {
	wh := uuid.New()
	records := map[string]*StockRecord{
		"B": NewStockRecord(wh, "B", 5),
		"A": NewStockRecord(wh, "A", 2),
	}

	t.Run("plans every sku sorted", func(t *testing.T) {
		lines, err := PlanDeduction(map[string]int{"B": 3, "A": 0}, records)
		require.NoError(t, err)
		require.Len(t, lines, 2)
		assert.Equal(t, "A", lines[0].SKU)
		assert.Equal(t, 1, lines[0].Quantity)
		assert.Equal(t, "B", lines[1].SKU)
		assert.Equal(t, 5, lines[1].StockBefore)
	})

	t.Run("shortage refuses the whole order", func(t *testing.T) {
		lines, err := PlanDeduction(map[string]int{"A": 1, "B": 6}, records)
		assert.Nil(t, lines)
		assert.ErrorIs(t, err, shared.ErrInsufficientStock)
		assert.EqualError(t, err, "insufficient stock: B: required 6, available 5")
	})

	t.Run("unrouted sku", func(t *testing.T) {
		_, err := PlanDeduction(map[string]int{"Z": 1}, records)
		assert.ErrorIs(t, err, ErrNoWarehouse)
		assert.EqualError(t, err, "no warehouse for SKU Z")
	})
}

func TestNewDeductionSet(t *testing.T) {
	wh := uuid.New()
	at := time.Now()
	set := NewDeductionSet("naver_1", []DeductionLine{
		{SKU: "A", WarehouseID: wh, Quantity: 2, StockBefore: 10},
	}, at)

	assert.True(t, set.IsActive())
	require.Len(t, set.Records, 1)
	rec := set.Records[0]
	assert.Equal(t, set.ID, rec.SetID)
	assert.Equal(t, 8, rec.StockAfter)

	h := ShipmentHistory(rec)
	assert.Equal(t, ChangeShipment, h.ChangeType)
	assert.Equal(t, -2, h.ChangeQuantity)
	assert.Equal(t, ReferenceChannelOrder, h.ReferenceType)
	assert.Equal(t, "naver_1", h.ReferenceKey)

	back := ReturnHistory(rec, 8, 10, at)
	assert.Equal(t, ChangeReturn, back.ChangeType)
	assert.Equal(t, 2, back.ChangeQuantity)
	assert.Equal(t, 10, back.StockAfter)
}
