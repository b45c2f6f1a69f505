package order

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/omnisync/backend/internal/domain/channel"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func naverLine(orderNo, lineID, sku string, qty int, amount int64) RawRow {
	return NaverRawRow(NaverRow{
		OrderID:              orderNo,
		ProductOrderID:       lineID,
		SellerManagementCode: sku,
		ProductOrderStatus:   "PAYED",
		Quantity:             qty,
		TotalPaymentAmount:   dec(amount),
	})
}

func TestAggregate(t *testing.T) {
	n := NewNormalizer(nil)
	candidates, errs := n.NormalizeAll([]RawRow{
		naverLine("B", "B-1", "S1", 1, 100),
		naverLine("A", "A-1", "S1", 2, 200),
		naverLine("B", "B-2", "S2", 3, 300),
		naverLine("B", "B-1", "S1", 1, 100),
		CoupangRawRow(CoupangRow{OrderID: 7, VendorItemID: 1, SalesQuantity: 1, UnitSalesPrice: dec(50)}),
	})
	require.Empty(t, errs)

	orders, errs := Aggregate(candidates)
	require.Empty(t, errs)
	require.Len(t, orders, 3)

	assert.Equal(t, "naver_B", orders[0].Key().String())
	assert.Equal(t, "naver_A", orders[1].Key().String())
	assert.Equal(t, "coupang_7", orders[2].Key().String())

	b := orders[0]
	require.Len(t, b.Items, 2)
	assert.Equal(t, "B-1", b.Items[0].LineID)
	assert.Equal(t, "B-2", b.Items[1].LineID)
	assert.Equal(t, 4, b.TotalQty)
	assert.True(t, dec(400).Equal(b.TotalAmount))
}

func TestAggregate_RejectsEmptyOrders(t *testing.T) {
	orders, errs := Aggregate([]*UnifiedOrder{
		{Channel: channel.Cafe24, OrderNo: "empty"},
		nil,
	})
	assert.Empty(t, orders)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrEmptyOrder)
	assert.Contains(t, errs[0].Error(), "cafe24_empty")
}

func TestAggregate_FillsHeaderFromLaterRows(t *testing.T) {
	first := &UnifiedOrder{Channel: channel.Naver, OrderNo: "1", Status: StatusUnknown}
	first.AddItem(Item{LineID: "1", SKU: "S", Quantity: 1})
	second := &UnifiedOrder{Channel: channel.Naver, OrderNo: "1", Status: StatusPreparing, TrackingNo: "T", Carrier: "cj"}
	second.Recipient.Name = "Lee"
	second.AddItem(Item{LineID: "2", SKU: "S", Quantity: 1})

	orders, errs := Aggregate([]*UnifiedOrder{first, second})
	require.Empty(t, errs)
	require.Len(t, orders, 1)
	assert.Equal(t, StatusPreparing, orders[0].Status)
	assert.Equal(t, "T", orders[0].TrackingNo)
	assert.Equal(t, "Lee", orders[0].Recipient.Name)
	assert.Len(t, first.Items, 1, "input candidates are not mutated")
}

func TestAggregate_RowsWithoutLineIDCountedOnce(t *testing.T) {
	row := func(option string) *UnifiedOrder {
		o := &UnifiedOrder{Channel: channel.Cafe24, OrderNo: "20240101-0000001", Status: StatusPreparing}
		o.AddItem(Item{SKU: "TEE", OptionName: option, Quantity: 2, Amount: decimal.NewFromInt(24000)})
		return o
	}

	orders, errs := Aggregate([]*UnifiedOrder{row("Red/M"), row("Red/M"), row("Blue/M")})
	require.Empty(t, errs)
	require.Len(t, orders, 1)
	assert.Len(t, orders[0].Items, 2)
	assert.Equal(t, 4, orders[0].TotalQty)
	assert.True(t, decimal.NewFromInt(48000).Equal(orders[0].TotalAmount))
}

// Property: aggregating rows twice, or aggregating the rows plus a replay of
// themselves, yields the same totals.
func TestAggregate_Idempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("replayed rows do not change totals", prop.ForAll(
		func(orderIdx []int, qty []int) bool {
			rows := make([]RawRow, 0, len(orderIdx))
			for i, idx := range orderIdx {
				q := 1
				if i < len(qty) {
					q = qty[i]
				}
				orderNo := fmt.Sprintf("O%d", idx)
				rows = append(rows, naverLine(orderNo, fmt.Sprintf("%s-%d", orderNo, i), "SKU", q, int64(q*100)))
			}
			n := NewNormalizer(nil)

			once, _ := n.NormalizeAll(rows)
			twice, _ := n.NormalizeAll(append(append([]RawRow{}, rows...), rows...))
			a, _ := Aggregate(once)
			b, _ := Aggregate(twice)
			if len(a) != len(b) {
				return false
			}
			for i := range a {
				if a[i].Key() != b[i].Key() || a[i].TotalQty != b[i].TotalQty || !a[i].TotalAmount.Equal(b[i].TotalAmount) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 5)),
		gen.SliceOf(gen.IntRange(1, 20)),
	))

	properties.TestingRun(t)
}
