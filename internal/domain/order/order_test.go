package order

import (
	"testing"
	"time"

	"github.com/omnisync/backend/internal/domain/carrier"
	"github.com/omnisync/backend/internal/domain/channel"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKey(t *testing.T) {
	t.Run("splits on the first underscore", func(t *testing.T) {
		k, err := ParseKey("naver_2024_0001_A")
		require.NoError(t, err)
		assert.Equal(t, channel.Naver, k.Channel)
		assert.Equal(t, "2024_0001_A", k.OrderNo)
		assert.Equal(t, "naver_2024_0001_A", k.String())
	})

	for _, in := range []string{"", "cafe24", "_123", "cafe24_", "gmarket_1"} {
		t.Run("rejects "+in, func(t *testing.T) {
			_, err := ParseKey(in)
			assert.ErrorIs(t, err, ErrInvalidKey)
		})
	}
}

func TestMapChannelStatus(t *testing.T) {
	tests := []struct {
		ch   channel.Channel
		raw  string
		want Status
	}{
		{channel.Cafe24, "N00", StatusPendingPayment},
		{channel.Cafe24, "N22", StatusPreparing},
		{channel.Cafe24, "n30", StatusShipped},
		{channel.Cafe24, "N40", StatusDelivered},
		{channel.Cafe24, "C47", StatusCancelled},
		{channel.Cafe24, "R36", StatusCancelled},
		{channel.Cafe24, "E10", StatusPreparing},
		{channel.Cafe24, "Z99", StatusUnknown},
		{channel.Naver, "PAYED", StatusPreparing},
		{channel.Naver, "PURCHASE_DECIDED", StatusDelivered},
		{channel.Naver, "CANCELED_BY_NOPAYMENT", StatusCancelled},
		{channel.Naver, "RETURN_REQUEST", StatusPreparing},
		{channel.Naver, "SOMETHING_NEW", StatusUnknown},
		{channel.Coupang, "", StatusPreparing},
	}
	for _, tt := range tests {
		t.Run(string(tt.ch)+"/"+tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, MapChannelStatus(tt.ch, tt.raw))
		})
	}
}

func TestUnifiedOrder_AddItem(t *testing.T) {
	o := &UnifiedOrder{Channel: channel.Cafe24, OrderNo: "1"}

	assert.True(t, o.AddItem(Item{LineID: "a", SKU: "S1", Quantity: 2, Amount: decimal.NewFromInt(2000)}))
	assert.True(t, o.AddItem(Item{LineID: "b", SKU: "S1", Quantity: 0, Amount: decimal.NewFromInt(500)}))
	assert.False(t, o.AddItem(Item{LineID: "a", SKU: "S1", Quantity: 9, Amount: decimal.NewFromInt(9)}))

	require.Len(t, o.Items, 2)
	assert.Equal(t, 1, o.Items[1].Quantity)
	assert.Equal(t, 3, o.TotalQty)
	assert.True(t, decimal.NewFromInt(2500).Equal(o.TotalAmount))
	assert.Equal(t, map[string]int{"S1": 3}, o.QuantityBySKU())
	assert.Equal(t, []string{"a", "b"}, o.LineIDs())
}

func TestUnifiedOrder_AddItem_WithoutLineID(t *testing.T) {
	o := &UnifiedOrder{Channel: channel.Cafe24, OrderNo: "20240101-0000001"}
	red := Item{SKU: "TEE", OptionName: "Red/M", Quantity: 1, Amount: decimal.NewFromInt(12000)}

	assert.True(t, o.AddItem(red))
	assert.False(t, o.AddItem(red), "a repeated row is counted once")
	assert.False(t, o.AddItem(Item{SKU: "TEE", OptionName: "Red/M", Quantity: 3, Amount: decimal.RequireFromString("12000.00")}))
	assert.True(t, o.AddItem(Item{SKU: "TEE", OptionName: "Blue/M", Quantity: 1, Amount: decimal.NewFromInt(12000)}))
	assert.True(t, o.AddItem(Item{SKU: "TEE", OptionName: "Red/M", Quantity: 2, Amount: decimal.NewFromInt(24000)}))
	assert.True(t, o.AddItem(Item{LineID: "L1", SKU: "TEE", OptionName: "Red/M", Quantity: 1, Amount: decimal.NewFromInt(12000)}),
		"a line with an id never matches one without")

	assert.Len(t, o.Items, 4)
	assert.Equal(t, 5, o.TotalQty)
}

func TestUnifiedOrder_Validate(t *testing.T) {
	o := &UnifiedOrder{Channel: channel.Naver, OrderNo: "1"}
	assert.ErrorIs(t, o.Validate(), ErrEmptyOrder)

	o.AddItem(Item{SKU: "X", Quantity: 1})
	assert.NoError(t, o.Validate())

	o.OrderNo = " "
	assert.ErrorIs(t, o.Validate(), ErrOrderNoEmpty)
}

func TestUnifiedOrder_AssignInvoice(t *testing.T) {
	o := &UnifiedOrder{Channel: channel.Naver, OrderNo: "1", Status: StatusPreparing}
	cj, ok := carrier.Default().Get("cj")
	require.True(t, ok)

	at := time.Date(2024, 5, 1, 10, 0, 0, 0, shared.KST)
	o.AssignInvoice(cj, "1234-5678", at)

	assert.Equal(t, StatusShipped, o.Status)
	assert.Equal(t, "cj", o.Carrier)
	assert.Equal(t, "CJ대한통운", o.CarrierLabel)
	assert.True(t, o.HasInvoice())
	require.NotNil(t, o.InvoiceSentAt)
	assert.True(t, at.Equal(*o.InvoiceSentAt))
}

func TestFilter_Normalize(t *testing.T) {
	from := time.Date(2024, 3, 1, 15, 30, 0, 0, shared.KST)
	to := time.Date(2024, 3, 2, 1, 0, 0, 0, shared.KST)

	f := Filter{SortBy: "bogus", DateFrom: &from, DateTo: &to, Page: shared.Pagination{PageSize: 1000}}.Normalize()

	assert.Equal(t, SortByOrderedAt, f.SortBy)
	assert.Equal(t, 1, f.Page.Page)
	assert.Equal(t, shared.MaxPageSize, f.Page.PageSize)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, shared.KST), *f.DateFrom)
	assert.Equal(t, 23, f.DateTo.Hour())
	assert.Equal(t, 59, f.DateTo.Second())
	assert.Equal(t, 2, f.DateTo.Day())
}

func TestNewStats(t *testing.T) {
	s := NewStats()
	assert.Len(t, s.ByStatus, len(AllStatuses()))
	assert.Len(t, s.ByChannel, 3)
	assert.Zero(t, s.ByChannel[channel.Coupang])
}
