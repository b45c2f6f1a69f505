package order

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/omnisync/backend/internal/domain/carrier"
	"github.com/omnisync/backend/internal/domain/channel"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestNormalizer_Cafe24(t *testing.T) {
	n := NewNormalizer(carrier.Default())
	paid := dec(9000)

	o, err := n.Normalize(Cafe24RawRow(Cafe24Row{
		OrderID:             "20240501-0000012",
		OrderItemCode:       "20240501-0000012-01",
		ProductCode:         "P000ABC",
		CustomVariantCode:   "SKU-RED-M",
		ProductName:         "티셔츠",
		OptionValue:         "Red/M",
		Quantity:            3,
		ProductPrice:        dec(3500),
		PaymentAmount:       &paid,
		OrderStatus:         "N20",
		OrderDate:           "2024-05-01T09:15:00+09:00",
		Receiver:            Cafe24Receiver{Name: "홍길동", Cellphone: "010-1111-2222", Zipcode: "06236"},
		TrackingNo:          "555",
		ShippingCompanyCode: "0004",
	}))
	require.NoError(t, err)

	assert.Equal(t, "cafe24_20240501-0000012", o.Key().String())
	assert.Equal(t, StatusPreparing, o.Status)
	assert.Equal(t, "N20", o.RawStatus)
	assert.Equal(t, "홍길동", o.Recipient.Name)
	assert.Equal(t, "010-1111-2222", o.Recipient.Mobile)
	assert.Equal(t, "cj", o.Carrier)
	assert.Equal(t, "KRW", o.Currency)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "SKU-RED-M", o.Items[0].SKU)
	assert.True(t, paid.Equal(o.TotalAmount))
	assert.Equal(t, 3, o.TotalQty)
	assert.Equal(t, 2024, o.OrderedAt.Year())
}

func TestNormalizer_Cafe24_AmountFallsBackToPriceTimesQuantity(t *testing.T) {
	n := NewNormalizer(nil)

	o, err := n.Normalize(Cafe24RawRow(Cafe24Row{
		OrderID:       "A1",
		OrderItemCode: "A1-1",
		ProductCode:   "P1",
		ProductPrice:  dec(1200),
		Quantity:      0,
		OrderStatus:   "???",
	}))
	require.NoError(t, err)

	assert.Equal(t, StatusUnknown, o.Status)
	assert.Equal(t, "P1", o.Items[0].SKU)
	assert.Equal(t, 1, o.Items[0].Quantity)
	assert.True(t, dec(1200).Equal(o.TotalAmount))
	assert.Empty(t, o.Carrier)
}

func TestNormalizer_Naver(t *testing.T) {
	n := NewNormalizer(carrier.Default())

	o, err := n.Normalize(NaverRawRow(NaverRow{
		ProductOrderID:       "PO-1",
		OrderID:              "2024050112345",
		ProductOrderStatus:   "DELIVERING",
		OrderDate:            "2024-05-01 10:00:00",
		ReceiverName:         "김철수",
		ReceiverAddress:      "서울시",
		DeliveryCompanyCode:  "HANJIN",
		TrackingNumber:       "777",
		ProductID:            "PRD",
		ProductName:          "양말",
		Quantity:             2,
		UnitPrice:            dec(1000),
		SellerManagementCode: "",
		OptionManageCode:     "OPT-7",
	}))
	require.NoError(t, err)

	assert.Equal(t, StatusShipped, o.Status)
	assert.Equal(t, "hanjin", o.Carrier)
	assert.Equal(t, "OPT-7", o.Items[0].SKU)
	assert.True(t, dec(2000).Equal(o.TotalAmount))
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, shared.KST), o.OrderedAt)
}

func TestNormalizer_Coupang(t *testing.T) {
	var row CoupangRow
	payload := `{"orderId":31000123,"paidAt":"1714525200000","vendorItemId":880011,
		"productName":"물티슈","salesQuantity":4,"unitSalesPrice":2500,"currency":"KRW"}`
	require.NoError(t, json.Unmarshal([]byte(payload), &row))

	o, err := NewNormalizer(nil).Normalize(CoupangRawRow(row))
	require.NoError(t, err)

	assert.Equal(t, "coupang_31000123", o.Key().String())
	assert.Equal(t, StatusPreparing, o.Status)
	assert.Equal(t, "880011", o.Items[0].LineID)
	assert.Equal(t, "880011", o.Items[0].SKU)
	assert.True(t, dec(10000).Equal(o.TotalAmount))
	assert.Equal(t, int64(1714525200000), o.OrderedAt.UnixMilli())
	assert.Empty(t, o.Recipient.Name)
}

func TestNormalizer_Errors(t *testing.T) {
	n := NewNormalizer(nil)

	_, err := n.Normalize(RawRow{Channel: channel.Naver, Cafe24: &Cafe24Row{OrderID: "1"}})
	assert.ErrorIs(t, err, ErrVariantMismatch)

	_, err = n.Normalize(NaverRawRow(NaverRow{ProductOrderID: "x"}))
	assert.ErrorIs(t, err, ErrOrderNoEmpty)

	out, errs := n.NormalizeAll([]RawRow{
		CoupangRawRow(CoupangRow{OrderID: 1, VendorItemID: 2}),
		CoupangRawRow(CoupangRow{}),
	})
	assert.Len(t, out, 1)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "row 1")
}

func TestParseOrderTime(t *testing.T) {
	assert.True(t, parseOrderTime("").IsZero())
	assert.True(t, parseOrderTime("yesterday").IsZero())
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, shared.KST), parseOrderTime("2024-01-02"))

	utc := parseOrderTime("2024-01-02T00:00:00Z")
	assert.Equal(t, 9, utc.In(shared.KST).Hour())
}
