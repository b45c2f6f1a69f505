package order

import (
	"github.com/omnisync/backend/internal/domain/channel"
	"github.com/shopspring/decimal"
)

// RawRow is one purchased line as a channel reports it. Exactly one of the
// variant pointers is set, matching Channel. Order-level fields are repeated
// on every line of the same order.
type RawRow struct {
	Channel channel.Channel
	Cafe24  *Cafe24Row
	Naver   *NaverRow
	Coupang *CoupangRow
}

// Cafe24RawRow wraps a Cafe24 line
func Cafe24RawRow(r Cafe24Row) RawRow {
	return RawRow{Channel: channel.Cafe24, Cafe24: &r}
}

// NaverRawRow wraps a Naver line
func NaverRawRow(r NaverRow) RawRow {
	return RawRow{Channel: channel.Naver, Naver: &r}
}

// CoupangRawRow wraps a Coupang line
func CoupangRawRow(r CoupangRow) RawRow {
	return RawRow{Channel: channel.Coupang, Coupang: &r}
}

// Cafe24Receiver is the receiver block of a Cafe24 order
type Cafe24Receiver struct {
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	Cellphone       string `json:"cellphone"`
	Address1        string `json:"address1"`
	Address2        string `json:"address2"`
	Zipcode         string `json:"zipcode"`
	ShippingMessage string `json:"shipping_message"`
}

// Cafe24Row is one Cafe24 order item flattened with its order fields
type Cafe24Row struct {
	OrderID             string           `json:"order_id"`
	OrderItemCode       string           `json:"order_item_code"`
	ProductCode         string           `json:"product_code"`
	CustomVariantCode   string           `json:"custom_variant_code"`
	ProductName         string           `json:"product_name"`
	OptionValue         string           `json:"option_value"`
	Quantity            int              `json:"quantity"`
	ProductPrice        decimal.Decimal  `json:"product_price"`
	PaymentAmount       *decimal.Decimal `json:"payment_amount"`
	OrderStatus         string           `json:"order_status"`
	OrderDate           string           `json:"order_date"`
	Receiver            Cafe24Receiver   `json:"receiver"`
	TrackingNo          string           `json:"tracking_no"`
	ShippingCompanyCode string           `json:"shipping_company_code"`
	Currency            string           `json:"currency"`
}

// NaverRow is one Naver product order (Naver's line unit)
type NaverRow struct {
	ProductOrderID          string          `json:"productOrderId"`
	OrderID                 string          `json:"orderId"`
	ProductOrderStatus      string          `json:"productOrderStatus"`
	OrderDate               string          `json:"orderDate"`
	ReceiverName            string          `json:"receiverName"`
	ReceiverTel             string          `json:"receiverTel"`
	ReceiverTel2            string          `json:"receiverTel2"`
	ReceiverAddress         string          `json:"receiverAddress"`
	ReceiverDetailedAddress string          `json:"receiverDetailedAddress"`
	ReceiverZipCode         string          `json:"receiverZipCode"`
	DeliveryMemo            string          `json:"deliveryMemo"`
	TrackingNumber          string          `json:"trackingNumber"`
	DeliveryCompanyCode     string          `json:"deliveryCompanyCode"`
	ProductID               string          `json:"productId"`
	ProductName             string          `json:"productName"`
	ProductOption           string          `json:"productOption"`
	Quantity                int             `json:"quantity"`
	UnitPrice               decimal.Decimal `json:"unitPrice"`
	TotalPaymentAmount      decimal.Decimal `json:"totalPaymentAmount"`
	SellerManagementCode    string          `json:"sellerManagementCode"`
	OptionManageCode        string          `json:"optionManageCode"`
}

// CoupangRow is one Coupang Rocket Growth order item with its order fields
type CoupangRow struct {
	OrderID               int64           `json:"orderId"`
	PaidAt                int64           `json:"paidAt,string"` // unix milliseconds, sent as a string
	VendorItemID          int64           `json:"vendorItemId"`
	ExternalSKU           string          `json:"externalVendorSku"`
	ProductName           string          `json:"productName"`
	SellerProductItemName string          `json:"sellerProductItemName"`
	SalesQuantity         int             `json:"salesQuantity"`
	UnitSalesPrice        decimal.Decimal `json:"unitSalesPrice"`
	Currency              string          `json:"currency"`
}
