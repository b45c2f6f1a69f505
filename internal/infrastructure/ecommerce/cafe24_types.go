package ecommerce

import "github.com/shopspring/decimal"

// cafe24ShipmentRequest is the body of POST /orders/{order_id}/shipments
type cafe24ShipmentRequest struct {
	ShopNo  int                 `json:"shop_no"`
	Request cafe24ShipmentInput `json:"request"`
}

type cafe24ShipmentInput struct {
	TrackingNo          string   `json:"tracking_no"`
	ShippingCompanyCode string   `json:"shipping_company_code"`
	OrderItemCode       []string `json:"order_item_code"`
	Status              string   `json:"status"`
}

// cafe24InventoryRequest is the body of PUT .../variants/{variant_code}/inventories
type cafe24InventoryRequest struct {
	ShopNo  int                  `json:"shop_no"`
	Request cafe24InventoryInput `json:"request"`
}

type cafe24InventoryInput struct {
	Quantity int `json:"quantity"`
}

type cafe24OrdersResponse struct {
	Orders []cafe24Order `json:"orders"`
}

type cafe24Order struct {
	OrderID   string           `json:"order_id"`
	OrderDate string           `json:"order_date"`
	Currency  string           `json:"currency"`
	Items     []cafe24Item     `json:"items"`
	Receivers []cafe24Receiver `json:"receivers"`
}

type cafe24Item struct {
	OrderItemCode       string           `json:"order_item_code"`
	ProductCode         string           `json:"product_code"`
	CustomVariantCode   string           `json:"custom_variant_code"`
	ProductName         string           `json:"product_name"`
	OptionValue         string           `json:"option_value"`
	Quantity            int              `json:"quantity"`
	ProductPrice        decimal.Decimal  `json:"product_price"`
	PaymentAmount       *decimal.Decimal `json:"payment_amount"`
	OrderStatus         string           `json:"order_status"`
	TrackingNo          string           `json:"tracking_no"`
	ShippingCompanyCode string           `json:"shipping_company_code"`
}

type cafe24Receiver struct {
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	Cellphone       string `json:"cellphone"`
	Address1        string `json:"address1"`
	Address2        string `json:"address2"`
	Zipcode         string `json:"zipcode"`
	ShippingMessage string `json:"shipping_message"`
}
