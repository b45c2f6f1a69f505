package ecommerce

import "github.com/shopspring/decimal"

type naverDispatchRequest struct {
	DispatchProductOrders []naverDispatchOrder `json:"dispatchProductOrders"`
}

type naverDispatchOrder struct {
	ProductOrderID      string `json:"productOrderId"`
	DeliveryMethod      string `json:"deliveryMethod"`
	DeliveryCompanyCode string `json:"deliveryCompanyCode"`
	TrackingNumber      string `json:"trackingNumber"`
	DispatchDate        string `json:"dispatchDate"`
}

type naverDispatchResponse struct {
	Data struct {
		SuccessProductOrderIDs []string            `json:"successProductOrderIds"`
		FailProductOrderInfos  []naverDispatchFail `json:"failProductOrderInfos"`
	} `json:"data"`
}

type naverDispatchFail struct {
	ProductOrderID string `json:"productOrderId"`
	Code           string `json:"code"`
	Message        string `json:"message"`
}

type naverOptionStockRequest struct {
	OptionStockUpdateRequests []naverOptionStock `json:"optionStockUpdateRequests"`
}

type naverOptionStock struct {
	ID            int64 `json:"id"`
	StockQuantity int   `json:"stockQuantity"`
}

type naverChangedStatusesResponse struct {
	Data struct {
		LastChangeStatuses []struct {
			ProductOrderID string `json:"productOrderId"`
		} `json:"lastChangeStatuses"`
		More *struct {
			MoreFrom     string `json:"moreFrom"`
			MoreSequence string `json:"moreSequence"`
		} `json:"more"`
	} `json:"data"`
}

type naverQueryRequest struct {
	ProductOrderIDs []string `json:"productOrderIds"`
}

type naverQueryResponse struct {
	Data []naverProductOrderDetail `json:"data"`
}

type naverProductOrderDetail struct {
	Order struct {
		OrderID   string `json:"orderId"`
		OrderDate string `json:"orderDate"`
	} `json:"order"`
	ProductOrder struct {
		ProductOrderID     string          `json:"productOrderId"`
		ProductOrderStatus string          `json:"productOrderStatus"`
		ProductID          string          `json:"productId"`
		ProductName        string          `json:"productName"`
		ProductOption      string          `json:"productOption"`
		Quantity           int             `json:"quantity"`
		UnitPrice          decimal.Decimal `json:"unitPrice"`
		TotalPaymentAmount decimal.Decimal `json:"totalPaymentAmount"`
		SellerProductCode  string          `json:"sellerProductCode"`
		OptionManageCode   string          `json:"optionManageCode"`
		ShippingMemo       string          `json:"shippingMemo"`
		ShippingAddress    struct {
			Name            string `json:"name"`
			Tel1            string `json:"tel1"`
			Tel2            string `json:"tel2"`
			BaseAddress     string `json:"baseAddress"`
			DetailedAddress string `json:"detailedAddress"`
			ZipCode         string `json:"zipCode"`
		} `json:"shippingAddress"`
	} `json:"productOrder"`
	Delivery struct {
		TrackingNumber  string `json:"trackingNumber"`
		DeliveryCompany string `json:"deliveryCompany"`
	} `json:"delivery"`
}
