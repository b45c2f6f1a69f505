package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/omnisync/backend/internal/application/fulfillment"
	"github.com/omnisync/backend/internal/domain/carrier"
	"github.com/omnisync/backend/internal/domain/channel"
	"github.com/omnisync/backend/internal/domain/order"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/omnisync/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceHandler_Write(t *testing.T) {
	f := newFixture(t, newOrder(channel.Naver, "1001", line("PO-1", "SKU-A", 3)))

	w := f.do(t, http.MethodPost, "/orders/invoice", fulfillment.InvoiceEntry{
		OrderKey: "naver_1001", Carrier: "cj", TrackingNo: "111",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decodeData[shared.ItemResult](t, w)
	assert.True(t, res.Success)
	assert.Equal(t, "naver_1001", res.Key)

	assert.Equal(t, 7, f.stock.Quantity(f.warehouse.ID, "SKU-A"))
	assert.Len(t, f.naver.Sent(), 1)
	o, err := f.orders.FindByKey(context.Background(), order.NewKey(channel.Naver, "1001"))
	require.NoError(t, err)
	assert.Equal(t, order.StatusShipped, o.Status)
}

func TestInvoiceHandler_Write_Failure(t *testing.T) {
	f := newFixture(t, newOrder(channel.Naver, "1001", line("PO-1", "SKU-B", 2)))

	w := f.do(t, http.MethodPost, "/orders/invoice", fulfillment.InvoiceEntry{
		OrderKey: "naver_1001", Carrier: "cj", TrackingNo: "111",
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	env := decode(t, w)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, dto.ErrCodeInvalidState, env.Error.Code)
	assert.Contains(t, env.Error.Message, "insufficient stock")
	assert.Empty(t, f.naver.Sent())
}

func TestInvoiceHandler_Write_Validation(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/orders/invoice", map[string]string{"orderKey": "naver_1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, dto.ErrCodeValidation, env.Error.Code)
	fields := make([]string, 0, len(env.Error.Details))
	for _, d := range env.Error.Details {
		fields = append(fields, d.Field)
	}
	assert.ElementsMatch(t, []string{"carrier", "trackingNo"}, fields)
}

func TestInvoiceHandler_UpdateLocal(t *testing.T) {
	f := newFixture(t, newOrder(channel.Cafe24, "1", line("1", "SKU-A", 1)))

	w := f.do(t, http.MethodPut, "/orders/invoice", fulfillment.InvoiceEntry{
		OrderKey: "cafe24_1", Carrier: "lotte", TrackingNo: "999",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Empty(t, f.cafe24.Sent(), "local update never reaches the channel")

	o, err := f.orders.FindByKey(context.Background(), order.NewKey(channel.Cafe24, "1"))
	require.NoError(t, err)
	assert.Equal(t, "999", o.TrackingNo)
	assert.Equal(t, "lotte", o.Carrier)
}

func TestInvoiceHandler_WriteBatch(t *testing.T) {
	f := newFixture(t,
		newOrder(channel.Naver, "1", line("PO-1", "SKU-A", 1)),
		newOrder(channel.Cafe24, "2", line("1", "SKU-A", 1)),
	)

	w := f.do(t, http.MethodPost, "/orders/invoices", InvoiceBatchRequest{Entries: []fulfillment.InvoiceEntry{
		{OrderKey: "naver_1", Carrier: "cj", TrackingNo: "111"},
		{OrderKey: "cafe24_2", Carrier: "cj", TrackingNo: "222"},
		{OrderKey: "naver_404", Carrier: "cj", TrackingNo: "333"},
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decodeData[shared.BatchResult](t, w)
	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, 1, res.FailCount)
	require.Len(t, res.Results, 3)
	assert.Equal(t, "naver_404", res.Results[2].Key)
	assert.Equal(t, 8, f.stock.Quantity(f.warehouse.ID, "SKU-A"))

	w = f.do(t, http.MethodPost, "/orders/invoices", InvoiceBatchRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/orders/invoices", InvoiceBatchRequest{
		Entries:       []fulfillment.InvoiceEntry{{OrderKey: "naver_1", Carrier: "cj", TrackingNo: "1"}},
		RetryAttempts: 9,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvoiceHandler_Send(t *testing.T) {
	f := newFixture(t, newOrder(channel.Naver, "1", line("PO-1", "SKU-A", 2)))

	w := f.do(t, http.MethodPost, "/orders/invoices/send", InvoiceBatchRequest{Entries: []fulfillment.InvoiceEntry{
		{OrderKey: "naver_1", Carrier: "hanjin", TrackingNo: "123"},
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, decodeData[shared.BatchResult](t, w).SuccessCount)

	sent := f.naver.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "HANJIN", sent[0].CarrierCode)
	assert.Equal(t, 10, f.stock.Quantity(f.warehouse.ID, "SKU-A"), "send skips the deduction")
}

const importCSV = "주문번호,택배사코드,송장번호\n" +
	"naver_1,cj,111\n" +
	"naver_404,cj,222\n"

func TestInvoiceHandler_Import_ValidateOnly(t *testing.T) {
	f := newFixture(t, newOrder(channel.Naver, "1", line("PO-1", "SKU-A", 1)))

	w := f.raw(t, http.MethodPost, "/orders/invoices/import", "text/csv", []byte(importCSV))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decodeData[fulfillment.ImportResult](t, w)
	assert.Equal(t, 2, res.TotalRows)
	assert.Equal(t, 1, res.ValidCount)
	assert.Equal(t, 1, res.InvalidCount)
	assert.Nil(t, res.Applied)
	assert.Empty(t, f.naver.Sent())
}

func TestInvoiceHandler_Import_Apply(t *testing.T) {
	f := newFixture(t, newOrder(channel.Naver, "1", line("PO-1", "SKU-A", 1)))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "invoices.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(importCSV))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w := f.raw(t, http.MethodPost, "/orders/invoices/import?apply=true", mw.FormDataContentType(), body.Bytes())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decodeData[fulfillment.ImportResult](t, w)
	require.NotNil(t, res.Applied)
	assert.Equal(t, 1, res.Applied.SuccessCount)
	assert.Len(t, f.naver.Sent(), 1)
}

func TestInvoiceHandler_Import_BadInput(t *testing.T) {
	f := newFixture(t)

	w := f.raw(t, http.MethodPost, "/orders/invoices/import?apply=maybe", "text/csv", []byte(importCSV))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.raw(t, http.MethodPost, "/orders/invoices/import", "text/csv", []byte("  \n"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidInput, errorCode(t, w))

	w = f.raw(t, http.MethodPost, "/orders/invoices/import", "multipart/form-data; boundary=x", []byte("--x--"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvoiceHandler_Template(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/orders/invoices/template", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "invoice-template.csv")
	assert.True(t, strings.HasPrefix(w.Body.String(), "주문번호,택배사코드,송장번호\n"))
}

func TestInvoiceHandler_Carriers(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/carriers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	carriers := decodeData[[]carrier.Carrier](t, w)
	assert.Len(t, carriers, len(carrier.Default().All()))
	assert.Equal(t, "cj", carriers[0].Value)
}

func (f *fixture) raw(t *testing.T, method, path, contentType string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, "/api/v1"+path, bytes.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}
