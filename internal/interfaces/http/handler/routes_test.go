package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainGroups_RouteTable(t *testing.T) {
	f := newFixture(t)

	got := make(map[string]bool)
	for _, r := range f.engine.Routes() {
		got[r.Method+" "+r.Path] = true
	}

	want := []string{
		"GET /api/v1/orders",
		"GET /api/v1/orders/:key",
		"POST /api/v1/orders/sync/:channel",
		"POST /api/v1/orders/status",
		"POST /api/v1/orders/delete",
		"POST /api/v1/orders/invoice",
		"PUT /api/v1/orders/invoice",
		"POST /api/v1/orders/invoices",
		"POST /api/v1/orders/invoices/send",
		"POST /api/v1/orders/invoices/import",
		"GET /api/v1/orders/invoices/template",
		"POST /api/v1/inventory/deduct",
		"POST /api/v1/inventory/rollback",
		"GET /api/v1/inventory/deductions/:key",
		"GET /api/v1/inventory/warehouses",
		"POST /api/v1/inventory/warehouses",
		"GET /api/v1/inventory/stock",
		"PUT /api/v1/inventory/stock",
		"PUT /api/v1/inventory/preferences",
		"GET /api/v1/workflows",
		"POST /api/v1/workflows",
		"GET /api/v1/workflows/:id",
		"PUT /api/v1/workflows/:id",
		"DELETE /api/v1/workflows/:id",
		"POST /api/v1/workflows/:id/toggle",
		"POST /api/v1/workflows/:id/run",
		"GET /api/v1/workflows/:id/logs",
		"GET /api/v1/mappings",
		"POST /api/v1/mappings",
		"POST /api/v1/mappings/batch",
		"GET /api/v1/carriers",
		"GET /api/v1/system/info",
		"GET /api/v1/system/health",
	}
	for _, r := range want {
		assert.True(t, got[r], "missing route %s", r)
	}
	assert.Len(t, got, len(want))
}

func TestDomainGroups_StaticPathsWinOverOrderKey(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/orders/invoices/template", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
}
