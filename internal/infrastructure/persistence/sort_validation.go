package persistence

import (
	"strings"

	"github.com/omnisync/backend/internal/domain/order"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// orderSortColumns maps API sort keys to channel_orders columns
var orderSortColumns = map[order.SortField]string{
	order.SortByOrderedAt:   "ordered_at",
	order.SortByTotalAmount: "total_amount",
	order.SortByRecipient:   "recipient_name",
	order.SortByChannel:     "channel",
	order.SortByOrderNo:     "order_no",
}

// OrderSortFields contains allowed sort columns for channel orders
var OrderSortFields = func() map[string]bool {
	out := make(map[string]bool, len(orderSortColumns))
	for _, col := range orderSortColumns {
		out[col] = true
	}
	return out
}()

// OrderSortClause builds the ORDER BY clause for an order filter. Ties
// break on order number so pages are stable.
func OrderSortClause(f order.Filter) string {
	col := ValidateSortField(orderSortColumns[f.SortBy], OrderSortFields, "ordered_at")
	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}
	clause := col + " " + dir
	if col != "order_no" {
		clause += ", order_no " + dir
	}
	return clause
}
