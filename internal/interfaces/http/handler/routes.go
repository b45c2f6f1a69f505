package handler

import (
	"github.com/omnisync/backend/internal/interfaces/http/router"
)

// Handlers bundles every handler mounted under the API prefix
type Handlers struct {
	Orders    *OrderHandler
	Invoices  *InvoiceHandler
	Inventory *InventoryHandler
	Workflows *WorkflowHandler
	Mappings  *MappingHandler
	System    *SystemHandler
}

// DomainGroups builds the route table. Static order paths are registered
// next to /orders/:key; gin prefers the static match.
func (h Handlers) DomainGroups() []router.RouteRegistrar {
	orders := router.NewDomainGroup("orders", "/orders")
	orders.GET("", h.Orders.Query).
		GET("/:key", h.Orders.Get).
		POST("/sync/:channel", h.Orders.Sync).
		POST("/status", h.Orders.UpdateStatus).
		POST("/delete", h.Orders.Delete).
		POST("/invoice", h.Invoices.Write).
		PUT("/invoice", h.Invoices.UpdateLocal)
	orders.Group("invoices", "/invoices").
		POST("", h.Invoices.WriteBatch).
		POST("/send", h.Invoices.Send).
		POST("/import", h.Invoices.Import).
		GET("/template", h.Invoices.Template)

	inventory := router.NewDomainGroup("inventory", "/inventory")
	inventory.POST("/deduct", h.Inventory.Deduct).
		POST("/rollback", h.Inventory.Rollback).
		GET("/deductions/:key", h.Inventory.History).
		GET("/warehouses", h.Inventory.ListWarehouses).
		POST("/warehouses", h.Inventory.CreateWarehouse).
		GET("/stock", h.Inventory.Available).
		PUT("/stock", h.Inventory.SetStock).
		PUT("/preferences", h.Inventory.SetPreference)

	workflows := router.NewDomainGroup("workflows", "/workflows")
	workflows.GET("", h.Workflows.List).
		POST("", h.Workflows.Create).
		GET("/:id", h.Workflows.Get).
		PUT("/:id", h.Workflows.Update).
		DELETE("/:id", h.Workflows.Delete).
		POST("/:id/toggle", h.Workflows.Toggle).
		POST("/:id/run", h.Workflows.Run).
		GET("/:id/logs", h.Workflows.Logs)

	mappings := router.NewDomainGroup("mappings", "/mappings")
	mappings.GET("", h.Mappings.List).
		POST("", h.Mappings.Upsert).
		POST("/batch", h.Mappings.UpsertBatch)

	carriers := router.NewDomainGroup("carriers", "/carriers")
	carriers.GET("", h.Invoices.Carriers)

	system := router.NewDomainGroup("system", "/system")
	system.GET("/info", h.System.Info).
		GET("/health", h.System.Health)

	return []router.RouteRegistrar{orders, inventory, workflows, mappings, carriers, system}
}
