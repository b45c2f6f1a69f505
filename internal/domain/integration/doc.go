// Package integration contains the channel integration bounded context.
//
// Key concepts:
//   - InvoiceSink: port for sending shipment tracking to a channel
//   - StockPusher: port for pushing option stock quantities to a channel
//   - OrderSource: port for pulling raw order rows from a channel
//   - OptionMapping: entity linking a channel option to an internal SKU
//
// Ports are defined here; the Cafe24, Naver and Coupang adapters live in
// infrastructure/ecommerce.
package integration
