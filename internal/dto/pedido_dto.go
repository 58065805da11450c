package dto

import "github.com/shopspring/decimal"

// ─── Filter / List ──────────────────────────────────────────────────────────

// PedidoFilter is bound from query string of GET /v1/pedidos.
type PedidoFilter struct {
	Fecha        string `form:"fecha"` // YYYY-MM-DD; empty = all
	SesionCajaID string `form:"sesion_caja_id" validate:"omitempty,uuid"`
	Page         int    `form:"page,default=1"   validate:"min=1"`
	Limit        int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type PedidoListResponse struct {
	Data  []PedidoResponse `json:"data"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type DetallePedidoRequest struct {
	ProductoID string `json:"producto_id" validate:"required,uuid"`
	Cantidad   int    `json:"cantidad"    validate:"required,min=1"`
}

// PagoPedidoRequest carries the payment method as free text; the service
// classifies it into efectivo | qr | tarjeta | otro.
type PagoPedidoRequest struct {
	Metodo string          `json:"metodo" validate:"required,max=50"`
	Monto  decimal.Decimal `json:"monto"  validate:"required,gt=0"`
}

type CrearPedidoRequest struct {
	Detalles []DetallePedidoRequest `json:"detalles" validate:"required,min=1,dive"`
	Pagos    []PagoPedidoRequest    `json:"pagos"    validate:"omitempty,dive"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type DetallePedidoResponse struct {
	ProductoID     string          `json:"producto_id"`
	Producto       string          `json:"producto"`
	Cantidad       int             `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

type PagoPedidoResponse struct {
	Metodo         string          `json:"metodo"`
	MetodoOriginal string          `json:"metodo_original"`
	Monto          decimal.Decimal `json:"monto"`
}

// DeduccionStockResponse describes one stock change applied by an order.
type DeduccionStockResponse struct {
	ProductoID    string `json:"producto_id"`
	Producto      string `json:"producto"`
	Cantidad      int    `json:"cantidad"`
	StockAnterior int    `json:"stock_anterior"`
	StockNuevo    int    `json:"stock_nuevo"`
}

type PedidoResponse struct {
	ID           string                   `json:"id"`
	SesionCajaID *string                  `json:"sesion_caja_id"`
	Fecha        string                   `json:"fecha"`
	Total        decimal.Decimal          `json:"total"`
	Detalles     []DetallePedidoResponse  `json:"detalles"`
	Pagos        []PagoPedidoResponse     `json:"pagos"`
	Deducciones  []DeduccionStockResponse `json:"deducciones,omitempty"`
}
