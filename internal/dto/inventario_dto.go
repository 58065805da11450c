package dto

import "github.com/shopspring/decimal"

// AjusteInventarioRequest sets the absolute stock of a product.
type AjusteInventarioRequest struct {
	Stock  *int   `json:"stock"  validate:"required,min=0"`
	Motivo string `json:"motivo" validate:"required,min=3,max=255"`
}

type MovimientoStockFilter struct {
	ProductoID string `form:"producto_id" validate:"omitempty,uuid"`
	Tipo       string `form:"tipo"        validate:"omitempty,oneof=venta restore_pedido restore_fabricado ajuste_manual alta_producto"`
	Page       int    `form:"page,default=1"    validate:"min=1"`
	Limit      int    `form:"limit,default=100" validate:"min=1,max=500"`
}

type InventarioResponse struct {
	ProductoID     string `json:"producto_id"`
	Producto       string `json:"producto"`
	Stock          int    `json:"stock"`
	CantidadMinima int    `json:"cantidad_minima"`
	CantidadMaxima int    `json:"cantidad_maxima"`
	Estado         string `json:"estado"` // Bajo | Normal | Exceso
}

type AlertaStockResponse struct {
	ProductoID     string          `json:"producto_id"`
	Producto       string          `json:"producto"`
	Stock          int             `json:"stock"`
	CantidadMinima int             `json:"cantidad_minima"`
	Faltante       int             `json:"faltante"`
	PrecioCompra   decimal.Decimal `json:"precio_compra"`
}

type MovimientoStockResponse struct {
	ID            string  `json:"id"`
	ProductoID    string  `json:"producto_id"`
	Producto      string  `json:"producto"`
	Tipo          string  `json:"tipo"`
	Cantidad      int     `json:"cantidad"`
	StockAnterior int     `json:"stock_anterior"`
	StockNuevo    int     `json:"stock_nuevo"`
	Motivo        string  `json:"motivo"`
	ReferenciaID  *string `json:"referencia_id"`
	Fecha         string  `json:"fecha"`
}

type MovimientoStockListResponse struct {
	Data  []MovimientoStockResponse `json:"data"`
	Total int64                     `json:"total"`
	Page  int                       `json:"page"`
	Limit int                       `json:"limit"`
}
