package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// CrearProductoRequest creates a product together with its inventory record.
// If the operator already has a product with the same name, Stock is added to
// the existing record instead.
type CrearProductoRequest struct {
	Nombre         string          `json:"nombre"          validate:"required,min=2,max=120"`
	Descripcion    *string         `json:"descripcion"`
	CategoriaID    *string         `json:"categoria_id"    validate:"omitempty,uuid"`
	PrecioCompra   decimal.Decimal `json:"precio_compra"   validate:"min=0"`
	PrecioVenta    decimal.Decimal `json:"precio_venta"    validate:"required,gt=0"`
	Stock          int             `json:"stock"           validate:"min=0"`
	CantidadMinima int             `json:"cantidad_minima" validate:"min=0"`
	CantidadMaxima int             `json:"cantidad_maxima" validate:"min=0"`
}

type ActualizarProductoRequest struct {
	Nombre         *string          `json:"nombre"          validate:"omitempty,min=2,max=120"`
	Descripcion    *string          `json:"descripcion"`
	CategoriaID    *string          `json:"categoria_id"    validate:"omitempty,uuid"`
	PrecioCompra   *decimal.Decimal `json:"precio_compra"   validate:"omitempty,min=0"`
	PrecioVenta    *decimal.Decimal `json:"precio_venta"    validate:"omitempty,gt=0"`
	CantidadMinima *int             `json:"cantidad_minima" validate:"omitempty,min=0"`
	CantidadMaxima *int             `json:"cantidad_maxima" validate:"omitempty,min=0"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type ProductoFilter struct {
	Nombre      string `form:"nombre"`
	CategoriaID string `form:"categoria_id" validate:"omitempty,uuid"`
	Page        int    `form:"page,default=1"  validate:"min=1"`
	Limit       int    `form:"limit,default=20" validate:"min=1,max=100"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProductoResponse struct {
	ID             string          `json:"id"`
	Nombre         string          `json:"nombre"`
	Descripcion    *string         `json:"descripcion"`
	CategoriaID    *string         `json:"categoria_id"`
	Categoria      string          `json:"categoria"`
	PrecioCompra   decimal.Decimal `json:"precio_compra"`
	PrecioVenta    decimal.Decimal `json:"precio_venta"`
	Stock          int             `json:"stock"`
	CantidadMinima int             `json:"cantidad_minima"`
	CantidadMaxima int             `json:"cantidad_maxima"`
	EstadoStock    string          `json:"estado_stock"`
}

type ProductoListResponse struct {
	Data       []ProductoResponse `json:"data"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	TotalPages int                `json:"total_pages"`
}
