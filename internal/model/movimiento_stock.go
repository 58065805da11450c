package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	MovStockVenta            = "venta"
	MovStockRestorePedido    = "restore_pedido"
	MovStockRestoreFabricado = "restore_fabricado"
	MovStockAjusteManual     = "ajuste_manual"
	MovStockAltaProducto     = "alta_producto"
)

// MovimientoStock registra cada cambio de stock en un producto.
// Se crea en la misma transacción que la mutación del inventario.
type MovimientoStock struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductoID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Tipo          string    `gorm:"not null"`
	Cantidad      int       `gorm:"not null"` // positive = entrada, negative = salida
	StockAnterior int       `gorm:"not null"`
	StockNuevo    int       `gorm:"not null"`
	Motivo        string
	ReferenciaID  *uuid.UUID `gorm:"type:uuid"` // pedido_id when applicable
	CreatedAt     time.Time

	Producto *Producto `gorm:"foreignKey:ProductoID;constraint:OnDelete:CASCADE"`
}

// TableName overrides GORM's default pluralization (movimiento_stocks → movimientos_stock).
func (MovimientoStock) TableName() string { return "movimientos_stock" }
