package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Pedido is created in the same transaction as its lines, its payments and
// the stock deduction. Deleting it restores stock and cascades to lines and
// payments.
type Pedido struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UsuarioID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	SesionCajaID *uuid.UUID      `gorm:"type:uuid;index"`
	Fecha        time.Time       `gorm:"not null"`
	Total        decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	Detalles []DetallePedido `gorm:"foreignKey:PedidoID;constraint:OnDelete:CASCADE"`
	Pagos    []PagoPedido    `gorm:"foreignKey:PedidoID;constraint:OnDelete:CASCADE"`
}

func (Pedido) TableName() string { return "pedidos" }

// DetallePedido keeps the unit price at the moment of the sale.
type DetallePedido struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PedidoID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductoID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Cantidad       int             `gorm:"not null"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	// Deleting a product removes its order lines as well.
	Producto *Producto `gorm:"foreignKey:ProductoID;constraint:OnDelete:CASCADE"`
}

func (DetallePedido) TableName() string { return "detalles_pedido" }

// PagoPedido records one payment of an order. MetodoOriginal keeps the name
// sent by the client, Metodo its classification.
type PagoPedido struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PedidoID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Metodo         MetodoPago      `gorm:"type:varchar(20);not null"`
	MetodoOriginal string          `gorm:"type:varchar(50)"`
	Monto          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

func (PagoPedido) TableName() string { return "pagos_pedido" }
