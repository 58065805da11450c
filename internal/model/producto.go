package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Producto belongs to a single operator (UsuarioID). Its stock lives in the
// one-to-one Inventario row, which is deleted together with the product.
type Producto struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UsuarioID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	CategoriaID  *uuid.UUID `gorm:"type:uuid;index"`
	Nombre       string     `gorm:"index;not null"`
	Descripcion  *string
	PrecioCompra decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	PrecioVenta  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Inventario *Inventario `gorm:"foreignKey:ProductoID;constraint:OnDelete:CASCADE"`
	Categoria  *Categoria  `gorm:"foreignKey:CategoriaID;constraint:OnDelete:SET NULL"`
}

// TableName overrides GORM's default pluralization.
func (Producto) TableName() string { return "productos" }

// Estado labels for Inventario. They are advisory only: the thresholds are
// never enforced as hard bounds.
const (
	EstadoStockBajo   = "Bajo"
	EstadoStockNormal = "Normal"
	EstadoStockExceso = "Exceso"
)

// Inventario is mutated exclusively through the stock ledger.
// Stock >= 0 is enforced by a CHECK constraint (see infra.applySchemaPatches).
type Inventario struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductoID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	Stock          int       `gorm:"not null;default:0"`
	CantidadMinima int       `gorm:"not null;default:0"`
	CantidadMaxima int       `gorm:"not null;default:0"`
	UpdatedAt      time.Time
}

func (Inventario) TableName() string { return "inventarios" }

// EstadoStock returns "Bajo" when below the minimum, "Exceso" when above the
// maximum and "Normal" otherwise. A zero maximum means "no upper threshold".
func (i Inventario) EstadoStock() string {
	switch {
	case i.Stock < i.CantidadMinima:
		return EstadoStockBajo
	case i.CantidadMaxima > 0 && i.Stock > i.CantidadMaxima:
		return EstadoStockExceso
	default:
		return EstadoStockNormal
	}
}
