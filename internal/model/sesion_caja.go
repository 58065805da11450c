package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EstadoCajaAbierta = "abierta"
	EstadoCajaCerrada = "cerrada"
)

// SesionCaja represents the lifecycle of a cash register session.
// Estado: "abierta" | "cerrada". A closed session is never reopened.
//
// At most one "abierta" row per UsuarioID; the partial unique index
// idx_sesiones_caja_una_abierta enforces it at the storage layer.
type SesionCaja struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UsuarioID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	MontoInicial  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Estado        string          `gorm:"type:varchar(20);not null;default:'abierta'"`
	FechaApertura time.Time       `gorm:"not null"`
	FechaCierre   *time.Time

	// Running totals while open; overwritten with the recomputed snapshot on close.
	TotalEfectivo           decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalQR                 decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalTarjeta            decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalIngresos           decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalRetiros            decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalMovimientoEfectivo decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	// Not wired yet: nothing records returns or adjustments, both stay zero.
	TotalDevoluciones decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0"`
	TotalAjustes      decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0"`
	MontoFinal        *decimal.Decimal `gorm:"type:decimal(12,2)"`

	Movimientos []MovimientoCaja `gorm:"foreignKey:SesionCajaID"`
}

func (SesionCaja) TableName() string { return "sesiones_caja" }

// Abierta reports whether sales and movements may still be recorded.
func (s SesionCaja) Abierta() bool { return s.Estado == EstadoCajaAbierta }

const (
	MovimientoIngreso = "ingreso"
	MovimientoRetiro  = "retiro"
)

// MovimientoCaja is a manual cash deposit ("ingreso") or withdrawal ("retiro").
// Monto is always positive; Tipo carries the sign. Rows are never modified.
type MovimientoCaja struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SesionCajaID uuid.UUID       `gorm:"type:uuid;index;not null"`
	Tipo         string          `gorm:"type:varchar(20);not null"`
	Monto        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Descripcion  string
	CreatedAt    time.Time
}

func (MovimientoCaja) TableName() string { return "movimientos_caja" }
