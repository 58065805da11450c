package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type AbrirCajaRequest struct {
	MontoInicial decimal.Decimal `json:"monto_inicial" validate:"min=0"`
}

type MovimientoCajaRequest struct {
	Tipo        string          `json:"tipo"        validate:"required,oneof=ingreso retiro"`
	Monto       decimal.Decimal `json:"monto"       validate:"required,gt=0"`
	Descripcion string          `json:"descripcion" validate:"max=255"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type MovimientoCajaResponse struct {
	ID          string          `json:"id"`
	Tipo        string          `json:"tipo"`
	Monto       decimal.Decimal `json:"monto"`
	Descripcion string          `json:"descripcion"`
	Fecha       string          `json:"fecha"`
}

// ResumenCajaResponse is the register snapshot returned by abrir, cerrar,
// actual and historial. For an open session MontoFinal is the expected cash
// in the drawer at this moment; once closed it is the persisted value.
type ResumenCajaResponse struct {
	ID                      string                   `json:"id"`
	Estado                  string                   `json:"estado"`
	MontoInicial            decimal.Decimal          `json:"monto_inicial"`
	FechaApertura           string                   `json:"fecha_apertura"`
	FechaCierre             *string                  `json:"fecha_cierre"`
	TotalEfectivo           decimal.Decimal          `json:"total_efectivo"`
	TotalQR                 decimal.Decimal          `json:"total_qr"`
	TotalTarjeta            decimal.Decimal          `json:"total_tarjeta"`
	TotalIngresos           decimal.Decimal          `json:"total_ingresos"`
	TotalRetiros            decimal.Decimal          `json:"total_retiros"`
	TotalMovimientoEfectivo decimal.Decimal          `json:"total_movimiento_efectivo"`
	TotalDevoluciones       decimal.Decimal          `json:"total_devoluciones"`
	TotalAjustes            decimal.Decimal          `json:"total_ajustes"`
	MontoFinal              decimal.Decimal          `json:"monto_final"`
	MovimientosEfectivo     []MovimientoCajaResponse `json:"movimientos_efectivo,omitempty"`
}

type HistorialCajaResponse struct {
	Data  []ResumenCajaResponse `json:"data"`
	Total int64                 `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}

type TransaccionEfectivoResponse struct {
	ID       string          `json:"id"`
	PedidoID string          `json:"pedido_id"`
	Fecha    string          `json:"fecha"`
	TipoPago string          `json:"tipo_pago"`
	Monto    decimal.Decimal `json:"monto"`
}

type TransaccionesEfectivoResponse struct {
	Total         decimal.Decimal               `json:"total"`
	Transacciones []TransaccionEfectivoResponse `json:"transacciones"`
}
