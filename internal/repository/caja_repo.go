package repository

import (
	"context"
	"time"

	"puntoventa/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TotalesPago are the amounts of a session's payments grouped by method.
type TotalesPago struct {
	Efectivo decimal.Decimal
	QR       decimal.Decimal
	Tarjeta  decimal.Decimal
	Otro     decimal.Decimal
}

// PagoEfectivoRow is a cash payment joined with the date of its order.
type PagoEfectivoRow struct {
	ID             uuid.UUID
	PedidoID       uuid.UUID
	Fecha          time.Time
	MetodoOriginal string
	Monto          decimal.Decimal
}

type CajaRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error)
	ListMovimientos(ctx context.Context, sesionCajaID uuid.UUID) ([]model.MovimientoCaja, error)
	ListPagosEfectivo(ctx context.Context, sesionCajaID uuid.UUID) ([]PagoEfectivoRow, error)
	Historial(ctx context.Context, usuarioID uuid.UUID, page, limit int) ([]model.SesionCaja, int64, error)

	CreateSesionTx(tx *gorm.DB, s *model.SesionCaja) error
	// FindAbiertaTx returns the operator's open session or gorm.ErrRecordNotFound.
	FindAbiertaTx(tx *gorm.DB, usuarioID uuid.UUID, forUpdate bool) (*model.SesionCaja, error)
	FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.SesionCaja, error)
	FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.SesionCaja, error)
	SumarTotalesTx(tx *gorm.DB, id uuid.UUID, delta TotalesPago) error
	SumarMovimientoTx(tx *gorm.DB, id uuid.UUID, ingreso, retiro decimal.Decimal) error
	GuardarCierreTx(tx *gorm.DB, s *model.SesionCaja) error
	CreateMovimientoTx(tx *gorm.DB, m *model.MovimientoCaja) error
	ListMovimientosTx(tx *gorm.DB, sesionCajaID uuid.UUID) ([]model.MovimientoCaja, error)
	SumPagosPorMetodoTx(tx *gorm.DB, sesionCajaID uuid.UUID) (TotalesPago, error)
}

type cajaRepo struct{ db *gorm.DB }

func NewCajaRepository(db *gorm.DB) CajaRepository { return &cajaRepo{db: db} }

func (r *cajaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *cajaRepo) ListMovimientos(ctx context.Context, sesionCajaID uuid.UUID) ([]model.MovimientoCaja, error) {
	return r.ListMovimientosTx(r.db.WithContext(ctx), sesionCajaID)
}

func (r *cajaRepo) ListPagosEfectivo(ctx context.Context, sesionCajaID uuid.UUID) ([]PagoEfectivoRow, error) {
	var rows []PagoEfectivoRow
	err := r.db.WithContext(ctx).
		Table("pagos_pedido pp").
		Select("pp.id, pp.pedido_id, p.fecha, pp.metodo_original, pp.monto").
		Joins("JOIN pedidos p ON p.id = pp.pedido_id").
		Where("p.sesion_caja_id = ? AND pp.metodo = ?", sesionCajaID, model.MetodoEfectivo).
		Order("p.fecha ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *cajaRepo) Historial(ctx context.Context, usuarioID uuid.UUID, page, limit int) ([]model.SesionCaja, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.SesionCaja{}).
		Where("usuario_id = ? AND estado = ?", usuarioID, model.EstadoCajaCerrada)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var sesiones []model.SesionCaja
	err := q.Order("fecha_cierre DESC").Offset((page - 1) * limit).Limit(limit).Find(&sesiones).Error
	return sesiones, total, err
}

func (r *cajaRepo) CreateSesionTx(tx *gorm.DB, s *model.SesionCaja) error {
	return tx.Omit(clause.Associations).Create(s).Error
}

func (r *cajaRepo) FindAbiertaTx(tx *gorm.DB, usuarioID uuid.UUID, forUpdate bool) (*model.SesionCaja, error) {
	q := tx
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var s model.SesionCaja
	err := q.Where("usuario_id = ? AND estado = ?", usuarioID, model.EstadoCajaAbierta).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *cajaRepo) FindByIDTx(tx *gorm.DB, id uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	if err := tx.First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *cajaRepo) FindByIDForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&s, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SumarTotalesTx adds delta to the running per-method totals. Negative
// amounts are used when an order is deleted while the session is open.
func (r *cajaRepo) SumarTotalesTx(tx *gorm.DB, id uuid.UUID, delta TotalesPago) error {
	return tx.Model(&model.SesionCaja{}).Where("id = ?", id).Updates(map[string]interface{}{
		"total_efectivo": gorm.Expr("total_efectivo + ?", delta.Efectivo),
		"total_qr":       gorm.Expr("total_qr + ?", delta.QR),
		"total_tarjeta":  gorm.Expr("total_tarjeta + ?", delta.Tarjeta),
	}).Error
}

func (r *cajaRepo) SumarMovimientoTx(tx *gorm.DB, id uuid.UUID, ingreso, retiro decimal.Decimal) error {
	return tx.Model(&model.SesionCaja{}).Where("id = ?", id).Updates(map[string]interface{}{
		"total_ingresos":            gorm.Expr("total_ingresos + ?", ingreso),
		"total_retiros":             gorm.Expr("total_retiros + ?", retiro),
		"total_movimiento_efectivo": gorm.Expr("total_movimiento_efectivo + ?", ingreso.Sub(retiro)),
	}).Error
}

func (r *cajaRepo) GuardarCierreTx(tx *gorm.DB, s *model.SesionCaja) error {
	return tx.Model(&model.SesionCaja{}).Where("id = ?", s.ID).Updates(map[string]interface{}{
		"estado":                    s.Estado,
		"fecha_cierre":              s.FechaCierre,
		"total_efectivo":            s.TotalEfectivo,
		"total_qr":                  s.TotalQR,
		"total_tarjeta":             s.TotalTarjeta,
		"total_ingresos":            s.TotalIngresos,
		"total_retiros":             s.TotalRetiros,
		"total_movimiento_efectivo": s.TotalMovimientoEfectivo,
		"total_devoluciones":        s.TotalDevoluciones,
		"total_ajustes":             s.TotalAjustes,
		"monto_final":               s.MontoFinal,
	}).Error
}

func (r *cajaRepo) CreateMovimientoTx(tx *gorm.DB, m *model.MovimientoCaja) error {
	return tx.Create(m).Error
}

func (r *cajaRepo) ListMovimientosTx(tx *gorm.DB, sesionCajaID uuid.UUID) ([]model.MovimientoCaja, error) {
	var movs []model.MovimientoCaja
	err := tx.Where("sesion_caja_id = ?", sesionCajaID).Order("created_at DESC").Find(&movs).Error
	return movs, err
}

func (r *cajaRepo) SumPagosPorMetodoTx(tx *gorm.DB, sesionCajaID uuid.UUID) (TotalesPago, error) {
	var rows []struct {
		Metodo model.MetodoPago
		Total  decimal.Decimal
	}
	err := tx.Table("pagos_pedido pp").
		Select("pp.metodo, COALESCE(SUM(pp.monto), 0) AS total").
		Joins("JOIN pedidos p ON p.id = pp.pedido_id").
		Where("p.sesion_caja_id = ?", sesionCajaID).
		Group("pp.metodo").
		Scan(&rows).Error
	if err != nil {
		return TotalesPago{}, err
	}
	var t TotalesPago
	for _, row := range rows {
		t = t.Sumar(row.Metodo, row.Total)
	}
	return t, nil
}

// Sumar returns t with monto added to the bucket of metodo.
func (t TotalesPago) Sumar(metodo model.MetodoPago, monto decimal.Decimal) TotalesPago {
	switch metodo {
	case model.MetodoEfectivo:
		t.Efectivo = t.Efectivo.Add(monto)
	case model.MetodoQR:
		t.QR = t.QR.Add(monto)
	case model.MetodoTarjeta:
		t.Tarjeta = t.Tarjeta.Add(monto)
	default:
		t.Otro = t.Otro.Add(monto)
	}
	return t
}

// Neg flips the sign of every bucket.
func (t TotalesPago) Neg() TotalesPago {
	return TotalesPago{Efectivo: t.Efectivo.Neg(), QR: t.QR.Neg(), Tarjeta: t.Tarjeta.Neg(), Otro: t.Otro.Neg()}
}
