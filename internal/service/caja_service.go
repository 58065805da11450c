package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"puntoventa/internal/dto"
	"puntoventa/internal/infra"
	"puntoventa/internal/model"
	"puntoventa/internal/repository"
	"puntoventa/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PagoVenta is one classified payment of an order, as recorded by the register.
type PagoVenta struct {
	Metodo model.MetodoPago
	Monto  decimal.Decimal
}

type CajaService interface {
	Abrir(ctx context.Context, usuarioID uuid.UUID, req dto.AbrirCajaRequest) (*dto.ResumenCajaResponse, error)
	// RegistrarVentaTx adds an order's payments to the operator's open session
	// inside the caller's transaction and returns that session's id.
	RegistrarVentaTx(ctx context.Context, tx *gorm.DB, usuarioID uuid.UUID, pagos []PagoVenta) (uuid.UUID, error)
	// RevertirVentaTx subtracts an order's payments from the running totals of
	// sesionID if it is still open. It is a no-op for closed sessions.
	RevertirVentaTx(ctx context.Context, tx *gorm.DB, sesionID uuid.UUID, pagos []PagoVenta) error
	RegistrarMovimiento(ctx context.Context, usuarioID, sesionID uuid.UUID, req dto.MovimientoCajaRequest) (*dto.MovimientoCajaResponse, error)
	Cerrar(ctx context.Context, usuarioID uuid.UUID) (*dto.ResumenCajaResponse, error)
	EstadoActual(ctx context.Context, usuarioID uuid.UUID) (*dto.ResumenCajaResponse, error)

	ObtenerSesion(ctx context.Context, usuarioID, sesionID uuid.UUID) (*dto.ResumenCajaResponse, error)
	Historial(ctx context.Context, usuarioID uuid.UUID, page, limit int) (*dto.HistorialCajaResponse, error)
	ListarMovimientos(ctx context.Context, usuarioID, sesionID uuid.UUID) ([]dto.MovimientoCajaResponse, error)
	TransaccionesEfectivo(ctx context.Context, usuarioID, sesionID uuid.UUID) (*dto.TransaccionesEfectivoResponse, error)
	ReportePDF(ctx context.Context, usuarioID, sesionID uuid.UUID) ([]byte, error)
}

type cajaService struct {
	uow        repository.UnitOfWork
	repo       repository.CajaRepository
	dispatcher JobDispatcher
	now        Clock
}

func NewCajaService(uow repository.UnitOfWork, repo repository.CajaRepository, dispatcher JobDispatcher) CajaService {
	return &cajaService{uow: uow, repo: repo, dispatcher: dispatcher, now: utcNow}
}

// ── Abrir ─────────────────────────────────────────────────────────────────────
// The guard query gives a friendly error; the partial unique index
// idx_sesiones_caja_una_abierta is what actually prevents two open sessions.

func (s *cajaService) Abrir(ctx context.Context, usuarioID uuid.UUID, req dto.AbrirCajaRequest) (*dto.ResumenCajaResponse, error) {
	if req.MontoInicial.IsNegative() {
		return nil, validacion("el monto inicial no puede ser negativo")
	}

	sesion := &model.SesionCaja{
		UsuarioID:     usuarioID,
		MontoInicial:  req.MontoInicial,
		Estado:        model.EstadoCajaAbierta,
		FechaApertura: s.now(),
	}
	err := s.uow.Do(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.FindAbiertaTx(tx, usuarioID, false); err == nil {
			return ErrCajaYaAbierta
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := s.repo.CreateSesionTx(tx, sesion); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrCajaYaAbierta
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("usuario_id", usuarioID.String()).Str("sesion_caja_id", sesion.ID.String()).
		Str("monto_inicial", sesion.MontoInicial.StringFixed(2)).Msg("caja abierta")
	return resumen(sesion, nil), nil
}

// ── RegistrarVentaTx ──────────────────────────────────────────────────────────

func (s *cajaService) RegistrarVentaTx(ctx context.Context, tx *gorm.DB, usuarioID uuid.UUID, pagos []PagoVenta) (uuid.UUID, error) {
	sesion, err := s.repo.FindAbiertaTx(tx, usuarioID, true)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, ErrSinCajaAbierta
		}
		return uuid.Nil, err
	}

	delta := totalesDePagos(pagos)
	if !delta.Otro.IsZero() {
		log.Warn().Str("sesion_caja_id", sesion.ID.String()).Str("monto", delta.Otro.StringFixed(2)).
			Msg("pago con medio no reconocido, no suma a los totales de caja")
	}
	if err := s.repo.SumarTotalesTx(tx, sesion.ID, delta); err != nil {
		return uuid.Nil, err
	}
	return sesion.ID, nil
}

func (s *cajaService) RevertirVentaTx(ctx context.Context, tx *gorm.DB, sesionID uuid.UUID, pagos []PagoVenta) error {
	sesion, err := s.repo.FindByIDForUpdateTx(tx, sesionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if !sesion.Abierta() {
		// The closing snapshot is immutable.
		log.Info().Str("sesion_caja_id", sesionID.String()).Msg("pedido de caja cerrada eliminado, totales sin cambios")
		return nil
	}
	return s.repo.SumarTotalesTx(tx, sesionID, totalesDePagos(pagos).Neg())
}

// ── RegistrarMovimiento ───────────────────────────────────────────────────────
// Manual ingreso / retiro. Movements are never updated or deleted.

func (s *cajaService) RegistrarMovimiento(ctx context.Context, usuarioID, sesionID uuid.UUID, req dto.MovimientoCajaRequest) (*dto.MovimientoCajaResponse, error) {
	if req.Tipo != model.MovimientoIngreso && req.Tipo != model.MovimientoRetiro {
		return nil, validacion("tipo debe ser ingreso o retiro")
	}
	if !req.Monto.IsPositive() {
		return nil, validacion("el monto debe ser mayor a cero")
	}

	mov := &model.MovimientoCaja{
		SesionCajaID: sesionID,
		Tipo:         req.Tipo,
		Monto:        req.Monto,
		Descripcion:  req.Descripcion,
		CreatedAt:    s.now(),
	}
	err := s.uow.Do(ctx, func(tx *gorm.DB) error {
		sesion, err := s.repo.FindByIDForUpdateTx(tx, sesionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSesionNoEncontrada
			}
			return err
		}
		if sesion.UsuarioID != usuarioID {
			return ErrSesionNoEncontrada
		}
		if !sesion.Abierta() {
			return ErrCajaCerrada
		}
		if err := s.repo.CreateMovimientoTx(tx, mov); err != nil {
			return err
		}
		ingreso, retiro := decimal.Zero, decimal.Zero
		if mov.Tipo == model.MovimientoIngreso {
			ingreso = mov.Monto
		} else {
			retiro = mov.Monto
		}
		return s.repo.SumarMovimientoTx(tx, sesionID, ingreso, retiro)
	})
	if err != nil {
		return nil, err
	}

	resp := movimientoToResponse(*mov)
	return &resp, nil
}

// ── Cerrar ────────────────────────────────────────────────────────────────────
// Totals are recomputed from the payment and movement rows rather than
// trusted from the running counters, then persisted as the closing snapshot.

func (s *cajaService) Cerrar(ctx context.Context, usuarioID uuid.UUID) (*dto.ResumenCajaResponse, error) {
	var sesion *model.SesionCaja
	err := s.uow.Do(ctx, func(tx *gorm.DB) error {
		var err error
		sesion, err = s.repo.FindAbiertaTx(tx, usuarioID, true)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSinCajaAbierta
			}
			return err
		}
		if _, err = s.calcularTotalesTx(tx, sesion); err != nil {
			return err
		}
		cierre := s.now()
		sesion.FechaCierre = &cierre
		sesion.Estado = model.EstadoCajaCerrada
		return s.repo.GuardarCierreTx(tx, sesion)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("usuario_id", usuarioID.String()).Str("sesion_caja_id", sesion.ID.String()).
		Str("monto_final", sesion.MontoFinal.StringFixed(2)).Msg("caja cerrada")

	if s.dispatcher != nil {
		payload := worker.CajaCerradaPayload{SesionCajaID: sesion.ID.String(), UsuarioID: usuarioID.String()}
		if err := s.dispatcher.EnqueueCajaCerrada(ctx, payload); err != nil {
			log.Error().Err(err).Str("sesion_caja_id", sesion.ID.String()).Msg("no se pudo encolar el reporte de cierre")
		}
	}
	return resumen(sesion, nil), nil
}

// ── EstadoActual ──────────────────────────────────────────────────────────────

func (s *cajaService) EstadoActual(ctx context.Context, usuarioID uuid.UUID) (*dto.ResumenCajaResponse, error) {
	var sesion *model.SesionCaja
	var movs []model.MovimientoCaja
	err := s.uow.Do(ctx, func(tx *gorm.DB) error {
		var err error
		sesion, err = s.repo.FindAbiertaTx(tx, usuarioID, false)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSinCajaAbierta
			}
			return err
		}
		movs, err = s.calcularTotalesTx(tx, sesion)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resumen(sesion, movs), nil
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func (s *cajaService) ObtenerSesion(ctx context.Context, usuarioID, sesionID uuid.UUID) (*dto.ResumenCajaResponse, error) {
	sesion, movs, err := s.sesionConTotales(ctx, usuarioID, sesionID)
	if err != nil {
		return nil, err
	}
	return resumen(sesion, movs), nil
}

func (s *cajaService) Historial(ctx context.Context, usuarioID uuid.UUID, page, limit int) (*dto.HistorialCajaResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	sesiones, total, err := s.repo.Historial(ctx, usuarioID, page, limit)
	if err != nil {
		return nil, err
	}
	data := make([]dto.ResumenCajaResponse, 0, len(sesiones))
	for i := range sesiones {
		data = append(data, *resumen(&sesiones[i], nil))
	}
	return &dto.HistorialCajaResponse{Data: data, Total: total, Page: page, Limit: limit}, nil
}

func (s *cajaService) ListarMovimientos(ctx context.Context, usuarioID, sesionID uuid.UUID) ([]dto.MovimientoCajaResponse, error) {
	if _, err := s.sesionPropia(ctx, usuarioID, sesionID); err != nil {
		return nil, err
	}
	movs, err := s.repo.ListMovimientos(ctx, sesionID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.MovimientoCajaResponse, 0, len(movs))
	for _, m := range movs {
		out = append(out, movimientoToResponse(m))
	}
	return out, nil
}

func (s *cajaService) TransaccionesEfectivo(ctx context.Context, usuarioID, sesionID uuid.UUID) (*dto.TransaccionesEfectivoResponse, error) {
	if _, err := s.sesionPropia(ctx, usuarioID, sesionID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListPagosEfectivo(ctx, sesionID)
	if err != nil {
		return nil, err
	}
	resp := &dto.TransaccionesEfectivoResponse{
		Total:         decimal.Zero,
		Transacciones: make([]dto.TransaccionEfectivoResponse, 0, len(rows)),
	}
	for _, r := range rows {
		resp.Total = resp.Total.Add(r.Monto)
		resp.Transacciones = append(resp.Transacciones, dto.TransaccionEfectivoResponse{
			ID:       r.ID.String(),
			PedidoID: r.PedidoID.String(),
			Fecha:    r.Fecha.Format("2006-01-02 15:04"),
			TipoPago: r.MetodoOriginal,
			Monto:    r.Monto,
		})
	}
	return resp, nil
}

func (s *cajaService) ReportePDF(ctx context.Context, usuarioID, sesionID uuid.UUID) ([]byte, error) {
	sesion, movs, err := s.sesionConTotales(ctx, usuarioID, sesionID)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := infra.RenderCierrePDF(&buf, sesion, movs); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// calcularTotalesTx overwrites sesion's totals with values aggregated from
// its payments and movements and sets MontoFinal:
//
//	montoFinal = montoInicial + efectivo + (ingresos - retiros) - devoluciones + ajustes
//
// Devoluciones and ajustes are kept as stored (always zero today).
func (s *cajaService) calcularTotalesTx(tx *gorm.DB, sesion *model.SesionCaja) ([]model.MovimientoCaja, error) {
	pagos, err := s.repo.SumPagosPorMetodoTx(tx, sesion.ID)
	if err != nil {
		return nil, fmt.Errorf("sumar pagos: %w", err)
	}
	movs, err := s.repo.ListMovimientosTx(tx, sesion.ID)
	if err != nil {
		return nil, fmt.Errorf("listar movimientos: %w", err)
	}

	ingresos, retiros := decimal.Zero, decimal.Zero
	for _, m := range movs {
		switch m.Tipo {
		case model.MovimientoIngreso:
			ingresos = ingresos.Add(m.Monto)
		case model.MovimientoRetiro:
			retiros = retiros.Add(m.Monto)
		}
	}

	sesion.TotalEfectivo = pagos.Efectivo
	sesion.TotalQR = pagos.QR
	sesion.TotalTarjeta = pagos.Tarjeta
	sesion.TotalIngresos = ingresos
	sesion.TotalRetiros = retiros
	sesion.TotalMovimientoEfectivo = ingresos.Sub(retiros)

	final := sesion.MontoInicial.
		Add(sesion.TotalEfectivo).
		Add(sesion.TotalMovimientoEfectivo).
		Sub(sesion.TotalDevoluciones).
		Add(sesion.TotalAjustes)
	sesion.MontoFinal = &final
	return movs, nil
}

// sesionConTotales loads an operator's session. Open sessions get live
// totals; closed ones return their stored snapshot.
func (s *cajaService) sesionConTotales(ctx context.Context, usuarioID, sesionID uuid.UUID) (*model.SesionCaja, []model.MovimientoCaja, error) {
	var sesion *model.SesionCaja
	var movs []model.MovimientoCaja
	err := s.uow.Do(ctx, func(tx *gorm.DB) error {
		var err error
		sesion, err = s.sesionPropiaTx(tx, usuarioID, sesionID)
		if err != nil {
			return err
		}
		if sesion.Abierta() {
			movs, err = s.calcularTotalesTx(tx, sesion)
			return err
		}
		movs, err = s.repo.ListMovimientosTx(tx, sesionID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return sesion, movs, nil
}

func (s *cajaService) sesionPropia(ctx context.Context, usuarioID, sesionID uuid.UUID) (*model.SesionCaja, error) {
	sesion, err := s.repo.FindByID(ctx, sesionID)
	return sesionDelOperador(sesion, err, usuarioID)
}

// sesionPropiaTx reads the session through tx so it shares a snapshot with
// the totals computed next to it.
func (s *cajaService) sesionPropiaTx(tx *gorm.DB, usuarioID, sesionID uuid.UUID) (*model.SesionCaja, error) {
	sesion, err := s.repo.FindByIDTx(tx, sesionID)
	return sesionDelOperador(sesion, err, usuarioID)
}

func sesionDelOperador(sesion *model.SesionCaja, err error, usuarioID uuid.UUID) (*model.SesionCaja, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSesionNoEncontrada
		}
		return nil, err
	}
	if sesion.UsuarioID != usuarioID {
		return nil, ErrSesionNoEncontrada
	}
	return sesion, nil
}

func totalesDePagos(pagos []PagoVenta) repository.TotalesPago {
	var t repository.TotalesPago
	for _, p := range pagos {
		t = t.Sumar(p.Metodo, p.Monto)
	}
	return t
}

func resumen(s *model.SesionCaja, movs []model.MovimientoCaja) *dto.ResumenCajaResponse {
	r := &dto.ResumenCajaResponse{
		ID:                      s.ID.String(),
		Estado:                  s.Estado,
		MontoInicial:            s.MontoInicial,
		FechaApertura:           s.FechaApertura.UTC().Format(time.RFC3339),
		TotalEfectivo:           s.TotalEfectivo,
		TotalQR:                 s.TotalQR,
		TotalTarjeta:            s.TotalTarjeta,
		TotalIngresos:           s.TotalIngresos,
		TotalRetiros:            s.TotalRetiros,
		TotalMovimientoEfectivo: s.TotalMovimientoEfectivo,
		TotalDevoluciones:       s.TotalDevoluciones,
		TotalAjustes:            s.TotalAjustes,
		MontoFinal:              s.MontoInicial,
	}
	if s.MontoFinal != nil {
		r.MontoFinal = *s.MontoFinal
	}
	if s.FechaCierre != nil {
		t := s.FechaCierre.UTC().Format(time.RFC3339)
		r.FechaCierre = &t
	}
	if movs != nil {
		r.MovimientosEfectivo = make([]dto.MovimientoCajaResponse, 0, len(movs))
		for _, m := range movs {
			r.MovimientosEfectivo = append(r.MovimientosEfectivo, movimientoToResponse(m))
		}
	}
	return r
}

func movimientoToResponse(m model.MovimientoCaja) dto.MovimientoCajaResponse {
	return dto.MovimientoCajaResponse{
		ID:          m.ID.String(),
		Tipo:        m.Tipo,
		Monto:       m.Monto,
		Descripcion: m.Descripcion,
		Fecha:       m.CreatedAt.UTC().Format(time.RFC3339),
	}
}
