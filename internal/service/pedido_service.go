package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"puntoventa/internal/dto"
	"puntoventa/internal/model"
	"puntoventa/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PedidoService orchestrates an order across the stock ledger and the
// operator's register session.
type PedidoService interface {
	Crear(ctx context.Context, usuarioID uuid.UUID, req dto.CrearPedidoRequest) (*dto.PedidoResponse, error)
	Eliminar(ctx context.Context, usuarioID, pedidoID uuid.UUID) error
	Obtener(ctx context.Context, usuarioID, pedidoID uuid.UUID) (*dto.PedidoResponse, error)
	Listar(ctx context.Context, usuarioID uuid.UUID, filter dto.PedidoFilter) (*dto.PedidoListResponse, error)
}

type pedidoService struct {
	uow    repository.UnitOfWork
	repo   repository.PedidoRepository
	ledger StockLedger
	caja   CajaService
	now    Clock
}

func NewPedidoService(uow repository.UnitOfWork, repo repository.PedidoRepository, ledger StockLedger, caja CajaService) PedidoService {
	return &pedidoService{uow: uow, repo: repo, ledger: ledger, caja: caja, now: utcNow}
}

// ── Crear ─────────────────────────────────────────────────────────────────────
// Everything below runs in one transaction:
//  1. ledger deducts stock for all lines (validate-all-then-deduct-all)
//  2. prices come from the product rows read by the ledger
//  3. payments are added to the operator's open session (ErrSinCajaAbierta otherwise)
//  4. pedido + detalles + pagos are inserted
// Any error rolls back stock, totals and the order.

func (s *pedidoService) Crear(ctx context.Context, usuarioID uuid.UUID, req dto.CrearPedidoRequest) (*dto.PedidoResponse, error) {
	lineas, err := lineasDePedido(req.Detalles)
	if err != nil {
		return nil, err
	}
	pagos, err := pagosDePedido(req.Pagos)
	if err != nil {
		return nil, err
	}

	pedido := &model.Pedido{
		ID:        uuid.New(),
		UsuarioID: usuarioID,
		Fecha:     s.now(),
	}
	var reserva *Reserva
	err = s.uow.Do(ctx, func(tx *gorm.DB) error {
		var err error
		reserva, err = s.ledger.ReservarYDescontarTx(ctx, tx, usuarioID, lineas, &pedido.ID)
		if err != nil {
			return err
		}

		total := decimal.Zero
		for _, ln := range lineas {
			p := reserva.Productos[ln.ProductoID]
			subtotal := p.PrecioVenta.Mul(decimal.NewFromInt(int64(ln.Cantidad)))
			total = total.Add(subtotal)
			prod := p
			pedido.Detalles = append(pedido.Detalles, model.DetallePedido{
				ProductoID:     ln.ProductoID,
				Cantidad:       ln.Cantidad,
				PrecioUnitario: p.PrecioVenta,
				Subtotal:       subtotal,
				Producto:       &prod,
			})
		}
		pedido.Total = total

		ventas := make([]PagoVenta, 0, len(pagos))
		for _, pg := range pagos {
			ventas = append(ventas, PagoVenta{Metodo: pg.Metodo, Monto: pg.Monto})
		}
		sesionID, err := s.caja.RegistrarVentaTx(ctx, tx, usuarioID, ventas)
		if err != nil {
			return err
		}
		pedido.SesionCajaID = &sesionID
		pedido.Pagos = pagos

		return s.repo.CreateTx(tx, pedido)
	})
	if err != nil {
		return nil, err
	}

	if pagado := sumarPagos(pedido.Pagos); !pagado.Equal(pedido.Total) {
		log.Debug().Str("pedido_id", pedido.ID.String()).Str("total", pedido.Total.StringFixed(2)).
			Str("pagado", pagado.StringFixed(2)).Msg("la suma de pagos no coincide con el total")
	}
	log.Info().Str("pedido_id", pedido.ID.String()).Str("usuario_id", usuarioID.String()).
		Str("total", pedido.Total.StringFixed(2)).Int("lineas", len(pedido.Detalles)).Msg("pedido creado")

	s.ledger.NotificarBajoMinimo(ctx, reserva)

	resp := pedidoToResponse(pedido)
	resp.Deducciones = reserva.Deducciones
	return resp, nil
}

// ── Eliminar ──────────────────────────────────────────────────────────────────

func (s *pedidoService) Eliminar(ctx context.Context, usuarioID, pedidoID uuid.UUID) error {
	err := s.uow.Do(ctx, func(tx *gorm.DB) error {
		pedido, err := s.repo.FindByIDForUpdateTx(tx, usuarioID, pedidoID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPedidoNoEncontrado
			}
			return err
		}

		if len(pedido.Detalles) > 0 {
			lineas := make([]LineaStock, 0, len(pedido.Detalles))
			for _, d := range pedido.Detalles {
				lineas = append(lineas, LineaStock{ProductoID: d.ProductoID, Cantidad: d.Cantidad})
			}
			if err := s.ledger.RestaurarTx(ctx, tx, usuarioID, lineas, &pedido.ID); err != nil {
				return err
			}
		}

		if pedido.SesionCajaID != nil && len(pedido.Pagos) > 0 {
			ventas := make([]PagoVenta, 0, len(pedido.Pagos))
			for _, pg := range pedido.Pagos {
				ventas = append(ventas, PagoVenta{Metodo: pg.Metodo, Monto: pg.Monto})
			}
			if err := s.caja.RevertirVentaTx(ctx, tx, *pedido.SesionCajaID, ventas); err != nil {
				return err
			}
		}

		return s.repo.DeleteTx(tx, pedido.ID)
	})
	if err != nil {
		return err
	}
	log.Info().Str("pedido_id", pedidoID.String()).Str("usuario_id", usuarioID.String()).Msg("pedido eliminado, stock restaurado")
	return nil
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func (s *pedidoService) Obtener(ctx context.Context, usuarioID, pedidoID uuid.UUID) (*dto.PedidoResponse, error) {
	p, err := s.repo.FindByID(ctx, usuarioID, pedidoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPedidoNoEncontrado
		}
		return nil, err
	}
	return pedidoToResponse(p), nil
}

func (s *pedidoService) Listar(ctx context.Context, usuarioID uuid.UUID, filter dto.PedidoFilter) (*dto.PedidoListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 200 {
		filter.Limit = 50
	}
	pedidos, total, err := s.repo.List(ctx, usuarioID, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.PedidoResponse, 0, len(pedidos))
	for i := range pedidos {
		data = append(data, *pedidoToResponse(&pedidos[i]))
	}
	return &dto.PedidoListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func lineasDePedido(detalles []dto.DetallePedidoRequest) ([]LineaStock, error) {
	if len(detalles) == 0 {
		return nil, validacion("el pedido debe tener al menos un producto")
	}
	out := make([]LineaStock, 0, len(detalles))
	for i, d := range detalles {
		id, err := uuid.Parse(d.ProductoID)
		if err != nil {
			return nil, validacion("detalle %d: producto_id inválido", i+1)
		}
		if d.Cantidad <= 0 {
			return nil, validacion("detalle %d: la cantidad debe ser mayor a cero", i+1)
		}
		out = append(out, LineaStock{ProductoID: id, Cantidad: d.Cantidad})
	}
	return out, nil
}

func pagosDePedido(reqs []dto.PagoPedidoRequest) ([]model.PagoPedido, error) {
	out := make([]model.PagoPedido, 0, len(reqs))
	for i, r := range reqs {
		if !r.Monto.IsPositive() {
			return nil, validacion("pago %d: el monto debe ser mayor a cero", i+1)
		}
		nombre := strings.TrimSpace(r.Metodo)
		metodo, ok := model.ParseMetodoPago(nombre)
		if !ok {
			log.Warn().Str("metodo", nombre).Msg("medio de pago no reconocido, se registra como otro")
		}
		out = append(out, model.PagoPedido{
			Metodo:         metodo,
			MetodoOriginal: nombre,
			Monto:          r.Monto.Round(2),
		})
	}
	return out, nil
}

func sumarPagos(pagos []model.PagoPedido) decimal.Decimal {
	total := decimal.Zero
	for _, p := range pagos {
		total = total.Add(p.Monto)
	}
	return total
}

func pedidoToResponse(p *model.Pedido) *dto.PedidoResponse {
	resp := &dto.PedidoResponse{
		ID:       p.ID.String(),
		Fecha:    p.Fecha.UTC().Format(time.RFC3339),
		Total:    p.Total,
		Detalles: make([]dto.DetallePedidoResponse, 0, len(p.Detalles)),
		Pagos:    make([]dto.PagoPedidoResponse, 0, len(p.Pagos)),
	}
	if p.SesionCajaID != nil {
		id := p.SesionCajaID.String()
		resp.SesionCajaID = &id
	}
	for _, d := range p.Detalles {
		item := dto.DetallePedidoResponse{
			ProductoID:     d.ProductoID.String(),
			Cantidad:       d.Cantidad,
			PrecioUnitario: d.PrecioUnitario,
			Subtotal:       d.Subtotal,
		}
		if d.Producto != nil {
			item.Producto = d.Producto.Nombre
		}
		resp.Detalles = append(resp.Detalles, item)
	}
	for _, pg := range p.Pagos {
		resp.Pagos = append(resp.Pagos, dto.PagoPedidoResponse{
			Metodo:         string(pg.Metodo),
			MetodoOriginal: pg.MetodoOriginal,
			Monto:          pg.Monto,
		})
	}
	return resp
}
