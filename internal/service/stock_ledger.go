package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"puntoventa/internal/dto"
	"puntoventa/internal/model"
	"puntoventa/internal/repository"
	"puntoventa/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// LineaStock is one (product, quantity) pair handed to the ledger.
type LineaStock struct {
	ProductoID uuid.UUID
	Cantidad   int
}

// Reserva is the outcome of a committed-to-be deduction. Productos holds the
// rows read under lock so callers can price the order without a second read.
type Reserva struct {
	Deducciones []dto.DeduccionStockResponse
	Productos   map[uuid.UUID]model.Producto

	bajoMinimo []worker.StockBajoPayload
}

// StockLedger is the only component allowed to change Inventario.stock.
type StockLedger interface {
	// ReservarYDescontar validates every line under row locks and deducts all
	// of them, or none, in its own transaction.
	ReservarYDescontar(ctx context.Context, usuarioID uuid.UUID, lineas []LineaStock) (*Reserva, error)
	// ReservarYDescontarTx does the same inside the caller's transaction.
	// The caller must call NotificarBajoMinimo after committing.
	ReservarYDescontarTx(ctx context.Context, tx *gorm.DB, usuarioID uuid.UUID, lineas []LineaStock, ref *uuid.UUID) (*Reserva, error)
	// Restaurar adds quantities back; a missing inventory record is created.
	Restaurar(ctx context.Context, usuarioID uuid.UUID, lineas []LineaStock) error
	RestaurarTx(ctx context.Context, tx *gorm.DB, usuarioID uuid.UUID, lineas []LineaStock, ref *uuid.UUID) error
	// AltaTx creates the inventory record of a new product with its initial stock.
	AltaTx(ctx context.Context, tx *gorm.DB, producto model.Producto, stock, minima, maxima int) (model.Inventario, error)
	// IngresarTx adds stock to an existing product (product re-registration).
	// A missing inventory record is created.
	IngresarTx(ctx context.Context, tx *gorm.DB, producto model.Producto, cantidad int, motivo string) (model.Inventario, error)
	// AjustarAbsoluto overwrites the stock of one product.
	AjustarAbsoluto(ctx context.Context, usuarioID, productoID uuid.UUID, nuevaCantidad int, motivo string) (*dto.InventarioResponse, error)

	ObtenerInventario(ctx context.Context, usuarioID, productoID uuid.UUID) (*dto.InventarioResponse, error)
	Alertas(ctx context.Context, usuarioID uuid.UUID) ([]dto.AlertaStockResponse, error)
	ListarMovimientos(ctx context.Context, usuarioID uuid.UUID, filter dto.MovimientoStockFilter) (*dto.MovimientoStockListResponse, error)

	// NotificarBajoMinimo enqueues a stock_bajo job per product the reserva
	// left below its minimum. Best effort: failures are only logged.
	NotificarBajoMinimo(ctx context.Context, r *Reserva)
}

type stockLedger struct {
	uow          repository.UnitOfWork
	productoRepo repository.ProductoRepository
	invRepo      repository.InventarioRepository
	movRepo      repository.MovimientoStockRepository
	dispatcher   JobDispatcher
}

func NewStockLedger(
	uow repository.UnitOfWork,
	productoRepo repository.ProductoRepository,
	invRepo repository.InventarioRepository,
	movRepo repository.MovimientoStockRepository,
	dispatcher JobDispatcher,
) StockLedger {
	return &stockLedger{
		uow:          uow,
		productoRepo: productoRepo,
		invRepo:      invRepo,
		movRepo:      movRepo,
		dispatcher:   dispatcher,
	}
}

// ── ReservarYDescontar ────────────────────────────────────────────────────────

func (l *stockLedger) ReservarYDescontar(ctx context.Context, usuarioID uuid.UUID, lineas []LineaStock) (*Reserva, error) {
	if _, _, err := consolidar(lineas); err != nil {
		return nil, err
	}
	var reserva *Reserva
	err := l.uow.Do(ctx, func(tx *gorm.DB) error {
		var err error
		reserva, err = l.ReservarYDescontarTx(ctx, tx, usuarioID, lineas, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	l.NotificarBajoMinimo(ctx, reserva)
	return reserva, nil
}

// ReservarYDescontarTx:
//  1. merge duplicate lines so the check sees the real demand
//  2. lock every Inventario row (ascending producto_id)
//  3. validate all lines, in request order
//  4. deduct all lines and write one MovimientoStock each
func (l *stockLedger) ReservarYDescontarTx(ctx context.Context, tx *gorm.DB, usuarioID uuid.UUID, lineas []LineaStock, ref *uuid.UUID) (*Reserva, error) {
	orden, cantidades, err := consolidar(lineas)
	if err != nil {
		return nil, err
	}
	ids := idsOrdenados(orden)

	productos, err := l.productosPorID(tx, usuarioID, ids)
	if err != nil {
		return nil, err
	}
	inventarios, err := l.bloquear(tx, ids)
	if err != nil {
		return nil, err
	}

	for _, id := range orden {
		p, ok := productos[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrProductoNoEncontrado, id)
		}
		inv, ok := inventarios[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrSinInventario, p.Nombre)
		}
		if cantidades[id] > inv.Stock {
			return nil, &StockInsuficienteError{
				ProductoID: id,
				Nombre:     p.Nombre,
				Disponible: inv.Stock,
				Solicitado: cantidades[id],
			}
		}
	}

	reserva := &Reserva{Productos: productos}
	for _, id := range orden {
		inv := inventarios[id]
		cant := cantidades[id]
		nuevo := inv.Stock - cant

		if err := l.invRepo.UpdateStockTx(tx, id, -cant); err != nil {
			return nil, fmt.Errorf("descontar stock de %s: %w", productos[id].Nombre, err)
		}
		mov := &model.MovimientoStock{
			ProductoID:    id,
			Tipo:          model.MovStockVenta,
			Cantidad:      -cant,
			StockAnterior: inv.Stock,
			StockNuevo:    nuevo,
			Motivo:        "Pedido",
			ReferenciaID:  ref,
		}
		if err := l.movRepo.CreateTx(tx, mov); err != nil {
			return nil, err
		}

		reserva.Deducciones = append(reserva.Deducciones, dto.DeduccionStockResponse{
			ProductoID:    id.String(),
			Producto:      productos[id].Nombre,
			Cantidad:      cant,
			StockAnterior: inv.Stock,
			StockNuevo:    nuevo,
		})
		if nuevo < inv.CantidadMinima {
			reserva.bajoMinimo = append(reserva.bajoMinimo, worker.StockBajoPayload{
				UsuarioID:      usuarioID.String(),
				ProductoID:     id.String(),
				Producto:       productos[id].Nombre,
				Stock:          nuevo,
				CantidadMinima: inv.CantidadMinima,
			})
		}
	}
	return reserva, nil
}

// ── Restaurar ─────────────────────────────────────────────────────────────────

func (l *stockLedger) Restaurar(ctx context.Context, usuarioID uuid.UUID, lineas []LineaStock) error {
	return l.uow.Do(ctx, func(tx *gorm.DB) error {
		return l.RestaurarTx(ctx, tx, usuarioID, lineas, nil)
	})
}

func (l *stockLedger) RestaurarTx(ctx context.Context, tx *gorm.DB, usuarioID uuid.UUID, lineas []LineaStock, ref *uuid.UUID) error {
	if len(lineas) == 0 {
		return nil
	}
	orden, cantidades, err := consolidar(lineas)
	if err != nil {
		return err
	}
	ids := idsOrdenados(orden)

	productos, err := l.productosPorID(tx, usuarioID, ids)
	if err != nil {
		return err
	}
	inventarios, err := l.bloquear(tx, ids)
	if err != nil {
		return err
	}

	for _, id := range orden {
		cant := cantidades[id]
		p, ok := productos[id]
		if !ok {
			// Nothing to attach an inventory record to.
			log.Warn().Str("producto_id", id.String()).Int("cantidad", cant).
				Msg("restaurar: producto inexistente, se omite la línea")
			continue
		}

		inv, ok := inventarios[id]
		if !ok {
			log.Warn().Str("producto_id", id.String()).Str("producto", p.Nombre).Int("cantidad", cant).
				Msg("restaurar: producto sin inventario, se crea el registro")
			if err := l.invRepo.CreateTx(tx, &model.Inventario{ProductoID: id, Stock: cant}); err != nil {
				return fmt.Errorf("crear inventario de %s: %w", p.Nombre, err)
			}
			if err := l.movRepo.CreateTx(tx, &model.MovimientoStock{
				ProductoID:    id,
				Tipo:          model.MovStockRestoreFabricado,
				Cantidad:      cant,
				StockAnterior: 0,
				StockNuevo:    cant,
				Motivo:        "Eliminación de pedido (inventario creado)",
				ReferenciaID:  ref,
			}); err != nil {
				return err
			}
			continue
		}

		if err := l.invRepo.UpdateStockTx(tx, id, cant); err != nil {
			return fmt.Errorf("restaurar stock de %s: %w", p.Nombre, err)
		}
		if err := l.movRepo.CreateTx(tx, &model.MovimientoStock{
			ProductoID:    id,
			Tipo:          model.MovStockRestorePedido,
			Cantidad:      cant,
			StockAnterior: inv.Stock,
			StockNuevo:    inv.Stock + cant,
			Motivo:        "Eliminación de pedido",
			ReferenciaID:  ref,
		}); err != nil {
			return err
		}
	}
	return nil
}

// ── Altas ─────────────────────────────────────────────────────────────────────

func (l *stockLedger) AltaTx(ctx context.Context, tx *gorm.DB, producto model.Producto, stock, minima, maxima int) (model.Inventario, error) {
	if stock < 0 || minima < 0 || maxima < 0 {
		return model.Inventario{}, validacion("stock y umbrales no pueden ser negativos")
	}
	inv := model.Inventario{
		ProductoID:     producto.ID,
		Stock:          stock,
		CantidadMinima: minima,
		CantidadMaxima: maxima,
	}
	if err := l.invRepo.CreateTx(tx, &inv); err != nil {
		return model.Inventario{}, fmt.Errorf("crear inventario de %s: %w", producto.Nombre, err)
	}
	err := l.movRepo.CreateTx(tx, &model.MovimientoStock{
		ProductoID:    producto.ID,
		Tipo:          model.MovStockAltaProducto,
		Cantidad:      stock,
		StockAnterior: 0,
		StockNuevo:    stock,
		Motivo:        "Alta de producto",
	})
	return inv, err
}

func (l *stockLedger) IngresarTx(ctx context.Context, tx *gorm.DB, producto model.Producto, cantidad int, motivo string) (model.Inventario, error) {
	if cantidad < 0 {
		return model.Inventario{}, validacion("la cantidad no puede ser negativa")
	}
	inventarios, err := l.bloquear(tx, []uuid.UUID{producto.ID})
	if err != nil {
		return model.Inventario{}, err
	}
	inv, ok := inventarios[producto.ID]
	if !ok {
		return l.AltaTx(ctx, tx, producto, cantidad, 0, 0)
	}
	if cantidad == 0 {
		return inv, nil
	}

	if err := l.invRepo.UpdateStockTx(tx, producto.ID, cantidad); err != nil {
		return model.Inventario{}, fmt.Errorf("ingresar stock de %s: %w", producto.Nombre, err)
	}
	if err := l.movRepo.CreateTx(tx, &model.MovimientoStock{
		ProductoID:    producto.ID,
		Tipo:          model.MovStockAltaProducto,
		Cantidad:      cantidad,
		StockAnterior: inv.Stock,
		StockNuevo:    inv.Stock + cantidad,
		Motivo:        motivo,
	}); err != nil {
		return model.Inventario{}, err
	}
	inv.Stock += cantidad
	return inv, nil
}

// ── AjustarAbsoluto ───────────────────────────────────────────────────────────

func (l *stockLedger) AjustarAbsoluto(ctx context.Context, usuarioID, productoID uuid.UUID, nuevaCantidad int, motivo string) (*dto.InventarioResponse, error) {
	if nuevaCantidad < 0 {
		return nil, validacion("el stock no puede ser negativo")
	}

	var resp *dto.InventarioResponse
	var bajo *worker.StockBajoPayload
	err := l.uow.Do(ctx, func(tx *gorm.DB) error {
		productos, err := l.productosPorID(tx, usuarioID, []uuid.UUID{productoID})
		if err != nil {
			return err
		}
		p, ok := productos[productoID]
		if !ok {
			return ErrProductoNoEncontrado
		}
		inventarios, err := l.bloquear(tx, []uuid.UUID{productoID})
		if err != nil {
			return err
		}

		inv, ok := inventarios[productoID]
		if !ok {
			inv = model.Inventario{ProductoID: productoID, Stock: nuevaCantidad}
			if err := l.invRepo.CreateTx(tx, &inv); err != nil {
				return err
			}
			inv.Stock = 0 // for the movement's StockAnterior
		} else if err := l.invRepo.SetStockTx(tx, productoID, nuevaCantidad); err != nil {
			return err
		}

		if err := l.movRepo.CreateTx(tx, &model.MovimientoStock{
			ProductoID:    productoID,
			Tipo:          model.MovStockAjusteManual,
			Cantidad:      nuevaCantidad - inv.Stock,
			StockAnterior: inv.Stock,
			StockNuevo:    nuevaCantidad,
			Motivo:        motivo,
		}); err != nil {
			return err
		}

		inv.Stock = nuevaCantidad
		resp = inventarioToResponse(p, inv)
		if nuevaCantidad < inv.CantidadMinima {
			bajo = &worker.StockBajoPayload{
				UsuarioID:      usuarioID.String(),
				ProductoID:     productoID.String(),
				Producto:       p.Nombre,
				Stock:          nuevaCantidad,
				CantidadMinima: inv.CantidadMinima,
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if bajo != nil {
		l.NotificarBajoMinimo(ctx, &Reserva{bajoMinimo: []worker.StockBajoPayload{*bajo}})
	}
	return resp, nil
}

// ── Lecturas ──────────────────────────────────────────────────────────────────

func (l *stockLedger) ObtenerInventario(ctx context.Context, usuarioID, productoID uuid.UUID) (*dto.InventarioResponse, error) {
	p, err := l.productoRepo.FindByID(ctx, usuarioID, productoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductoNoEncontrado
		}
		return nil, err
	}
	if p.Inventario == nil {
		return nil, fmt.Errorf("%w: %s", ErrSinInventario, p.Nombre)
	}
	return inventarioToResponse(*p, *p.Inventario), nil
}

func (l *stockLedger) Alertas(ctx context.Context, usuarioID uuid.UUID) ([]dto.AlertaStockResponse, error) {
	rows, err := l.invRepo.ListBajoMinimo(ctx, usuarioID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.AlertaStockResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.AlertaStockResponse{
			ProductoID:     r.ProductoID.String(),
			Producto:       r.Nombre,
			Stock:          r.Stock,
			CantidadMinima: r.CantidadMinima,
			Faltante:       r.CantidadMinima - r.Stock,
			PrecioCompra:   r.PrecioCompra,
		})
	}
	return out, nil
}

func (l *stockLedger) ListarMovimientos(ctx context.Context, usuarioID uuid.UUID, filter dto.MovimientoStockFilter) (*dto.MovimientoStockListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 500 {
		filter.Limit = 100
	}
	f := repository.MovimientoStockFilter{
		UsuarioID: usuarioID,
		Tipo:      filter.Tipo,
		Page:      filter.Page,
		Limit:     filter.Limit,
	}
	if filter.ProductoID != "" {
		pid, err := uuid.Parse(filter.ProductoID)
		if err != nil {
			return nil, validacion("producto_id inválido")
		}
		f.ProductoID = &pid
	}
	movs, total, err := l.movRepo.List(ctx, f)
	if err != nil {
		return nil, err
	}

	data := make([]dto.MovimientoStockResponse, 0, len(movs))
	for _, m := range movs {
		item := dto.MovimientoStockResponse{
			ID:            m.ID.String(),
			ProductoID:    m.ProductoID.String(),
			Tipo:          m.Tipo,
			Cantidad:      m.Cantidad,
			StockAnterior: m.StockAnterior,
			StockNuevo:    m.StockNuevo,
			Motivo:        m.Motivo,
			Fecha:         m.CreatedAt.UTC().Format(time.RFC3339),
		}
		if m.Producto != nil {
			item.Producto = m.Producto.Nombre
		}
		if m.ReferenciaID != nil {
			ref := m.ReferenciaID.String()
			item.ReferenciaID = &ref
		}
		data = append(data, item)
	}
	return &dto.MovimientoStockListResponse{Data: data, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

// ── Notificaciones ────────────────────────────────────────────────────────────

func (l *stockLedger) NotificarBajoMinimo(ctx context.Context, r *Reserva) {
	if l.dispatcher == nil || r == nil {
		return
	}
	for _, p := range r.bajoMinimo {
		if err := l.dispatcher.EnqueueStockBajo(ctx, p); err != nil {
			log.Error().Err(err).Str("producto_id", p.ProductoID).Msg("no se pudo encolar alerta de stock bajo")
		}
	}
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// consolidar validates the lines and merges duplicates. orden keeps the
// first appearance of each product.
func consolidar(lineas []LineaStock) (orden []uuid.UUID, cantidades map[uuid.UUID]int, err error) {
	if len(lineas) == 0 {
		return nil, nil, validacion("se requiere al menos una línea")
	}
	cantidades = make(map[uuid.UUID]int, len(lineas))
	for i, ln := range lineas {
		if ln.ProductoID == uuid.Nil {
			return nil, nil, validacion("línea %d: producto_id requerido", i+1)
		}
		if ln.Cantidad <= 0 {
			return nil, nil, validacion("línea %d: la cantidad debe ser mayor a cero", i+1)
		}
		if _, seen := cantidades[ln.ProductoID]; !seen {
			orden = append(orden, ln.ProductoID)
		}
		cantidades[ln.ProductoID] += ln.Cantidad
	}
	return orden, cantidades, nil
}

// idsOrdenados returns a sorted copy; byte order matches PostgreSQL's uuid ordering.
func idsOrdenados(ids []uuid.UUID) []uuid.UUID {
	out := append([]uuid.UUID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}

func (l *stockLedger) productosPorID(tx *gorm.DB, usuarioID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]model.Producto, error) {
	list, err := l.productoRepo.FindByIDsTx(tx, usuarioID, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]model.Producto, len(list))
	for _, p := range list {
		out[p.ID] = p
	}
	return out, nil
}

func (l *stockLedger) bloquear(tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]model.Inventario, error) {
	list, err := l.invRepo.LockByProductoIDsTx(tx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]model.Inventario, len(list))
	for _, inv := range list {
		out[inv.ProductoID] = inv
	}
	return out, nil
}

func inventarioToResponse(p model.Producto, inv model.Inventario) *dto.InventarioResponse {
	return &dto.InventarioResponse{
		ProductoID:     p.ID.String(),
		Producto:       p.Nombre,
		Stock:          inv.Stock,
		CantidadMinima: inv.CantidadMinima,
		CantidadMaxima: inv.CantidadMaxima,
		Estado:         inv.EstadoStock(),
	}
}
