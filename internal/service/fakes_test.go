package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"puntoventa/internal/dto"
	"puntoventa/internal/model"
	"puntoventa/internal/repository"
	"puntoventa/internal/worker"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── memStore ──────────────────────────────────────────────────────────────────
// Shared in-memory state behind every fake repository. Tx methods ignore the
// *gorm.DB they receive (nil in unit tests); memUnitOfWork restores a snapshot
// when fn fails, which is how rollback is observed.

type memStore struct {
	productos   map[uuid.UUID]model.Producto
	inventarios map[uuid.UUID]model.Inventario // keyed by producto_id
	movStock    []model.MovimientoStock
	sesiones    map[uuid.UUID]model.SesionCaja
	movCaja     []model.MovimientoCaja
	pedidos     map[uuid.UUID]model.Pedido
	categorias  map[uuid.UUID]model.Categoria

	// failStockUpdate makes UpdateStockTx fail for that product.
	failStockUpdate uuid.UUID
	// failPedidoCreate makes PedidoRepository.CreateTx fail.
	failPedidoCreate bool
}

func newMemStore() *memStore {
	return &memStore{
		productos:   map[uuid.UUID]model.Producto{},
		inventarios: map[uuid.UUID]model.Inventario{},
		sesiones:    map[uuid.UUID]model.SesionCaja{},
		pedidos:     map[uuid.UUID]model.Pedido{},
		categorias:  map[uuid.UUID]model.Categoria{},
	}
}

func (m *memStore) clone() *memStore {
	c := newMemStore()
	for k, v := range m.productos {
		c.productos[k] = v
	}
	for k, v := range m.inventarios {
		c.inventarios[k] = v
	}
	for k, v := range m.sesiones {
		c.sesiones[k] = v
	}
	for k, v := range m.pedidos {
		c.pedidos[k] = v
	}
	for k, v := range m.categorias {
		c.categorias[k] = v
	}
	c.movStock = append([]model.MovimientoStock(nil), m.movStock...)
	c.movCaja = append([]model.MovimientoCaja(nil), m.movCaja...)
	c.failStockUpdate = m.failStockUpdate
	c.failPedidoCreate = m.failPedidoCreate
	return c
}

func (m *memStore) restore(from *memStore) { *m = *from }

// seedProducto adds a product with an inventory record and returns it.
func (m *memStore) seedProducto(usuarioID uuid.UUID, nombre string, precio string, stock, minima int) model.Producto {
	p := model.Producto{
		ID:          uuid.New(),
		UsuarioID:   usuarioID,
		Nombre:      nombre,
		PrecioVenta: decimal.RequireFromString(precio),
	}
	m.productos[p.ID] = p
	m.inventarios[p.ID] = model.Inventario{ID: uuid.New(), ProductoID: p.ID, Stock: stock, CantidadMinima: minima}
	return p
}

func (m *memStore) stock(productoID uuid.UUID) int { return m.inventarios[productoID].Stock }

// ── UnitOfWork ────────────────────────────────────────────────────────────────

type memUnitOfWork struct {
	mu    sync.Mutex
	store *memStore
}

func (u *memUnitOfWork) Do(_ context.Context, fn func(tx *gorm.DB) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	snap := u.store.clone()
	if err := fn(nil); err != nil {
		u.store.restore(snap)
		return err
	}
	return nil
}

var _ repository.UnitOfWork = (*memUnitOfWork)(nil)

// ── Productos ─────────────────────────────────────────────────────────────────

type memProductoRepo struct {
	s *memStore
	// lookupsCiegos makes that many FindByNombreForUpdateTx calls miss,
	// like a lookup that ran before a concurrent insert committed.
	lookupsCiegos int
}

func (r *memProductoRepo) nombreTomado(p *model.Producto) bool {
	for id, other := range r.s.productos {
		if id != p.ID && other.UsuarioID == p.UsuarioID && strings.EqualFold(other.Nombre, p.Nombre) {
			return true
		}
	}
	return false
}

func (r *memProductoRepo) withAssoc(p model.Producto) *model.Producto {
	if inv, ok := r.s.inventarios[p.ID]; ok {
		p.Inventario = &inv
	}
	if p.CategoriaID != nil {
		if c, ok := r.s.categorias[*p.CategoriaID]; ok {
			p.Categoria = &c
		}
	}
	return &p
}

func (r *memProductoRepo) FindByID(_ context.Context, usuarioID, id uuid.UUID) (*model.Producto, error) {
	p, ok := r.s.productos[id]
	if !ok || p.UsuarioID != usuarioID {
		return nil, gorm.ErrRecordNotFound
	}
	return r.withAssoc(p), nil
}

func (r *memProductoRepo) List(_ context.Context, usuarioID uuid.UUID, f dto.ProductoFilter) ([]model.Producto, int64, error) {
	var out []model.Producto
	for _, p := range r.s.productos {
		if p.UsuarioID != usuarioID {
			continue
		}
		if f.Nombre != "" && !strings.Contains(strings.ToLower(p.Nombre), strings.ToLower(f.Nombre)) {
			continue
		}
		if f.CategoriaID != "" && (p.CategoriaID == nil || p.CategoriaID.String() != f.CategoriaID) {
			continue
		}
		out = append(out, *r.withAssoc(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nombre < out[j].Nombre })
	total := int64(len(out))
	from := (f.Page - 1) * f.Limit
	if from > len(out) {
		from = len(out)
	}
	to := from + f.Limit
	if to > len(out) {
		to = len(out)
	}
	return out[from:to], total, nil
}

func (r *memProductoRepo) Update(_ context.Context, p *model.Producto) error {
	if r.nombreTomado(p) {
		return gorm.ErrDuplicatedKey
	}
	cp := *p
	cp.Inventario, cp.Categoria = nil, nil
	r.s.productos[p.ID] = cp
	return nil
}

func (r *memProductoRepo) CreateTx(_ *gorm.DB, p *model.Producto) error {
	if r.nombreTomado(p) {
		return gorm.ErrDuplicatedKey
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	cp.Inventario, cp.Categoria = nil, nil
	r.s.productos[p.ID] = cp
	return nil
}

func (r *memProductoRepo) FindByIDsTx(_ *gorm.DB, usuarioID uuid.UUID, ids []uuid.UUID) ([]model.Producto, error) {
	var out []model.Producto
	for _, id := range ids {
		if p, ok := r.s.productos[id]; ok && p.UsuarioID == usuarioID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memProductoRepo) FindByNombreForUpdateTx(_ *gorm.DB, usuarioID uuid.UUID, nombre string) (*model.Producto, error) {
	if r.lookupsCiegos > 0 {
		r.lookupsCiegos--
		return nil, gorm.ErrRecordNotFound
	}
	for _, p := range r.s.productos {
		if p.UsuarioID == usuarioID && strings.EqualFold(p.Nombre, nombre) {
			cp := p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memProductoRepo) DeleteTx(_ *gorm.DB, usuarioID, id uuid.UUID) (int64, error) {
	p, ok := r.s.productos[id]
	if !ok || p.UsuarioID != usuarioID {
		return 0, nil
	}
	delete(r.s.productos, id)
	delete(r.s.inventarios, id)
	return 1, nil
}

var _ repository.ProductoRepository = (*memProductoRepo)(nil)

// ── Inventario ────────────────────────────────────────────────────────────────

type memInventarioRepo struct{ s *memStore }

func (r *memInventarioRepo) FindByProductoID(_ context.Context, productoID uuid.UUID) (*model.Inventario, error) {
	inv, ok := r.s.inventarios[productoID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &inv, nil
}

func (r *memInventarioRepo) ListBajoMinimo(_ context.Context, usuarioID uuid.UUID) ([]repository.AlertaStockRow, error) {
	var out []repository.AlertaStockRow
	for pid, inv := range r.s.inventarios {
		p := r.s.productos[pid]
		if p.UsuarioID != usuarioID || inv.Stock >= inv.CantidadMinima {
			continue
		}
		out = append(out, repository.AlertaStockRow{
			ProductoID: pid, Nombre: p.Nombre, Stock: inv.Stock,
			CantidadMinima: inv.CantidadMinima, PrecioCompra: p.PrecioCompra,
		})
	}
	return out, nil
}

func (r *memInventarioRepo) LockByProductoIDsTx(_ *gorm.DB, ids []uuid.UUID) ([]model.Inventario, error) {
	var out []model.Inventario
	for _, id := range ids {
		if inv, ok := r.s.inventarios[id]; ok {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *memInventarioRepo) CreateTx(_ *gorm.DB, inv *model.Inventario) error {
	if _, exists := r.s.inventarios[inv.ProductoID]; exists {
		return gorm.ErrDuplicatedKey
	}
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	r.s.inventarios[inv.ProductoID] = *inv
	return nil
}

func (r *memInventarioRepo) UpdateStockTx(_ *gorm.DB, productoID uuid.UUID, delta int) error {
	if productoID == r.s.failStockUpdate {
		return errors.New("simulated storage failure")
	}
	inv, ok := r.s.inventarios[productoID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if inv.Stock+delta < 0 {
		return errors.New(`violates check constraint "chk_inventarios_stock_no_negativo"`)
	}
	inv.Stock += delta
	r.s.inventarios[productoID] = inv
	return nil
}

func (r *memInventarioRepo) SetStockTx(_ *gorm.DB, productoID uuid.UUID, stock int) error {
	inv := r.s.inventarios[productoID]
	inv.Stock = stock
	r.s.inventarios[productoID] = inv
	return nil
}

func (r *memInventarioRepo) UpdateUmbralesTx(_ *gorm.DB, productoID uuid.UUID, minima, maxima int) error {
	inv := r.s.inventarios[productoID]
	inv.CantidadMinima, inv.CantidadMaxima = minima, maxima
	r.s.inventarios[productoID] = inv
	return nil
}

var _ repository.InventarioRepository = (*memInventarioRepo)(nil)

// ── Movimientos de stock ──────────────────────────────────────────────────────

type memMovStockRepo struct{ s *memStore }

func (r *memMovStockRepo) CreateTx(_ *gorm.DB, m *model.MovimientoStock) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r.s.movStock = append(r.s.movStock, *m)
	return nil
}

func (r *memMovStockRepo) List(_ context.Context, f repository.MovimientoStockFilter) ([]model.MovimientoStock, int64, error) {
	var out []model.MovimientoStock
	for _, m := range r.s.movStock {
		p, ok := r.s.productos[m.ProductoID]
		if !ok || p.UsuarioID != f.UsuarioID {
			continue
		}
		if f.ProductoID != nil && m.ProductoID != *f.ProductoID {
			continue
		}
		if f.Tipo != "" && m.Tipo != f.Tipo {
			continue
		}
		m.Producto = &p
		out = append(out, m)
	}
	return out, int64(len(out)), nil
}

func (r *memMovStockRepo) tipos(productoID uuid.UUID) []string {
	var out []string
	for _, m := range r.s.movStock {
		if m.ProductoID == productoID {
			out = append(out, m.Tipo)
		}
	}
	return out
}

var _ repository.MovimientoStockRepository = (*memMovStockRepo)(nil)

// ── Caja ──────────────────────────────────────────────────────────────────────

type memCajaRepo struct {
	s *memStore
	// lecturasSinTx counts FindByID calls, which bypass the unit of work.
	lecturasSinTx int
}

func (r *memCajaRepo) FindByID(_ context.Context, id uuid.UUID) (*model.SesionCaja, error) {
	r.lecturasSinTx++
	return r.FindByIDTx(nil, id)
}

func (r *memCajaRepo) FindByIDTx(_ *gorm.DB, id uuid.UUID) (*model.SesionCaja, error) {
	s, ok := r.s.sesiones[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}

func (r *memCajaRepo) ListMovimientos(_ context.Context, id uuid.UUID) ([]model.MovimientoCaja, error) {
	return r.ListMovimientosTx(nil, id)
}

func (r *memCajaRepo) ListPagosEfectivo(_ context.Context, id uuid.UUID) ([]repository.PagoEfectivoRow, error) {
	var out []repository.PagoEfectivoRow
	for _, p := range r.s.pedidos {
		if p.SesionCajaID == nil || *p.SesionCajaID != id {
			continue
		}
		for _, pg := range p.Pagos {
			if pg.Metodo == model.MetodoEfectivo {
				out = append(out, repository.PagoEfectivoRow{
					ID: pg.ID, PedidoID: p.ID, Fecha: p.Fecha, MetodoOriginal: pg.MetodoOriginal, Monto: pg.Monto,
				})
			}
		}
	}
	return out, nil
}

func (r *memCajaRepo) Historial(_ context.Context, usuarioID uuid.UUID, page, limit int) ([]model.SesionCaja, int64, error) {
	var out []model.SesionCaja
	for _, s := range r.s.sesiones {
		if s.UsuarioID == usuarioID && !s.Abierta() {
			out = append(out, s)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memCajaRepo) CreateSesionTx(_ *gorm.DB, s *model.SesionCaja) error {
	for _, existing := range r.s.sesiones {
		if existing.UsuarioID == s.UsuarioID && existing.Abierta() && s.Abierta() {
			return gorm.ErrDuplicatedKey
		}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.s.sesiones[s.ID] = *s
	return nil
}

func (r *memCajaRepo) FindAbiertaTx(_ *gorm.DB, usuarioID uuid.UUID, _ bool) (*model.SesionCaja, error) {
	for _, s := range r.s.sesiones {
		if s.UsuarioID == usuarioID && s.Abierta() {
			cp := s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memCajaRepo) FindByIDForUpdateTx(_ *gorm.DB, id uuid.UUID) (*model.SesionCaja, error) {
	return r.FindByID(context.Background(), id)
}

func (r *memCajaRepo) SumarTotalesTx(_ *gorm.DB, id uuid.UUID, d repository.TotalesPago) error {
	s := r.s.sesiones[id]
	s.TotalEfectivo = s.TotalEfectivo.Add(d.Efectivo)
	s.TotalQR = s.TotalQR.Add(d.QR)
	s.TotalTarjeta = s.TotalTarjeta.Add(d.Tarjeta)
	r.s.sesiones[id] = s
	return nil
}

func (r *memCajaRepo) SumarMovimientoTx(_ *gorm.DB, id uuid.UUID, ingreso, retiro decimal.Decimal) error {
	s := r.s.sesiones[id]
	s.TotalIngresos = s.TotalIngresos.Add(ingreso)
	s.TotalRetiros = s.TotalRetiros.Add(retiro)
	s.TotalMovimientoEfectivo = s.TotalIngresos.Sub(s.TotalRetiros)
	r.s.sesiones[id] = s
	return nil
}

func (r *memCajaRepo) GuardarCierreTx(_ *gorm.DB, s *model.SesionCaja) error {
	cp := *s
	cp.Movimientos = nil
	r.s.sesiones[s.ID] = cp
	return nil
}

func (r *memCajaRepo) CreateMovimientoTx(_ *gorm.DB, m *model.MovimientoCaja) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r.s.movCaja = append(r.s.movCaja, *m)
	return nil
}

func (r *memCajaRepo) ListMovimientosTx(_ *gorm.DB, id uuid.UUID) ([]model.MovimientoCaja, error) {
	var out []model.MovimientoCaja
	for i := len(r.s.movCaja) - 1; i >= 0; i-- {
		if r.s.movCaja[i].SesionCajaID == id {
			out = append(out, r.s.movCaja[i])
		}
	}
	return out, nil
}

func (r *memCajaRepo) SumPagosPorMetodoTx(_ *gorm.DB, id uuid.UUID) (repository.TotalesPago, error) {
	var t repository.TotalesPago
	for _, p := range r.s.pedidos {
		if p.SesionCajaID == nil || *p.SesionCajaID != id {
			continue
		}
		for _, pg := range p.Pagos {
			t = t.Sumar(pg.Metodo, pg.Monto)
		}
	}
	return t, nil
}

var _ repository.CajaRepository = (*memCajaRepo)(nil)

// ── Pedidos ───────────────────────────────────────────────────────────────────

type memPedidoRepo struct{ s *memStore }

func (r *memPedidoRepo) FindByID(_ context.Context, usuarioID, id uuid.UUID) (*model.Pedido, error) {
	p, ok := r.s.pedidos[id]
	if !ok || p.UsuarioID != usuarioID {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r *memPedidoRepo) List(_ context.Context, usuarioID uuid.UUID, f dto.PedidoFilter) ([]model.Pedido, int64, error) {
	var out []model.Pedido
	for _, p := range r.s.pedidos {
		if p.UsuarioID == usuarioID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Fecha.After(out[j].Fecha) })
	return out, int64(len(out)), nil
}

func (r *memPedidoRepo) CreateTx(_ *gorm.DB, p *model.Pedido) error {
	if r.s.failPedidoCreate {
		return errors.New("simulated insert failure")
	}
	for i := range p.Pagos {
		if p.Pagos[i].ID == uuid.Nil {
			p.Pagos[i].ID = uuid.New()
		}
		p.Pagos[i].PedidoID = p.ID
	}
	for i := range p.Detalles {
		p.Detalles[i].PedidoID = p.ID
	}
	r.s.pedidos[p.ID] = *p
	return nil
}

func (r *memPedidoRepo) FindByIDForUpdateTx(_ *gorm.DB, usuarioID, id uuid.UUID) (*model.Pedido, error) {
	return r.FindByID(context.Background(), usuarioID, id)
}

func (r *memPedidoRepo) DeleteTx(_ *gorm.DB, id uuid.UUID) error {
	delete(r.s.pedidos, id)
	return nil
}

var _ repository.PedidoRepository = (*memPedidoRepo)(nil)

// ── Categorias ────────────────────────────────────────────────────────────────

type memCategoriaRepo struct{ s *memStore }

func (r *memCategoriaRepo) Crear(_ context.Context, c *model.Categoria) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.s.categorias[c.ID] = *c
	return nil
}

func (r *memCategoriaRepo) Listar(_ context.Context, usuarioID uuid.UUID, soloActivas bool) ([]model.Categoria, error) {
	var out []model.Categoria
	for _, c := range r.s.categorias {
		if c.UsuarioID == usuarioID && (!soloActivas || c.Activo) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nombre < out[j].Nombre })
	return out, nil
}

func (r *memCategoriaRepo) ObtenerPorID(_ context.Context, usuarioID, id uuid.UUID) (*model.Categoria, error) {
	c, ok := r.s.categorias[id]
	if !ok || c.UsuarioID != usuarioID {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (r *memCategoriaRepo) ObtenerPorNombre(_ context.Context, usuarioID uuid.UUID, nombre string) (*model.Categoria, error) {
	for _, c := range r.s.categorias {
		if c.UsuarioID == usuarioID && strings.EqualFold(c.Nombre, nombre) {
			cp := c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memCategoriaRepo) Actualizar(_ context.Context, c *model.Categoria) error {
	r.s.categorias[c.ID] = *c
	return nil
}

func (r *memCategoriaRepo) Desactivar(_ context.Context, usuarioID, id uuid.UUID) error {
	c := r.s.categorias[id]
	c.Activo = false
	r.s.categorias[id] = c
	return nil
}

var _ repository.CategoriaRepository = (*memCategoriaRepo)(nil)

// ── Dispatcher ────────────────────────────────────────────────────────────────

type fakeDispatcher struct {
	stockBajo []worker.StockBajoPayload
	cierres   []worker.CajaCerradaPayload
}

func (d *fakeDispatcher) EnqueueStockBajo(_ context.Context, p worker.StockBajoPayload) error {
	d.stockBajo = append(d.stockBajo, p)
	return nil
}

func (d *fakeDispatcher) EnqueueCajaCerrada(_ context.Context, p worker.CajaCerradaPayload) error {
	d.cierres = append(d.cierres, p)
	return nil
}

var _ JobDispatcher = (*fakeDispatcher)(nil)

// ── Fixture ───────────────────────────────────────────────────────────────────

type fixture struct {
	store      *memStore
	dispatcher *fakeDispatcher
	movs       *memMovStockRepo

	ledger     StockLedger
	caja       *cajaService
	pedidos    *pedidoService
	productos  ProductoService
	categorias CategoriaService
}

var fixedNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func newFixture() *fixture {
	store := newMemStore()
	uow := &memUnitOfWork{store: store}
	disp := &fakeDispatcher{}
	prodRepo := &memProductoRepo{s: store}
	invRepo := &memInventarioRepo{s: store}
	movRepo := &memMovStockRepo{s: store}
	catRepo := &memCategoriaRepo{s: store}

	ledger := NewStockLedger(uow, prodRepo, invRepo, movRepo, disp)
	caja := NewCajaService(uow, &memCajaRepo{s: store}, disp).(*cajaService)
	caja.now = func() time.Time { return fixedNow }
	pedidos := NewPedidoService(uow, &memPedidoRepo{s: store}, ledger, caja).(*pedidoService)
	pedidos.now = func() time.Time { return fixedNow }

	return &fixture{
		store:      store,
		dispatcher: disp,
		movs:       movRepo,
		ledger:     ledger,
		caja:       caja,
		pedidos:    pedidos,
		productos:  NewProductoService(uow, prodRepo, invRepo, catRepo, ledger, nil, 0),
		categorias: NewCategoriaService(catRepo),
	}
}
