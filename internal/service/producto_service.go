package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"puntoventa/internal/dto"
	"puntoventa/internal/model"
	"puntoventa/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ProductoService defines the business logic contract for products.
type ProductoService interface {
	// Crear registers a product with its inventory. If the operator already
	// has a product with that name, req.Stock is added to it instead and
	// creado is false.
	Crear(ctx context.Context, usuarioID uuid.UUID, req dto.CrearProductoRequest) (resp *dto.ProductoResponse, creado bool, err error)
	Obtener(ctx context.Context, usuarioID, id uuid.UUID) (*dto.ProductoResponse, error)
	Listar(ctx context.Context, usuarioID uuid.UUID, filter dto.ProductoFilter) (*dto.ProductoListResponse, error)
	Actualizar(ctx context.Context, usuarioID, id uuid.UUID, req dto.ActualizarProductoRequest) (*dto.ProductoResponse, error)
	Eliminar(ctx context.Context, usuarioID, id uuid.UUID) error
}

type productoService struct {
	uow           repository.UnitOfWork
	repo          repository.ProductoRepository
	invRepo       repository.InventarioRepository
	categoriaRepo repository.CategoriaRepository
	ledger        StockLedger
	rdb           *redis.Client
	cacheTTL      time.Duration
}

// NewProductoService wires the product service. rdb may be nil, which
// disables the product card cache.
func NewProductoService(
	uow repository.UnitOfWork,
	repo repository.ProductoRepository,
	invRepo repository.InventarioRepository,
	categoriaRepo repository.CategoriaRepository,
	ledger StockLedger,
	rdb *redis.Client,
	cacheTTL time.Duration,
) ProductoService {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &productoService{
		uow:           uow,
		repo:          repo,
		invRepo:       invRepo,
		categoriaRepo: categoriaRepo,
		ledger:        ledger,
		rdb:           rdb,
		cacheTTL:      cacheTTL,
	}
}

// ── Crear ─────────────────────────────────────────────────────────────────────

func (s *productoService) Crear(ctx context.Context, usuarioID uuid.UUID, req dto.CrearProductoRequest) (*dto.ProductoResponse, bool, error) {
	nombre := strings.TrimSpace(req.Nombre)
	if nombre == "" {
		return nil, false, validacion("el nombre es obligatorio")
	}
	if !req.PrecioVenta.IsPositive() {
		return nil, false, validacion("el precio de venta debe ser mayor a cero")
	}
	if req.PrecioCompra.IsNegative() {
		return nil, false, validacion("el precio de compra no puede ser negativo")
	}
	if req.Stock < 0 || req.CantidadMinima < 0 || req.CantidadMaxima < 0 {
		return nil, false, validacion("stock y umbrales no pueden ser negativos")
	}
	categoriaID, err := s.categoriaPropia(ctx, usuarioID, req.CategoriaID)
	if err != nil {
		return nil, false, err
	}

	producto, creado, err := s.crearOSumar(ctx, usuarioID, nombre, categoriaID, req)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// A concurrent request inserted the same name after our lookup. The
		// failed insert aborted the transaction, so run again: the second
		// pass finds the row and takes the stock-merge path.
		producto, creado, err = s.crearOSumar(ctx, usuarioID, nombre, categoriaID, req)
	}
	if err != nil {
		return nil, false, err
	}

	if creado {
		log.Info().Str("producto_id", producto.ID.String()).Str("producto", producto.Nombre).Int("stock", req.Stock).Msg("producto creado")
	} else {
		log.Info().Str("producto_id", producto.ID.String()).Str("producto", producto.Nombre).Int("cantidad", req.Stock).
			Msg("producto existente, stock sumado")
		s.invalidar(ctx, usuarioID, producto.ID)
	}
	return productoToResponse(producto), creado, nil
}

// crearOSumar inserts the product with its inventory, or adds req.Stock to
// the operator's product of the same name when one already exists.
func (s *productoService) crearOSumar(ctx context.Context, usuarioID uuid.UUID, nombre string, categoriaID *uuid.UUID, req dto.CrearProductoRequest) (*model.Producto, bool, error) {
	var producto *model.Producto
	creado := false
	err := s.uow.Do(ctx, func(tx *gorm.DB) error {
		existente, err := s.repo.FindByNombreForUpdateTx(tx, usuarioID, nombre)
		switch {
		case err == nil:
			inv, err := s.ledger.IngresarTx(ctx, tx, *existente, req.Stock, "Alta de producto existente")
			if err != nil {
				return err
			}
			existente.Inventario = &inv
			producto = existente
			return nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		p := &model.Producto{
			UsuarioID:    usuarioID,
			CategoriaID:  categoriaID,
			Nombre:       nombre,
			Descripcion:  req.Descripcion,
			PrecioCompra: req.PrecioCompra.Round(2),
			PrecioVenta:  req.PrecioVenta.Round(2),
		}
		if err := s.repo.CreateTx(tx, p); err != nil {
			return err
		}
		inv, err := s.ledger.AltaTx(ctx, tx, *p, req.Stock, req.CantidadMinima, req.CantidadMaxima)
		if err != nil {
			return err
		}
		p.Inventario = &inv
		producto = p
		creado = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return producto, creado, nil
}

// ── Obtener ───────────────────────────────────────────────────────────────────
// The product card (name, prices, category, thresholds) is cached in Redis;
// stock is always read from the inventory row so the cache never serves a
// stale quantity.

func (s *productoService) Obtener(ctx context.Context, usuarioID, id uuid.UUID) (*dto.ProductoResponse, error) {
	key := cacheKeyProducto(usuarioID, id)

	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, key).Bytes(); err == nil {
			var resp dto.ProductoResponse
			if jsonErr := json.Unmarshal(cached, &resp); jsonErr == nil {
				inv, err := s.invRepo.FindByProductoID(ctx, id)
				if err == nil {
					resp.Stock = inv.Stock
					resp.CantidadMinima = inv.CantidadMinima
					resp.CantidadMaxima = inv.CantidadMaxima
					resp.EstadoStock = inv.EstadoStock()
					return &resp, nil
				}
			}
		} else if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("key", key).Msg("cache de productos no disponible")
		}
	}

	p, err := s.repo.FindByID(ctx, usuarioID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductoNoEncontrado
		}
		return nil, err
	}
	resp := productoToResponse(p)

	if s.rdb != nil {
		if b, jsonErr := json.Marshal(resp); jsonErr == nil {
			if err := s.rdb.Set(ctx, key, b, s.cacheTTL).Err(); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("no se pudo cachear el producto")
			}
		}
	}
	return resp, nil
}

// ── Listar ────────────────────────────────────────────────────────────────────

func (s *productoService) Listar(ctx context.Context, usuarioID uuid.UUID, filter dto.ProductoFilter) (*dto.ProductoListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}
	productos, total, err := s.repo.List(ctx, usuarioID, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.ProductoResponse, 0, len(productos))
	for i := range productos {
		data = append(data, *productoToResponse(&productos[i]))
	}
	totalPages := int(total) / filter.Limit
	if int(total)%filter.Limit != 0 {
		totalPages++
	}
	return &dto.ProductoListResponse{
		Data:       data,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages,
	}, nil
}

// ── Actualizar ────────────────────────────────────────────────────────────────
// Stock is not editable here; use the inventory adjustment endpoint.

func (s *productoService) Actualizar(ctx context.Context, usuarioID, id uuid.UUID, req dto.ActualizarProductoRequest) (*dto.ProductoResponse, error) {
	p, err := s.repo.FindByID(ctx, usuarioID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductoNoEncontrado
		}
		return nil, err
	}

	if req.Nombre != nil {
		nombre := strings.TrimSpace(*req.Nombre)
		if nombre == "" {
			return nil, validacion("el nombre es obligatorio")
		}
		p.Nombre = nombre
	}
	if req.Descripcion != nil {
		p.Descripcion = req.Descripcion
	}
	if req.CategoriaID != nil {
		categoriaID, err := s.categoriaPropia(ctx, usuarioID, req.CategoriaID)
		if err != nil {
			return nil, err
		}
		p.CategoriaID = categoriaID
		p.Categoria = nil
	}
	if req.PrecioCompra != nil {
		if req.PrecioCompra.IsNegative() {
			return nil, validacion("el precio de compra no puede ser negativo")
		}
		p.PrecioCompra = req.PrecioCompra.Round(2)
	}
	if req.PrecioVenta != nil {
		if !req.PrecioVenta.IsPositive() {
			return nil, validacion("el precio de venta debe ser mayor a cero")
		}
		p.PrecioVenta = req.PrecioVenta.Round(2)
	}

	cambiaUmbrales := req.CantidadMinima != nil || req.CantidadMaxima != nil
	if cambiaUmbrales && p.Inventario == nil {
		return nil, ErrSinInventario
	}
	if cambiaUmbrales {
		if req.CantidadMinima != nil {
			p.Inventario.CantidadMinima = *req.CantidadMinima
		}
		if req.CantidadMaxima != nil {
			p.Inventario.CantidadMaxima = *req.CantidadMaxima
		}
		if p.Inventario.CantidadMinima < 0 || p.Inventario.CantidadMaxima < 0 {
			return nil, validacion("los umbrales no pueden ser negativos")
		}
	}

	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrProductoDuplicado
		}
		return nil, err
	}
	if cambiaUmbrales {
		err := s.uow.Do(ctx, func(tx *gorm.DB) error {
			return s.invRepo.UpdateUmbralesTx(tx, p.ID, p.Inventario.CantidadMinima, p.Inventario.CantidadMaxima)
		})
		if err != nil {
			return nil, err
		}
	}
	s.invalidar(ctx, usuarioID, id)

	if req.CategoriaID != nil {
		// Reload so the response carries the new category name.
		if p, err = s.repo.FindByID(ctx, usuarioID, id); err != nil {
			return nil, err
		}
	}
	return productoToResponse(p), nil
}

// ── Eliminar ──────────────────────────────────────────────────────────────────

func (s *productoService) Eliminar(ctx context.Context, usuarioID, id uuid.UUID) error {
	err := s.uow.Do(ctx, func(tx *gorm.DB) error {
		n, err := s.repo.DeleteTx(tx, usuarioID, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrProductoNoEncontrado
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidar(ctx, usuarioID, id)
	log.Info().Str("producto_id", id.String()).Msg("producto eliminado")
	return nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func cacheKeyProducto(usuarioID, id uuid.UUID) string {
	return "producto:" + usuarioID.String() + ":" + id.String()
}

func (s *productoService) invalidar(ctx context.Context, usuarioID, id uuid.UUID) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, cacheKeyProducto(usuarioID, id)).Err(); err != nil {
		log.Warn().Err(err).Str("producto_id", id.String()).Msg("no se pudo invalidar el cache del producto")
	}
}

// categoriaPropia resolves an optional category id, which must belong to the
// operator. An empty string clears the category.
func (s *productoService) categoriaPropia(ctx context.Context, usuarioID uuid.UUID, raw *string) (*uuid.UUID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, validacion("categoria_id inválido")
	}
	if _, err := s.categoriaRepo.ObtenerPorID(ctx, usuarioID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoriaNoEncontrada
		}
		return nil, err
	}
	return &id, nil
}

func productoToResponse(p *model.Producto) *dto.ProductoResponse {
	resp := &dto.ProductoResponse{
		ID:           p.ID.String(),
		Nombre:       p.Nombre,
		Descripcion:  p.Descripcion,
		PrecioCompra: p.PrecioCompra,
		PrecioVenta:  p.PrecioVenta,
		EstadoStock:  model.EstadoStockNormal,
	}
	if p.CategoriaID != nil {
		id := p.CategoriaID.String()
		resp.CategoriaID = &id
	}
	if p.Categoria != nil {
		resp.Categoria = p.Categoria.Nombre
	}
	if p.Inventario != nil {
		resp.Stock = p.Inventario.Stock
		resp.CantidadMinima = p.Inventario.CantidadMinima
		resp.CantidadMaxima = p.Inventario.CantidadMaxima
		resp.EstadoStock = p.Inventario.EstadoStock()
	}
	return resp
}
