package repository

import (
	"context"

	"puntoventa/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AlertaStockRow is one product under its minimum stock.
type AlertaStockRow struct {
	ProductoID     uuid.UUID
	Nombre         string
	Stock          int
	CantidadMinima int
	PrecioCompra   decimal.Decimal
}

// InventarioRepository is the only path that mutates stock. All writes are
// Tx methods so they share the caller's transaction and row locks.
type InventarioRepository interface {
	FindByProductoID(ctx context.Context, productoID uuid.UUID) (*model.Inventario, error)
	ListBajoMinimo(ctx context.Context, usuarioID uuid.UUID) ([]AlertaStockRow, error)

	// LockByProductoIDsTx reads the inventory rows of the given products with
	// SELECT … FOR UPDATE, ordered by producto_id so that concurrent
	// transactions always acquire locks in the same order.
	LockByProductoIDsTx(tx *gorm.DB, productoIDs []uuid.UUID) ([]model.Inventario, error)
	CreateTx(tx *gorm.DB, inv *model.Inventario) error
	UpdateStockTx(tx *gorm.DB, productoID uuid.UUID, delta int) error
	SetStockTx(tx *gorm.DB, productoID uuid.UUID, stock int) error
	UpdateUmbralesTx(tx *gorm.DB, productoID uuid.UUID, minima, maxima int) error
}

type inventarioRepo struct{ db *gorm.DB }

func NewInventarioRepository(db *gorm.DB) InventarioRepository { return &inventarioRepo{db: db} }

func (r *inventarioRepo) FindByProductoID(ctx context.Context, productoID uuid.UUID) (*model.Inventario, error) {
	var inv model.Inventario
	if err := r.db.WithContext(ctx).Where("producto_id = ?", productoID).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *inventarioRepo) ListBajoMinimo(ctx context.Context, usuarioID uuid.UUID) ([]AlertaStockRow, error) {
	var rows []AlertaStockRow
	err := r.db.WithContext(ctx).
		Table("inventarios i").
		Select("p.id AS producto_id, p.nombre, i.stock, i.cantidad_minima, p.precio_compra").
		Joins("JOIN productos p ON p.id = i.producto_id").
		Where("p.usuario_id = ? AND i.stock < i.cantidad_minima", usuarioID).
		Order("(i.cantidad_minima - i.stock) DESC, p.nombre ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *inventarioRepo) LockByProductoIDsTx(tx *gorm.DB, productoIDs []uuid.UUID) ([]model.Inventario, error) {
	var invs []model.Inventario
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("producto_id IN ?", productoIDs).
		Order("producto_id ASC").
		Find(&invs).Error
	return invs, err
}

func (r *inventarioRepo) CreateTx(tx *gorm.DB, inv *model.Inventario) error {
	return tx.Create(inv).Error
}

func (r *inventarioRepo) UpdateStockTx(tx *gorm.DB, productoID uuid.UUID, delta int) error {
	return tx.Model(&model.Inventario{}).Where("producto_id = ?", productoID).
		Update("stock", gorm.Expr("stock + ?", delta)).Error
}

func (r *inventarioRepo) SetStockTx(tx *gorm.DB, productoID uuid.UUID, stock int) error {
	return tx.Model(&model.Inventario{}).Where("producto_id = ?", productoID).
		Update("stock", stock).Error
}

func (r *inventarioRepo) UpdateUmbralesTx(tx *gorm.DB, productoID uuid.UUID, minima, maxima int) error {
	return tx.Model(&model.Inventario{}).Where("producto_id = ?", productoID).
		Updates(map[string]interface{}{
			"cantidad_minima": minima,
			"cantidad_maxima": maxima,
		}).Error
}
