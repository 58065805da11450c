package repository

import (
	"context"

	"puntoventa/internal/dto"
	"puntoventa/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductoRepository defines the data access contract for products.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling clean unit testing via fakes.
type ProductoRepository interface {
	FindByID(ctx context.Context, usuarioID, id uuid.UUID) (*model.Producto, error)
	List(ctx context.Context, usuarioID uuid.UUID, filter dto.ProductoFilter) ([]model.Producto, int64, error)
	Update(ctx context.Context, p *model.Producto) error

	// Used inside transactions; callers must pass the tx instance
	CreateTx(tx *gorm.DB, p *model.Producto) error
	FindByIDsTx(tx *gorm.DB, usuarioID uuid.UUID, ids []uuid.UUID) ([]model.Producto, error)
	// FindByNombreForUpdateTx locks the operator's product with that exact
	// (case-insensitive) name. Returns gorm.ErrRecordNotFound when absent.
	FindByNombreForUpdateTx(tx *gorm.DB, usuarioID uuid.UUID, nombre string) (*model.Producto, error)
	DeleteTx(tx *gorm.DB, usuarioID, id uuid.UUID) (int64, error)
}

type productoRepo struct{ db *gorm.DB }

func NewProductoRepository(db *gorm.DB) ProductoRepository { return &productoRepo{db: db} }

func (r *productoRepo) FindByID(ctx context.Context, usuarioID, id uuid.UUID) (*model.Producto, error) {
	var p model.Producto
	err := r.db.WithContext(ctx).
		Preload("Inventario").Preload("Categoria").
		Where("id = ? AND usuario_id = ?", id, usuarioID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productoRepo) List(ctx context.Context, usuarioID uuid.UUID, filter dto.ProductoFilter) ([]model.Producto, int64, error) {
	var productos []model.Producto
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Producto{}).Where("usuario_id = ?", usuarioID)
	if filter.Nombre != "" {
		q = q.Where("nombre ILIKE ?", "%"+filter.Nombre+"%")
	}
	if filter.CategoriaID != "" {
		q = q.Where("categoria_id = ?", filter.CategoriaID)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Preload("Inventario").Preload("Categoria").
		Order("nombre ASC").Limit(filter.Limit).Offset(offset).Find(&productos).Error
	return productos, total, err
}

func (r *productoRepo) Update(ctx context.Context, p *model.Producto) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(p).Error
}

func (r *productoRepo) CreateTx(tx *gorm.DB, p *model.Producto) error {
	return tx.Omit(clause.Associations).Create(p).Error
}

func (r *productoRepo) FindByIDsTx(tx *gorm.DB, usuarioID uuid.UUID, ids []uuid.UUID) ([]model.Producto, error) {
	var productos []model.Producto
	err := tx.Where("usuario_id = ? AND id IN ?", usuarioID, ids).Find(&productos).Error
	return productos, err
}

func (r *productoRepo) FindByNombreForUpdateTx(tx *gorm.DB, usuarioID uuid.UUID, nombre string) (*model.Producto, error) {
	var p model.Producto
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("usuario_id = ? AND lower(nombre) = lower(?)", usuarioID, nombre).
		Order("id").
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteTx removes the product; inventory, stock movements and order lines
// go with it through ON DELETE CASCADE.
func (r *productoRepo) DeleteTx(tx *gorm.DB, usuarioID, id uuid.UUID) (int64, error) {
	res := tx.Where("id = ? AND usuario_id = ?", id, usuarioID).Delete(&model.Producto{})
	return res.RowsAffected, res.Error
}
