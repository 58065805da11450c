package repository

import (
	"context"
	"time"

	"puntoventa/internal/dto"
	"puntoventa/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PedidoRepository interface {
	FindByID(ctx context.Context, usuarioID, id uuid.UUID) (*model.Pedido, error)
	List(ctx context.Context, usuarioID uuid.UUID, filter dto.PedidoFilter) ([]model.Pedido, int64, error)

	// CreateTx inserts the order with its lines and payments.
	CreateTx(tx *gorm.DB, p *model.Pedido) error
	FindByIDForUpdateTx(tx *gorm.DB, usuarioID, id uuid.UUID) (*model.Pedido, error)
	DeleteTx(tx *gorm.DB, id uuid.UUID) error
}

type pedidoRepo struct{ db *gorm.DB }

func NewPedidoRepository(db *gorm.DB) PedidoRepository { return &pedidoRepo{db: db} }

func (r *pedidoRepo) FindByID(ctx context.Context, usuarioID, id uuid.UUID) (*model.Pedido, error) {
	var p model.Pedido
	err := r.db.WithContext(ctx).
		Preload("Detalles.Producto").Preload("Pagos").
		Where("id = ? AND usuario_id = ?", id, usuarioID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *pedidoRepo) List(ctx context.Context, usuarioID uuid.UUID, filter dto.PedidoFilter) ([]model.Pedido, int64, error) {
	var pedidos []model.Pedido
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Pedido{}).Where("usuario_id = ?", usuarioID)
	if filter.Fecha != "" {
		if day, err := time.Parse("2006-01-02", filter.Fecha); err == nil {
			q = q.Where("fecha >= ? AND fecha < ?", day, day.AddDate(0, 0, 1))
		}
	}
	if filter.SesionCajaID != "" {
		q = q.Where("sesion_caja_id = ?", filter.SesionCajaID)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	err := q.Preload("Detalles.Producto").Preload("Pagos").
		Order("fecha DESC").Limit(filter.Limit).Offset(offset).Find(&pedidos).Error
	return pedidos, total, err
}

func (r *pedidoRepo) CreateTx(tx *gorm.DB, p *model.Pedido) error {
	return tx.Omit("Detalles.Producto").Create(p).Error
}

func (r *pedidoRepo) FindByIDForUpdateTx(tx *gorm.DB, usuarioID, id uuid.UUID) (*model.Pedido, error) {
	var p model.Pedido
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Detalles").Preload("Pagos").
		Where("id = ? AND usuario_id = ?", id, usuarioID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *pedidoRepo) DeleteTx(tx *gorm.DB, id uuid.UUID) error {
	if err := tx.Where("pedido_id = ?", id).Delete(&model.PagoPedido{}).Error; err != nil {
		return err
	}
	if err := tx.Where("pedido_id = ?", id).Delete(&model.DetallePedido{}).Error; err != nil {
		return err
	}
	return tx.Delete(&model.Pedido{}, "id = ?", id).Error
}
