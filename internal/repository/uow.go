package repository

import (
	"context"

	"gorm.io/gorm"
)

// UnitOfWork runs fn inside a single database transaction. Every repository
// method suffixed with Tx must receive the tx handed to fn; returning an error
// from fn rolls back all of them.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gormUnitOfWork struct{ db *gorm.DB }

func NewUnitOfWork(db *gorm.DB) UnitOfWork { return &gormUnitOfWork{db: db} }

func (u *gormUnitOfWork) Do(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return u.db.WithContext(ctx).Transaction(fn)
}
