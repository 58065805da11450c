package model

import (
	"time"

	"github.com/google/uuid"
)

// Categoria groups an operator's products. Names are unique per operator.
type Categoria struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UsuarioID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_categoria_usuario_nombre"`
	Nombre      string    `gorm:"not null;uniqueIndex:idx_categoria_usuario_nombre"`
	Descripcion *string
	Activo      bool `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName overrides GORM's default singular → plural logic for Spanish names.
func (Categoria) TableName() string { return "categorias" }
