package service

import (
	"context"
	"errors"
	"strings"

	"puntoventa/internal/dto"
	"puntoventa/internal/model"
	"puntoventa/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CategoriaService defines business operations for an operator's product categories.
type CategoriaService interface {
	Crear(ctx context.Context, usuarioID uuid.UUID, req dto.CrearCategoriaRequest) (dto.CategoriaResponse, error)
	Listar(ctx context.Context, usuarioID uuid.UUID, filter dto.CategoriaFilter) ([]dto.CategoriaResponse, error)
	Actualizar(ctx context.Context, usuarioID, id uuid.UUID, req dto.ActualizarCategoriaRequest) (dto.CategoriaResponse, error)
	Desactivar(ctx context.Context, usuarioID, id uuid.UUID) error
}

type categoriaService struct {
	repo repository.CategoriaRepository
}

func NewCategoriaService(repo repository.CategoriaRepository) CategoriaService {
	return &categoriaService{repo: repo}
}

func mapCategoria(c model.Categoria) dto.CategoriaResponse {
	return dto.CategoriaResponse{
		ID:          c.ID,
		Nombre:      c.Nombre,
		Descripcion: c.Descripcion,
		Activo:      c.Activo,
	}
}

func (s *categoriaService) Crear(ctx context.Context, usuarioID uuid.UUID, req dto.CrearCategoriaRequest) (dto.CategoriaResponse, error) {
	nombre := strings.TrimSpace(req.Nombre)
	if nombre == "" {
		return dto.CategoriaResponse{}, validacion("el nombre es obligatorio")
	}
	if err := s.nombreLibre(ctx, usuarioID, nombre, uuid.Nil); err != nil {
		return dto.CategoriaResponse{}, err
	}

	c := &model.Categoria{
		UsuarioID:   usuarioID,
		Nombre:      nombre,
		Descripcion: req.Descripcion,
		Activo:      true,
	}
	if err := s.repo.Crear(ctx, c); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.CategoriaResponse{}, ErrCategoriaDuplicada
		}
		return dto.CategoriaResponse{}, err
	}
	return mapCategoria(*c), nil
}

func (s *categoriaService) Listar(ctx context.Context, usuarioID uuid.UUID, filter dto.CategoriaFilter) ([]dto.CategoriaResponse, error) {
	list, err := s.repo.Listar(ctx, usuarioID, filter.SoloActivas)
	if err != nil {
		return nil, err
	}
	result := make([]dto.CategoriaResponse, 0, len(list))
	for _, c := range list {
		result = append(result, mapCategoria(c))
	}
	return result, nil
}

func (s *categoriaService) Actualizar(ctx context.Context, usuarioID, id uuid.UUID, req dto.ActualizarCategoriaRequest) (dto.CategoriaResponse, error) {
	c, err := s.obtener(ctx, usuarioID, id)
	if err != nil {
		return dto.CategoriaResponse{}, err
	}

	if req.Nombre != nil {
		nombre := strings.TrimSpace(*req.Nombre)
		if nombre == "" {
			return dto.CategoriaResponse{}, validacion("el nombre es obligatorio")
		}
		if !strings.EqualFold(nombre, c.Nombre) {
			if err := s.nombreLibre(ctx, usuarioID, nombre, id); err != nil {
				return dto.CategoriaResponse{}, err
			}
		}
		c.Nombre = nombre
	}
	if req.Descripcion != nil {
		c.Descripcion = req.Descripcion
	}
	if req.Activo != nil {
		c.Activo = *req.Activo
	}

	if err := s.repo.Actualizar(ctx, c); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.CategoriaResponse{}, ErrCategoriaDuplicada
		}
		return dto.CategoriaResponse{}, err
	}
	return mapCategoria(*c), nil
}

// Desactivar is a soft delete; products keep their category reference.
func (s *categoriaService) Desactivar(ctx context.Context, usuarioID, id uuid.UUID) error {
	if _, err := s.obtener(ctx, usuarioID, id); err != nil {
		return err
	}
	return s.repo.Desactivar(ctx, usuarioID, id)
}

func (s *categoriaService) obtener(ctx context.Context, usuarioID, id uuid.UUID) (*model.Categoria, error) {
	c, err := s.repo.ObtenerPorID(ctx, usuarioID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoriaNoEncontrada
		}
		return nil, err
	}
	return c, nil
}

func (s *categoriaService) nombreLibre(ctx context.Context, usuarioID uuid.UUID, nombre string, excepto uuid.UUID) error {
	existing, err := s.repo.ObtenerPorNombre(ctx, usuarioID, nombre)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if existing.ID != excepto {
		return ErrCategoriaDuplicada
	}
	return nil
}
