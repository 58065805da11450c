package service

import (
	"context"
	"testing"

	"puntoventa/internal/dto"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategorias(t *testing.T) {
	f := newFixture()
	op := uuid.New()
	ctx := context.Background()

	bebidas, err := f.categorias.Crear(ctx, op, dto.CrearCategoriaRequest{Nombre: "Bebidas"})
	require.NoError(t, err)
	assert.True(t, bebidas.Activo)

	_, err = f.categorias.Crear(ctx, op, dto.CrearCategoriaRequest{Nombre: "bebidas"})
	assert.ErrorIs(t, err, ErrCategoriaDuplicada)

	// Names are unique per operator only.
	_, err = f.categorias.Crear(ctx, uuid.New(), dto.CrearCategoriaRequest{Nombre: "Bebidas"})
	require.NoError(t, err)

	snacks, err := f.categorias.Crear(ctx, op, dto.CrearCategoriaRequest{Nombre: "Snacks"})
	require.NoError(t, err)

	nombre := "Bebidas"
	_, err = f.categorias.Actualizar(ctx, op, snacks.ID, dto.ActualizarCategoriaRequest{Nombre: &nombre})
	assert.ErrorIs(t, err, ErrCategoriaDuplicada)

	require.NoError(t, f.categorias.Desactivar(ctx, op, snacks.ID))
	activas, err := f.categorias.Listar(ctx, op, dto.CategoriaFilter{SoloActivas: true})
	require.NoError(t, err)
	require.Len(t, activas, 1)
	assert.Equal(t, "Bebidas", activas[0].Nombre)

	todas, err := f.categorias.Listar(ctx, op, dto.CategoriaFilter{})
	require.NoError(t, err)
	assert.Len(t, todas, 2)

	assert.ErrorIs(t, f.categorias.Desactivar(ctx, uuid.New(), snacks.ID), ErrCategoriaNoEncontrada)
}
