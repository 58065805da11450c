package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"puntoventa/internal/dto"
	"puntoventa/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReservar_DescuentaTodasLasLineas(t *testing.T) {
	f := newFixture()
	op := uuid.New()
	a := f.store.seedProducto(op, "Yerba", "1500", 10, 0)
	b := f.store.seedProducto(op, "Azúcar", "900", 4, 0)

	r, err := f.ledger.ReservarYDescontar(context.Background(), op, []LineaStock{
		{ProductoID: a.ID, Cantidad: 3},
		{ProductoID: b.ID, Cantidad: 4},
	})

	require.NoError(t, err)
	assert.Equal(t, 7, f.store.stock(a.ID))
	assert.Equal(t, 0, f.store.stock(b.ID))
	require.Len(t, r.Deducciones, 2)
	assert.Equal(t, a.ID.String(), r.Deducciones[0].ProductoID)
	assert.Equal(t, 10, r.Deducciones[0].StockAnterior)
	assert.Equal(t, 7, r.Deducciones[0].StockNuevo)
	assert.Equal(t, []string{model.MovStockVenta}, f.movs.tipos(a.ID))
}

func TestReservar_StockInsuficiente_ReportaFaltante(t *testing.T) {
	f := newFixture()
	op := uuid.New()
	x := f.store.seedProducto(op, "Producto X", "100", 3, 0)

	_, err := f.ledger.ReservarYDescontar(context.Background(), op, []LineaStock{{ProductoID: x.ID, Cantidad: 5}})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStockInsuficiente))
	var sie *StockInsuficienteError
	require.True(t, errors.As(err, &sie))
	assert.Equal(t, x.ID, sie.ProductoID)
	assert.Equal(t, 2, sie.Faltante())
	assert.Equal(t, 3, f.store.stock(x.ID), "stock must be unchanged")
	assert.Empty(t, f.store.movStock)
}

func TestReservar_FallaEnLineaIntermedia_NoDescuentaNada(t *testing.T) {
	f := newFixture()
	op := uuid.New()
	a := f.store.seedProducto(op, "A", "10", 10, 0)
	b := f.store.seedProducto(op, "B", "10", 1, 0)
	c := f.store.seedProducto(op, "C", "10", 10, 0)

	_, err := f.ledger.ReservarYDescontar(context.Background(), op, []LineaStock{
		{ProductoID: a.ID, Cantidad: 2},
		{ProductoID: b.ID, Cantidad: 2},
		{ProductoID: c.ID, Cantidad: 2},
	})

	require.ErrorIs(t, err, ErrStockInsuficiente)
	assert.Equal(t, 10, f.store.stock(a.ID))
	assert.Equal(t, 1, f.store.stock(b.ID))
	assert.Equal(t, 10, f.store.stock(c.ID))
	assert.Empty(t, f.store.movStock)
}

func TestReservar_ErrorDeEscritura_RevierteLineasPrevias(t *testing.T) {
	f := newFixture()
	op := uuid.New()
	a := f.store.seedProducto(op, "A", "10", 10, 0)
	b := f.store.seedProducto(op, "B", "10", 10, 0)
	f.store.failStockUpdate = b.ID

	_, err := f.ledger.ReservarYDescontar(context.Background(), op, []LineaStock{
		{ProductoID: a.ID, Cantidad: 2},
		{ProductoID: b.ID, Cantidad: 2},
	})

	require.Error(t, err)
	assert.Equal(t, 10, f.store.stock(a.ID))
	assert.Equal(t, 10, f.store.stock(b.ID))
	assert.Empty(t, f.store.movStock)
}

func TestReservar_LineasDuplicadasSeConsolidan(t *testing.T) {
	f := newFixture()
	op := uuid.New()
	a := f.store.seedProducto(op, "A", "10", 5, 0)

	_, err := f.ledger.ReservarYDescontar(context.Background(), op, []LineaStock{
		{ProductoID: a.ID, Cantidad: 3},
		{ProductoID: a.ID, Cantidad: 3},
	})

	var sie *StockInsuficienteError
	require.True(t, errors.As(err, &sie))
	assert.Equal(t, 6, sie.Solicitado)
	assert.Equal(t, 5, f.store.stock(a.ID))
}

func TestReservar_ProductoInexistente(t *testing.T) {
	f := newFixture()
	op := uuid.New()
	a := f.store.seedProducto(op, "A", "10", 5, 0)

	_, err := f.ledger.ReservarYDescontar(context.Background(), op, []LineaStock{
		{ProductoID: a.ID, Cantidad: 1},
		{ProductoID: uuid.New(), Cantidad: 1},
	})

	assert.ErrorIs(t, err, ErrProductoNoEncontrado)
	assert.Equal(t, 5, f.store.stock(a.ID))
}

func TestReservar_ProductoDeOtroOperador(t *testing.T) {
	f := newFixture()
	a := f.store.seedProducto(uuid.New(), "A", "10", 5, 0)

	_, err := f.ledger.ReservarYDescontar(context.Background(), uuid.New(), []LineaStock{{ProductoID: a.ID, Cantidad: 1}})

	assert.ErrorIs(t, err, ErrProductoNoEncontrado)
}

func TestReservar_SinInventario(t *testing.T) {
	f := newFixture()
	op := uuid.New()
	a := f.store.seedProducto(op, "A", "10", 5, 0)
	delete(f.store.inventarios, a.ID)

	_, err := f.ledger.ReservarYDescontar(context.Background(), op, []LineaStock{{ProductoID: a.ID, Cantidad: 1}})

	assert.ErrorIs(t, err, ErrSinInventario)
}

func TestReservar_CantidadInvalida(t *testing.T) {
	f := newFixture()
	op := uuid.New()
	a := f.store.seedProducto(op, "A", "10", 5, 0)

	_, err := f.ledger.ReservarYDescontar(context.Background(), op, []LineaStock{{ProductoID: a.ID, Cantidad: 0}})
	assert.ErrorIs(t, err, ErrValidacion)

	_, err = f.ledger.ReservarYDescontar(context.Background(), op, nil)
	assert.ErrorIs(t, err, ErrValidacion)
}

func TestReservar_BajoMinimoEncolaAlerta(t *testing.T) {
	f := newFixture()
	op := uuid.New()
	a := f.store.seedProducto(op, "A", "10", 5, 3)
	b := f.store.seedProducto(op, "B", "10", 50, 3)

	_, err := f.ledger.ReservarYDescontar(context.Background(), op, []LineaStock{
		{ProductoID: a.ID, Cantidad: 4},
		{ProductoID: b.ID, Cantidad: 1},
	})

	require.NoError(t, err)
	require.Len(t, f.dispatcher.stockBajo, 1)
	assert.Equal(t, a.ID.String(), f.dispatcher.stockBajo[0].ProductoID)
	assert.Equal(t, 1, f.dispatcher.stockBajo[0].Stock)
}

func TestRestaurar_SumaCantidades(t *testing.T) {
	f := newFixture()
	op := uuid.New()
	y := f.store.seedProducto(op, "Producto Y", "10", 6, 0)

	err := f.ledger.Restaurar(context.Background(), op, []LineaStock{{ProductoID: y.ID, Cantidad: 4}})

	require.NoError(t, err)
	assert.Equal(t, 10, f.store.stock(y.ID))
	assert.Equal(t, []string{model.MovStockRestorePedido}, f.movs.tipos(y.ID))
}

func TestRestaurar_CreaInventarioFaltante(t *testing.T) {
	f := newFixture()
	op := uuid.New()
	y := f.store.seedProducto(op, "Producto Y", "10", 0, 0)
	delete(f.store.inventarios, y.ID)

	err := f.ledger.Restaurar(context.Background(), op, []LineaStock{{ProductoID: y.ID, Cantidad: 4}})

	require.NoError(t, err)
	assert.Equal(t, 4, f.store.stock(y.ID))
	assert.Equal(t, []string{model.MovStockRestoreFabricado}, f.movs.tipos(y.ID))
}

func TestRestaurar_OmiteProductoEliminado(t *testing.T) {
	f := newFixture()
	op := uuid.New()
	y := f.store.seedProducto(op, "Producto Y", "10", 1, 0)

	err := f.ledger.Restaurar(context.Background(), op, []LineaStock{
		{ProductoID: uuid.New(), Cantidad: 2},
		{ProductoID: y.ID, Cantidad: 2},
	})

	require.NoError(t, err)
	assert.Equal(t, 3, f.store.stock(y.ID))
}

func TestAjustarAbsoluto(t *testing.T) {
	f := newFixture()
	op := uuid.New()
	a := f.store.seedProducto(op, "A", "10", 8, 5)

	resp, err := f.ledger.AjustarAbsoluto(context.Background(), op, a.ID, 2, "conteo físico")

	require.NoError(t, err)
	assert.Equal(t, 2, resp.Stock)
	assert.Equal(t, model.EstadoStockBajo, resp.Estado)
	require.Len(t, f.store.movStock, 1)
	assert.Equal(t, -6, f.store.movStock[0].Cantidad)
	assert.Equal(t, model.MovStockAjusteManual, f.store.movStock[0].Tipo)
	assert.Len(t, f.dispatcher.stockBajo, 1)

	_, err = f.ledger.AjustarAbsoluto(context.Background(), op, a.ID, -1, "x")
	assert.ErrorIs(t, err, ErrValidacion)
}

func TestAlertasYMovimientos(t *testing.T) {
	f := newFixture()
	op := uuid.New()
	a := f.store.seedProducto(op, "A", "10", 1, 5)
	f.store.seedProducto(op, "B", "10", 10, 5)

	alertas, err := f.ledger.Alertas(context.Background(), op)
	require.NoError(t, err)
	require.Len(t, alertas, 1)
	assert.Equal(t, a.ID.String(), alertas[0].ProductoID)
	assert.Equal(t, 4, alertas[0].Faltante)

	_, err = f.ledger.ReservarYDescontar(context.Background(), op, []LineaStock{{ProductoID: a.ID, Cantidad: 1}})
	require.NoError(t, err)
	f.store.movStock[len(f.store.movStock)-1].CreatedAt = time.Date(2026, 3, 10, 21, 30, 0, 0, time.FixedZone("ART", -3*3600))

	movs, err := f.ledger.ListarMovimientos(context.Background(), op, dto.MovimientoStockFilter{ProductoID: a.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, int64(1), movs.Total)
	assert.Equal(t, "A", movs.Data[0].Producto)
	assert.Equal(t, "2026-03-11T00:30:00Z", movs.Data[0].Fecha)
	assert.Equal(t, 1, movs.Page)
	assert.Equal(t, 100, movs.Limit)
}
