package infra

import (
	"bytes"
	"errors"
	"os"
	"runtime"
	"testing"
	"time"

	"puntoventa/internal/config"
	"puntoventa/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestCircuitBreaker_CicloCompleto(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "test", FailureThreshold: 2, SuccessThreshold: 2, OpenTimeout: time.Minute})
	cb.now = func() time.Time { return now }

	assert.ErrorIs(t, cb.Execute(func() error { return errBoom }), errBoom)
	assert.Equal(t, CBClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(func() error { return errBoom }), errBoom)
	assert.Equal(t, CBOpen, cb.State())

	called := false
	assert.ErrorIs(t, cb.Execute(func() error { called = true; return nil }), ErrCircuitOpen)
	assert.False(t, called, "open breaker fails fast")

	now = now.Add(time.Minute)
	assert.Equal(t, CBHalfOpen, cb.State())
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, CBHalfOpen, cb.State())
	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, CBClosed, cb.State())
}

func TestCircuitBreaker_FalloEnHalfOpenReabre(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, OpenTimeout: time.Second})
	cb.now = func() time.Time { return now }

	_ = cb.Execute(func() error { return errBoom })
	now = now.Add(time.Second)
	require.Equal(t, CBHalfOpen, cb.State())

	_ = cb.Execute(func() error { return errBoom })
	assert.Equal(t, CBOpen, cb.State())
	assert.Equal(t, "open", cb.State().String())
}

func TestRenderCierrePDF(t *testing.T) {
	cierre := time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC)
	final := decimal.RequireFromString("155")
	sesion := &model.SesionCaja{
		ID:            uuid.New(),
		Estado:        model.EstadoCajaCerrada,
		MontoInicial:  decimal.NewFromInt(100),
		FechaApertura: cierre.Add(-8 * time.Hour),
		FechaCierre:   &cierre,
		TotalEfectivo: decimal.NewFromInt(50),
		MontoFinal:    &final,
	}
	movs := []model.MovimientoCaja{
		{ID: uuid.New(), Tipo: model.MovimientoIngreso, Monto: decimal.NewFromInt(10), Descripcion: "cambio", CreatedAt: cierre},
		{ID: uuid.New(), Tipo: model.MovimientoRetiro, Monto: decimal.NewFromInt(5), Descripcion: "proveedor", CreatedAt: cierre},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderCierrePDF(&buf, sesion, movs))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))

	path, err := GenerateCierrePDF(sesion, movs, t.TempDir()+"/nested")
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestMailer_SinConfigurar(t *testing.T) {
	m := NewMailer(&config.Config{}, NewCircuitBreaker(DefaultCBConfig()))

	assert.False(t, m.Configured())
	assert.Error(t, m.Send("a@b.c", "s", "b", ""))
	assert.Equal(t, CBClosed, m.BreakerState(), "unconfigured sends never reach the breaker")
}

func TestRedisOptions_ReservaConexionesParaWorkers(t *testing.T) {
	opts, err := redisOptions("redis://localhost:6379/2", 3)
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 10*runtime.GOMAXPROCS(0)+3, opts.PoolSize)
	assert.Equal(t, 4*time.Second, opts.PoolTimeout)

	opts, err = redisOptions("redis://localhost:6379/0?pool_size=5", 3)
	require.NoError(t, err)
	assert.Equal(t, 8, opts.PoolSize, "explicit pool_size still gets the worker connections on top")

	_, err = redisOptions("http://localhost", 1)
	assert.Error(t, err)
}
