package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Domain errors. Handlers map them to HTTP status codes with errors.Is /
// errors.As; anything else is an infrastructure failure.
var (
	ErrValidacion           = errors.New("datos inválidos")
	ErrProductoNoEncontrado = errors.New("producto no encontrado")
	ErrProductoDuplicado    = errors.New("ya existe un producto con ese nombre")
	ErrSinInventario        = errors.New("el producto no tiene inventario")
	ErrStockInsuficiente    = errors.New("stock insuficiente")

	ErrCajaYaAbierta      = errors.New("ya hay una caja abierta para este usuario")
	ErrSinCajaAbierta     = errors.New("no hay caja abierta actualmente para este usuario")
	ErrCajaCerrada        = errors.New("la caja está cerrada")
	ErrSesionNoEncontrada = errors.New("sesión de caja no encontrada")

	ErrPedidoNoEncontrado    = errors.New("pedido no encontrado")
	ErrCategoriaNoEncontrada = errors.New("categoría no encontrada")
	ErrCategoriaDuplicada    = errors.New("ya existe una categoría con ese nombre")
)

// StockInsuficienteError reports the first line that failed the availability
// check. errors.Is(err, ErrStockInsuficiente) holds for it.
type StockInsuficienteError struct {
	ProductoID uuid.UUID
	Nombre     string
	Disponible int
	Solicitado int
}

func (e *StockInsuficienteError) Error() string {
	return fmt.Sprintf("stock insuficiente para %s: disponible %d, solicitado %d",
		e.Nombre, e.Disponible, e.Solicitado)
}

// Faltante is how many units are missing to satisfy the request.
func (e *StockInsuficienteError) Faltante() int { return e.Solicitado - e.Disponible }

func (e *StockInsuficienteError) Is(target error) bool { return target == ErrStockInsuficiente }

func validacion(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidacion, fmt.Sprintf(format, args...))
}
