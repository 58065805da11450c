// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

// Stable machine-readable codes. Clients switch on Code, never on Detail.
const (
	CodeJSONInvalido        = "json_invalido"
	CodeValidacion          = "validacion"
	CodeNoAutenticado       = "no_autenticado"
	CodeLimiteExcedido      = "limite_excedido"
	CodeNoEncontrado        = "no_encontrado"
	CodeProductoInexistente = "producto_no_encontrado"
	CodeSinInventario       = "sin_inventario"
	CodeStockInsuficiente   = "stock_insuficiente"
	CodeCajaYaAbierta       = "caja_ya_abierta"
	CodeSinCajaAbierta      = "sin_caja_abierta"
	CodeCajaCerrada         = "caja_cerrada"
	CodeConflicto           = "conflicto"
	CodeInterno             = "error_interno"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Code   string            `json:"code"`
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields,omitempty"`

	// Set only for stock_insuficiente.
	ProductoID string `json:"producto_id,omitempty"`
	Faltante   int    `json:"faltante,omitempty"`
}

func New(code, msg string) *APIError {
	return &APIError{Code: code, Detail: msg}
}

// NewValidation wraps multiple field errors.
func NewValidation(fields map[string]string) *APIError {
	return &APIError{Code: CodeValidacion, Detail: "Error de validacion", Fields: fields}
}

// NewStockInsuficiente reports which product ran short and by how much.
func NewStockInsuficiente(msg, productoID string, faltante int) *APIError {
	return &APIError{Code: CodeStockInsuficiente, Detail: msg, ProductoID: productoID, Faltante: faltante}
}
