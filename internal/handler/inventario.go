package handler

import (
	"net/http"

	"puntoventa/internal/dto"
	"puntoventa/internal/service"

	"github.com/gin-gonic/gin"
)

type InventarioHandler struct{ ledger service.StockLedger }

func NewInventarioHandler(ledger service.StockLedger) *InventarioHandler {
	return &InventarioHandler{ledger: ledger}
}

// Obtener GET /v1/inventario/:producto_id
func (h *InventarioHandler) Obtener(c *gin.Context) {
	usuarioID, ok := usuarioActual(c)
	if !ok {
		return
	}
	productoID, ok := uuidParam(c, "producto_id")
	if !ok {
		return
	}
	resp, err := h.ledger.ObtenerInventario(c.Request.Context(), usuarioID, productoID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Ajustar godoc
// @Summary Fija el stock absoluto de un producto (correccion manual)
// @Tags inventario
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param producto_id path string true "ID de producto"
// @Param body body dto.AjusteInventarioRequest true "Nuevo stock"
// @Success 200 {object} dto.InventarioResponse
// @Failure 404 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/inventario/{producto_id} [put]
func (h *InventarioHandler) Ajustar(c *gin.Context) {
	usuarioID, ok := usuarioActual(c)
	if !ok {
		return
	}
	productoID, ok := uuidParam(c, "producto_id")
	if !ok {
		return
	}
	var req dto.AjusteInventarioRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.ledger.AjustarAbsoluto(c.Request.Context(), usuarioID, productoID, *req.Stock, req.Motivo)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Alertas GET /v1/inventario/alertas
func (h *InventarioHandler) Alertas(c *gin.Context) {
	usuarioID, ok := usuarioActual(c)
	if !ok {
		return
	}
	resp, err := h.ledger.Alertas(c.Request.Context(), usuarioID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListarMovimientos GET /v1/inventario/movimientos
func (h *InventarioHandler) ListarMovimientos(c *gin.Context) {
	var filter dto.MovimientoStockFilter
	if !bindQuery(c, &filter) {
		return
	}
	usuarioID, ok := usuarioActual(c)
	if !ok {
		return
	}
	resp, err := h.ledger.ListarMovimientos(c.Request.Context(), usuarioID, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
