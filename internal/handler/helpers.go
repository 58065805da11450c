package handler

import (
	"errors"
	"net/http"
	"reflect"

	"puntoventa/internal/apierror"
	"puntoventa/internal/middleware"
	"puntoventa/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeJSONInvalido, "JSON invalido: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

// bindQuery is bindAndValidate for query-string filters.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidacion, "Parametros invalidos: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

func validateStruct(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusUnprocessableEntity, apierror.New(apierror.CodeValidacion, err.Error()))
			return false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// usuarioActual returns the operator id from the JWT. It writes a 401 and
// returns false when the claim is not a valid uuid.
func usuarioActual(c *gin.Context) (uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New(apierror.CodeNoAutenticado, "Autenticacion requerida"))
		return uuid.Nil, false
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New(apierror.CodeNoAutenticado, "Token sin usuario valido"))
		return uuid.Nil, false
	}
	return id, true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New(apierror.CodeValidacion, name+" invalido"))
		return uuid.Nil, false
	}
	return id, true
}

// respondError maps service errors to HTTP responses. Unknown errors are
// logged and answered with a generic 500.
func respondError(c *gin.Context, err error) {
	var sie *service.StockInsuficienteError
	switch {
	case errors.As(err, &sie):
		c.JSON(http.StatusConflict, apierror.NewStockInsuficiente(sie.Error(), sie.ProductoID.String(), sie.Faltante()))
	case errors.Is(err, service.ErrValidacion):
		c.JSON(http.StatusUnprocessableEntity, apierror.New(apierror.CodeValidacion, err.Error()))
	case errors.Is(err, service.ErrCajaYaAbierta):
		c.JSON(http.StatusConflict, apierror.New(apierror.CodeCajaYaAbierta, err.Error()))
	case errors.Is(err, service.ErrSinCajaAbierta):
		c.JSON(http.StatusConflict, apierror.New(apierror.CodeSinCajaAbierta, err.Error()))
	case errors.Is(err, service.ErrCajaCerrada):
		c.JSON(http.StatusConflict, apierror.New(apierror.CodeCajaCerrada, err.Error()))
	case errors.Is(err, service.ErrSinInventario):
		c.JSON(http.StatusConflict, apierror.New(apierror.CodeSinInventario, err.Error()))
	case errors.Is(err, service.ErrCategoriaDuplicada), errors.Is(err, service.ErrProductoDuplicado):
		c.JSON(http.StatusConflict, apierror.New(apierror.CodeConflicto, err.Error()))
	case errors.Is(err, service.ErrProductoNoEncontrado):
		c.JSON(http.StatusNotFound, apierror.New(apierror.CodeProductoInexistente, err.Error()))
	case errors.Is(err, service.ErrPedidoNoEncontrado),
		errors.Is(err, service.ErrSesionNoEncontrada),
		errors.Is(err, service.ErrCategoriaNoEncontrada):
		c.JSON(http.StatusNotFound, apierror.New(apierror.CodeNoEncontrado, err.Error()))
	default:
		log.Error().Err(err).
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("request failed")
		c.JSON(http.StatusInternalServerError, apierror.New(apierror.CodeInterno, "Error interno del servidor"))
	}
}
