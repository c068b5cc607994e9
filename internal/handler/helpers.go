package handler

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"

	"frutapack/internal/apierror"
	"frutapack/internal/conciliacion"
	"frutapack/internal/middleware"
	"frutapack/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0 work on weights ("Bad field type decimal.Decimal" otherwise).
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
		c.JSON(http.StatusBadRequest, apierror.New("JSON invalido: "+err.Error()))
		return false
	}
	return validar(c, req)
}

func validar(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
			return false
		}
		fields := make(map[string]string)
		for _, fe := range ves {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return uuid.Nil, false
	}
	return id, true
}

func paramIndice(c *gin.Context, name string) (int, bool) {
	n, err := strconv.Atoi(c.Param(name))
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, apierror.New("Indice invalido"))
		return 0, false
	}
	return n, true
}

// ── Error mapping ─────────────────────────────────────────────────────────────

var (
	erroresNoEncontrado = []error{
		conciliacion.ErrPalletInvalido,
		conciliacion.ErrLoteNoEncontrado,
		service.ErrLoteNoEncontrado,
		service.ErrComposicionNoEncontrada,
		service.ErrLineaInexistente,
		service.ErrAnalisisNoSolicitado,
	}
	erroresConflicto = []error{
		conciliacion.ErrEstadoSesion,
		service.ErrPalletConsumido,
		service.ErrEntradaDesactualizada,
		service.ErrCodigoEnUso,
		service.ErrLoteEnEdicion,
		service.ErrFolioDespachado,
		service.ErrDespachoDuplicado,
	}
	erroresInvalidos = []error{
		conciliacion.ErrValidacion,
		service.ErrItemNoDisponible,
		service.ErrFolioDesconocido,
	}
)

// responderError writes the status and envelope for a service error.
// Anything unrecognized is logged and answered with a generic 500.
func responderError(c *gin.Context, err error) {
	var balance *conciliacion.ErrorBalance
	if errors.As(err, &balance) {
		c.JSON(http.StatusUnprocessableEntity, apierror.NewBalance(err.Error(), balance.Exceso))
		return
	}
	var confirmacion *conciliacion.ConfirmacionRequerida
	if errors.As(err, &confirmacion) {
		c.JSON(http.StatusConflict, apierror.NewConfirmation(err.Error(), confirmacion.Productores, confirmacion.Variedades))
		return
	}

	switch {
	case esAlguno(err, erroresNoEncontrado):
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))
	case esAlguno(err, erroresConflicto):
		c.JSON(http.StatusConflict, apierror.New(err.Error()))
	case esAlguno(err, erroresInvalidos):
		c.JSON(http.StatusUnprocessableEntity, apierror.New(err.Error()))
	default:
		log.Error().
			Err(err).
			Str("request_id", c.GetString(middleware.RequestIDKey)).
			Str("path", c.FullPath()).
			Msg("error no controlado")
		c.JSON(http.StatusInternalServerError, apierror.New("Error interno del servidor"))
	}
}

func esAlguno(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
