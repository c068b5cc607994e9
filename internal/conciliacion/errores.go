package conciliacion

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors. Typed errors below unwrap to one of these so callers can
// branch with errors.Is.
var (
	ErrValidacion            = errors.New("conciliacion: validacion")
	ErrPalletInvalido        = errors.New("conciliacion: pallet invalido")
	ErrConfirmacionRequerida = errors.New("conciliacion: confirmacion requerida")
	ErrEstadoSesion          = errors.New("conciliacion: estado de sesion invalido")
	ErrLoteNoEncontrado      = errors.New("conciliacion: lote no encontrado")
)

// ErrorBalance blocks a commit whose outputs and discards exceed the input.
type ErrorBalance struct {
	Exceso decimal.Decimal
}

func (e *ErrorBalance) Error() string {
	return fmt.Sprintf("El balance es negativo: la salida supera la entrada en %s kg", e.Exceso.StringFixed(2))
}

func (e *ErrorBalance) Unwrap() error { return ErrValidacion }

// ConfirmacionRequerida is returned when a selection mixes producers or
// varieties and the caller has not confirmed it.
type ConfirmacionRequerida struct {
	Productores int
	Variedades  int
}

func (e *ConfirmacionRequerida) Error() string {
	return fmt.Sprintf("La seleccion mezcla %d productores y %d variedades; se requiere confirmacion", e.Productores, e.Variedades)
}

func (e *ConfirmacionRequerida) Unwrap() error { return ErrConfirmacionRequerida }

// errorDominio carries an operator-facing message and unwraps to a sentinel.
type errorDominio struct {
	base error
	msg  string
}

func (e *errorDominio) Error() string { return e.msg }
func (e *errorDominio) Unwrap() error { return e.base }

func errValidacion(msg string) error {
	return &errorDominio{base: ErrValidacion, msg: msg}
}

func errPallet(recepcionID, folio string) error {
	return &errorDominio{
		base: ErrPalletInvalido,
		msg:  fmt.Sprintf("El folio %q no existe en la recepcion %s", folio, recepcionID),
	}
}

func errEstado(msg string) error {
	return &errorDominio{base: ErrEstadoSesion, msg: msg}
}

// TipoAdvertencia classifies a non-blocking warning.
type TipoAdvertencia string

const (
	AdvertenciaDivisionDescuadrada TipoAdvertencia = "division_descuadrada"
	AdvertenciaFolioExistente      TipoAdvertencia = "folio_existente"
)

// Advertencia is informational; the operator decides whether to act on it.
type Advertencia struct {
	Tipo       TipoAdvertencia `json:"tipo"`
	Mensaje    string          `json:"mensaje"`
	Diferencia decimal.Decimal `json:"diferencia"`
}
