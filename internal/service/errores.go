package service

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Service-level failures. Engine errors from package conciliacion pass
// through untouched; handlers map both sets to HTTP statuses.
var (
	ErrComposicionNoEncontrada = errors.New("La composicion no existe o expiro por inactividad")
	ErrLoteNoEncontrado        = errors.New("Lote no encontrado")
	ErrLoteEnEdicion           = errors.New("El lote ya esta abierto en otra composicion")
	ErrCodigoEnUso             = errors.New("El codigo de lote ya fue usado; cancele y vuelva a componer")
	ErrItemNoDisponible        = errors.New("El item de stock no esta disponible")
	ErrPalletConsumido         = errors.New("El pallet ya fue consumido por otro lote")
	ErrEntradaDesactualizada   = errors.New("El item cambio desde que se agrego a la composicion; quitelo y vuelva a agregarlo")
	ErrLineaInexistente        = errors.New("La linea de produccion no existe")
	ErrFolioDesconocido        = errors.New("El folio no corresponde a ningun pallet terminado")
	ErrFolioDespachado         = errors.New("El folio ya fue despachado")
	ErrDespachoDuplicado       = errors.New("Ya existe un despacho con ese numero")
	ErrAnalisisNoSolicitado    = errors.New("No se ha solicitado el analisis de este lote")
)

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

func noEncontrado(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }
