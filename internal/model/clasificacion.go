package model

// Clasificacion tells whether a raw pallet goes through the line or is
// discarded at intake. Values are stored verbatim.
type Clasificacion string

const (
	ClasificacionProceso        Clasificacion = "PROCESO"
	ClasificacionIQFDirecto     Clasificacion = "IQF DIRECTO"
	ClasificacionMermaDirecta   Clasificacion = "MERMA DIRECTA"
	ClasificacionDesechoDirecto Clasificacion = "DESECHO DIRECTO"
)

// Normalizar maps the empty value to PROCESO.
func (c Clasificacion) Normalizar() Clasificacion {
	if c == "" {
		return ClasificacionProceso
	}
	return c
}

// EsDirecta reports whether the stock bypasses processing.
func (c Clasificacion) EsDirecta() bool {
	switch c {
	case ClasificacionIQFDirecto, ClasificacionMermaDirecta, ClasificacionDesechoDirecto:
		return true
	default:
		return false
	}
}

// EsValida reports whether c is one of the known values (empty counts as PROCESO).
func (c Clasificacion) EsValida() bool {
	return c == "" || c == ClasificacionProceso || c.EsDirecta()
}
