package dto

// AnalisisResponse is the narrative state of one lot.
// Estado: pendiente | listo | error | no_disponible
type AnalisisResponse struct {
	LoteCodigo    string `json:"lote_codigo"`
	Estado        string `json:"estado"`
	Texto         string `json:"texto"`
	Intentos      int    `json:"intentos"`
	ActualizadoEn string `json:"actualizado_en"`
}
