package dto

import (
	"frutapack/internal/conciliacion"

	"github.com/shopspring/decimal"
)

// StockResponse is returned by GET /v1/stock.
type StockResponse struct {
	Items     []conciliacion.ItemStock `json:"items"`
	Total     int                      `json:"total"`
	TotalNeto decimal.Decimal          `json:"total_neto"`
}

// ─── Pallet edit / split ─────────────────────────────────────────────────────

type ParteEdicionRequest struct {
	PesoNeto      decimal.Decimal `json:"peso_neto"     validate:"min=0"`
	Bandejas      int             `json:"bandejas"      validate:"min=0"`
	Clasificacion string          `json:"clasificacion" validate:"omitempty,oneof='PROCESO' 'IQF DIRECTO' 'MERMA DIRECTA' 'DESECHO DIRECTO'"`
}

// EditarPalletRequest: without parte_b it is a simple edit; with it the
// pallet is split in two and parte_a keeps the folio.
type EditarPalletRequest struct {
	ParteA ParteEdicionRequest  `json:"parte_a"`
	ParteB *ParteEdicionRequest `json:"parte_b"`
}

type PalletResponse struct {
	ID            string          `json:"id"`
	Folio         string          `json:"folio"`
	FolioPadre    *string         `json:"folio_padre,omitempty"`
	PesoBruto     decimal.Decimal `json:"peso_bruto"`
	PesoNeto      decimal.Decimal `json:"peso_neto"`
	Bandejas      int             `json:"bandejas"`
	Clasificacion string          `json:"clasificacion"`
	Usado         bool            `json:"usado"`
}

type EditarPalletResponse struct {
	RecepcionID  string                     `json:"recepcion_id"`
	Division     bool                       `json:"division"`
	Pallets      []PalletResponse           `json:"pallets"`
	Advertencias []conciliacion.Advertencia `json:"advertencias"`
}
