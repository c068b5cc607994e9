package dto

import (
	"frutapack/internal/conciliacion"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// ProcederRequest opens a composition from stock items (their id_unico).
// Confirmada must be true when the items mix producers or varieties.
type ProcederRequest struct {
	Items      []string `json:"items"      validate:"required,min=1,dive,required"`
	Confirmada bool     `json:"confirmada"`
}

type AgregarEntradaRequest struct {
	IDUnico string `json:"id_unico" validate:"required"`
}

// EditarLineaRequest only changes the fields present in the body.
type EditarLineaRequest struct {
	Formato         *string          `json:"formato"          validate:"omitempty,max=80"`
	PesoUnitario    *decimal.Decimal `json:"peso_unitario"`
	Unidades        *int             `json:"unidades"         validate:"omitempty,min=0"`
	Pallets         *int             `json:"pallets"          validate:"omitempty,min=0"`
	PalletCompleto  *bool            `json:"pallet_completo"`
	Folio           *string          `json:"folio"            validate:"omitempty,max=40"`
	LineaProduccion *string          `json:"linea_produccion" validate:"omitempty,max=40"`
}

type DescartesRequest struct {
	IQF         decimal.Decimal            `json:"iqf"     validate:"min=0"`
	Merma       decimal.Decimal            `json:"merma"   validate:"min=0"`
	Desecho     decimal.Decimal            `json:"desecho" validate:"min=0"`
	Adicionales map[string]decimal.Decimal `json:"adicionales"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type LineaResponse struct {
	Indice          int             `json:"indice"`
	Formato         string          `json:"formato"`
	PesoUnitario    decimal.Decimal `json:"peso_unitario"`
	Unidades        int             `json:"unidades"`
	Pallets         int             `json:"pallets"`
	PalletCompleto  bool            `json:"pallet_completo"`
	Folio           string          `json:"folio"`
	KilosTotales    decimal.Decimal `json:"kilos_totales"`
	LineaProduccion string          `json:"linea_produccion"`
}

type ComposicionResponse struct {
	ID            string                     `json:"id"`
	Estado        string                     `json:"estado"`
	Modo          string                     `json:"modo"`
	Codigo        string                     `json:"codigo"`
	CentroTrabajo string                     `json:"centro_trabajo"`
	Productor     string                     `json:"productor"`
	Variedad      string                     `json:"variedad"`
	Entradas      []conciliacion.ItemStock   `json:"entradas"`
	Lineas        []LineaResponse            `json:"lineas"`
	Descartes     conciliacion.Descartes     `json:"descartes"`
	Balance       conciliacion.Balance       `json:"balance"`
	Advertencias  []conciliacion.Advertencia `json:"advertencias,omitempty"`
}

type ConfirmarResponse struct {
	Modo string       `json:"modo"`
	Lote LoteResponse `json:"lote"`
}
