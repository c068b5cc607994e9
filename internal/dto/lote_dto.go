package dto

import "github.com/shopspring/decimal"

// LoteFilter is bound from query string of GET /v1/lotes.
type LoteFilter struct {
	Productor string `form:"productor"`
	Desde     string `form:"desde"` // YYYY-MM-DD, inclusive
	Hasta     string `form:"hasta"` // YYYY-MM-DD, inclusive
	Page      int    `form:"page,default=1"   validate:"min=1"`
	Limit     int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type LoteResponse struct {
	ID                    string                     `json:"id"`
	Codigo                string                     `json:"codigo"`
	CentroTrabajo         string                     `json:"centro_trabajo"`
	Fecha                 string                     `json:"fecha"`
	Productor             string                     `json:"productor"`
	Variedad              string                     `json:"variedad"`
	RecepcionIDs          []string                   `json:"recepcion_ids"`
	FoliosUsados          []string                   `json:"folios_usados"`
	PalletsUsados         []string                   `json:"pallets_usados"`
	PesoEntradaTotal      decimal.Decimal            `json:"peso_entrada_total"`
	KilosProducidos       decimal.Decimal            `json:"kilos_producidos"`
	KilosIQF              decimal.Decimal            `json:"kilos_iqf"`
	KilosMerma            decimal.Decimal            `json:"kilos_merma"`
	KilosDesecho          decimal.Decimal            `json:"kilos_desecho"`
	DescartesAdicionales  map[string]decimal.Decimal `json:"descartes_adicionales"`
	PorcentajeRendimiento decimal.Decimal            `json:"porcentaje_rendimiento"`
	Detalles              []LineaResponse            `json:"detalles"`
	CreatedAt             string                     `json:"created_at"`
	UpdatedAt             string                     `json:"updated_at"`
}

type LoteListResponse struct {
	Data  []LoteResponse `json:"data"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}
