package dto

import "frutapack/internal/conciliacion"

type RegistrarDespachoRequest struct {
	Numero  string   `json:"numero"  validate:"required,max=30"`
	Cliente string   `json:"cliente" validate:"required,max=120"`
	Fecha   string   `json:"fecha"   validate:"omitempty,datetime=2006-01-02"`
	Folios  []string `json:"folios"  validate:"required,min=1,dive,required,max=40"`
}

type DespachoResponse struct {
	ID      string   `json:"id"`
	Numero  string   `json:"numero"`
	Cliente string   `json:"cliente"`
	Fecha   string   `json:"fecha"`
	Folios  []string `json:"folios"`
}

type FoliosAbiertosResponse struct {
	Data  []conciliacion.FolioAbierto `json:"data"`
	Total int                         `json:"total"`
}
