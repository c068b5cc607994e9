package conciliacion

import (
	"fmt"
	"sort"
	"time"

	"frutapack/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FolioGeneral marks a stock item that stands for a whole reception
// without per-pallet detail.
const FolioGeneral = "General"

// ItemStock is the allocation-ready view of one pallet or one whole
// reception. It is recomputed on every read and never persisted.
type ItemStock struct {
	IDUnico         string              `json:"id_unico"`
	RecepcionID     uuid.UUID           `json:"recepcion_id"`
	Folio           string              `json:"folio"`
	EsIndividual    bool                `json:"es_individual"`
	EsParteDivision bool                `json:"es_parte_division"`
	Productor       string              `json:"productor"`
	Variedad        string              `json:"variedad"`
	NumeroGuia      string              `json:"numero_guia"`
	NumeroLote      string              `json:"numero_lote"`
	Fecha           time.Time           `json:"fecha"`
	Bandejas        int                 `json:"bandejas"`
	PesoBruto       decimal.Decimal     `json:"peso_bruto"`
	PesoNeto        decimal.Decimal     `json:"peso_neto"`
	Clasificacion   model.Clasificacion `json:"clasificacion"`
}

// EsDirecto reports whether the item is a direct discard.
func (it ItemStock) EsDirecto() bool { return it.Clasificacion.EsDirecta() }

// IDUnicoItem builds the stable identifier of an item. The positional index
// keeps duplicated folios inside one reception apart.
func IDUnicoItem(recepcionID uuid.UUID, folio string, indice int) string {
	return fmt.Sprintf("%s-%s-%d", recepcionID, folio, indice)
}

// ClavePallet qualifies a folio with its reception. Folios are only unique
// inside one reception, so committed lots record pallets by this key.
func ClavePallet(recepcionID uuid.UUID, folio string) string {
	return recepcionID.String() + "/" + folio
}

// CoincidePallet reports whether the item still carries the pallet's current
// weights and classification.
func CoincidePallet(it ItemStock, p model.DetallePallet) bool {
	return it.Bandejas == p.Bandejas &&
		it.PesoBruto.Equal(p.PesoBruto) &&
		it.Clasificacion == p.Clasificacion.Normalizar()
}

// CoincideRecepcion is CoincidePallet for the General item of a reception.
func CoincideRecepcion(it ItemStock, r *model.Recepcion) bool {
	return len(r.Pallets) == 0 &&
		it.Bandejas == r.TotalBandejas &&
		it.PesoNeto.Equal(r.PesoNeto)
}

// AplanarStock projects receptions into selectable items, skipping pallets
// already used. It never mutates its input.
func (t Tara) AplanarStock(recepciones []model.Recepcion) []ItemStock {
	items := make([]ItemStock, 0, len(recepciones))
	for i := range recepciones {
		items = append(items, t.itemsRecepcion(&recepciones[i], false)...)
	}
	return items
}

// itemsRecepcion emits the items of one reception. With incluirUsados the
// used pallets are emitted too (lot reopen needs them).
func (t Tara) itemsRecepcion(r *model.Recepcion, incluirUsados bool) []ItemStock {
	if len(r.Pallets) == 0 {
		return []ItemStock{{
			IDUnico:       IDUnicoItem(r.ID, FolioGeneral, 0),
			RecepcionID:   r.ID,
			Folio:         FolioGeneral,
			EsIndividual:  false,
			Productor:     r.Productor,
			Variedad:      r.Variedad,
			NumeroGuia:    r.NumeroGuia,
			NumeroLote:    r.NumeroLote,
			Fecha:         r.Fecha,
			Bandejas:      r.TotalBandejas,
			PesoBruto:     r.PesoBruto,
			PesoNeto:      r.PesoNeto,
			Clasificacion: model.ClasificacionProceso,
		}}
	}

	var items []ItemStock
	for idx, p := range PalletsOrdenados(r.Pallets) {
		if p.Usado && !incluirUsados {
			continue
		}
		items = append(items, ItemStock{
			IDUnico:         IDUnicoItem(r.ID, p.Folio, idx),
			RecepcionID:     r.ID,
			Folio:           p.Folio,
			EsIndividual:    true,
			EsParteDivision: p.EsParteDivision(),
			Productor:       r.Productor,
			Variedad:        r.Variedad,
			NumeroGuia:      r.NumeroGuia,
			NumeroLote:      r.NumeroLote,
			Fecha:           r.Fecha,
			Bandejas:        p.Bandejas,
			PesoBruto:       p.PesoBruto,
			PesoNeto:        t.PesoNeto(p.PesoBruto, p.Bandejas),
			Clasificacion:   p.Clasificacion.Normalizar(),
		})
	}
	return items
}

// PalletsOrdenados returns a copy sorted by position then folio, which is the
// order the positional index of IDUnicoItem refers to.
func PalletsOrdenados(pallets []model.DetallePallet) []model.DetallePallet {
	out := make([]model.DetallePallet, len(pallets))
	copy(out, pallets)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Posicion != out[j].Posicion {
			return out[i].Posicion < out[j].Posicion
		}
		return out[i].Folio < out[j].Folio
	})
	return out
}

// Cardinalidad counts distinct producers and varieties in a selection.
func Cardinalidad(items []ItemStock) (productores, variedades int) {
	ps := make(map[string]struct{})
	vs := make(map[string]struct{})
	for _, it := range items {
		ps[it.Productor] = struct{}{}
		vs[it.Variedad] = struct{}{}
	}
	return len(ps), len(vs)
}

// SumaNeto adds the net weight of the items.
func SumaNeto(items []ItemStock) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.PesoNeto)
	}
	return total
}
