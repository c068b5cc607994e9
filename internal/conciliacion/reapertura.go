package conciliacion

import (
	"frutapack/internal/model"

	"github.com/shopspring/decimal"
)

// ReconstruirEntradas rebuilds the input items of a committed lot. Used
// pallets are included because every pallet of a committed lot is marked
// used. Pallets match on their reception-qualified key, so a folio repeated
// in another listed reception is not pulled in. A reception without pallet
// detail contributes its General item when the lot lists it.
func ReconstruirEntradas(t Tara, lote *model.LoteProduccion, recepciones []model.Recepcion) []ItemStock {
	claves := ClavesLote(lote)
	ids := make(map[string]struct{}, len(lote.RecepcionIDs))
	for _, id := range lote.RecepcionIDs {
		ids[id] = struct{}{}
	}

	var items []ItemStock
	for i := range recepciones {
		r := &recepciones[i]
		_, listada := ids[r.ID.String()]
		if len(ids) > 0 && !listada {
			continue
		}
		for _, it := range t.itemsRecepcion(r, true) {
			if it.Folio == FolioGeneral {
				if listada {
					items = append(items, it)
				}
				continue
			}
			if _, ok := claves[ClavePallet(r.ID, it.Folio)]; ok {
				items = append(items, it)
			}
		}
	}
	return items
}

// ClavesLote is the set of reception-qualified pallet keys a lot consumed.
func ClavesLote(lote *model.LoteProduccion) map[string]struct{} {
	claves := make(map[string]struct{}, len(lote.PalletsUsados))
	for _, k := range lote.PalletsUsados {
		claves[k] = struct{}{}
	}
	return claves
}

// DescomponerDescartes splits the stored aggregate discards of a lot into
// the manual part, clamping each category at zero.
func DescomponerDescartes(lote *model.LoteProduccion, entradas []ItemStock) Descartes {
	iqf, merma, desecho := SumasDirectas(entradas)
	manual := func(total, directo decimal.Decimal) decimal.Decimal {
		return decimal.Max(decimal.Zero, total.Sub(directo))
	}
	adicionales := make(map[string]decimal.Decimal)
	for k, v := range lote.DescartesAdicionales.Data() {
		adicionales[k] = v
	}
	return Descartes{
		IQF:         manual(lote.KilosIQF, iqf),
		Merma:       manual(lote.KilosMerma, merma),
		Desecho:     manual(lote.KilosDesecho, desecho),
		Adicionales: adicionales,
	}
}

// Reabrir enters composition in update mode from a committed lot. The
// lot's own folios are excluded from open-folio lookups, and the commit
// keeps its identity.
func (s *Sesion) Reabrir(lote *model.LoteProduccion, recepciones []model.Recepcion, ctx Contexto) error {
	if s.estado != EstadoSeleccion {
		return errEstado("ya hay un lote en composicion")
	}
	if lote == nil {
		return ErrLoteNoEncontrado
	}

	entradas := ReconstruirEntradas(s.cfg.Tara, lote, recepciones)
	original := *lote
	original.Detalles = nil

	s.ctx = ctx
	s.modo = ModoActualizar
	s.original = &original
	s.estado = EstadoComposicion
	s.codigo = lote.Codigo
	s.centroTrabajo = lote.CentroTrabajo
	s.productor = lote.Productor
	s.variedad = lote.Variedad
	s.fecha = lote.Fecha
	s.entradas = entradas
	s.descartes = DescomponerDescartes(lote, entradas)

	s.lineas = make([]model.DetalleProduccion, len(lote.Detalles))
	copy(s.lineas, lote.Detalles)
	for i := range s.lineas {
		s.lineas[i].Posicion = i
	}
	return nil
}
