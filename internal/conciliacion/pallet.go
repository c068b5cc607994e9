package conciliacion

import (
	"fmt"

	"frutapack/internal/model"

	"github.com/shopspring/decimal"
)

// ToleranciaDivisionEstandar is the split divergence above which a warning is raised.
var ToleranciaDivisionEstandar = decimal.RequireFromString("0.5")

// ParteEdicion is what the operator states for one side of an edit.
type ParteEdicion struct {
	PesoNeto      decimal.Decimal
	Bandejas      int
	Clasificacion model.Clasificacion
}

// ResultadoEdicion carries the records that replace the edited pallet.
// Simple edits yield one record, splits yield two (A keeps the folio).
type ResultadoEdicion struct {
	Original     model.DetallePallet
	Pallets      []model.DetallePallet
	Advertencias []Advertencia
}

// EsDivision reports whether the edit produced two records.
func (r *ResultadoEdicion) EsDivision() bool { return len(r.Pallets) == 2 }

// EditorPallets applies simple edits and two-way splits to reception pallets.
type EditorPallets struct {
	Tara       Tara
	Tolerancia decimal.Decimal
}

// EditarPallet resolves folio inside the reception and computes its
// replacement. With partB == nil it is a simple edit; otherwise a split.
// The reception is not modified; persisting the result is up to the caller.
func (e EditorPallets) EditarPallet(r *model.Recepcion, folio string, partA ParteEdicion, partB *ParteEdicion) (*ResultadoEdicion, error) {
	if r == nil {
		return nil, errPallet("", folio)
	}
	idx := -1
	for i := range r.Pallets {
		if r.Pallets[i].Folio == folio {
			idx = i
			break
		}
	}
	if idx < 0 || folio == FolioGeneral {
		return nil, errPallet(r.ID.String(), folio)
	}
	if err := validarParte(partA); err != nil {
		return nil, err
	}
	original := r.Pallets[idx]

	a := original
	a.PesoBruto = e.Tara.PesoBruto(partA.PesoNeto, partA.Bandejas)
	a.Bandejas = partA.Bandejas
	a.Clasificacion = partA.Clasificacion.Normalizar()

	if partB == nil {
		return &ResultadoEdicion{Original: original, Pallets: []model.DetallePallet{a}}, nil
	}
	if err := validarParte(*partB); err != nil {
		return nil, err
	}

	padre := original.Folio
	if original.FolioPadre != nil {
		padre = *original.FolioPadre
	}
	a.FolioPadre = &padre

	b := model.DetallePallet{
		RecepcionID:   original.RecepcionID,
		Posicion:      original.Posicion,
		Folio:         FolioDivision(original.Folio, r.Pallets),
		PesoBruto:     e.Tara.PesoBruto(partB.PesoNeto, partB.Bandejas),
		Bandejas:      partB.Bandejas,
		Usado:         original.Usado,
		Clasificacion: partB.Clasificacion.Normalizar(),
		FolioPadre:    &padre,
	}

	res := &ResultadoEdicion{Original: original, Pallets: []model.DetallePallet{a, b}}
	if adv := e.verificarDivision(original, a, b); adv != nil {
		res.Advertencias = append(res.Advertencias, *adv)
	}
	return res, nil
}

// DiferenciaDivision is the gross-equivalent mismatch of a split. The second
// part stands on its own pallet base, so one extra pallet tare is discounted.
func (e EditorPallets) DiferenciaDivision(original, a, b model.DetallePallet) decimal.Decimal {
	return a.PesoBruto.Add(b.PesoBruto).Sub(e.Tara.Pallet).Sub(original.PesoBruto)
}

func (e EditorPallets) verificarDivision(original, a, b model.DetallePallet) *Advertencia {
	diff := e.DiferenciaDivision(original, a, b)
	tol := e.Tolerancia
	if tol.IsZero() {
		tol = ToleranciaDivisionEstandar
	}
	if diff.Abs().LessThanOrEqual(tol) {
		return nil
	}
	return &Advertencia{
		Tipo:       AdvertenciaDivisionDescuadrada,
		Mensaje:    fmt.Sprintf("Las partes no suman el pallet original %s: diferencia de %s kg", original.Folio, diff.StringFixed(2)),
		Diferencia: diff,
	}
}

// FolioDivision picks the folio of part B: the original folio plus the first
// letter suffix, from B onward, not already used in the reception.
func FolioDivision(folio string, existentes []model.DetallePallet) string {
	usados := make(map[string]struct{}, len(existentes))
	for _, p := range existentes {
		usados[p.Folio] = struct{}{}
	}
	for letra := 'B'; letra <= 'Z'; letra++ {
		candidato := fmt.Sprintf("%s-%c", folio, letra)
		if _, ok := usados[candidato]; !ok {
			return candidato
		}
	}
	// 25 splits of the same pallet; fall back to a numeric suffix.
	for n := 1; ; n++ {
		candidato := fmt.Sprintf("%s-Z%d", folio, n)
		if _, ok := usados[candidato]; !ok {
			return candidato
		}
	}
}

func validarParte(p ParteEdicion) error {
	if p.PesoNeto.IsNegative() {
		return errValidacion("el peso neto no puede ser negativo")
	}
	if p.Bandejas < 0 {
		return errValidacion("la cantidad de bandejas no puede ser negativa")
	}
	if !p.Clasificacion.EsValida() {
		return errValidacion(fmt.Sprintf("clasificacion desconocida %q", p.Clasificacion))
	}
	return nil
}
