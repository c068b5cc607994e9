package conciliacion_test

import (
	"errors"
	"testing"

	"frutapack/internal/conciliacion"
	"frutapack/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func editor() conciliacion.EditorPallets {
	return conciliacion.EditorPallets{Tara: conciliacion.TaraEstandar(), Tolerancia: conciliacion.ToleranciaDivisionEstandar}
}

func TestEditarPallet_Simple(t *testing.T) {
	r := recepcionR1()

	res, err := editor().EditarPallet(&r, "A", conciliacion.ParteEdicion{
		PesoNeto:      dec("450"),
		Bandejas:      9,
		Clasificacion: model.ClasificacionIQFDirecto,
	}, nil)
	require.NoError(t, err)
	require.Len(t, res.Pallets, 1)
	assert.False(t, res.EsDivision())

	p := res.Pallets[0]
	assert.Equal(t, "A", p.Folio)
	assert.Equal(t, "472.88", p.PesoBruto.String()) // 450 + 9×0.32 + 20
	assert.Equal(t, 9, p.Bandejas)
	assert.Equal(t, model.ClasificacionIQFDirecto, p.Clasificacion)
	assert.Nil(t, p.FolioPadre)
	assert.Equal(t, "500", r.Pallets[0].PesoBruto.String(), "input reception untouched")
}

func TestEditarPallet_DivisionCuadrada(t *testing.T) {
	r := recepcionR1()

	// 476.8 net / 10 trays → 300 + 176.8, 6 + 4 trays
	res, err := editor().EditarPallet(&r, "A",
		conciliacion.ParteEdicion{PesoNeto: dec("300"), Bandejas: 6},
		&conciliacion.ParteEdicion{PesoNeto: dec("176.8"), Bandejas: 4, Clasificacion: model.ClasificacionMermaDirecta},
	)
	require.NoError(t, err)
	require.True(t, res.EsDivision())
	assert.Empty(t, res.Advertencias)

	a, b := res.Pallets[0], res.Pallets[1]
	assert.Equal(t, "A", a.Folio)
	assert.Equal(t, "A-B", b.Folio)
	assert.Equal(t, model.ClasificacionProceso, a.Clasificacion)
	assert.Equal(t, model.ClasificacionMermaDirecta, b.Clasificacion)
	require.NotNil(t, a.FolioPadre)
	require.NotNil(t, b.FolioPadre)
	assert.Equal(t, "A", *a.FolioPadre)
	assert.Equal(t, "A", *b.FolioPadre)
	assert.Equal(t, r.ID, b.RecepcionID)

	tara := conciliacion.TaraEstandar()
	netos := tara.PesoNeto(a.PesoBruto, a.Bandejas).Add(tara.PesoNeto(b.PesoBruto, b.Bandejas))
	assert.Equal(t, "476.8", netos.String())
}

func TestEditarPallet_DivisionDescuadradaAdvierte(t *testing.T) {
	r := recepcionR1()

	res, err := editor().EditarPallet(&r, "A",
		conciliacion.ParteEdicion{PesoNeto: dec("300"), Bandejas: 6},
		&conciliacion.ParteEdicion{PesoNeto: dec("170"), Bandejas: 4},
	)
	require.NoError(t, err, "divergence is a warning, never a rejection")
	require.Len(t, res.Advertencias, 1)
	assert.Equal(t, conciliacion.AdvertenciaDivisionDescuadrada, res.Advertencias[0].Tipo)
	assert.Equal(t, "-6.8", res.Advertencias[0].Diferencia.String())
	assert.Equal(t, "170", conciliacion.TaraEstandar().PesoNeto(res.Pallets[1].PesoBruto, 4).String(), "operator values are stored as given")
}

func TestEditarPallet_DentroDeTolerancia(t *testing.T) {
	r := recepcionR1()

	res, err := editor().EditarPallet(&r, "A",
		conciliacion.ParteEdicion{PesoNeto: dec("300"), Bandejas: 6},
		&conciliacion.ParteEdicion{PesoNeto: dec("176.4"), Bandejas: 4},
	)
	require.NoError(t, err)
	assert.Empty(t, res.Advertencias)
}

func TestEditarPallet_FolioInexistente(t *testing.T) {
	r := recepcionR1()

	_, err := editor().EditarPallet(&r, "Z", conciliacion.ParteEdicion{PesoNeto: dec("1")}, nil)
	assert.True(t, errors.Is(err, conciliacion.ErrPalletInvalido))

	_, err = editor().EditarPallet(&r, conciliacion.FolioGeneral, conciliacion.ParteEdicion{PesoNeto: dec("1")}, nil)
	assert.True(t, errors.Is(err, conciliacion.ErrPalletInvalido))
}

func TestEditarPallet_ValoresNegativos(t *testing.T) {
	r := recepcionR1()

	_, err := editor().EditarPallet(&r, "A", conciliacion.ParteEdicion{PesoNeto: dec("-1"), Bandejas: 2}, nil)
	assert.True(t, errors.Is(err, conciliacion.ErrValidacion))

	_, err = editor().EditarPallet(&r, "A", conciliacion.ParteEdicion{PesoNeto: dec("10"), Clasificacion: "OTRA"}, nil)
	assert.True(t, errors.Is(err, conciliacion.ErrValidacion))
}

func TestFolioDivision_SaltaSufijosUsados(t *testing.T) {
	existentes := []model.DetallePallet{{Folio: "A"}, {Folio: "A-B"}, {Folio: "A-C"}}

	assert.Equal(t, "A-D", conciliacion.FolioDivision("A", existentes))
}

func TestEditarPallet_DivisionDeUnaParteConservaPadre(t *testing.T) {
	r := recepcionR1()
	res, err := editor().EditarPallet(&r, "A",
		conciliacion.ParteEdicion{PesoNeto: dec("300"), Bandejas: 6},
		&conciliacion.ParteEdicion{PesoNeto: dec("176.8"), Bandejas: 4},
	)
	require.NoError(t, err)
	r.Pallets = append([]model.DetallePallet{r.Pallets[1]}, res.Pallets...)

	res2, err := editor().EditarPallet(&r, "A-B",
		conciliacion.ParteEdicion{PesoNeto: dec("100"), Bandejas: 2},
		&conciliacion.ParteEdicion{PesoNeto: dec("76.8"), Bandejas: 2},
	)
	require.NoError(t, err)
	assert.Equal(t, "A-B-B", res2.Pallets[1].Folio)
	assert.Equal(t, "A", *res2.Pallets[1].FolioPadre)
}
