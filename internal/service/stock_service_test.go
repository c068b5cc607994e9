package service_test

import (
	"context"
	"testing"

	"frutapack/internal/conciliacion"
	"frutapack/internal/dto"
	"frutapack/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildStockSvc() (service.StockService, *stubRecepcionRepo) {
	repo := newStubRecepcionRepo(recepcionR1())
	editor := conciliacion.EditorPallets{
		Tara:       conciliacion.TaraEstandar(),
		Tolerancia: conciliacion.ToleranciaDivisionEstandar,
	}
	return service.NewStockService(repo, editor), repo
}

func TestListarDisponible_AplanaPallets(t *testing.T) {
	svc, _ := buildStockSvc()

	resp, err := svc.ListarDisponible(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, "754.88", resp.TotalNeto.StringFixed(2))
}

func TestEditarPallet_Simple(t *testing.T) {
	svc, repo := buildStockSvc()

	resp, err := svc.EditarPallet(context.Background(), idR1, "A", dto.EditarPalletRequest{
		ParteA: dto.ParteEdicionRequest{PesoNeto: dec("450"), Bandejas: 10, Clasificacion: "IQF DIRECTO"},
	})
	require.NoError(t, err)
	assert.False(t, resp.Division)
	require.Len(t, resp.Pallets, 1)
	assert.Equal(t, "450.00", resp.Pallets[0].PesoNeto.StringFixed(2))
	assert.Empty(t, resp.Advertencias)

	p := repo.pallet(idR1, "A")
	assert.Equal(t, "473.20", p.PesoBruto.StringFixed(2))
	assert.Equal(t, "IQF DIRECTO", string(p.Clasificacion))
	assert.Len(t, repo.recepciones[idR1].Pallets, 2)
}

func TestEditarPallet_DivisionCuadrada(t *testing.T) {
	svc, repo := buildStockSvc()

	resp, err := svc.EditarPallet(context.Background(), idR1, "A", dto.EditarPalletRequest{
		ParteA: dto.ParteEdicionRequest{PesoNeto: dec("300"), Bandejas: 6},
		ParteB: &dto.ParteEdicionRequest{PesoNeto: dec("176.8"), Bandejas: 4, Clasificacion: "MERMA DIRECTA"},
	})
	require.NoError(t, err)
	assert.True(t, resp.Division)
	assert.Empty(t, resp.Advertencias)

	b := repo.pallet(idR1, "A-B")
	require.NotNil(t, b, "part B is stored with a suffixed folio")
	require.NotNil(t, b.FolioPadre)
	assert.Equal(t, "A", *b.FolioPadre)
	assert.Equal(t, "MERMA DIRECTA", string(b.Clasificacion))
	assert.Len(t, repo.recepciones[idR1].Pallets, 3)
}

func TestEditarPallet_DivisionDescuadradaAdvierte(t *testing.T) {
	svc, repo := buildStockSvc()

	resp, err := svc.EditarPallet(context.Background(), idR1, "A", dto.EditarPalletRequest{
		ParteA: dto.ParteEdicionRequest{PesoNeto: dec("300"), Bandejas: 6},
		ParteB: &dto.ParteEdicionRequest{PesoNeto: dec("180"), Bandejas: 4},
	})
	require.NoError(t, err, "divergent splits are stored as entered")
	require.Len(t, resp.Advertencias, 1)
	assert.Equal(t, conciliacion.AdvertenciaDivisionDescuadrada, resp.Advertencias[0].Tipo)
	assert.Equal(t, "3.20", resp.Advertencias[0].Diferencia.StringFixed(2))
	assert.NotNil(t, repo.pallet(idR1, "A-B"))
}

func TestEditarPallet_Errores(t *testing.T) {
	t.Run("folio inexistente", func(t *testing.T) {
		svc, _ := buildStockSvc()
		_, err := svc.EditarPallet(context.Background(), idR1, "Z", dto.EditarPalletRequest{})
		assert.ErrorIs(t, err, conciliacion.ErrPalletInvalido)
	})
	t.Run("recepcion inexistente", func(t *testing.T) {
		svc, _ := buildStockSvc()
		_, err := svc.EditarPallet(context.Background(), uuid.New(), "A", dto.EditarPalletRequest{})
		assert.ErrorIs(t, err, conciliacion.ErrPalletInvalido)
	})
	t.Run("pallet consumido", func(t *testing.T) {
		svc, repo := buildStockSvc()
		repo.pallet(idR1, "A").Usado = true
		_, err := svc.EditarPallet(context.Background(), idR1, "A", dto.EditarPalletRequest{
			ParteA: dto.ParteEdicionRequest{PesoNeto: dec("10"), Bandejas: 1},
		})
		assert.ErrorIs(t, err, service.ErrPalletConsumido)
		assert.Equal(t, "500.00", repo.pallet(idR1, "A").PesoBruto.StringFixed(2))
	})
}
