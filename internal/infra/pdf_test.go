package infra

import (
	"bytes"
	"os"
	"testing"
	"time"

	"frutapack/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func loteReporte() *model.LoteProduccion {
	return &model.LoteProduccion{
		Codigo:                "PROC-20240315-001",
		CentroTrabajo:         "PLANTA",
		Fecha:                 time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Productor:             "Agrícola Los Robles",
		Variedad:              "Duke",
		FoliosUsados:          datatypes.NewJSONSlice([]string{"A", "B"}),
		PesoEntradaTotal:      decimal.RequireFromString("754.88"),
		KilosIQF:              decimal.NewFromInt(50),
		KilosMerma:            decimal.NewFromInt(10),
		KilosDesecho:          decimal.NewFromInt(5),
		DescartesAdicionales:  datatypes.NewJSONType(map[string]decimal.Decimal{"Hojas": decimal.NewFromInt(2)}),
		PorcentajeRendimiento: decimal.RequireFromString("26.49"),
		Detalles: []model.DetalleProduccion{{
			Formato:      "Clamshell 500g",
			PesoUnitario: decimal.RequireFromString("0.5"),
			Unidades:     400,
			Pallets:      1,
			Folio:        "000001",
			KilosTotales: decimal.NewFromInt(200),
		}},
	}
}

func TestEscribirReporteLote(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EscribirReporteLote(&buf, loteReporte()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestEscribirEtiquetaPallet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EscribirEtiquetaPallet(&buf, loteReporte(), 0))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	assert.Error(t, EscribirEtiquetaPallet(&buf, loteReporte(), 3))
}

func TestGuardarReporteLote(t *testing.T) {
	dir := t.TempDir()

	path, err := GuardarReporteLote(loteReporte(), dir)
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
