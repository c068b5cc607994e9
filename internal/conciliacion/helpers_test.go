package conciliacion_test

import (
	"time"

	"frutapack/internal/conciliacion"
	"frutapack/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr[T any](v T) *T { return &v }

var fechaFija = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

func relojFijo() time.Time { return fechaFija }

func configPrueba() conciliacion.Configuracion {
	return conciliacion.Configuracion{
		Tara:          conciliacion.TaraEstandar(),
		Folios:        conciliacion.SecuenciadorFolios{Inicio: 1, Ancho: 6},
		CentroTrabajo: "PLANTA",
		Reloj:         relojFijo,
	}
}

// recepcionR1 is the two-pallet reception of the worked example:
// A = 500 kg / 10 trays, B = 300 kg / 6 trays.
func recepcionR1() model.Recepcion {
	id := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	return model.Recepcion{
		ID:         id,
		Productor:  "Agricola Los Robles",
		Variedad:   "Duke",
		NumeroGuia: "G-1001",
		NumeroLote: "L-77",
		Fecha:      fechaFija,
		Estado:     model.EstadoRecepcionDisponible,
		Pallets: []model.DetallePallet{
			{RecepcionID: id, Posicion: 0, Folio: "A", PesoBruto: dec("500"), Bandejas: 10},
			{RecepcionID: id, Posicion: 1, Folio: "B", PesoBruto: dec("300"), Bandejas: 6},
		},
	}
}

func recepcionGeneral(productor, variedad string, neto string) model.Recepcion {
	return model.Recepcion{
		ID:            uuid.New(),
		Productor:     productor,
		Variedad:      variedad,
		Fecha:         fechaFija,
		TotalBandejas: 40,
		PesoBruto:     dec(neto).Add(dec("32.8")),
		PesoNeto:      dec(neto),
		Estado:        model.EstadoRecepcionDisponible,
	}
}

func loteHistorico(codigo string, lineas ...model.DetalleProduccion) model.LoteProduccion {
	return model.LoteProduccion{ID: uuid.New(), Codigo: codigo, Fecha: fechaFija, Detalles: lineas}
}
