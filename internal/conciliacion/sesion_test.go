package conciliacion_test

import (
	"errors"
	"testing"

	"frutapack/internal/conciliacion"
	"frutapack/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sesionEnComposicion(t *testing.T, rs []model.Recepcion, ctx conciliacion.Contexto) *conciliacion.Sesion {
	t.Helper()
	s := conciliacion.NuevaSesion(configPrueba())
	items := conciliacion.TaraEstandar().AplanarStock(rs)
	require.NoError(t, s.Proceder(items, false, ctx))
	return s
}

func TestProceder_InicializaComposicion(t *testing.T) {
	s := sesionEnComposicion(t, []model.Recepcion{recepcionR1()}, conciliacion.Contexto{})

	assert.Equal(t, conciliacion.EstadoComposicion, s.Estado())
	assert.Equal(t, conciliacion.ModoCrear, s.Modo())
	assert.Equal(t, "PROC-20240315-001", s.Codigo())
	assert.Equal(t, "Agricola Los Robles", s.Productor())
	assert.Equal(t, "754.88", s.EntradaAUsar().String())

	lineas := s.Lineas()
	require.Len(t, lineas, 1)
	assert.Equal(t, "000001", lineas[0].Folio)
	assert.True(t, s.Descartes().Total().IsZero())
}

func TestProceder_SeleccionVacia(t *testing.T) {
	s := conciliacion.NuevaSesion(configPrueba())

	err := s.Proceder(nil, false, conciliacion.Contexto{})
	assert.True(t, errors.Is(err, conciliacion.ErrValidacion))
	assert.Equal(t, conciliacion.EstadoSeleccion, s.Estado())
}

func TestProceder_MezclaRequiereConfirmacion(t *testing.T) {
	s := conciliacion.NuevaSesion(configPrueba())
	items := conciliacion.TaraEstandar().AplanarStock([]model.Recepcion{
		recepcionR1(),
		recepcionGeneral("Fundo Sur", "Legacy", "100"),
	})

	err := s.Proceder(items, false, conciliacion.Contexto{})
	var conf *conciliacion.ConfirmacionRequerida
	require.True(t, errors.As(err, &conf))
	assert.Equal(t, 2, conf.Productores)
	assert.Equal(t, 2, conf.Variedades)
	assert.Equal(t, conciliacion.EstadoSeleccion, s.Estado(), "declined confirmation leaves no state change")
	assert.Empty(t, s.Entradas())

	require.NoError(t, s.Proceder(items, true, conciliacion.Contexto{}))
	assert.Equal(t, conciliacion.EstadoComposicion, s.Estado())
}

func TestProceder_EtiquetasDelPrimerProcesable(t *testing.T) {
	directa := recepcionR1()
	directa.Productor = "Directo SA"
	for i := range directa.Pallets {
		directa.Pallets[i].Clasificacion = model.ClasificacionIQFDirecto
	}
	proceso := recepcionGeneral("Proceso Ltda", "Duke", "200")

	s := conciliacion.NuevaSesion(configPrueba())
	items := conciliacion.TaraEstandar().AplanarStock([]model.Recepcion{directa, proceso})
	require.NoError(t, s.Proceder(items, true, conciliacion.Contexto{}))

	assert.Equal(t, "Proceso Ltda", s.Productor())
	assert.Equal(t, "200", s.EntradaAUsar().String())
}

func TestProceder_DosVeces(t *testing.T) {
	s := sesionEnComposicion(t, []model.Recepcion{recepcionR1()}, conciliacion.Contexto{})

	err := s.Proceder(s.Entradas(), false, conciliacion.Contexto{})
	assert.True(t, errors.Is(err, conciliacion.ErrEstadoSesion))
}

// Worked example: 754.88 kg in, 200 kg out, 65 kg of manual discards.
func TestConfirmar_EjemploAceptado(t *testing.T) {
	s := sesionEnComposicion(t, []model.Recepcion{recepcionR1()}, conciliacion.Contexto{})

	_, err := s.EditarLinea(0, conciliacion.CambioLinea{
		Formato:      ptr("Clamshell 500g"),
		PesoUnitario: ptr(dec("0.5")),
		Unidades:     ptr(400),
	})
	require.NoError(t, err)
	require.NoError(t, s.FijarDescartes(conciliacion.Descartes{IQF: dec("50"), Merma: dec("10"), Desecho: dec("5")}))

	bal := s.Balance()
	assert.Equal(t, "754.88", bal.Entrada.String())
	assert.Equal(t, "200", bal.Salida.String())
	assert.Equal(t, "65", bal.Descarte.String())
	assert.Equal(t, "489.88", bal.Saldo.String())
	assert.Equal(t, "26.49", bal.PorcentajeExportacion.String())

	var persistido *model.LoteProduccion
	lote, err := s.Confirmar(func(l *model.LoteProduccion) error {
		persistido = l
		return nil
	})
	require.NoError(t, err)
	assert.Same(t, persistido, lote)
	assert.Equal(t, "PROC-20240315-001", lote.Codigo)
	assert.Equal(t, "754.88", lote.PesoEntradaTotal.String())
	assert.Equal(t, "26.49", lote.PorcentajeRendimiento.String())
	assert.Equal(t, "50", lote.KilosIQF.String())
	assert.ElementsMatch(t, []string{"A", "B"}, []string(lote.FoliosUsados))
	assert.ElementsMatch(t, []string{
		"11111111-1111-1111-1111-111111111111/A",
		"11111111-1111-1111-1111-111111111111/B",
	}, []string(lote.PalletsUsados))
	assert.Equal(t, []string{"11111111-1111-1111-1111-111111111111"}, []string(lote.RecepcionIDs))
	require.Len(t, lote.Detalles, 1)
	assert.Equal(t, "200", lote.Detalles[0].KilosTotales.String())

	assert.Equal(t, conciliacion.EstadoSeleccion, s.Estado())
	assert.Empty(t, s.Entradas())
	assert.Empty(t, s.Lineas())
}

func TestConfirmar_EjemploRechazado(t *testing.T) {
	s := sesionEnComposicion(t, []model.Recepcion{recepcionR1()}, conciliacion.Contexto{})
	_, err := s.EditarLinea(0, conciliacion.CambioLinea{PesoUnitario: ptr(dec("0.5")), Unidades: ptr(2000)})
	require.NoError(t, err)
	require.NoError(t, s.FijarDescartes(conciliacion.Descartes{IQF: dec("50"), Merma: dec("10"), Desecho: dec("5")}))

	llamado := false
	_, err = s.Confirmar(func(*model.LoteProduccion) error {
		llamado = true
		return nil
	})

	var balErr *conciliacion.ErrorBalance
	require.True(t, errors.As(err, &balErr))
	assert.Equal(t, "310.12", balErr.Exceso.String())
	assert.Contains(t, err.Error(), "310.12")
	assert.True(t, errors.Is(err, conciliacion.ErrValidacion))
	assert.False(t, llamado, "nothing is persisted on a blocked commit")
	assert.Equal(t, conciliacion.EstadoComposicion, s.Estado())
}

func TestConfirmar_SaldoCeroPermitido(t *testing.T) {
	s := sesionEnComposicion(t, []model.Recepcion{recepcionR1()}, conciliacion.Contexto{})
	_, err := s.EditarLinea(0, conciliacion.CambioLinea{PesoUnitario: ptr(dec("0.01")), Unidades: ptr(75488)})
	require.NoError(t, err)

	assert.True(t, s.Balance().Saldo.IsZero())
	_, err = s.Confirmar(nil)
	assert.NoError(t, err)
}

func TestConfirmar_ErrorDePersistenciaConservaBorrador(t *testing.T) {
	s := sesionEnComposicion(t, []model.Recepcion{recepcionR1()}, conciliacion.Contexto{})
	boom := errors.New("db caida")

	_, err := s.Confirmar(func(*model.LoteProduccion) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, conciliacion.EstadoComposicion, s.Estado())
	assert.Len(t, s.Entradas(), 2)
}

func TestConfirmar_DescartesDirectosSumanAlTotal(t *testing.T) {
	r := recepcionR1()
	r.Pallets[1].Clasificacion = model.ClasificacionMermaDirecta
	s := sesionEnComposicion(t, []model.Recepcion{r}, conciliacion.Contexto{})

	assert.Equal(t, "476.8", s.EntradaAUsar().String())
	assert.Equal(t, "278.08", s.Balance().EntradaDirecta.String())

	_, err := s.EditarLinea(0, conciliacion.CambioLinea{PesoUnitario: ptr(dec("0.5")), Unidades: ptr(400)})
	require.NoError(t, err)
	require.NoError(t, s.FijarDescartes(conciliacion.Descartes{Merma: dec("12")}))

	lote, err := s.Confirmar(nil)
	require.NoError(t, err)
	assert.Equal(t, "754.88", lote.PesoEntradaTotal.String())
	assert.Equal(t, "290.08", lote.KilosMerma.String())
	assert.Equal(t, "26.49", lote.PorcentajeRendimiento.String())
	assert.ElementsMatch(t, []string{"A", "B"}, []string(lote.FoliosUsados), "direct pallets are consumed too")
}

func TestConfirmar_FolioDeRespaldo(t *testing.T) {
	s := sesionEnComposicion(t, []model.Recepcion{recepcionR1()}, conciliacion.Contexto{})
	_, err := s.EditarLinea(0, conciliacion.CambioLinea{Folio: ptr("")})
	require.NoError(t, err)

	lote, err := s.Confirmar(nil)
	require.NoError(t, err)
	assert.Equal(t, "1710495000000-1", lote.Detalles[0].Folio)
}

func TestEntradas_AgregarYQuitar(t *testing.T) {
	extra := recepcionGeneral("Agricola Los Robles", "Duke", "100")
	s := sesionEnComposicion(t, []model.Recepcion{recepcionR1()}, conciliacion.Contexto{})
	item := conciliacion.TaraEstandar().AplanarStock([]model.Recepcion{extra})[0]

	require.NoError(t, s.AgregarEntrada(item))
	require.NoError(t, s.AgregarEntrada(item))
	assert.Len(t, s.Entradas(), 3)
	assert.Equal(t, "854.88", s.EntradaAUsar().String())

	require.NoError(t, s.QuitarEntrada(item.IDUnico))
	assert.Equal(t, "754.88", s.EntradaAUsar().String())
	assert.True(t, errors.Is(s.QuitarEntrada("nope"), conciliacion.ErrValidacion))
}

func TestLineas_FoliosConsecutivos(t *testing.T) {
	hist := []model.LoteProduccion{loteHistorico("PROC-20240315-001", model.DetalleProduccion{Folio: "000020", PalletCompleto: true})}
	s := sesionEnComposicion(t, []model.Recepcion{recepcionR1()}, conciliacion.Contexto{Historico: hist})

	assert.Equal(t, "PROC-20240315-002", s.Codigo())
	l2, err := s.AgregarLinea()
	require.NoError(t, err)
	l3, err := s.AgregarLinea()
	require.NoError(t, err)
	assert.Equal(t, "000021", s.Lineas()[0].Folio)
	assert.Equal(t, "000022", l2.Folio)
	assert.Equal(t, "000023", l3.Folio)

	require.NoError(t, s.QuitarLinea(1))
	assert.Len(t, s.Lineas(), 2)
	assert.Equal(t, 1, s.Lineas()[1].Posicion)
}

func TestEditarLinea_SincronizaPalletsEntreHermanas(t *testing.T) {
	s := sesionEnComposicion(t, []model.Recepcion{recepcionR1()}, conciliacion.Contexto{})
	_, err := s.EditarLinea(0, conciliacion.CambioLinea{Pallets: ptr(3)})
	require.NoError(t, err)
	_, err = s.AgregarLinea()
	require.NoError(t, err)

	folio := s.Lineas()[0].Folio
	adv, err := s.EditarLinea(1, conciliacion.CambioLinea{Folio: &folio})
	require.NoError(t, err)
	assert.Empty(t, adv)
	assert.Equal(t, 3, s.Lineas()[1].Pallets)

	_, err = s.EditarLinea(1, conciliacion.CambioLinea{Pallets: ptr(4)})
	require.NoError(t, err)
	for _, l := range s.Lineas() {
		assert.Equal(t, 4, l.Pallets)
	}
}

func TestEditarLinea_FolioHistoricoAbiertoAdvierte(t *testing.T) {
	hist := []model.LoteProduccion{loteHistorico("PROC-20240314-001", model.DetalleProduccion{Folio: "000007", Pallets: 2})}
	s := sesionEnComposicion(t, []model.Recepcion{recepcionR1()}, conciliacion.Contexto{Historico: hist})

	adv, err := s.EditarLinea(0, conciliacion.CambioLinea{Folio: ptr("000007")})
	require.NoError(t, err)
	require.Len(t, adv, 1)
	assert.Equal(t, conciliacion.AdvertenciaFolioExistente, adv[0].Tipo)
	assert.Contains(t, adv[0].Mensaje, "PROC-20240314-001")
	assert.Equal(t, 2, s.Lineas()[0].Pallets)
}

func TestEditarLinea_FolioDespachadoNoSeSincroniza(t *testing.T) {
	hist := []model.LoteProduccion{loteHistorico("PROC-20240314-001", model.DetalleProduccion{Folio: "000007", Pallets: 2})}
	despachos := []model.Despacho{{Numero: "D-9", FoliosConsumidos: []string{"000007"}}}
	s := sesionEnComposicion(t, []model.Recepcion{recepcionR1()}, conciliacion.Contexto{Historico: hist, Despachos: despachos})

	adv, err := s.EditarLinea(0, conciliacion.CambioLinea{Folio: ptr("000007")})
	require.NoError(t, err)
	assert.Empty(t, adv)
	assert.Equal(t, 1, s.Lineas()[0].Pallets)
}

func TestEditarLinea_Validaciones(t *testing.T) {
	s := sesionEnComposicion(t, []model.Recepcion{recepcionR1()}, conciliacion.Contexto{})

	_, err := s.EditarLinea(5, conciliacion.CambioLinea{})
	assert.True(t, errors.Is(err, conciliacion.ErrValidacion))
	_, err = s.EditarLinea(0, conciliacion.CambioLinea{Unidades: ptr(-1)})
	assert.True(t, errors.Is(err, conciliacion.ErrValidacion))
	_, err = s.EditarLinea(0, conciliacion.CambioLinea{PesoUnitario: ptr(dec("-0.5"))})
	assert.True(t, errors.Is(err, conciliacion.ErrValidacion))
}

func TestFijarDescartes_Negativos(t *testing.T) {
	s := sesionEnComposicion(t, []model.Recepcion{recepcionR1()}, conciliacion.Contexto{})

	err := s.FijarDescartes(conciliacion.Descartes{IQF: dec("-1")})
	assert.True(t, errors.Is(err, conciliacion.ErrValidacion))
}

func TestFijarDescartes_AdicionalNegativo(t *testing.T) {
	s := sesionEnComposicion(t, []model.Recepcion{recepcionR1()}, conciliacion.Contexto{})
	_, err := s.EditarLinea(0, conciliacion.CambioLinea{PesoUnitario: ptr(dec("0.5")), Unidades: ptr(2000)})
	require.NoError(t, err)

	err = s.FijarDescartes(conciliacion.Descartes{
		Adicionales: map[string]decimal.Decimal{"Ajuste": dec("-500")},
	})
	assert.True(t, errors.Is(err, conciliacion.ErrValidacion))
	assert.Empty(t, s.Descartes().Adicionales, "rejected entries are not kept")

	_, err = s.Confirmar(nil)
	var eb *conciliacion.ErrorBalance
	require.True(t, errors.As(err, &eb), "1000 kg out of 754.88 kg in must not commit")
	assert.Equal(t, "245.12", eb.Exceso.String())
}

func TestFijarDescartes_Adicionales(t *testing.T) {
	s := sesionEnComposicion(t, []model.Recepcion{recepcionR1()}, conciliacion.Contexto{})
	require.NoError(t, s.FijarDescartes(conciliacion.Descartes{
		IQF:         dec("10"),
		Adicionales: map[string]decimal.Decimal{"Hojas": dec("2.5"), "Barro": dec("1")},
	}))

	assert.Equal(t, "13.5", s.Balance().Descarte.String())
	lote, err := s.Confirmar(nil)
	require.NoError(t, err)
	assert.Equal(t, "3.5", lote.TotalDescartesAdicionales().String())
}

func TestCancelar(t *testing.T) {
	s := sesionEnComposicion(t, []model.Recepcion{recepcionR1()}, conciliacion.Contexto{})
	s.Cancelar()

	assert.Equal(t, conciliacion.EstadoSeleccion, s.Estado())
	assert.Empty(t, s.Codigo())
	_, err := s.Confirmar(nil)
	assert.True(t, errors.Is(err, conciliacion.ErrEstadoSesion))
}

func TestUsadosNoVuelvenAlStock(t *testing.T) {
	r := recepcionR1()
	s := sesionEnComposicion(t, []model.Recepcion{r}, conciliacion.Contexto{})
	require.NoError(t, s.QuitarEntrada(s.Entradas()[1].IDUnico))

	lote, err := s.Confirmar(nil)
	require.NoError(t, err)
	for i := range r.Pallets {
		for _, f := range lote.FoliosUsados {
			if r.Pallets[i].Folio == f {
				r.Pallets[i].Usado = true
			}
		}
	}

	items := conciliacion.TaraEstandar().AplanarStock([]model.Recepcion{r})
	require.Len(t, items, 1)
	assert.Equal(t, "B", items[0].Folio)
}
