package conciliacion

import (
	"fmt"
	"time"

	"frutapack/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Estado of a composition session.
type Estado int

const (
	EstadoSeleccion Estado = iota
	EstadoComposicion
)

func (e Estado) String() string {
	switch e {
	case EstadoSeleccion:
		return "seleccion"
	case EstadoComposicion:
		return "composicion"
	default:
		return "desconocido"
	}
}

// Modo tells whether a commit creates a new lot or replaces an existing one.
type Modo int

const (
	ModoCrear Modo = iota
	ModoActualizar
)

func (m Modo) String() string {
	if m == ModoActualizar {
		return "actualizar"
	}
	return "crear"
}

// Configuracion is fixed for the life of a session.
type Configuracion struct {
	Tara          Tara
	Folios        SecuenciadorFolios
	CentroTrabajo string
	Reloj         func() time.Time
}

// Contexto is the history the session reads while composing.
type Contexto struct {
	Historico []model.LoteProduccion
	Despachos []model.Despacho
}

// Descartes are the manual discard entries of a session.
type Descartes struct {
	IQF         decimal.Decimal            `json:"iqf"`
	Merma       decimal.Decimal            `json:"merma"`
	Desecho     decimal.Decimal            `json:"desecho"`
	Adicionales map[string]decimal.Decimal `json:"adicionales"`
}

// Total = IQF + Merma + Desecho + Σ Adicionales
func (d Descartes) Total() decimal.Decimal {
	total := d.IQF.Add(d.Merma).Add(d.Desecho)
	for _, kg := range d.Adicionales {
		total = total.Add(kg)
	}
	return total
}

// Balance is the live snapshot shown to the operator.
type Balance struct {
	Entrada               decimal.Decimal `json:"entrada"`
	EntradaDirecta        decimal.Decimal `json:"entrada_directa"`
	Salida                decimal.Decimal `json:"salida"`
	Descarte              decimal.Decimal `json:"descarte"`
	Saldo                 decimal.Decimal `json:"saldo"`
	PorcentajeExportacion decimal.Decimal `json:"porcentaje_exportacion"`
}

// CambioLinea carries the fields to change on an output line; nil means unchanged.
type CambioLinea struct {
	Formato         *string
	PesoUnitario    *decimal.Decimal
	Unidades        *int
	Pallets         *int
	PalletCompleto  *bool
	Folio           *string
	LineaProduccion *string
}

var cien = decimal.NewFromInt(100)

// Sesion is one operator's lot draft: Seleccion → Composicion → Seleccion.
// It is not safe for concurrent use; callers serialize access.
type Sesion struct {
	cfg      Configuracion
	estado   Estado
	modo     Modo
	original *model.LoteProduccion
	ctx      Contexto

	codigo        string
	centroTrabajo string
	productor     string
	variedad      string
	fecha         time.Time

	entradas  []ItemStock
	lineas    []model.DetalleProduccion
	descartes Descartes
}

// NuevaSesion returns a session in the selection state.
func NuevaSesion(cfg Configuracion) *Sesion {
	if cfg.Reloj == nil {
		cfg.Reloj = time.Now
	}
	if cfg.Tara.Bandeja.IsZero() && cfg.Tara.Pallet.IsZero() {
		cfg.Tara = TaraEstandar()
	}
	s := &Sesion{cfg: cfg}
	s.reiniciar()
	return s
}

func (s *Sesion) Estado() Estado { return s.estado }
func (s *Sesion) Modo() Modo { return s.modo }
func (s *Sesion) Codigo() string { return s.codigo }
func (s *Sesion) Productor() string { return s.productor }
func (s *Sesion) Variedad() string { return s.variedad }
func (s *Sesion) CentroTrabajo() string { return s.centroTrabajo }

// Entradas returns a copy of the active input items.
func (s *Sesion) Entradas() []ItemStock {
	out := make([]ItemStock, len(s.entradas))
	copy(out, s.entradas)
	return out
}

// Lineas returns a copy of the output lines.
func (s *Sesion) Lineas() []model.DetalleProduccion {
	out := make([]model.DetalleProduccion, len(s.lineas))
	copy(out, s.lineas)
	return out
}

// Descartes returns a copy of the manual discard entries.
func (s *Sesion) Descartes() Descartes {
	d := s.descartes
	d.Adicionales = make(map[string]decimal.Decimal, len(s.descartes.Adicionales))
	for k, v := range s.descartes.Adicionales {
		d.Adicionales[k] = v
	}
	return d
}

// ── Selection → Composition ──────────────────────────────────────────────────

// Proceder moves the selected stock into a new composition. A selection that
// mixes producers or varieties needs confirmada=true; without it the session
// is left untouched and *ConfirmacionRequerida is returned.
func (s *Sesion) Proceder(seleccion []ItemStock, confirmada bool, ctx Contexto) error {
	if s.estado != EstadoSeleccion {
		return errEstado("ya hay un lote en composicion")
	}
	items := sinDuplicados(seleccion)
	if len(items) == 0 {
		return errValidacion("seleccione al menos un pallet o recepcion")
	}
	if p, v := Cardinalidad(items); (p > 1 || v > 1) && !confirmada {
		return &ConfirmacionRequerida{Productores: p, Variedades: v}
	}

	s.ctx = ctx
	s.modo = ModoCrear
	s.original = nil
	s.entradas = items
	s.estado = EstadoComposicion

	ref := items[0]
	for _, it := range items {
		if !it.EsDirecto() {
			ref = it
			break
		}
	}
	s.productor = ref.Productor
	s.variedad = ref.Variedad
	s.centroTrabajo = s.cfg.CentroTrabajo
	s.descartes = Descartes{Adicionales: map[string]decimal.Decimal{}}
	s.lineas = nil
	s.agregarLinea()

	s.fecha = s.cfg.Reloj()
	s.codigo = CodigoLote(s.fecha, codigosLotes(ctx.Historico))
	return nil
}

// ── Inputs ───────────────────────────────────────────────────────────────────

// AgregarEntrada adds a stock item; adding one already present is a no-op.
func (s *Sesion) AgregarEntrada(item ItemStock) error {
	if s.estado != EstadoComposicion {
		return errEstado("no hay un lote en composicion")
	}
	for _, it := range s.entradas {
		if it.IDUnico == item.IDUnico {
			return nil
		}
	}
	s.entradas = append(s.entradas, item)
	return nil
}

// QuitarEntrada removes the item with the given unique id.
func (s *Sesion) QuitarEntrada(idUnico string) error {
	if s.estado != EstadoComposicion {
		return errEstado("no hay un lote en composicion")
	}
	for i, it := range s.entradas {
		if it.IDUnico == idUnico {
			s.entradas = append(s.entradas[:i], s.entradas[i+1:]...)
			return nil
		}
	}
	return errValidacion(fmt.Sprintf("el item %s no forma parte del lote", idUnico))
}

// EntradaAUsar is the net weight of the processable inputs.
func (s *Sesion) EntradaAUsar() decimal.Decimal {
	total := decimal.Zero
	for _, it := range s.entradas {
		if !it.EsDirecto() {
			total = total.Add(it.PesoNeto)
		}
	}
	return total
}

// SumasDirectas returns the net weight of direct-classified inputs per category.
func SumasDirectas(items []ItemStock) (iqf, merma, desecho decimal.Decimal) {
	iqf, merma, desecho = decimal.Zero, decimal.Zero, decimal.Zero
	for _, it := range items {
		switch it.Clasificacion {
		case model.ClasificacionIQFDirecto:
			iqf = iqf.Add(it.PesoNeto)
		case model.ClasificacionMermaDirecta:
			merma = merma.Add(it.PesoNeto)
		case model.ClasificacionDesechoDirecto:
			desecho = desecho.Add(it.PesoNeto)
		}
	}
	return iqf, merma, desecho
}

// ── Output lines ─────────────────────────────────────────────────────────────

// AgregarLinea appends an empty line carrying the next folio.
func (s *Sesion) AgregarLinea() (model.DetalleProduccion, error) {
	if s.estado != EstadoComposicion {
		return model.DetalleProduccion{}, errEstado("no hay un lote en composicion")
	}
	return s.agregarLinea(), nil
}

func (s *Sesion) agregarLinea() model.DetalleProduccion {
	linea := model.DetalleProduccion{
		Posicion:     len(s.lineas),
		PesoUnitario: decimal.Zero,
		KilosTotales: decimal.Zero,
		Pallets:      1,
		Folio:        s.cfg.Folios.Siguiente(s.ctx.Historico, s.lineas),
	}
	s.lineas = append(s.lineas, linea)
	return linea
}

// QuitarLinea removes line i.
func (s *Sesion) QuitarLinea(i int) error {
	if s.estado != EstadoComposicion {
		return errEstado("no hay un lote en composicion")
	}
	if i < 0 || i >= len(s.lineas) {
		return errValidacion(fmt.Sprintf("la linea %d no existe", i))
	}
	s.lineas = append(s.lineas[:i], s.lineas[i+1:]...)
	for j := range s.lineas {
		s.lineas[j].Posicion = j
	}
	return nil
}

// EditarLinea applies c to line i and recomputes its total. A new folio is
// resolved against the other lines and then against open historical
// folios; a pallet count change propagates to every line sharing the folio.
func (s *Sesion) EditarLinea(i int, c CambioLinea) ([]Advertencia, error) {
	if s.estado != EstadoComposicion {
		return nil, errEstado("no hay un lote en composicion")
	}
	if i < 0 || i >= len(s.lineas) {
		return nil, errValidacion(fmt.Sprintf("la linea %d no existe", i))
	}
	if c.PesoUnitario != nil && c.PesoUnitario.IsNegative() {
		return nil, errValidacion("el peso por unidad no puede ser negativo")
	}
	if c.Unidades != nil && *c.Unidades < 0 {
		return nil, errValidacion("las unidades no pueden ser negativas")
	}
	if c.Pallets != nil && *c.Pallets < 0 {
		return nil, errValidacion("los pallets no pueden ser negativos")
	}

	l := &s.lineas[i]
	if c.Formato != nil {
		l.Formato = *c.Formato
	}
	if c.PesoUnitario != nil {
		l.PesoUnitario = *c.PesoUnitario
	}
	if c.Unidades != nil {
		l.Unidades = *c.Unidades
	}
	if c.PalletCompleto != nil {
		l.PalletCompleto = *c.PalletCompleto
	}
	if c.LineaProduccion != nil {
		l.LineaProduccion = *c.LineaProduccion
	}
	l.RecalcularTotal()

	var advertencias []Advertencia
	if c.Folio != nil && *c.Folio != l.Folio {
		l.Folio = *c.Folio
		advertencias = s.resolverFolio(i)
	}
	if c.Pallets != nil {
		s.sincronizarPallets(i, *c.Pallets)
	}
	return advertencias, nil
}

// indiceFolios maps each folio to the lines that carry it.
func (s *Sesion) indiceFolios() map[string][]int {
	idx := make(map[string][]int, len(s.lineas))
	for i, l := range s.lineas {
		if l.Folio != "" {
			idx[l.Folio] = append(idx[l.Folio], i)
		}
	}
	return idx
}

func (s *Sesion) sincronizarPallets(i, pallets int) {
	s.lineas[i].Pallets = pallets
	folio := s.lineas[i].Folio
	if folio == "" {
		return
	}
	for _, j := range s.indiceFolios()[folio] {
		s.lineas[j].Pallets = pallets
	}
}

func (s *Sesion) resolverFolio(i int) []Advertencia {
	folio := s.lineas[i].Folio
	if folio == "" {
		return nil
	}
	for _, j := range s.indiceFolios()[folio] {
		if j != i {
			s.lineas[i].Pallets = s.lineas[j].Pallets
			return nil
		}
	}
	abierto, ok := FoliosAbiertos(s.historicoAjeno(), s.ctx.Despachos)[folio]
	if !ok {
		return nil
	}
	s.lineas[i].Pallets = abierto.Pallets
	return []Advertencia{{
		Tipo:       AdvertenciaFolioExistente,
		Mensaje:    fmt.Sprintf("El folio %s ya existe en el lote %s; las cajas se agregaran a ese pallet", folio, abierto.LoteCodigo),
		Diferencia: decimal.Zero,
	}}
}

// historicoAjeno is the history without the lot being edited.
func (s *Sesion) historicoAjeno() []model.LoteProduccion {
	if s.original == nil {
		return s.ctx.Historico
	}
	out := make([]model.LoteProduccion, 0, len(s.ctx.Historico))
	for _, l := range s.ctx.Historico {
		if l.Codigo != s.original.Codigo {
			out = append(out, l)
		}
	}
	return out
}

// ── Discards ─────────────────────────────────────────────────────────────────

// FijarDescartes replaces the manual discard entries.
func (s *Sesion) FijarDescartes(d Descartes) error {
	if s.estado != EstadoComposicion {
		return errEstado("no hay un lote en composicion")
	}
	if d.IQF.IsNegative() || d.Merma.IsNegative() || d.Desecho.IsNegative() {
		return errValidacion("los descartes no pueden ser negativos")
	}
	adicionales := make(map[string]decimal.Decimal, len(d.Adicionales))
	for k, v := range d.Adicionales {
		if v.IsNegative() {
			return errValidacion(fmt.Sprintf("el descarte %q no puede ser negativo", k))
		}
		adicionales[k] = v
	}
	d.Adicionales = adicionales
	s.descartes = d
	return nil
}

// ── Balance & commit ─────────────────────────────────────────────────────────

// Balance computes the live metrics from the current state.
func (s *Sesion) Balance() Balance {
	entrada := s.EntradaAUsar()
	iqf, merma, desecho := SumasDirectas(s.entradas)
	salida := decimal.Zero
	for _, l := range s.lineas {
		salida = salida.Add(l.KilosTotales)
	}
	descarte := s.descartes.Total()

	pct := decimal.Zero
	if entrada.IsPositive() {
		pct = salida.Div(entrada).Mul(cien).Round(2)
	}
	return Balance{
		Entrada:               entrada,
		EntradaDirecta:        iqf.Add(merma).Add(desecho),
		Salida:                salida,
		Descarte:              descarte,
		Saldo:                 entrada.Sub(salida.Add(descarte)),
		PorcentajeExportacion: pct,
	}
}

// Confirmar validates the draft, builds the lot and hands it to persistir.
// Only when persistir succeeds does the session return to selection; on any
// error the draft is left as it was.
func (s *Sesion) Confirmar(persistir func(*model.LoteProduccion) error) (*model.LoteProduccion, error) {
	if s.estado != EstadoComposicion {
		return nil, errEstado("no hay un lote en composicion")
	}
	if s.codigo == "" {
		return nil, errValidacion("falta el identificador del lote")
	}
	if saldo := s.Balance().Saldo; saldo.IsNegative() {
		return nil, &ErrorBalance{Exceso: saldo.Neg()}
	}

	lote := s.construirLote()
	if persistir != nil {
		if err := persistir(lote); err != nil {
			return nil, err
		}
	}
	s.reiniciar()
	return lote, nil
}

// Cancelar drops the draft and returns to selection.
func (s *Sesion) Cancelar() { s.reiniciar() }

func (s *Sesion) construirLote() *model.LoteProduccion {
	bal := s.Balance()
	iqf, merma, desecho := SumasDirectas(s.entradas)
	total := bal.Entrada.Add(iqf).Add(merma).Add(desecho)

	rendimiento := decimal.Zero
	if total.IsPositive() {
		rendimiento = bal.Salida.Div(total).Mul(cien).Round(2)
	}

	ahora := s.cfg.Reloj()
	detalles := make([]model.DetalleProduccion, len(s.lineas))
	for i, l := range s.lineas {
		l.Posicion = i
		l.RecalcularTotal()
		if l.Folio == "" {
			l.Folio = fmt.Sprintf("%d-%d", ahora.UnixMilli(), i+1)
		}
		detalles[i] = l
	}

	adicionales := make(map[string]decimal.Decimal, len(s.descartes.Adicionales))
	for k, v := range s.descartes.Adicionales {
		adicionales[k] = v
	}

	lote := &model.LoteProduccion{
		Codigo:                s.codigo,
		CentroTrabajo:         s.centroTrabajo,
		RecepcionIDs:          datatypes.NewJSONSlice(recepcionesDe(s.entradas)),
		FoliosUsados:          datatypes.NewJSONSlice(FoliosConsumidos(s.entradas)),
		PalletsUsados:         datatypes.NewJSONSlice(PalletsConsumidos(s.entradas)),
		PesoEntradaTotal:      total,
		Fecha:                 s.fecha,
		Productor:             s.productor,
		Variedad:              s.variedad,
		KilosIQF:              s.descartes.IQF.Add(iqf),
		KilosMerma:            s.descartes.Merma.Add(merma),
		KilosDesecho:          s.descartes.Desecho.Add(desecho),
		DescartesAdicionales:  datatypes.NewJSONType(adicionales),
		PorcentajeRendimiento: rendimiento,
		Detalles:              detalles,
	}
	if s.original != nil {
		lote.ID = s.original.ID
		lote.CreatedAt = s.original.CreatedAt
		for i := range lote.Detalles {
			lote.Detalles[i].ID = uuid.Nil
			lote.Detalles[i].LoteID = s.original.ID
		}
	}
	return lote
}

// FoliosConsumidos lists the distinct pallet folios of the items, process and
// direct alike, skipping the General sentinel.
func FoliosConsumidos(items []ItemStock) []string {
	vistos := make(map[string]struct{}, len(items))
	folios := make([]string, 0, len(items))
	for _, it := range items {
		if it.Folio == FolioGeneral {
			continue
		}
		if _, ok := vistos[it.Folio]; ok {
			continue
		}
		vistos[it.Folio] = struct{}{}
		folios = append(folios, it.Folio)
	}
	return folios
}

// PalletsConsumidos lists the reception-qualified keys of the pallet items.
func PalletsConsumidos(items []ItemStock) []string {
	vistas := make(map[string]struct{}, len(items))
	claves := make([]string, 0, len(items))
	for _, it := range items {
		if it.Folio == FolioGeneral {
			continue
		}
		k := ClavePallet(it.RecepcionID, it.Folio)
		if _, ok := vistas[k]; ok {
			continue
		}
		vistas[k] = struct{}{}
		claves = append(claves, k)
	}
	return claves
}

func recepcionesDe(items []ItemStock) []string {
	vistos := make(map[uuid.UUID]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := vistos[it.RecepcionID]; ok {
			continue
		}
		vistos[it.RecepcionID] = struct{}{}
		ids = append(ids, it.RecepcionID.String())
	}
	return ids
}

func codigosLotes(lotes []model.LoteProduccion) []string {
	codigos := make([]string, len(lotes))
	for i, l := range lotes {
		codigos[i] = l.Codigo
	}
	return codigos
}

func sinDuplicados(items []ItemStock) []ItemStock {
	vistos := make(map[string]struct{}, len(items))
	out := make([]ItemStock, 0, len(items))
	for _, it := range items {
		if _, ok := vistos[it.IDUnico]; ok {
			continue
		}
		vistos[it.IDUnico] = struct{}{}
		out = append(out, it)
	}
	return out
}

func (s *Sesion) reiniciar() {
	s.estado = EstadoSeleccion
	s.modo = ModoCrear
	s.original = nil
	s.ctx = Contexto{}
	s.codigo = ""
	s.centroTrabajo = ""
	s.productor = ""
	s.variedad = ""
	s.fecha = time.Time{}
	s.entradas = nil
	s.lineas = nil
	s.descartes = Descartes{Adicionales: map[string]decimal.Decimal{}}
}
