package service_test

import (
	"context"
	"errors"
	"sort"
	"time"

	"frutapack/internal/conciliacion"
	"frutapack/internal/model"
	"frutapack/internal/repository"
	"frutapack/internal/worker"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── Fixtures ──────────────────────────────────────────────────────────────────

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr[T any](v T) *T { return &v }

var fechaFija = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

func configSesion() conciliacion.Configuracion {
	return conciliacion.Configuracion{
		Tara:          conciliacion.TaraEstandar(),
		Folios:        conciliacion.SecuenciadorFolios{Inicio: 1, Ancho: 6},
		CentroTrabajo: "PLANTA",
		Reloj:         func() time.Time { return fechaFija },
	}
}

var idR1 = uuid.MustParse("11111111-1111-1111-1111-111111111111")

// recepcionR1: A = 500 kg / 10 trays, B = 300 kg / 6 trays.
func recepcionR1() *model.Recepcion {
	return &model.Recepcion{
		ID:         idR1,
		Productor:  "Agricola Los Robles",
		Variedad:   "Duke",
		NumeroGuia: "G-1001",
		Fecha:      fechaFija,
		Estado:     model.EstadoRecepcionDisponible,
		Pallets: []model.DetallePallet{
			{ID: uuid.New(), RecepcionID: idR1, Posicion: 0, Folio: "A", PesoBruto: dec("500"), Bandejas: 10},
			{ID: uuid.New(), RecepcionID: idR1, Posicion: 1, Folio: "B", PesoBruto: dec("300"), Bandejas: 6},
		},
	}
}

var idR2 = uuid.MustParse("33333333-3333-3333-3333-333333333333")

// recepcionR2 repeats R1's folios under another guide of the same producer.
func recepcionR2() *model.Recepcion {
	r := recepcionR1()
	r.ID = idR2
	r.NumeroGuia = "G-1002"
	for i := range r.Pallets {
		r.Pallets[i].ID = uuid.New()
		r.Pallets[i].RecepcionID = idR2
	}
	return r
}

func recepcionOtroProductor() *model.Recepcion {
	id := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	return &model.Recepcion{
		ID:         id,
		Productor:  "Fundo El Alamo",
		Variedad:   "Legacy",
		NumeroGuia: "G-2001",
		Fecha:      fechaFija,
		Estado:     model.EstadoRecepcionDisponible,
		Pallets: []model.DetallePallet{
			{ID: uuid.New(), RecepcionID: id, Posicion: 0, Folio: "C", PesoBruto: dec("400"), Bandejas: 8},
		},
	}
}

// ── stubRecepcionRepo ─────────────────────────────────────────────────────────

type stubRecepcionRepo struct {
	recepciones map[uuid.UUID]*model.Recepcion
}

var _ repository.RecepcionRepository = (*stubRecepcionRepo)(nil)

func newStubRecepcionRepo(recs ...*model.Recepcion) *stubRecepcionRepo {
	r := &stubRecepcionRepo{recepciones: make(map[uuid.UUID]*model.Recepcion)}
	for _, rec := range recs {
		r.recepciones[rec.ID] = rec
	}
	return r
}

func copiarRecepcion(r *model.Recepcion) model.Recepcion {
	cp := *r
	cp.Pallets = append([]model.DetallePallet(nil), r.Pallets...)
	return cp
}

func (r *stubRecepcionRepo) ordenadas(filtro func(*model.Recepcion) bool) []model.Recepcion {
	var out []model.Recepcion
	for _, rec := range r.recepciones {
		if filtro(rec) {
			out = append(out, copiarRecepcion(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NumeroGuia < out[j].NumeroGuia })
	return out
}

func (r *stubRecepcionRepo) Create(_ context.Context, rec *model.Recepcion) error {
	r.recepciones[rec.ID] = rec
	return nil
}

func (r *stubRecepcionRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Recepcion, error) {
	return r.FindByIDTx(nil, id)
}

func (r *stubRecepcionRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]model.Recepcion, error) {
	set := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return r.ordenadas(func(rec *model.Recepcion) bool { return set[rec.ID] }), nil
}

func (r *stubRecepcionRepo) ListDisponibles(_ context.Context) ([]model.Recepcion, error) {
	return r.ordenadas(func(rec *model.Recepcion) bool { return rec.Estado == model.EstadoRecepcionDisponible }), nil
}

func (r *stubRecepcionRepo) ListAll(_ context.Context) ([]model.Recepcion, error) {
	return r.ordenadas(func(*model.Recepcion) bool { return true }), nil
}

func (r *stubRecepcionRepo) FindByIDTx(_ *gorm.DB, id uuid.UUID) (*model.Recepcion, error) {
	rec, ok := r.recepciones[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := copiarRecepcion(rec)
	return &cp, nil
}

func (r *stubRecepcionRepo) UpdatePalletTx(_ *gorm.DB, p *model.DetallePallet) error {
	rec, ok := r.recepciones[p.RecepcionID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range rec.Pallets {
		if rec.Pallets[i].ID == p.ID {
			rec.Pallets[i].PesoBruto = p.PesoBruto
			rec.Pallets[i].Bandejas = p.Bandejas
			rec.Pallets[i].Clasificacion = p.Clasificacion
			rec.Pallets[i].FolioPadre = p.FolioPadre
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *stubRecepcionRepo) CreatePalletTx(_ *gorm.DB, p *model.DetallePallet) error {
	rec, ok := r.recepciones[p.RecepcionID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	rec.Pallets = append(rec.Pallets, *p)
	return nil
}

func (r *stubRecepcionRepo) MarcarUsadosTx(_ *gorm.DB, recepcionID uuid.UUID, folios []string) error {
	rec, ok := r.recepciones[recepcionID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for _, f := range folios {
		for i := range rec.Pallets {
			if rec.Pallets[i].Folio == f {
				rec.Pallets[i].Usado = true
			}
		}
	}
	return nil
}

func (r *stubRecepcionRepo) LiberarTx(_ *gorm.DB, recepcionID uuid.UUID, folios []string) error {
	rec, ok := r.recepciones[recepcionID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for _, f := range folios {
		for i := range rec.Pallets {
			if rec.Pallets[i].Folio == f {
				rec.Pallets[i].Usado = false
			}
		}
	}
	return nil
}

func (r *stubRecepcionRepo) UpdateEstadoTx(_ *gorm.DB, id uuid.UUID, estado string) error {
	rec, ok := r.recepciones[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	rec.Estado = estado
	return nil
}

func (r *stubRecepcionRepo) DB() *gorm.DB { return nil }

func (r *stubRecepcionRepo) pallet(recID uuid.UUID, folio string) *model.DetallePallet {
	rec := r.recepciones[recID]
	for i := range rec.Pallets {
		if rec.Pallets[i].Folio == folio {
			return &rec.Pallets[i]
		}
	}
	return nil
}

// ── stubLoteRepo ──────────────────────────────────────────────────────────────

type stubLoteRepo struct {
	lotes      map[string]*model.LoteProduccion
	reemplazos int
	errBuscar  error
}

var _ repository.LoteRepository = (*stubLoteRepo)(nil)

func newStubLoteRepo(lotes ...*model.LoteProduccion) *stubLoteRepo {
	r := &stubLoteRepo{lotes: make(map[string]*model.LoteProduccion)}
	for _, l := range lotes {
		r.lotes[l.Codigo] = l
	}
	return r
}

func (r *stubLoteRepo) FindByCodigo(_ context.Context, codigo string) (*model.LoteProduccion, error) {
	return r.FindByCodigoTx(nil, codigo)
}

func (r *stubLoteRepo) FindByCodigoTx(_ *gorm.DB, codigo string) (*model.LoteProduccion, error) {
	if r.errBuscar != nil {
		return nil, r.errBuscar
	}
	l, ok := r.lotes[codigo]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *l
	cp.Detalles = append([]model.DetalleProduccion(nil), l.Detalles...)
	return &cp, nil
}

func (r *stubLoteRepo) List(_ context.Context, f repository.LoteFilter) ([]model.LoteProduccion, int64, error) {
	all, _ := r.ListAll(context.Background())
	var out []model.LoteProduccion
	for _, l := range all {
		if f.Productor != "" && l.Productor != f.Productor {
			continue
		}
		out = append(out, l)
	}
	return out, int64(len(out)), nil
}

func (r *stubLoteRepo) ListAll(_ context.Context) ([]model.LoteProduccion, error) {
	out := make([]model.LoteProduccion, 0, len(r.lotes))
	for _, l := range r.lotes {
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Codigo < out[j].Codigo })
	return out, nil
}

func (r *stubLoteRepo) CreateTx(_ *gorm.DB, l *model.LoteProduccion) error {
	if _, ok := r.lotes[l.Codigo]; ok {
		return errors.New("duplicate key value violates unique constraint")
	}
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	l.CreatedAt = fechaFija
	l.UpdatedAt = fechaFija
	cp := *l
	r.lotes[l.Codigo] = &cp
	return nil
}

func (r *stubLoteRepo) ReplaceTx(_ *gorm.DB, l *model.LoteProduccion) error {
	prev, ok := r.lotes[l.Codigo]
	if !ok || prev.ID != l.ID {
		return gorm.ErrRecordNotFound
	}
	r.reemplazos++
	cp := *l
	r.lotes[l.Codigo] = &cp
	return nil
}

func (r *stubLoteRepo) DB() *gorm.DB { return nil }

// ── stubDespachoRepo ──────────────────────────────────────────────────────────

type stubDespachoRepo struct {
	despachos []model.Despacho
}

var _ repository.DespachoRepository = (*stubDespachoRepo)(nil)

func (r *stubDespachoRepo) Create(_ context.Context, d *model.Despacho) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	r.despachos = append(r.despachos, *d)
	return nil
}

func (r *stubDespachoRepo) ListAll(_ context.Context) ([]model.Despacho, error) {
	return r.despachos, nil
}

// ── stubAnalisisRepo ──────────────────────────────────────────────────────────

type stubAnalisisRepo struct {
	filas map[string]*model.AnalisisLote
}

var _ repository.AnalisisRepository = (*stubAnalisisRepo)(nil)

func newStubAnalisisRepo() *stubAnalisisRepo {
	return &stubAnalisisRepo{filas: make(map[string]*model.AnalisisLote)}
}

func (r *stubAnalisisRepo) Upsert(_ context.Context, a *model.AnalisisLote) error {
	cp := *a
	r.filas[a.LoteCodigo] = &cp
	return nil
}

func (r *stubAnalisisRepo) FindByCodigo(_ context.Context, codigo string) (*model.AnalisisLote, error) {
	a, ok := r.filas[codigo]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *stubAnalisisRepo) Update(ctx context.Context, a *model.AnalisisLote) error {
	return r.Upsert(ctx, a)
}

func (r *stubAnalisisRepo) ListPendingRetries(_ context.Context, _ time.Time, _ int) ([]model.AnalisisLote, error) {
	return nil, nil
}

// ── Fake collaborators ────────────────────────────────────────────────────────

type encoladorFalso struct {
	analisis []worker.AnalisisJobPayload
	reportes []worker.ReporteJobPayload
	err      error
}

func (e *encoladorFalso) EnqueueAnalisis(_ context.Context, p worker.AnalisisJobPayload) error {
	if e.err != nil {
		return e.err
	}
	e.analisis = append(e.analisis, p)
	return nil
}

func (e *encoladorFalso) EnqueueReporte(_ context.Context, p worker.ReporteJobPayload) error {
	if e.err != nil {
		return e.err
	}
	e.reportes = append(e.reportes, p)
	return nil
}
