package service

import (
	"context"
	"fmt"
	"time"

	"frutapack/internal/conciliacion"
	"frutapack/internal/dto"
	"frutapack/internal/model"
	"frutapack/internal/repository"
	"frutapack/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// EncoladorReportes is the slice of worker.Dispatcher used after a commit.
type EncoladorReportes interface {
	EnqueueReporte(ctx context.Context, payload worker.ReporteJobPayload) error
}

// LoteService drives compositions from stock selection to a committed lot,
// and serves lot history.
type LoteService interface {
	IniciarComposicion(ctx context.Context, req dto.ProcederRequest) (*dto.ComposicionResponse, error)
	ObtenerComposicion(ctx context.Context, id uuid.UUID) (*dto.ComposicionResponse, error)
	AgregarEntrada(ctx context.Context, id uuid.UUID, req dto.AgregarEntradaRequest) (*dto.ComposicionResponse, error)
	QuitarEntrada(ctx context.Context, id uuid.UUID, idUnico string) (*dto.ComposicionResponse, error)
	AgregarLinea(ctx context.Context, id uuid.UUID) (*dto.ComposicionResponse, error)
	EditarLinea(ctx context.Context, id uuid.UUID, idx int, req dto.EditarLineaRequest) (*dto.ComposicionResponse, error)
	QuitarLinea(ctx context.Context, id uuid.UUID, idx int) (*dto.ComposicionResponse, error)
	FijarDescartes(ctx context.Context, id uuid.UUID, req dto.DescartesRequest) (*dto.ComposicionResponse, error)
	Confirmar(ctx context.Context, id uuid.UUID) (*dto.ConfirmarResponse, error)
	Cancelar(ctx context.Context, id uuid.UUID) error

	Reabrir(ctx context.Context, codigo string) (*dto.ComposicionResponse, error)
	ObtenerLote(ctx context.Context, codigo string) (*dto.LoteResponse, error)
	ListarLotes(ctx context.Context, filter dto.LoteFilter) (*dto.LoteListResponse, error)
}

type loteService struct {
	repo          repository.LoteRepository
	recepcionRepo repository.RecepcionRepository
	despachoRepo  repository.DespachoRepository
	analisis      AnalisisService
	reportes      EncoladorReportes
	reporteEmail  string
	cfg           conciliacion.Configuracion
	registro      *registroSesiones
}

func NewLoteService(
	repo repository.LoteRepository,
	recepcionRepo repository.RecepcionRepository,
	despachoRepo repository.DespachoRepository,
	analisis AnalisisService,
	reportes EncoladorReportes,
	reporteEmail string,
	cfg conciliacion.Configuracion,
	sesionTTL time.Duration,
) LoteService {
	return &loteService{
		repo:          repo,
		recepcionRepo: recepcionRepo,
		despachoRepo:  despachoRepo,
		analisis:      analisis,
		reportes:      reportes,
		reporteEmail:  reporteEmail,
		cfg:           cfg,
		registro:      newRegistroSesiones(sesionTTL),
	}
}

// contexto loads the history the engine needs for folio sequencing, lot
// codes and open-folio lookups.
func (s *loteService) contexto(ctx context.Context) (conciliacion.Contexto, error) {
	lotes, err := s.repo.ListAll(ctx)
	if err != nil {
		return conciliacion.Contexto{}, err
	}
	despachos, err := s.despachoRepo.ListAll(ctx)
	if err != nil {
		return conciliacion.Contexto{}, err
	}
	return conciliacion.Contexto{Historico: lotes, Despachos: despachos}, nil
}

// ── Composition ──────────────────────────────────────────────────────────────

func (s *loteService) IniciarComposicion(ctx context.Context, req dto.ProcederRequest) (*dto.ComposicionResponse, error) {
	recs, err := s.recepcionRepo.ListDisponibles(ctx)
	if err != nil {
		return nil, err
	}
	pool := indexarItems(s.cfg.Tara.AplanarStock(recs))

	seleccion := make([]conciliacion.ItemStock, 0, len(req.Items))
	for _, idUnico := range req.Items {
		it, ok := pool[idUnico]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrItemNoDisponible, idUnico)
		}
		seleccion = append(seleccion, it)
	}

	cctx, err := s.contexto(ctx)
	if err != nil {
		return nil, err
	}
	sesion := conciliacion.NuevaSesion(s.cfg)
	if err := sesion.Proceder(seleccion, req.Confirmada, cctx); err != nil {
		return nil, err
	}
	id := s.registro.crear(sesion, nil)
	log.Info().
		Str("composicion", id.String()).
		Str("codigo", sesion.Codigo()).
		Int("entradas", len(seleccion)).
		Msg("composicion iniciada")
	return composicionToResponse(id, sesion, nil), nil
}

func (s *loteService) ObtenerComposicion(_ context.Context, id uuid.UUID) (*dto.ComposicionResponse, error) {
	return s.conSesion(id, func(e *sesionActiva) ([]conciliacion.Advertencia, error) { return nil, nil })
}

func (s *loteService) AgregarEntrada(ctx context.Context, id uuid.UUID, req dto.AgregarEntradaRequest) (*dto.ComposicionResponse, error) {
	return s.conSesion(id, func(e *sesionActiva) ([]conciliacion.Advertencia, error) {
		pool, err := s.candidatos(ctx, e.original)
		if err != nil {
			return nil, err
		}
		it, ok := pool[req.IDUnico]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrItemNoDisponible, req.IDUnico)
		}
		return nil, e.sesion.AgregarEntrada(it)
	})
}

// candidatos is the pool an input may be added from: available stock plus,
// in update mode, the pallets the original lot already consumed.
func (s *loteService) candidatos(ctx context.Context, original *model.LoteProduccion) (map[string]conciliacion.ItemStock, error) {
	recs, err := s.recepcionRepo.ListDisponibles(ctx)
	if err != nil {
		return nil, err
	}
	pool := indexarItems(s.cfg.Tara.AplanarStock(recs))
	if original == nil {
		return pool, nil
	}
	propias, err := s.recepcionesDeLote(ctx, original)
	if err != nil {
		return nil, err
	}
	for id, it := range indexarItems(conciliacion.ReconstruirEntradas(s.cfg.Tara, original, propias)) {
		pool[id] = it
	}
	return pool, nil
}

func (s *loteService) QuitarEntrada(_ context.Context, id uuid.UUID, idUnico string) (*dto.ComposicionResponse, error) {
	return s.conSesion(id, func(e *sesionActiva) ([]conciliacion.Advertencia, error) {
		return nil, e.sesion.QuitarEntrada(idUnico)
	})
}

func (s *loteService) AgregarLinea(_ context.Context, id uuid.UUID) (*dto.ComposicionResponse, error) {
	return s.conSesion(id, func(e *sesionActiva) ([]conciliacion.Advertencia, error) {
		_, err := e.sesion.AgregarLinea()
		return nil, err
	})
}

func (s *loteService) EditarLinea(_ context.Context, id uuid.UUID, idx int, req dto.EditarLineaRequest) (*dto.ComposicionResponse, error) {
	return s.conSesion(id, func(e *sesionActiva) ([]conciliacion.Advertencia, error) {
		adv, err := e.sesion.EditarLinea(idx, conciliacion.CambioLinea{
			Formato:         req.Formato,
			PesoUnitario:    req.PesoUnitario,
			Unidades:        req.Unidades,
			Pallets:         req.Pallets,
			PalletCompleto:  req.PalletCompleto,
			Folio:           req.Folio,
			LineaProduccion: req.LineaProduccion,
		})
		for _, a := range adv {
			log.Warn().Str("composicion", id.String()).Int("linea", idx).Msg(a.Mensaje)
		}
		return adv, err
	})
}

func (s *loteService) QuitarLinea(_ context.Context, id uuid.UUID, idx int) (*dto.ComposicionResponse, error) {
	return s.conSesion(id, func(e *sesionActiva) ([]conciliacion.Advertencia, error) {
		return nil, e.sesion.QuitarLinea(idx)
	})
}

func (s *loteService) FijarDescartes(_ context.Context, id uuid.UUID, req dto.DescartesRequest) (*dto.ComposicionResponse, error) {
	return s.conSesion(id, func(e *sesionActiva) ([]conciliacion.Advertencia, error) {
		return nil, e.sesion.FijarDescartes(conciliacion.Descartes{
			IQF:         req.IQF,
			Merma:       req.Merma,
			Desecho:     req.Desecho,
			Adicionales: req.Adicionales,
		})
	})
}

func (s *loteService) Cancelar(_ context.Context, id uuid.UUID) error {
	e, err := s.registro.obtener(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.sesion.Cancelar()
	e.mu.Unlock()
	s.registro.quitar(id)
	return nil
}

// conSesion runs op with the session locked and renders the result.
func (s *loteService) conSesion(id uuid.UUID, op func(e *sesionActiva) ([]conciliacion.Advertencia, error)) (*dto.ComposicionResponse, error) {
	e, err := s.registro.obtener(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	adv, err := op(e)
	if err != nil {
		return nil, err
	}
	return composicionToResponse(id, e.sesion, adv), nil
}

// ── Confirmar ─────────────────────────────────────────────────────────────────
// Commit runs in one transaction:
//   1. Engine validation (balance >= 0, code present) before anything is written
//   2. Consume the input pallets: reject pallets used by another lot,
//      mark them used, close receptions with nothing left
//   3. Create the lot, or replace it wholesale in update mode
//   4. (async) narrative analysis + report email, never failing the commit

func (s *loteService) Confirmar(ctx context.Context, id uuid.UUID) (*dto.ConfirmarResponse, error) {
	e, err := s.registro.obtener(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	modo := e.sesion.Modo()
	entradas := e.sesion.Entradas()
	lote, err := e.sesion.Confirmar(func(l *model.LoteProduccion) error {
		return s.persistir(ctx, l, entradas, e.original)
	})
	if err != nil {
		return nil, err
	}
	s.registro.quitar(id)

	log.Info().
		Str("codigo", lote.Codigo).
		Str("modo", modo.String()).
		Str("entrada", lote.PesoEntradaTotal.String()).
		Str("rendimiento", lote.PorcentajeRendimiento.String()).
		Msg("lote confirmado")

	s.posConfirmacion(ctx, lote)
	return &dto.ConfirmarResponse{Modo: modo.String(), Lote: loteToResponse(lote)}, nil
}

func (s *loteService) persistir(ctx context.Context, lote *model.LoteProduccion, entradas []conciliacion.ItemStock, original *model.LoteProduccion) error {
	return runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if original == nil {
			existente, err := s.repo.FindByCodigoTx(tx, lote.Codigo)
			switch {
			case err == nil && existente != nil:
				return fmt.Errorf("%w: %s", ErrCodigoEnUso, lote.Codigo)
			case err != nil && !noEncontrado(err):
				return err
			}
		}
		if err := s.consumirEntradas(tx, entradas, original); err != nil {
			return err
		}
		if original == nil {
			return s.repo.CreateTx(tx, lote)
		}
		return s.repo.ReplaceTx(tx, lote)
	})
}

type consumoRecepcion struct {
	pallets map[string]conciliacion.ItemStock
	folios  []string
	general *conciliacion.ItemStock
}

// consumirEntradas checks every input against the stored reception and flags
// it used. Inputs whose pallet changed since they were added are rejected.
// On update, pallets of the original lot that left the draft go back to stock.
func (s *loteService) consumirEntradas(tx *gorm.DB, entradas []conciliacion.ItemStock, original *model.LoteProduccion) error {
	orden := make([]uuid.UUID, 0)
	porRecepcion := make(map[uuid.UUID]*consumoRecepcion)
	for _, it := range entradas {
		c, ok := porRecepcion[it.RecepcionID]
		if !ok {
			c = &consumoRecepcion{pallets: make(map[string]conciliacion.ItemStock)}
			porRecepcion[it.RecepcionID] = c
			orden = append(orden, it.RecepcionID)
		}
		if it.Folio == conciliacion.FolioGeneral {
			g := it
			c.general = &g
			continue
		}
		if _, dup := c.pallets[it.Folio]; !dup {
			c.pallets[it.Folio] = it
			c.folios = append(c.folios, it.Folio)
		}
	}

	previasRec := make(map[string]struct{})
	previos := make(map[string]struct{})
	if original != nil {
		for _, r := range original.RecepcionIDs {
			previasRec[r] = struct{}{}
		}
		previos = conciliacion.ClavesLote(original)
	}

	for _, recID := range orden {
		c := porRecepcion[recID]
		rec, err := s.recepcionRepo.FindByIDTx(tx, recID)
		if err != nil {
			if noEncontrado(err) {
				return fmt.Errorf("%w: recepcion %s", ErrItemNoDisponible, recID)
			}
			return err
		}
		_, delOriginal := previasRec[recID.String()]

		if c.general != nil {
			if rec.Estado == model.EstadoRecepcionConsumida && !delOriginal {
				return fmt.Errorf("%w: recepcion %s", ErrPalletConsumido, rec.NumeroGuia)
			}
			if !conciliacion.CoincideRecepcion(*c.general, rec) {
				return fmt.Errorf("%w: recepcion %s", ErrEntradaDesactualizada, rec.NumeroGuia)
			}
		}

		var liberar []string
		encontrados := make(map[string]struct{}, len(c.folios))
		restantes := 0
		for _, p := range rec.Pallets {
			_, previo := previos[conciliacion.ClavePallet(recID, p.Folio)]
			it, aConsumir := c.pallets[p.Folio]
			switch {
			case aConsumir:
				if p.Usado && !previo {
					return fmt.Errorf("%w: %s", ErrPalletConsumido, p.Folio)
				}
				if !conciliacion.CoincidePallet(it, p) {
					return fmt.Errorf("%w: %s", ErrEntradaDesactualizada, p.Folio)
				}
				encontrados[p.Folio] = struct{}{}
			case p.Usado && previo:
				liberar = append(liberar, p.Folio)
				restantes++
			case !p.Usado:
				restantes++
			}
		}
		for _, f := range c.folios {
			if _, ok := encontrados[f]; !ok {
				return fmt.Errorf("%w: %s", ErrItemNoDisponible, f)
			}
		}

		if err := s.recepcionRepo.LiberarTx(tx, recID, liberar); err != nil {
			return err
		}
		if err := s.recepcionRepo.MarcarUsadosTx(tx, recID, c.folios); err != nil {
			return err
		}
		estado := model.EstadoRecepcionDisponible
		if c.general != nil || (len(rec.Pallets) > 0 && restantes == 0) {
			estado = model.EstadoRecepcionConsumida
		}
		if estado != rec.Estado {
			if err := s.recepcionRepo.UpdateEstadoTx(tx, recID, estado); err != nil {
				return err
			}
		}
	}

	if original != nil {
		return s.liberarRecepcionesQuitadas(tx, original, porRecepcion)
	}
	return nil
}

// liberarRecepcionesQuitadas returns to stock every reception the original
// lot drew from that the updated draft no longer uses at all.
func (s *loteService) liberarRecepcionesQuitadas(tx *gorm.DB, original *model.LoteProduccion, enUso map[uuid.UUID]*consumoRecepcion) error {
	previos := conciliacion.ClavesLote(original)
	for _, raw := range original.RecepcionIDs {
		recID, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		if _, ok := enUso[recID]; ok {
			continue
		}
		rec, err := s.recepcionRepo.FindByIDTx(tx, recID)
		if err != nil {
			if noEncontrado(err) {
				continue
			}
			return err
		}
		var liberar []string
		for _, p := range rec.Pallets {
			if _, ok := previos[conciliacion.ClavePallet(recID, p.Folio)]; ok && p.Usado {
				liberar = append(liberar, p.Folio)
			}
		}
		if len(rec.Pallets) > 0 && len(liberar) == 0 {
			continue
		}
		if err := s.recepcionRepo.LiberarTx(tx, recID, liberar); err != nil {
			return err
		}
		if rec.Estado != model.EstadoRecepcionDisponible {
			if err := s.recepcionRepo.UpdateEstadoTx(tx, recID, model.EstadoRecepcionDisponible); err != nil {
				return err
			}
		}
		log.Info().Str("lote", original.Codigo).Str("recepcion", rec.NumeroGuia).Int("pallets", len(liberar)).Msg("recepcion devuelta al stock")
	}
	return nil
}

func (s *loteService) posConfirmacion(ctx context.Context, lote *model.LoteProduccion) {
	if s.analisis != nil {
		s.analisis.Programar(ctx, lote)
	}
	if s.reportes != nil && s.reporteEmail != "" {
		payload := worker.ReporteJobPayload{LoteCodigo: lote.Codigo, ToEmail: s.reporteEmail}
		if err := s.reportes.EnqueueReporte(ctx, payload); err != nil {
			log.Warn().Err(err).Str("lote", lote.Codigo).Msg("reporte: enqueue failed")
		}
	}
}

// ── Reopen & history ─────────────────────────────────────────────────────────

func (s *loteService) Reabrir(ctx context.Context, codigo string) (*dto.ComposicionResponse, error) {
	if s.registro.enEdicion(codigo) {
		return nil, ErrLoteEnEdicion
	}
	lote, err := s.repo.FindByCodigo(ctx, codigo)
	if err != nil {
		if noEncontrado(err) {
			return nil, ErrLoteNoEncontrado
		}
		return nil, err
	}
	recs, err := s.recepcionesDeLote(ctx, lote)
	if err != nil {
		return nil, err
	}
	cctx, err := s.contexto(ctx)
	if err != nil {
		return nil, err
	}

	sesion := conciliacion.NuevaSesion(s.cfg)
	if err := sesion.Reabrir(lote, recs, cctx); err != nil {
		return nil, err
	}
	id := s.registro.crear(sesion, lote)
	log.Info().Str("composicion", id.String()).Str("codigo", codigo).Msg("lote reabierto")
	return composicionToResponse(id, sesion, nil), nil
}

// recepcionesDeLote loads the receptions a lot drew from; lots without a
// stored list fall back to every reception.
func (s *loteService) recepcionesDeLote(ctx context.Context, lote *model.LoteProduccion) ([]model.Recepcion, error) {
	if len(lote.RecepcionIDs) == 0 {
		return s.recepcionRepo.ListAll(ctx)
	}
	ids := make([]uuid.UUID, 0, len(lote.RecepcionIDs))
	for _, raw := range lote.RecepcionIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return s.recepcionRepo.FindByIDs(ctx, ids)
}

func (s *loteService) ObtenerLote(ctx context.Context, codigo string) (*dto.LoteResponse, error) {
	lote, err := s.repo.FindByCodigo(ctx, codigo)
	if err != nil {
		if noEncontrado(err) {
			return nil, ErrLoteNoEncontrado
		}
		return nil, err
	}
	resp := loteToResponse(lote)
	return &resp, nil
}

func (s *loteService) ListarLotes(ctx context.Context, filter dto.LoteFilter) (*dto.LoteListResponse, error) {
	f := repository.LoteFilter{Productor: filter.Productor, Page: filter.Page, Limit: filter.Limit}
	if filter.Desde != "" {
		d, err := time.Parse("2006-01-02", filter.Desde)
		if err != nil {
			return nil, fmt.Errorf("fecha desde invalida: %w", err)
		}
		f.Desde = &d
	}
	if filter.Hasta != "" {
		h, err := time.Parse("2006-01-02", filter.Hasta)
		if err != nil {
			return nil, fmt.Errorf("fecha hasta invalida: %w", err)
		}
		fin := h.Add(24*time.Hour - time.Nanosecond)
		f.Hasta = &fin
	}

	lotes, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	data := make([]dto.LoteResponse, 0, len(lotes))
	for i := range lotes {
		data = append(data, loteToResponse(&lotes[i]))
	}
	return &dto.LoteListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// ── Mapping ──────────────────────────────────────────────────────────────────

func indexarItems(items []conciliacion.ItemStock) map[string]conciliacion.ItemStock {
	m := make(map[string]conciliacion.ItemStock, len(items))
	for _, it := range items {
		m[it.IDUnico] = it
	}
	return m
}

func composicionToResponse(id uuid.UUID, s *conciliacion.Sesion, adv []conciliacion.Advertencia) *dto.ComposicionResponse {
	lineas := s.Lineas()
	resp := &dto.ComposicionResponse{
		ID:            id.String(),
		Estado:        s.Estado().String(),
		Modo:          s.Modo().String(),
		Codigo:        s.Codigo(),
		CentroTrabajo: s.CentroTrabajo(),
		Productor:     s.Productor(),
		Variedad:      s.Variedad(),
		Entradas:      s.Entradas(),
		Lineas:        make([]dto.LineaResponse, 0, len(lineas)),
		Descartes:     s.Descartes(),
		Balance:       s.Balance(),
		Advertencias:  adv,
	}
	for i, l := range lineas {
		resp.Lineas = append(resp.Lineas, lineaToResponse(i, l))
	}
	return resp
}

func lineaToResponse(i int, l model.DetalleProduccion) dto.LineaResponse {
	return dto.LineaResponse{
		Indice:          i,
		Formato:         l.Formato,
		PesoUnitario:    l.PesoUnitario,
		Unidades:        l.Unidades,
		Pallets:         l.Pallets,
		PalletCompleto:  l.PalletCompleto,
		Folio:           l.Folio,
		KilosTotales:    l.KilosTotales,
		LineaProduccion: l.LineaProduccion,
	}
}

func loteToResponse(l *model.LoteProduccion) dto.LoteResponse {
	resp := dto.LoteResponse{
		ID:                    l.ID.String(),
		Codigo:                l.Codigo,
		CentroTrabajo:         l.CentroTrabajo,
		Fecha:                 l.Fecha.Format(time.RFC3339),
		Productor:             l.Productor,
		Variedad:              l.Variedad,
		RecepcionIDs:          []string(l.RecepcionIDs),
		FoliosUsados:          []string(l.FoliosUsados),
		PalletsUsados:         []string(l.PalletsUsados),
		PesoEntradaTotal:      l.PesoEntradaTotal,
		KilosProducidos:       l.KilosProducidos(),
		KilosIQF:              l.KilosIQF,
		KilosMerma:            l.KilosMerma,
		KilosDesecho:          l.KilosDesecho,
		DescartesAdicionales:  l.DescartesAdicionales.Data(),
		PorcentajeRendimiento: l.PorcentajeRendimiento,
		Detalles:              make([]dto.LineaResponse, 0, len(l.Detalles)),
		CreatedAt:             l.CreatedAt.Format(time.RFC3339),
		UpdatedAt:             l.UpdatedAt.Format(time.RFC3339),
	}
	for i, d := range l.Detalles {
		resp.Detalles = append(resp.Detalles, lineaToResponse(i, d))
	}
	return resp
}
