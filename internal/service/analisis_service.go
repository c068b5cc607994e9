package service

import (
	"context"
	"time"

	"frutapack/internal/dto"
	"frutapack/internal/infra"
	"frutapack/internal/model"
	"frutapack/internal/repository"
	"frutapack/internal/worker"

	"github.com/rs/zerolog/log"
)

// TextoNoDisponible replaces the narrative whenever the backend is absent or failing.
const TextoNoDisponible = "Análisis no disponible por el momento."

// EncoladorAnalisis is the slice of worker.Dispatcher this service needs.
type EncoladorAnalisis interface {
	EnqueueAnalisis(ctx context.Context, payload worker.AnalisisJobPayload) error
}

// AnalisisService tracks the narrative commentary of each lot. Nothing here
// ever fails a commit: Programar only logs.
type AnalisisService interface {
	Programar(ctx context.Context, lote *model.LoteProduccion)
	Solicitar(ctx context.Context, codigo string) (*dto.AnalisisResponse, error)
	Obtener(ctx context.Context, codigo string) (*dto.AnalisisResponse, error)
}

type analisisService struct {
	repo      repository.AnalisisRepository
	loteRepo  repository.LoteRepository
	cache     *infra.CacheAnalisis
	encolador EncoladorAnalisis // nil when no backend is configured
	ahora     func() time.Time
}

func NewAnalisisService(
	repo repository.AnalisisRepository,
	loteRepo repository.LoteRepository,
	cache *infra.CacheAnalisis,
	encolador EncoladorAnalisis,
) AnalisisService {
	return &analisisService{
		repo:      repo,
		loteRepo:  loteRepo,
		cache:     cache,
		encolador: encolador,
		ahora:     time.Now,
	}
}

func (s *analisisService) Programar(ctx context.Context, lote *model.LoteProduccion) {
	if err := s.cache.Invalidate(ctx, lote.Codigo); err != nil {
		log.Warn().Err(err).Str("lote", lote.Codigo).Msg("analisis: cache invalidate failed")
	}

	a := &model.AnalisisLote{LoteCodigo: lote.Codigo, Productor: lote.Productor}
	if s.encolador == nil {
		texto := TextoNoDisponible
		a.Estado = model.EstadoAnalisisNoDisponible
		a.Texto = &texto
		if err := s.repo.Upsert(ctx, a); err != nil {
			log.Warn().Err(err).Str("lote", lote.Codigo).Msg("analisis: failed to store placeholder")
		}
		return
	}

	a.Estado = model.EstadoAnalisisPendiente
	if err := s.repo.Upsert(ctx, a); err != nil {
		log.Warn().Err(err).Str("lote", lote.Codigo).Msg("analisis: failed to store pending row")
		return
	}
	payload := worker.AnalisisJobPayload{LoteCodigo: lote.Codigo, Productor: lote.Productor}
	if err := s.encolador.EnqueueAnalisis(ctx, payload); err != nil {
		// Leave it for retry_cron
		msg := err.Error()
		ahora := s.ahora()
		a.Estado = model.EstadoAnalisisError
		a.LastError = &msg
		a.NextRetryAt = &ahora
		_ = s.repo.Update(ctx, a)
		log.Warn().Err(err).Str("lote", lote.Codigo).Msg("analisis: enqueue failed, left for retry")
	}
}

func (s *analisisService) Solicitar(ctx context.Context, codigo string) (*dto.AnalisisResponse, error) {
	lote, err := s.loteRepo.FindByCodigo(ctx, codigo)
	if err != nil {
		if noEncontrado(err) {
			return nil, ErrLoteNoEncontrado
		}
		return nil, err
	}
	s.Programar(ctx, lote)
	return s.Obtener(ctx, codigo)
}

func (s *analisisService) Obtener(ctx context.Context, codigo string) (*dto.AnalisisResponse, error) {
	if texto, ok, err := s.cache.Get(ctx, codigo); err == nil && ok {
		return &dto.AnalisisResponse{LoteCodigo: codigo, Estado: model.EstadoAnalisisListo, Texto: texto}, nil
	}

	a, err := s.repo.FindByCodigo(ctx, codigo)
	if err != nil {
		if !noEncontrado(err) {
			return nil, err
		}
		if _, err := s.loteRepo.FindByCodigo(ctx, codigo); err != nil {
			if noEncontrado(err) {
				return nil, ErrLoteNoEncontrado
			}
			return nil, err
		}
		if s.encolador == nil {
			return &dto.AnalisisResponse{
				LoteCodigo: codigo,
				Estado:     model.EstadoAnalisisNoDisponible,
				Texto:      TextoNoDisponible,
			}, nil
		}
		return nil, ErrAnalisisNoSolicitado
	}

	resp := &dto.AnalisisResponse{
		LoteCodigo:    a.LoteCodigo,
		Estado:        a.Estado,
		Intentos:      a.RetryCount,
		ActualizadoEn: a.UpdatedAt.Format(time.RFC3339),
	}
	switch {
	case a.Estado == model.EstadoAnalisisListo && a.Texto != nil:
		resp.Texto = *a.Texto
		if err := s.cache.Set(ctx, codigo, resp.Texto); err != nil {
			log.Warn().Err(err).Str("lote", codigo).Msg("analisis: cache write failed")
		}
	case a.Estado == model.EstadoAnalisisError || a.Estado == model.EstadoAnalisisNoDisponible:
		resp.Texto = TextoNoDisponible
	}
	return resp, nil
}
