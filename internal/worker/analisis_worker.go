package worker

// analisis_worker.go
// Processes narrative jobs from QueueAnalisis: loads the committed lot, calls
// the analysis backend through the circuit breaker and stores the text.
// Failures are recorded on the row and picked up again by retry_cron.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"frutapack/internal/infra"
	"frutapack/internal/model"
	"frutapack/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// MaxAnalisisRetries is the number of failed attempts after which an
// analysis stops being retried and goes to the DLQ.
const MaxAnalisisRetries = 5

// AnalisisJobPayload is the job envelope sent to QueueAnalisis.
type AnalisisJobPayload struct {
	LoteCodigo string `json:"lote_codigo"`
	Productor  string `json:"productor,omitempty"`
}

// Analizador is the narrative backend as the worker sees it.
type Analizador interface {
	Analizar(ctx context.Context, payload infra.AnalisisPayload) (string, error)
}

type AnalisisWorker struct {
	client       Analizador
	cb           *infra.CircuitBreaker
	analisisRepo repository.AnalisisRepository
	loteRepo     repository.LoteRepository
	cache        *infra.CacheAnalisis
	rdb          *redis.Client
	intentos     int
	ahora        func() time.Time
}

func NewAnalisisWorker(
	client Analizador,
	cb *infra.CircuitBreaker,
	analisisRepo repository.AnalisisRepository,
	loteRepo repository.LoteRepository,
	cache *infra.CacheAnalisis,
	rdb *redis.Client,
) *AnalisisWorker {
	return &AnalisisWorker{
		client:       client,
		cb:           cb,
		analisisRepo: analisisRepo,
		loteRepo:     loteRepo,
		cache:        cache,
		rdb:          rdb,
		intentos:     3,
		ahora:        time.Now,
	}
}

// Process handles a single analysis job.
func (w *AnalisisWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload AnalisisJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("analisis_worker: invalid payload")
		return
	}

	a, err := w.analisisRepo.FindByCodigo(ctx, payload.LoteCodigo)
	if err != nil {
		a = &model.AnalisisLote{
			LoteCodigo: payload.LoteCodigo,
			Productor:  payload.Productor,
			Estado:     model.EstadoAnalisisPendiente,
		}
		if err := w.analisisRepo.Upsert(ctx, a); err != nil {
			log.Error().Err(err).Str("lote", payload.LoteCodigo).Msg("analisis_worker: failed to create row")
			return
		}
	} else {
		// a new job starts a fresh retry cycle
		a.RetryCount = 0
		a.Estado = model.EstadoAnalisisPendiente
	}
	_ = w.Ejecutar(ctx, a, w.intentos)
}

// Ejecutar runs one analysis attempt cycle and persists the outcome.
func (w *AnalisisWorker) Ejecutar(ctx context.Context, a *model.AnalisisLote, intentos int) error {
	lote, err := w.loteRepo.FindByCodigo(ctx, a.LoteCodigo)
	if err != nil {
		msg := fmt.Sprintf("lote %s no encontrado", a.LoteCodigo)
		a.Estado = model.EstadoAnalisisError
		a.LastError = &msg
		a.NextRetryAt = nil
		_ = w.analisisRepo.Update(ctx, a)
		log.Error().Err(err).Str("lote", a.LoteCodigo).Msg("analisis_worker: lot not found")
		return err
	}

	payload := infra.NuevoAnalisisPayload(lote, a.Productor)
	var texto string
	err = withRetry(ctx, intentos, func(attempt int) error {
		return w.cb.Execute(func() error {
			t, err := w.client.Analizar(ctx, payload)
			if err != nil {
				log.Warn().
					Err(err).
					Int("attempt", attempt+1).
					Str("lote", a.LoteCodigo).
					Msg("analisis_worker: backend attempt failed")
				return err
			}
			texto = t
			return nil
		})
	})
	if err != nil {
		w.registrarFallo(ctx, a, err)
		return err
	}

	a.Estado = model.EstadoAnalisisListo
	a.Texto = &texto
	a.NextRetryAt = nil
	a.LastError = nil
	if err := w.analisisRepo.Update(ctx, a); err != nil {
		log.Error().Err(err).Str("lote", a.LoteCodigo).Msg("analisis_worker: failed to store text")
		return err
	}
	if err := w.cache.Set(ctx, a.LoteCodigo, texto); err != nil {
		log.Warn().Err(err).Str("lote", a.LoteCodigo).Msg("analisis_worker: cache write failed")
	}
	log.Info().Str("lote", a.LoteCodigo).Int("retries", a.RetryCount).Msg("analisis_worker: narrative stored")
	return nil
}

func (w *AnalisisWorker) registrarFallo(ctx context.Context, a *model.AnalisisLote, cause error) {
	a.RetryCount++
	a.Estado = model.EstadoAnalisisError
	errMsg := cause.Error()
	a.LastError = &errMsg

	if a.RetryCount >= MaxAnalisisRetries {
		a.NextRetryAt = nil
		log.Error().
			Str("lote", a.LoteCodigo).
			Int("retries", a.RetryCount).
			Msg("analisis_worker: max retries exceeded, moving to DLQ")
		if w.rdb != nil {
			payload, _ := json.Marshal(AnalisisJobPayload{LoteCodigo: a.LoteCodigo, Productor: a.Productor})
			SendToDLQ(ctx, w.rdb, QueueAnalisis, JobAnalisis, payload,
				fmt.Sprintf("max retries (%d) exceeded: %s", MaxAnalisisRetries, errMsg), a.RetryCount)
		}
	} else {
		next := w.ahora().Add(computeRetryBackoff(a.RetryCount))
		a.NextRetryAt = &next
		ev := log.Warn().Str("lote", a.LoteCodigo).Int("retry_count", a.RetryCount).Time("next_retry_at", next)
		if errors.Is(cause, infra.ErrCircuitOpen) {
			ev = ev.Bool("circuit_open", true)
		}
		ev.Msg("analisis_worker: attempt failed, scheduled next retry")
	}
	_ = w.analisisRepo.Update(ctx, a)
}

// withRetry calls fn up to maxAttempts times with exponential backoff.
// Backoff schedule: attempt 1 = immediate, 2 = 1s, 3 = 2s.
// Returns nil if any attempt succeeds; last error otherwise.
func withRetry(ctx context.Context, maxAttempts int, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			wait := time.Duration(1<<uint(i-1)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := fn(i); err != nil {
			lastErr = err
			if errors.Is(err, infra.ErrCircuitOpen) {
				return err
			}
			continue
		}
		return nil
	}
	return lastErr
}

// computeRetryBackoff: 1m, 2m, 4m ... capped at 1h.
func computeRetryBackoff(retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}
	d := time.Minute << uint(retryCount-1)
	if d > time.Hour || d <= 0 {
		return time.Hour
	}
	return d
}
