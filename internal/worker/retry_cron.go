package worker

// retry_cron.go
// Background goroutine that periodically re-attempts narratives stuck in
// estado='error' with a next_retry_at in the past. Uses the Circuit Breaker
// to avoid hammering a downed backend.

import (
	"context"
	"time"

	"frutapack/internal/infra"
	"frutapack/internal/repository"

	"github.com/rs/zerolog/log"
)

const (
	retryTickInterval = 30 * time.Second
	retryBatchSize    = 10
)

// RetryCronConfig holds all dependencies for the retry goroutine.
type RetryCronConfig struct {
	AnalisisRepo repository.AnalisisRepository
	Worker       *AnalisisWorker
	CB           *infra.CircuitBreaker
}

// StartRetryCron launches a background goroutine that ticks every 30s and
// re-attempts due analyses through the CB. It respects the context for
// graceful shutdown.
func StartRetryCron(ctx context.Context, cfg RetryCronConfig) {
	go func() {
		ticker := time.NewTicker(retryTickInterval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				processRetries(ctx, cfg, time.Now())
			}
		}
	}()
}

func processRetries(ctx context.Context, cfg RetryCronConfig, now time.Time) {
	// Open CB: skip the whole tick
	if cfg.CB.State() == infra.CBOpen {
		log.Debug().Msg("retry_cron: circuit breaker is open, skipping tick")
		return
	}

	pendientes, err := cfg.AnalisisRepo.ListPendingRetries(ctx, now, retryBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("retry_cron: failed to query pending retries")
		return
	}
	if len(pendientes) == 0 {
		return
	}

	log.Info().Int("count", len(pendientes)).Msg("retry_cron: processing pending analyses")

	for i := range pendientes {
		// Check CB state before each call, it may trip mid-batch
		if cfg.CB.State() == infra.CBOpen {
			log.Debug().Msg("retry_cron: circuit breaker opened mid-batch, stopping")
			return
		}
		_ = cfg.Worker.Ejecutar(ctx, &pendientes[i], 1)
	}
}
