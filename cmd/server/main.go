package main

// @title        Frutapack API
// @version      1.0
// @description  Conciliacion de lotes de produccion de planta frutera.
// @securityDefinitions.apikey BearerAuth
// @in           header
// @name         Authorization

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"frutapack/internal/config"
	"frutapack/internal/infra"
	"frutapack/internal/repository"
	"frutapack/internal/router"
	"frutapack/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: pretty in dev, JSON in prod
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	// Background work (analysis, lot reports, email) runs in the worker pool.
	// Handlers are wired here so the pool sees every infrastructure dependency.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	analisisCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	loteRepo := repository.NewLoteRepository(db)
	analisisRepo := repository.NewAnalisisRepository(db)
	cache := infra.NewCacheAnalisis(rdb, cfg.AnalisisTTL())
	dispatcher := worker.NewDispatcher(rdb)
	mailer := infra.NewMailer(cfg)

	handlers := worker.Handlers{
		worker.JobReporte: worker.NewReporteWorker(loteRepo, dispatcher, cfg.PDFStoragePath),
		worker.JobEmail:   worker.NewEmailWorker(mailer),
	}
	if cfg.AnalisisURL != "" {
		analisisWorker := worker.NewAnalisisWorker(
			infra.NewAnalisisClient(cfg.AnalisisURL), analisisCB,
			analisisRepo, loteRepo, cache, rdb,
		)
		handlers[worker.JobAnalisis] = analisisWorker
		worker.StartRetryCron(ctx, worker.RetryCronConfig{
			AnalisisRepo: analisisRepo,
			Worker:       analisisWorker,
			CB:           analisisCB,
		})
	} else {
		log.Warn().Msg("ANALISIS_URL not set: lot analysis disabled")
	}
	if !mailer.Configurado() {
		log.Warn().Msg("SMTP_HOST not set: report emails will be skipped")
	}
	worker.StartWorkerPool(ctx, rdb, cfg.WorkerPoolSize, handlers)

	r := router.New(cfg, db, rdb, analisisCB)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("frutapack listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
