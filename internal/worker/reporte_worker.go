package worker

// reporte_worker.go
// Renders the report PDF of a committed lot and hands it to the email queue.

import (
	"context"
	"encoding/json"
	"fmt"

	"frutapack/internal/infra"
	"frutapack/internal/repository"

	"github.com/rs/zerolog/log"
)

// ReporteJobPayload is the job envelope sent to QueueReporte.
type ReporteJobPayload struct {
	LoteCodigo string `json:"lote_codigo"`
	ToEmail    string `json:"to_email"`
}

type ReporteWorker struct {
	loteRepo       repository.LoteRepository
	dispatcher     *Dispatcher
	pdfStoragePath string
}

func NewReporteWorker(loteRepo repository.LoteRepository, dispatcher *Dispatcher, pdfStoragePath string) *ReporteWorker {
	return &ReporteWorker{loteRepo: loteRepo, dispatcher: dispatcher, pdfStoragePath: pdfStoragePath}
}

func (w *ReporteWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload ReporteJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("reporte_worker: invalid payload")
		return
	}

	lote, err := w.loteRepo.FindByCodigo(ctx, payload.LoteCodigo)
	if err != nil {
		log.Error().Err(err).Str("lote", payload.LoteCodigo).Msg("reporte_worker: lot not found")
		return
	}

	pdfPath, err := infra.GuardarReporteLote(lote, w.pdfStoragePath)
	if err != nil {
		log.Warn().Err(err).Str("lote", payload.LoteCodigo).Msg("reporte_worker: PDF generation failed")
		return
	}
	log.Info().Str("pdf", pdfPath).Str("lote", payload.LoteCodigo).Msg("reporte_worker: PDF generated")

	if payload.ToEmail == "" || w.dispatcher == nil {
		return
	}
	emailJob := EmailJobPayload{
		ToEmail: payload.ToEmail,
		Subject: fmt.Sprintf("Lote %s: %s %s", lote.Codigo, lote.Productor, lote.Variedad),
		Body: fmt.Sprintf("Lote %s cerrado.\nEntrada: %s kg\nProducido: %s kg\nRendimiento: %s %%",
			lote.Codigo,
			lote.PesoEntradaTotal.StringFixed(2),
			lote.KilosProducidos().StringFixed(2),
			lote.PorcentajeRendimiento.StringFixed(2)),
		PDFPath: pdfPath,
	}
	if err := w.dispatcher.EnqueueEmail(ctx, emailJob); err != nil {
		log.Warn().Err(err).Str("email", payload.ToEmail).Msg("reporte_worker: failed to enqueue email")
	}
}
