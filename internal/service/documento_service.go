package service

import (
	"context"
	"fmt"
	"io"

	"frutapack/internal/infra"
	"frutapack/internal/model"
	"frutapack/internal/repository"
)

// DocumentoService renders printable documents of committed lots.
// Rendering never touches engine state.
type DocumentoService interface {
	ReporteLote(ctx context.Context, codigo string, w io.Writer) error
	EtiquetaLinea(ctx context.Context, codigo string, linea int, w io.Writer) error
}

type documentoService struct {
	loteRepo repository.LoteRepository
}

func NewDocumentoService(loteRepo repository.LoteRepository) DocumentoService {
	return &documentoService{loteRepo: loteRepo}
}

func (s *documentoService) ReporteLote(ctx context.Context, codigo string, w io.Writer) error {
	lote, err := s.cargar(ctx, codigo)
	if err != nil {
		return err
	}
	return infra.EscribirReporteLote(w, lote)
}

func (s *documentoService) EtiquetaLinea(ctx context.Context, codigo string, linea int, w io.Writer) error {
	lote, err := s.cargar(ctx, codigo)
	if err != nil {
		return err
	}
	if linea < 0 || linea >= len(lote.Detalles) {
		return fmt.Errorf("%w: %d", ErrLineaInexistente, linea)
	}
	return infra.EscribirEtiquetaPallet(w, lote, linea)
}

func (s *documentoService) cargar(ctx context.Context, codigo string) (*model.LoteProduccion, error) {
	lote, err := s.loteRepo.FindByCodigo(ctx, codigo)
	if err != nil {
		if noEncontrado(err) {
			return nil, ErrLoteNoEncontrado
		}
		return nil, err
	}
	return lote, nil
}
