package service

import (
	"context"
	"fmt"

	"frutapack/internal/conciliacion"
	"frutapack/internal/dto"
	"frutapack/internal/model"
	"frutapack/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// StockService exposes the selectable stock pool and pallet corrections.
type StockService interface {
	ListarDisponible(ctx context.Context) (*dto.StockResponse, error)
	EditarPallet(ctx context.Context, recepcionID uuid.UUID, folio string, req dto.EditarPalletRequest) (*dto.EditarPalletResponse, error)
}

type stockService struct {
	repo   repository.RecepcionRepository
	editor conciliacion.EditorPallets
}

func NewStockService(repo repository.RecepcionRepository, editor conciliacion.EditorPallets) StockService {
	return &stockService{repo: repo, editor: editor}
}

func (s *stockService) ListarDisponible(ctx context.Context) (*dto.StockResponse, error) {
	recs, err := s.repo.ListDisponibles(ctx)
	if err != nil {
		return nil, err
	}
	items := s.editor.Tara.AplanarStock(recs)
	return &dto.StockResponse{
		Items:     items,
		Total:     len(items),
		TotalNeto: conciliacion.SumaNeto(items),
	}, nil
}

// ── EditarPallet ──────────────────────────────────────────────────────────────
// Simple edit or two-way split of one reception pallet, in one transaction:
//   1. Load the reception with its pallets (row-level read inside tx)
//   2. Compute the replacement records (engine validates before anything is written)
//   3. Update the original record in place; on split, insert part B

func (s *stockService) EditarPallet(ctx context.Context, recepcionID uuid.UUID, folio string, req dto.EditarPalletRequest) (*dto.EditarPalletResponse, error) {
	partA := parteEdicion(req.ParteA)
	var partB *conciliacion.ParteEdicion
	if req.ParteB != nil {
		p := parteEdicion(*req.ParteB)
		partB = &p
	}

	var res *conciliacion.ResultadoEdicion
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		rec, err := s.repo.FindByIDTx(tx, recepcionID)
		if noEncontrado(err) {
			rec = nil
		} else if err != nil {
			return err
		}

		res, err = s.editor.EditarPallet(rec, folio, partA, partB)
		if err != nil {
			return err
		}
		if res.Original.Usado {
			return fmt.Errorf("%w: %s", ErrPalletConsumido, folio)
		}

		if err := s.repo.UpdatePalletTx(tx, &res.Pallets[0]); err != nil {
			return err
		}
		if res.EsDivision() {
			if err := s.repo.CreatePalletTx(tx, &res.Pallets[1]); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	for _, adv := range res.Advertencias {
		log.Warn().
			Str("recepcion", recepcionID.String()).
			Str("folio", folio).
			Str("diferencia", adv.Diferencia.String()).
			Msg(adv.Mensaje)
	}

	resp := &dto.EditarPalletResponse{
		RecepcionID:  recepcionID.String(),
		Division:     res.EsDivision(),
		Pallets:      make([]dto.PalletResponse, 0, len(res.Pallets)),
		Advertencias: res.Advertencias,
	}
	for _, p := range res.Pallets {
		resp.Pallets = append(resp.Pallets, s.palletToResponse(p))
	}
	if resp.Advertencias == nil {
		resp.Advertencias = []conciliacion.Advertencia{}
	}
	return resp, nil
}

func parteEdicion(r dto.ParteEdicionRequest) conciliacion.ParteEdicion {
	return conciliacion.ParteEdicion{
		PesoNeto:      r.PesoNeto,
		Bandejas:      r.Bandejas,
		Clasificacion: model.Clasificacion(r.Clasificacion),
	}
}

func (s *stockService) palletToResponse(p model.DetallePallet) dto.PalletResponse {
	return dto.PalletResponse{
		ID:            p.ID.String(),
		Folio:         p.Folio,
		FolioPadre:    p.FolioPadre,
		PesoBruto:     p.PesoBruto,
		PesoNeto:      s.editor.Tara.PesoNeto(p.PesoBruto, p.Bandejas),
		Bandejas:      p.Bandejas,
		Clasificacion: string(p.Clasificacion),
		Usado:         p.Usado,
	}
}
