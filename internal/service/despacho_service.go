package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"frutapack/internal/conciliacion"
	"frutapack/internal/dto"
	"frutapack/internal/model"
	"frutapack/internal/repository"

	"gorm.io/datatypes"
)

// DespachoService keeps the outbound side needed by the folio rules: a
// dispatched folio is no longer open for appending boxes.
type DespachoService interface {
	FoliosAbiertos(ctx context.Context) (*dto.FoliosAbiertosResponse, error)
	RegistrarDespacho(ctx context.Context, req dto.RegistrarDespachoRequest) (*dto.DespachoResponse, error)
}

type despachoService struct {
	repo     repository.DespachoRepository
	loteRepo repository.LoteRepository
	ahora    func() time.Time
}

func NewDespachoService(repo repository.DespachoRepository, loteRepo repository.LoteRepository) DespachoService {
	return &despachoService{repo: repo, loteRepo: loteRepo, ahora: time.Now}
}

func (s *despachoService) FoliosAbiertos(ctx context.Context) (*dto.FoliosAbiertosResponse, error) {
	lotes, err := s.loteRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	despachos, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	abiertos := conciliacion.FoliosAbiertos(lotes, despachos)
	data := make([]conciliacion.FolioAbierto, 0, len(abiertos))
	for _, f := range abiertos {
		data = append(data, f)
	}
	sort.Slice(data, func(i, j int) bool { return compararFolios(data[i].Folio, data[j].Folio) })
	return &dto.FoliosAbiertosResponse{Data: data, Total: len(data)}, nil
}

// compararFolios orders numeric folios by value, before free-text ones.
func compararFolios(a, b string) bool {
	na, okA := conciliacion.FolioNumerico(a)
	nb, okB := conciliacion.FolioNumerico(b)
	switch {
	case okA && okB:
		return na < nb
	case okA != okB:
		return okA
	default:
		return a < b
	}
}

func (s *despachoService) RegistrarDespacho(ctx context.Context, req dto.RegistrarDespachoRequest) (*dto.DespachoResponse, error) {
	fecha := s.ahora()
	if req.Fecha != "" {
		f, err := time.Parse("2006-01-02", req.Fecha)
		if err != nil {
			return nil, fmt.Errorf("fecha invalida: %w", err)
		}
		fecha = f
	}

	lotes, err := s.loteRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	despachos, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	conocidos := make(map[string]struct{})
	for i := range lotes {
		for _, d := range lotes[i].Detalles {
			conocidos[d.Folio] = struct{}{}
		}
	}
	despachados := make(map[string]struct{})
	for _, d := range despachos {
		if strings.EqualFold(d.Numero, req.Numero) {
			return nil, ErrDespachoDuplicado
		}
		for _, f := range d.FoliosConsumidos {
			despachados[f] = struct{}{}
		}
	}

	folios := make([]string, 0, len(req.Folios))
	vistos := make(map[string]struct{}, len(req.Folios))
	for _, f := range req.Folios {
		f = strings.TrimSpace(f)
		if _, ok := vistos[f]; ok {
			continue
		}
		vistos[f] = struct{}{}
		if _, ok := conocidos[f]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrFolioDesconocido, f)
		}
		if _, ok := despachados[f]; ok {
			return nil, fmt.Errorf("%w: %s", ErrFolioDespachado, f)
		}
		folios = append(folios, f)
	}

	d := &model.Despacho{
		Numero:           req.Numero,
		Cliente:          req.Cliente,
		Fecha:            fecha,
		FoliosConsumidos: datatypes.NewJSONSlice(folios),
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	return &dto.DespachoResponse{
		ID:      d.ID.String(),
		Numero:  d.Numero,
		Cliente: d.Cliente,
		Fecha:   d.Fecha.Format("2006-01-02"),
		Folios:  folios,
	}, nil
}
