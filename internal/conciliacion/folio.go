package conciliacion

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"frutapack/internal/model"
)

// SecuenciadorFolios generates finished-pallet folios. Generated folios are
// strictly greater than every numeric folio in history or in flight.
type SecuenciadorFolios struct {
	Inicio int // first folio ever handed out
	Ancho  int // zero-padded width; 0 disables padding
}

// Siguiente returns max(numeric folios ∪ {Inicio−1}) + 1, zero padded.
// Non-numeric folios are ignored for the maximum.
func (s SecuenciadorFolios) Siguiente(historico []model.LoteProduccion, enCurso []model.DetalleProduccion) string {
	max := s.Inicio - 1
	observar := func(folio string) {
		if n, ok := FolioNumerico(folio); ok && n > max {
			max = n
		}
	}
	for i := range historico {
		for _, d := range historico[i].Detalles {
			observar(d.Folio)
		}
	}
	for _, d := range enCurso {
		observar(d.Folio)
	}
	return s.Formatear(max + 1)
}

// Formatear renders n with the configured width.
func (s SecuenciadorFolios) Formatear(n int) string {
	if s.Ancho <= 0 {
		return strconv.Itoa(n)
	}
	return fmt.Sprintf("%0*d", s.Ancho, n)
}

// FolioNumerico parses a folio as a positive integer.
func FolioNumerico(folio string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(folio))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// FolioAbierto is a historical finished pallet that can still take boxes.
type FolioAbierto struct {
	Folio      string `json:"folio"`
	Pallets    int    `json:"pallets"`
	LoteCodigo string `json:"lote_codigo"`
}

// FoliosAbiertos indexes historical folios that are recorded, not marked
// full on any line and not consumed by any dispatch.
func FoliosAbiertos(historico []model.LoteProduccion, despachos []model.Despacho) map[string]FolioAbierto {
	despachados := make(map[string]struct{})
	for _, d := range despachos {
		for _, f := range d.FoliosConsumidos {
			despachados[f] = struct{}{}
		}
	}

	completos := make(map[string]struct{})
	abiertos := make(map[string]FolioAbierto)
	for i := range historico {
		lote := &historico[i]
		for _, d := range lote.Detalles {
			if d.Folio == "" {
				continue
			}
			if d.PalletCompleto {
				completos[d.Folio] = struct{}{}
				continue
			}
			abiertos[d.Folio] = FolioAbierto{Folio: d.Folio, Pallets: d.Pallets, LoteCodigo: lote.Codigo}
		}
	}
	for f := range abiertos {
		_, lleno := completos[f]
		_, despachado := despachados[f]
		if lleno || despachado {
			delete(abiertos, f)
		}
	}
	return abiertos
}

const prefijoLote = "PROC-"

// CodigoLote returns PROC-{YYYYMMDD}-{seq} with the smallest unused
// three-digit sequence for that date.
func CodigoLote(fecha time.Time, existentes []string) string {
	prefijo := prefijoLote + fecha.Format("20060102") + "-"
	usados := make(map[int]struct{})
	for _, c := range existentes {
		if !strings.HasPrefix(c, prefijo) {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimPrefix(c, prefijo)); err == nil {
			usados[n] = struct{}{}
		}
	}
	seq := 1
	for {
		if _, ok := usados[seq]; !ok {
			break
		}
		seq++
	}
	return fmt.Sprintf("%s%03d", prefijo, seq)
}
