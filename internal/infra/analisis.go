package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"frutapack/internal/model"
)

// AnalisisPayload is sent to the narrative backend. Weights go as floats;
// the text is informational and never fed back into reconciliation.
type AnalisisPayload struct {
	LoteCodigo            string          `json:"lote_codigo"`
	Productor             string          `json:"productor"`
	Variedad              string          `json:"variedad"`
	Fecha                 string          `json:"fecha"`
	PesoEntradaTotal      float64         `json:"peso_entrada_total"`
	KilosProducidos       float64         `json:"kilos_producidos"`
	KilosIQF              float64         `json:"kilos_iqf"`
	KilosMerma            float64         `json:"kilos_merma"`
	KilosDesecho          float64         `json:"kilos_desecho"`
	PorcentajeRendimiento float64         `json:"porcentaje_rendimiento"`
	Lineas                []AnalisisLinea `json:"lineas"`
}

type AnalisisLinea struct {
	Formato string  `json:"formato"`
	Kilos   float64 `json:"kilos"`
}

// AnalisisResponse is returned by the narrative backend.
type AnalisisResponse struct {
	Texto string `json:"texto"`
}

// ErrAnalisisVacio is returned when the backend answers 200 with no text.
var ErrAnalisisVacio = errors.New("analisis: respuesta vacia")

// AnalisisClient delegates lot commentary to an external HTTP service so
// its latency and failures stay outside the reconciliation path.
type AnalisisClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewAnalisisClient(baseURL string) *AnalisisClient {
	return &AnalisisClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 45 * time.Second},
	}
}

// NuevoAnalisisPayload flattens a committed lot for the backend.
func NuevoAnalisisPayload(lote *model.LoteProduccion, productor string) AnalisisPayload {
	if productor == "" {
		productor = lote.Productor
	}
	p := AnalisisPayload{
		LoteCodigo:            lote.Codigo,
		Productor:             productor,
		Variedad:              lote.Variedad,
		Fecha:                 lote.Fecha.Format("2006-01-02"),
		PesoEntradaTotal:      lote.PesoEntradaTotal.InexactFloat64(),
		KilosProducidos:       lote.KilosProducidos().InexactFloat64(),
		KilosIQF:              lote.KilosIQF.InexactFloat64(),
		KilosMerma:            lote.KilosMerma.InexactFloat64(),
		KilosDesecho:          lote.KilosDesecho.InexactFloat64(),
		PorcentajeRendimiento: lote.PorcentajeRendimiento.InexactFloat64(),
	}
	for _, d := range lote.Detalles {
		p.Lineas = append(p.Lineas, AnalisisLinea{Formato: d.Formato, Kilos: d.KilosTotales.InexactFloat64()})
	}
	return p
}

// Analizar sends a POST to the backend and returns the narrative text.
func (c *AnalisisClient) Analizar(ctx context.Context, payload AnalisisPayload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("analisis: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analizar", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("analisis: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("analisis: backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("analisis: backend returned %d", resp.StatusCode)
	}

	var result AnalisisResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("analisis: decode response: %w", err)
	}
	if strings.TrimSpace(result.Texto) == "" {
		return "", ErrAnalisisVacio
	}
	return result.Texto, nil
}
