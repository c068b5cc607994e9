package infra

// pdf.go: lot documents using go-pdf/fpdf.
//   - Lot report (A4): header, inputs, output lines, discards, balance and yield
//   - Finished-pallet label (A6 landscape): folio in large type plus line data
//
// Both render to any io.Writer; GuardarReporteLote writes the report to
// storagePath/reporte_{codigo}.pdf for email attachments.

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"frutapack/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

const nombrePlanta = "FrutaPack"

func kg(d decimal.Decimal) string { return d.StringFixed(2) + " kg" }

// EscribirReporteLote renders the reconciliation report of a committed lot.
func EscribirReporteLote(w io.Writer, lote *model.LoteProduccion) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(15, 15, 15)
	pdf.SetTitle(tr("Reporte de lote "+lote.Codigo), false)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, nombrePlanta, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentW, 6, tr("Reporte de producción, lote "+lote.Codigo), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	info := [][2]string{
		{"Fecha", lote.Fecha.Format("02/01/2006")},
		{"Centro de trabajo", lote.CentroTrabajo},
		{"Productor", lote.Productor},
		{"Variedad", lote.Variedad},
		{"Pallets consumidos", fmt.Sprintf("%d", len(lote.FoliosUsados))},
	}
	pdf.SetFont("Helvetica", "", 9)
	for _, kv := range info {
		pdf.CellFormat(45, 5, tr(kv[0]+":"), "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW-45, 5, tr(kv[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)

	// ── Output lines ─────────────────────────────────────────────────────────
	cols := []float64{contentW * 0.12, contentW * 0.30, contentW * 0.14, contentW * 0.12, contentW * 0.12, contentW * 0.20}
	headers := []string{"Folio", "Formato", "Kg/unidad", "Unidades", "Pallets", "Total"}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		align := "R"
		if i < 2 {
			align = "L"
		}
		pdf.CellFormat(cols[i], 6, h, "B", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, d := range lote.Detalles {
		completo := ""
		if d.PalletCompleto {
			completo = " *"
		}
		pdf.CellFormat(cols[0], 5, tr(d.Folio+completo), "", 0, "L", false, 0, "")
		pdf.CellFormat(cols[1], 5, tr(d.Formato), "", 0, "L", false, 0, "")
		pdf.CellFormat(cols[2], 5, d.PesoUnitario.StringFixed(3), "", 0, "R", false, 0, "")
		pdf.CellFormat(cols[3], 5, fmt.Sprintf("%d", d.Unidades), "", 0, "R", false, 0, "")
		pdf.CellFormat(cols[4], 5, fmt.Sprintf("%d", d.Pallets), "", 0, "R", false, 0, "")
		pdf.CellFormat(cols[5], 5, kg(d.KilosTotales), "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, "* pallet completo", "", 1, "L", false, 0, "")
	pdf.Ln(3)

	// ── Balance ──────────────────────────────────────────────────────────────
	producido := lote.KilosProducidos()
	adicionales := lote.TotalDescartesAdicionales()
	descartes := lote.KilosIQF.Add(lote.KilosMerma).Add(lote.KilosDesecho).Add(adicionales)
	saldo := lote.PesoEntradaTotal.Sub(producido).Sub(descartes)

	filas := [][2]string{
		{"Entrada total", kg(lote.PesoEntradaTotal)},
		{"Producido", kg(producido)},
		{"IQF", kg(lote.KilosIQF)},
		{"Merma", kg(lote.KilosMerma)},
		{"Desecho", kg(lote.KilosDesecho)},
	}
	etiquetas := make([]string, 0, len(lote.DescartesAdicionales.Data()))
	for k := range lote.DescartesAdicionales.Data() {
		etiquetas = append(etiquetas, k)
	}
	sort.Strings(etiquetas)
	for _, k := range etiquetas {
		filas = append(filas, [2]string{k, kg(lote.DescartesAdicionales.Data()[k])})
	}
	filas = append(filas, [2]string{"Sin asignar", kg(saldo)})

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentW, 6, "Balance de masa", "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, f := range filas {
		pdf.CellFormat(contentW*0.6, 5, tr(f[0]), "", 0, "L", false, 0, "")
		pdf.CellFormat(contentW*0.4, 5, f[1], "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(contentW*0.6, 7, "Rendimiento", "T", 0, "L", false, 0, "")
	pdf.CellFormat(contentW*0.4, 7, lote.PorcentajeRendimiento.StringFixed(2)+" %", "T", 1, "R", false, 0, "")

	return pdf.Output(w)
}

// EscribirEtiquetaPallet renders the label of output line idx.
func EscribirEtiquetaPallet(w io.Writer, lote *model.LoteProduccion, idx int) error {
	if idx < 0 || idx >= len(lote.Detalles) {
		return fmt.Errorf("pdf: linea %d fuera de rango", idx)
	}
	d := lote.Detalles[idx]

	pdf := fpdf.New("L", "mm", "A6", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(6, 6, 6)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 12

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(contentW/2, 6, nombrePlanta, "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW/2, 6, lote.Fecha.Format("02/01/2006"), "", 1, "R", false, 0, "")
	pdf.Line(6, pdf.GetY(), pageW-6, pdf.GetY())
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 4, "FOLIO", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 34)
	pdf.CellFormat(contentW, 16, tr(d.Folio), "", 1, "C", false, 0, "")
	pdf.Ln(2)

	campos := [][2]string{
		{"Lote", lote.Codigo},
		{"Formato", d.Formato},
		{"Unidades", fmt.Sprintf("%d x %s kg", d.Unidades, d.PesoUnitario.StringFixed(3))},
		{"Peso neto", kg(d.KilosTotales)},
		{"Productor", lote.Productor},
		{"Variedad", lote.Variedad},
		{"Línea", d.LineaProduccion},
	}
	for _, c := range campos {
		pdf.SetFont("Helvetica", "", 8)
		pdf.CellFormat(25, 5, tr(c[0]), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(contentW-25, 5, tr(c[1]), "", 1, "L", false, 0, "")
	}
	if d.PalletCompleto {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(contentW, 7, "PALLET COMPLETO", "1", 1, "C", false, 0, "")
	}

	return pdf.Output(w)
}

// GuardarReporteLote writes the report to storagePath and returns its path.
func GuardarReporteLote(lote *model.LoteProduccion, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	filePath := filepath.Join(storagePath, fmt.Sprintf("reporte_%s.pdf", lote.Codigo))

	f, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("pdf: create file: %w", err)
	}
	if err := EscribirReporteLote(f, lote); err != nil {
		f.Close()
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("pdf: close file: %w", err)
	}
	return filePath, nil
}
