package infra

// pdf.go: Closing report ("reporte de cierre") using go-pdf/fpdf.
// A7-ish thermal receipt layout with:
//   - Header with session dates
//   - Per-method sales totals
//   - Cash movements (ingresos / retiros)
//   - Bold expected / final cash

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"puntoventa/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// GenerateCierrePDF writes the closing report of sesion into storagePath
// (created if needed) and returns the path of the generated file.
func GenerateCierrePDF(sesion *model.SesionCaja, movs []model.MovimientoCaja, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}

	filePath := filepath.Join(storagePath, fmt.Sprintf("cierre_%s.pdf", sesion.ID))
	f, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("pdf: create file: %w", err)
	}
	defer f.Close()

	if err := RenderCierrePDF(f, sesion, movs); err != nil {
		return "", err
	}
	return filePath, nil
}

// RenderCierrePDF writes the report to w. For an open session the caller
// passes the live snapshot with MontoFinal set to the expected cash.
func RenderCierrePDF(w io.Writer, sesion *model.SesionCaja, movs []model.MovimientoCaja) error {
	// Height grows with the number of movements so nothing is cut off.
	height := 120.0 + float64(len(movs))*4
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 74, Ht: height},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(false, 4)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8
	labelW := contentW * 0.62
	valueW := contentW - labelW

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentW, 7, "Reporte de Caja", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	estado := "ABIERTA"
	if !sesion.Abierta() {
		estado = "CERRADA"
	}
	pdf.CellFormat(contentW, 4, tr("Estado: "+estado), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 4, "Apertura: "+sesion.FechaApertura.Format("02/01/2006  15:04"), "", 1, "L", false, 0, "")
	if sesion.FechaCierre != nil {
		pdf.CellFormat(contentW, 4, "Cierre: "+sesion.FechaCierre.Format("02/01/2006  15:04"), "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)
	separator(pdf, pageW)

	row := func(label string, v decimal.Decimal) {
		pdf.CellFormat(labelW, 5, tr(label), "", 0, "L", false, 0, "")
		pdf.CellFormat(valueW, 5, "$"+v.StringFixed(2), "", 1, "R", false, 0, "")
	}

	// ── Sales by method ──────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(contentW, 5, "Ventas por medio de pago", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	row("Monto inicial", sesion.MontoInicial)
	row("Efectivo", sesion.TotalEfectivo)
	row("QR", sesion.TotalQR)
	row("Tarjeta", sesion.TotalTarjeta)
	pdf.Ln(1)
	separator(pdf, pageW)

	// ── Cash movements ───────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(contentW, 5, "Movimientos de efectivo", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	for _, m := range movs {
		desc := m.Descripcion
		if len(desc) > 24 {
			desc = desc[:23] + "…"
		}
		monto := m.Monto
		if m.Tipo == model.MovimientoRetiro {
			monto = monto.Neg()
		}
		row(m.CreatedAt.Format("15:04")+" "+desc, monto)
	}
	row("Ingresos", sesion.TotalIngresos)
	row("Retiros", sesion.TotalRetiros.Neg())
	row("Neto", sesion.TotalMovimientoEfectivo)
	pdf.Ln(1)
	separator(pdf, pageW)

	// ── Totals ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 7)
	row("Devoluciones", sesion.TotalDevoluciones.Neg())
	row("Ajustes", sesion.TotalAjustes)

	final := decimal.Zero
	if sesion.MontoFinal != nil {
		final = *sesion.MontoFinal
	}
	pdf.SetFont("Helvetica", "B", 9)
	label := "EFECTIVO FINAL:"
	if sesion.Abierta() {
		label = "EFECTIVO ESPERADO:"
	}
	pdf.CellFormat(labelW, 6, label, "", 0, "L", false, 0, "")
	pdf.CellFormat(valueW, 6, "$"+final.StringFixed(2), "", 1, "R", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("pdf: render: %w", err)
	}
	return nil
}

func separator(pdf *fpdf.Fpdf, pageW float64) {
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)
}
