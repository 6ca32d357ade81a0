package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/dataset"
)

const (
	pageMargin   = 15.0
	chartWidthMM = 88.0
	// go-chart images are 4:3.
	chartHeightMM = chartWidthMM * 3 / 4
)

// writePDF lays out an A4 portrait report: title block, metrics table,
// both charts side by side, then the category breakdown.
func writePDF(ds dataset.Dataset, c Content, img Images) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin+5)
	pdf.SetCreationDate(ds.UploadedAt)
	pdf.SetCatalogSort(true)
	pdf.SetTitle("Chemical Equipment Report", true)
	pdf.SetSubject(c.Title, true)
	pdf.AliasNbPages("")

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-pageMargin)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(31, 41, 55)
	pdf.CellFormat(0, 10, "Chemical Equipment Report", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, tr("Dataset: "+c.Title), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Uploaded: "+c.UploadedAt, "", 1, "L", false, 0, "")
	pdf.Ln(6)

	tableHeader(pdf, "Metric", "Value")
	for _, row := range c.Metrics {
		tableRow(pdf, tr(row.Label), row.Value)
	}
	pdf.Ln(8)

	if pdf.GetY()+chartHeightMM > 297-pageMargin-5 {
		pdf.AddPage()
	}
	y := pdf.GetY()
	opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	pdf.RegisterImageOptionsReader("distribution", opts, bytes.NewReader(img.Distribution))
	pdf.RegisterImageOptionsReader("averages", opts, bytes.NewReader(img.Averages))
	pdf.ImageOptions("distribution", pageMargin, y, chartWidthMM, chartHeightMM, false, opts, 0, "")
	pdf.ImageOptions("averages", 210-pageMargin-chartWidthMM, y, chartWidthMM, chartHeightMM, false, opts, 0, "")
	pdf.SetY(y + chartHeightMM + 8)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.SetTextColor(31, 41, 55)
	pdf.CellFormat(0, 8, "Equipment Types", "", 1, "L", false, 0, "")
	tableHeader(pdf, "Type", "Count")
	for _, cat := range c.Categories {
		tableRow(pdf, tr(cat.Label), fmt.Sprintf("%d", cat.Count))
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func tableHeader(pdf *fpdf.Fpdf, left, right string) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(99, 102, 241)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetDrawColor(209, 213, 219)
	pdf.CellFormat(100, 8, left, "1", 0, "L", true, 0, "")
	pdf.CellFormat(60, 8, right, "1", 1, "R", true, 0, "")
}

func tableRow(pdf *fpdf.Fpdf, left, right string) {
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(31, 41, 55)
	pdf.CellFormat(100, 7, left, "1", 0, "L", false, 0, "")
	pdf.CellFormat(60, 7, right, "1", 1, "R", false, 0, "")
}
