package report

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/OmDhavale/Chemical-Equipment-Parameter-Visualizer/pkg/dataset"
)

const (
	summarySheet      = "Summary"
	distributionSheet = "Distribution"
)

// writeXLSX builds a workbook with the metrics table and averages chart on
// the first sheet and the category table and pie chart on the second.
func writeXLSX(ds dataset.Dataset, c Content, img Images) (body []byte, err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close workbook: %w", cerr)
		}
	}()

	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   "Chemical Equipment Report",
		Subject: c.Title,
		Created: ds.UploadedAt.UTC().Format(time.RFC3339),
	}); err != nil {
		return nil, err
	}

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	header := [][]any{
		{"Dataset", c.Title},
		{"Uploaded", c.UploadedAt},
		{},
		{"Metric", "Value"},
	}
	for _, row := range c.Metrics {
		header = append(header, []any{row.Label, row.Value})
	}
	if err := writeRows(f, summarySheet, header); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(summarySheet, "A4", "B4", bold); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(summarySheet, "A", "B", 22); err != nil {
		return nil, err
	}
	if err := f.AddPictureFromBytes(summarySheet, "D2", &excelize.Picture{
		Extension: ".png",
		File:      img.Averages,
		Format:    &excelize.GraphicOptions{ScaleX: 0.75, ScaleY: 0.75},
	}); err != nil {
		return nil, fmt.Errorf("add averages chart: %w", err)
	}

	if _, err := f.NewSheet(distributionSheet); err != nil {
		return nil, err
	}
	rows := [][]any{{"Type", "Count"}}
	for _, cat := range c.Categories {
		rows = append(rows, []any{cat.Label, cat.Count})
	}
	if err := writeRows(f, distributionSheet, rows); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(distributionSheet, "A1", "B1", bold); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(distributionSheet, "A", "A", 22); err != nil {
		return nil, err
	}
	if err := f.AddPictureFromBytes(distributionSheet, "D2", &excelize.Picture{
		Extension: ".png",
		File:      img.Distribution,
		Format:    &excelize.GraphicOptions{ScaleX: 0.75, ScaleY: 0.75},
	}); err != nil {
		return nil, fmt.Errorf("add distribution chart: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
