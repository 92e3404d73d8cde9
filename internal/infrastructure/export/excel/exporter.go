package excel

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/booklab/booklab/internal/core/domain"
)

// Exporter produces an XLSX status report: one row per page with its input
// kind, status, text preview and last error.
type Exporter struct{}

func New() *Exporter {
	return &Exporter{}
}

const previewLimit = 120

func (e *Exporter) Export(_ context.Context, doc *domain.Document, pages []domain.Page) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("export: document is nil")
	}

	f := excelize.NewFile()
	const sheet = "Pages"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	if defaultSheet, _ := f.GetSheetIndex("Sheet1"); defaultSheet != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{
		"Page",
		"Input",
		"Status",
		"Text Preview",
		"Translated Preview",
		"Error",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, page := range pages {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, page.PageNumber)
		write(2, string(page.InputKind))
		write(3, string(page.Status))
		write(4, truncate(page.PlainText, previewLimit))
		write(5, truncate(page.TranslatedText, previewLimit))
		write(6, page.ErrorMessage)

		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 8)
	_ = f.SetColWidth(sheet, "B", "C", 14)
	_ = f.SetColWidth(sheet, "D", "E", 48)
	_ = f.SetColWidth(sheet, "F", "F", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}
