package excel

import (
	"bytes"
	"context"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/booklab/booklab/internal/core/domain"
)

func TestExportWritesOneRowPerPage(t *testing.T) {
	exporter := New()
	doc := &domain.Document{ID: "doc-1", Title: "Book"}
	pages := []domain.Page{
		{PageNumber: 1, InputKind: domain.InputImage, Status: domain.PageDone, PlainText: "hello", TranslatedText: "hola"},
		{PageNumber: 2, InputKind: domain.InputText, Status: domain.PageFailed, ErrorMessage: "engine call failed"},
	}

	raw, err := exporter.Export(context.Background(), doc, pages)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Pages")
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[1][2] != "DONE" || rows[1][3] != "hello" {
		t.Fatalf("unexpected first page row: %v", rows[1])
	}
	if rows[2][2] != "FAILED" || rows[2][5] != "engine call failed" {
		t.Fatalf("unexpected second page row: %v", rows[2])
	}
}

func TestExportTruncatesLongPreviews(t *testing.T) {
	exporter := New()
	long := make([]rune, 0, 200)
	for i := 0; i < 200; i++ {
		long = append(long, 'x')
	}
	doc := &domain.Document{ID: "doc-1", Title: "Book"}
	pages := []domain.Page{{PageNumber: 1, InputKind: domain.InputText, Status: domain.PageDone, PlainText: string(long)}}

	raw, err := exporter.Export(context.Background(), doc, pages)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	preview, err := f.GetCellValue("Pages", "D2")
	if err != nil {
		t.Fatalf("read cell: %v", err)
	}
	if got := len([]rune(preview)); got != previewLimit {
		t.Fatalf("expected preview of %d runes, got %d", previewLimit, got)
	}
}
