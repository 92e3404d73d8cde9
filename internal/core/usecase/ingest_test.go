package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/booklab/booklab/internal/core/domain"
	"github.com/booklab/booklab/internal/core/ports"
)

type pdfReaderFake struct {
	pages []string
	err   error
}

func (f *pdfReaderFake) ExtractPages(io.ReaderAt, int64) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.pages, nil
}

func upload(name, content string) ports.PageUpload {
	return ports.PageUpload{Filename: name, MimeType: "image/png", Body: strings.NewReader(content)}
}

func TestCreateDocumentOrdersPagesByFilename(t *testing.T) {
	docs := &docRepoFake{}
	pages := &pageRepoFake{}
	storage := &storageFake{}
	uc := NewIngestDocumentUseCase(docs, pages, storage, &pdfReaderFake{})

	doc, err := uc.CreateDocument(context.Background(), "Tanya, chapter one", []ports.PageUpload{
		upload("scan-03.png", "c"),
		upload("scan-01.png", "a"),
		upload("scan-02.png", "b"),
	})
	if err != nil {
		t.Fatalf("CreateDocument() error = %v", err)
	}

	if doc.Status != domain.DocumentUploaded {
		t.Fatalf("expected UPLOADED, got %s", doc.Status)
	}
	if len(pages.pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages.pages))
	}
	for i, p := range pages.pages {
		if p.PageNumber != i+1 {
			t.Fatalf("page %d has number %d", i, p.PageNumber)
		}
		if p.InputKind != domain.InputImage || p.Status != domain.PagePending {
			t.Fatalf("unexpected page: %+v", p)
		}
		if p.RawText != "" {
			t.Fatalf("IMAGE page must not carry raw text: %+v", p)
		}
	}
	// Page 1 must be the alphabetically first upload.
	if got := string(storage.saved[pages.pages[0].ImagePath]); got != "a" {
		t.Fatalf("expected first page image from scan-01, got %q", got)
	}
}

func TestCreateDocumentRejectsMissingTitleOrPages(t *testing.T) {
	uc := NewIngestDocumentUseCase(&docRepoFake{}, &pageRepoFake{}, &storageFake{}, &pdfReaderFake{})

	if _, err := uc.CreateDocument(context.Background(), "   ", []ports.PageUpload{upload("a.png", "a")}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank title, got %v", err)
	}
	if _, err := uc.CreateDocument(context.Background(), "ok", nil); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty uploads, got %v", err)
	}
}

func TestAddTextPageAppendsAfterLastPage(t *testing.T) {
	docs := &docRepoFake{doc: &domain.Document{ID: "doc-1"}}
	pages := &pageRepoFake{pages: []domain.Page{textPage("p1", 1, "a"), textPage("p2", 5, "b")}}
	uc := NewIngestDocumentUseCase(docs, pages, &storageFake{}, &pdfReaderFake{})

	page, err := uc.AddTextPage(context.Background(), "doc-1", "new hebrew text")
	if err != nil {
		t.Fatalf("AddTextPage() error = %v", err)
	}
	if page.PageNumber != 6 {
		t.Fatalf("expected page number 6 after a gap, got %d", page.PageNumber)
	}
	if page.InputKind != domain.InputText || page.Status != domain.PagePending {
		t.Fatalf("unexpected page: %+v", page)
	}
	if page.ImagePath != "" {
		t.Fatalf("TEXT page must not carry an image path")
	}
}

func TestAddTextPageRejectsBlankText(t *testing.T) {
	docs := &docRepoFake{doc: &domain.Document{ID: "doc-1"}}
	uc := NewIngestDocumentUseCase(docs, &pageRepoFake{}, &storageFake{}, &pdfReaderFake{})

	if _, err := uc.AddTextPage(context.Background(), "doc-1", " \n "); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestImportPDFCreatesTextPagesSkippingBlankOnes(t *testing.T) {
	docs := &docRepoFake{doc: &domain.Document{ID: "doc-1"}}
	pages := &pageRepoFake{pages: []domain.Page{textPage("p1", 2, "existing")}}
	reader := &pdfReaderFake{pages: []string{"first page", "   ", "third page"}}
	uc := NewIngestDocumentUseCase(docs, pages, &storageFake{}, reader)

	created, err := uc.ImportPDF(context.Background(), "doc-1", bytes.NewReader(nil), 0)
	if err != nil {
		t.Fatalf("ImportPDF() error = %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected 2 pages (blank skipped), got %d", len(created))
	}
	if created[0].PageNumber != 3 || created[1].PageNumber != 4 {
		t.Fatalf("expected numbering to continue after existing pages, got %d, %d", created[0].PageNumber, created[1].PageNumber)
	}
}

func TestImportPDFWrapsReaderFailureAsInvalidInput(t *testing.T) {
	docs := &docRepoFake{doc: &domain.Document{ID: "doc-1"}}
	reader := &pdfReaderFake{err: errors.New("not a pdf")}
	uc := NewIngestDocumentUseCase(docs, &pageRepoFake{}, &storageFake{}, reader)

	_, err := uc.ImportPDF(context.Background(), "doc-1", bytes.NewReader(nil), 0)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
