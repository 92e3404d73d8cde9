package usecase

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/booklab/booklab/internal/core/domain"
	"github.com/booklab/booklab/internal/core/ports"
)

// IngestDocumentUseCase creates documents and attaches pages to them.
type IngestDocumentUseCase struct {
	docs      ports.DocumentRepository
	pages     ports.PageRepository
	storage   ports.ObjectStorage
	pdfReader ports.PageTextExtractor
}

func NewIngestDocumentUseCase(
	docs ports.DocumentRepository,
	pages ports.PageRepository,
	storage ports.ObjectStorage,
	pdfReader ports.PageTextExtractor,
) *IngestDocumentUseCase {
	return &IngestDocumentUseCase{
		docs:      docs,
		pages:     pages,
		storage:   storage,
		pdfReader: pdfReader,
	}
}

// CreateDocument creates an UPLOADED document and one PENDING IMAGE page per
// upload. Uploads are sorted by filename so page numbering is stable no
// matter how the client ordered the multipart parts.
func (uc *IngestDocumentUseCase) CreateDocument(ctx context.Context, title string, uploads []ports.PageUpload) (*domain.Document, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "create document", fmt.Errorf("title is required"))
	}
	if len(uploads) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "create document", fmt.Errorf("at least one page image is required"))
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:        uuid.NewString(),
		Title:     title,
		Status:    domain.DocumentUploaded,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.docs.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	sorted := make([]ports.PageUpload, len(uploads))
	copy(sorted, uploads)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Filename < sorted[j].Filename })

	for i, upload := range sorted {
		pageNumber := i + 1
		key := pageImageKey(doc.ID, pageNumber, upload.Filename)
		if err := uc.storage.Save(ctx, key, upload.Body); err != nil {
			return nil, fmt.Errorf("store page %d image: %w", pageNumber, err)
		}

		page := &domain.Page{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			PageNumber: pageNumber,
			InputKind:  domain.InputImage,
			ImagePath:  key,
			Status:     domain.PagePending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := uc.pages.Create(ctx, page); err != nil {
			return nil, fmt.Errorf("create page %d: %w", pageNumber, err)
		}
	}

	return doc, nil
}

// AddTextPage appends a PENDING TEXT page after the current last page.
func (uc *IngestDocumentUseCase) AddTextPage(ctx context.Context, documentID, rawText string) (*domain.Page, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "add text page", fmt.Errorf("raw text is required"))
	}
	if _, err := uc.docs.GetByID(ctx, documentID); err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}

	maxNumber, err := uc.pages.MaxPageNumber(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("next page number: %w", err)
	}

	now := time.Now().UTC()
	page := &domain.Page{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		PageNumber: maxNumber + 1,
		InputKind:  domain.InputText,
		RawText:    rawText,
		Status:     domain.PagePending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := uc.pages.Create(ctx, page); err != nil {
		return nil, fmt.Errorf("create text page: %w", err)
	}
	return page, nil
}

// ImportPDF appends one PENDING TEXT page per page of the uploaded PDF.
// Pages with no extractable text are skipped.
func (uc *IngestDocumentUseCase) ImportPDF(ctx context.Context, documentID string, pdf io.ReaderAt, size int64) ([]domain.Page, error) {
	if _, err := uc.docs.GetByID(ctx, documentID); err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}

	texts, err := uc.pdfReader.ExtractPages(pdf, size)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read pdf", err)
	}

	maxNumber, err := uc.pages.MaxPageNumber(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("next page number: %w", err)
	}

	now := time.Now().UTC()
	created := make([]domain.Page, 0, len(texts))
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		maxNumber++
		page := domain.Page{
			ID:         uuid.NewString(),
			DocumentID: documentID,
			PageNumber: maxNumber,
			InputKind:  domain.InputText,
			RawText:    text,
			Status:     domain.PagePending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := uc.pages.Create(ctx, &page); err != nil {
			return nil, fmt.Errorf("create page %d from pdf: %w", page.PageNumber, err)
		}
		created = append(created, page)
	}

	if len(created) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read pdf", fmt.Errorf("no extractable text in pdf"))
	}
	return created, nil
}

func pageImageKey(documentID string, pageNumber int, filename string) string {
	return path.Join("doc-"+documentID, fmt.Sprintf("page-%d%s", pageNumber, safeImageExt(filename)))
}

func safeImageExt(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".png":
		return ".png"
	case ".jpg", ".jpeg":
		return ".jpg"
	case ".webp":
		return ".webp"
	default:
		return ".bin"
	}
}
