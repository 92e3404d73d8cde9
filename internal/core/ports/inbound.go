package ports

import (
	"context"
	"io"

	"github.com/booklab/booklab/internal/core/domain"
)

// PageUpload is one page image submitted at document creation time.
type PageUpload struct {
	Filename string
	MimeType string
	Body     io.Reader
}

// DocumentIngestor is the inbound contract for document and page creation.
type DocumentIngestor interface {
	CreateDocument(ctx context.Context, title string, uploads []PageUpload) (*domain.Document, error)
	AddTextPage(ctx context.Context, documentID, rawText string) (*domain.Page, error)
	ImportPDF(ctx context.Context, documentID string, pdf io.ReaderAt, size int64) ([]domain.Page, error)
}

// DocumentProcessor is the inbound contract for one processing run.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// PageEditor applies manual edits to TEXT pages.
type PageEditor interface {
	EditTextPage(ctx context.Context, pageID string, edit domain.PageEdit) (*domain.Page, error)
}
