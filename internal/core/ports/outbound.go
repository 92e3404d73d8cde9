package ports

import (
	"context"
	"io"

	"github.com/booklab/booklab/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context) ([]domain.Document, error)
	// ClaimProcessing atomically transitions the document to PROCESSING.
	// It reports false when the document is already PROCESSING, which is
	// how concurrent triggers lose the single-flight race.
	ClaimProcessing(ctx context.Context, id string) (bool, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus) error
	SetArtifactPath(ctx context.Context, id, artifactPath string) error
}

// PageRepository persists and reads pages of a document.
type PageRepository interface {
	Create(ctx context.Context, page *domain.Page) error
	GetByID(ctx context.Context, id string) (*domain.Page, error)
	// ListByDocument returns pages ordered by page number ascending. The
	// ordering determines the artifact's page order.
	ListByDocument(ctx context.Context, documentID string) ([]domain.Page, error)
	UpdateStatus(ctx context.Context, id string, status domain.PageStatus, errorMessage string) error
	// SaveOutputs writes all three output fields together, marks the page
	// DONE and clears its error.
	SaveOutputs(ctx context.Context, id string, out domain.Extraction) error
	// SaveManualEdit overwrites the text fields of a TEXT page and forces
	// it DONE regardless of its previous status.
	SaveManualEdit(ctx context.Context, page *domain.Page) error
	MaxPageNumber(ctx context.Context, documentID string) (int, error)
}

// ObjectStorage stores page images and rendered artifacts under relative keys.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue carries fire-and-forget processing triggers.
type MessageQueue interface {
	PublishProcessRequested(ctx context.Context, documentID string) error
	SubscribeProcessRequested(ctx context.Context, handler func(context.Context, string) error) error
}

// ExtractionEngine turns a page input into the three output texts, or fails.
// Timeouts and transient-error retries are the engine's own concern.
type ExtractionEngine interface {
	ExtractFromImage(ctx context.Context, image []byte, mimeType string) (domain.Extraction, error)
	ExtractFromText(ctx context.Context, rawText string) (domain.Extraction, error)
}

// ArtifactRenderer produces the downloadable artifact from finished pages.
// It must not mutate document or page state.
type ArtifactRenderer interface {
	Render(ctx context.Context, doc *domain.Document, pages []domain.Page) ([]byte, error)
}

// ReportExporter produces a spreadsheet summary of a document's pages.
type ReportExporter interface {
	Export(ctx context.Context, doc *domain.Document, pages []domain.Page) ([]byte, error)
}

// PageTextExtractor splits an uploaded PDF into per-page plain text.
type PageTextExtractor interface {
	ExtractPages(r io.ReaderAt, size int64) ([]string, error)
}
