package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/booklab/booklab/internal/core/domain"
	"github.com/booklab/booklab/internal/core/ports"
)

// RunObserver receives run and page outcomes for metrics. Implementations
// must be cheap; the pipeline calls them inline.
type RunObserver interface {
	PageProcessed(status domain.PageStatus)
	RunFinished(status domain.DocumentStatus)
}

type nopObserver struct{}

func (nopObserver) PageProcessed(domain.PageStatus)   {}
func (nopObserver) RunFinished(domain.DocumentStatus) {}

// ProcessDocumentUseCase executes one processing run for a document: claim,
// sequential page loop, status aggregation, artifact rendering.
type ProcessDocumentUseCase struct {
	docs     ports.DocumentRepository
	pages    ports.PageRepository
	storage  ports.ObjectStorage
	engine   ports.ExtractionEngine
	renderer ports.ArtifactRenderer
	observer RunObserver
	log      *slog.Logger
}

func NewProcessDocumentUseCase(
	docs ports.DocumentRepository,
	pages ports.PageRepository,
	storage ports.ObjectStorage,
	engine ports.ExtractionEngine,
	renderer ports.ArtifactRenderer,
	log *slog.Logger,
) *ProcessDocumentUseCase {
	if log == nil {
		log = slog.Default()
	}
	return &ProcessDocumentUseCase{
		docs:     docs,
		pages:    pages,
		storage:  storage,
		engine:   engine,
		renderer: renderer,
		observer: nopObserver{},
		log:      log,
	}
}

// WithObserver attaches a metrics observer. Intended for wiring at bootstrap.
func (uc *ProcessDocumentUseCase) WithObserver(observer RunObserver) *ProcessDocumentUseCase {
	if observer != nil {
		uc.observer = observer
	}
	return uc
}

// ProcessByID runs the pipeline for one document. The only caller-visible
// failure is an unknown document id; everything else degrades to a
// DONE_WITH_ERRORS status with per-page detail. A document that is already
// PROCESSING makes the call a logged no-op.
func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}

	claimed, err := uc.docs.ClaimProcessing(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("claim document: %w", err)
	}
	if !claimed {
		uc.log.Info("document already processing, skipping run", "document_id", doc.ID)
		return nil
	}

	uc.run(ctx, doc)
	return nil
}

// run executes the claimed run. It always persists a terminal document
// status: a panic inside the page loop is recovered and the document is
// finalized as DONE_WITH_ERRORS instead of staying PROCESSING forever.
// Finalization runs on a context detached from the run's, so cancellation
// mid-run (worker shutdown) cannot kill the terminal-status write and strand
// the document in PROCESSING, where no future claim could pick it up.
func (uc *ProcessDocumentUseCase) run(ctx context.Context, doc *domain.Document) {
	anyFailed := false
	completed := false
	cleanupCtx := context.WithoutCancel(ctx)

	defer func() {
		if r := recover(); r != nil {
			uc.log.Error("panic during processing run", "document_id", doc.ID, "panic", r)
		}
		if !completed {
			uc.finalize(cleanupCtx, doc, true)
		}
	}()

	pages, err := uc.pages.ListByDocument(ctx, doc.ID)
	if err != nil {
		uc.log.Error("list pages failed", "document_id", doc.ID, "error", err)
		return
	}

	for i := range pages {
		page := &pages[i]
		if page.Status == domain.PageDone {
			continue
		}
		if failed := uc.processPage(ctx, page); failed {
			anyFailed = true
		}
	}

	completed = true
	uc.finalize(cleanupCtx, doc, anyFailed)
}

// processPage attempts one page and persists its outcome. It reports whether
// the page failed; it never returns an error, so one bad page cannot stop
// the attempts on the pages after it.
func (uc *ProcessDocumentUseCase) processPage(ctx context.Context, page *domain.Page) (failed bool) {
	if err := uc.pages.UpdateStatus(ctx, page.ID, domain.PageProcessing, ""); err != nil {
		uc.log.Error("mark page processing failed", "page_id", page.ID, "error", err)
	}

	extraction, err := uc.extract(ctx, page)
	if err != nil {
		message := domain.ShortenErrorMessage(err.Error())
		if saveErr := uc.pages.UpdateStatus(ctx, page.ID, domain.PageFailed, message); saveErr != nil {
			uc.log.Error("mark page failed failed", "page_id", page.ID, "error", saveErr)
		}
		uc.log.Warn("page failed",
			"page_id", page.ID,
			"page_number", page.PageNumber,
			"error", message,
		)
		uc.observer.PageProcessed(domain.PageFailed)
		return true
	}

	if err := uc.pages.SaveOutputs(ctx, page.ID, extraction); err != nil {
		uc.log.Error("save page outputs failed", "page_id", page.ID, "error", err)
		uc.observer.PageProcessed(domain.PageFailed)
		return true
	}
	uc.observer.PageProcessed(domain.PageDone)
	return false
}

// extract validates the page input and dispatches to the engine. Validation
// failures never reach the engine.
func (uc *ProcessDocumentUseCase) extract(ctx context.Context, page *domain.Page) (domain.Extraction, error) {
	switch page.InputKind {
	case domain.InputText:
		if strings.TrimSpace(page.RawText) == "" {
			return domain.Extraction{}, domain.WrapError(domain.ErrInvalidInput, "validate page", fmt.Errorf("TEXT page %d has no raw text", page.PageNumber))
		}
		return uc.engine.ExtractFromText(ctx, page.RawText)

	case domain.InputImage:
		if strings.TrimSpace(page.ImagePath) == "" {
			return domain.Extraction{}, domain.WrapError(domain.ErrInvalidInput, "validate page", fmt.Errorf("IMAGE page %d has no image path", page.PageNumber))
		}
		image, err := uc.loadImage(ctx, page.ImagePath)
		if err != nil {
			return domain.Extraction{}, domain.WrapError(domain.ErrInvalidInput, "load page image", err)
		}
		return uc.engine.ExtractFromImage(ctx, image, mimeTypeFor(page.ImagePath))

	default:
		return domain.Extraction{}, domain.WrapError(domain.ErrInvalidInput, "validate page", fmt.Errorf("unknown input kind %q", page.InputKind))
	}
}

func (uc *ProcessDocumentUseCase) loadImage(ctx context.Context, imagePath string) ([]byte, error) {
	reader, err := uc.storage.Open(ctx, imagePath)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

// finalize persists the terminal document status and triggers the renderer.
// Renderer failure downgrades the document but never fails the run.
func (uc *ProcessDocumentUseCase) finalize(ctx context.Context, doc *domain.Document, anyFailed bool) {
	status := domain.DocumentDone
	if anyFailed {
		status = domain.DocumentDoneWithErrors
	}
	if err := uc.docs.UpdateStatus(ctx, doc.ID, status); err != nil {
		uc.log.Error("persist document status failed", "document_id", doc.ID, "error", err)
	}

	if err := uc.renderArtifact(ctx, doc); err != nil {
		uc.log.Warn("artifact rendering failed", "document_id", doc.ID, "error", err)
		status = domain.DocumentDoneWithErrors
		if updateErr := uc.docs.UpdateStatus(ctx, doc.ID, status); updateErr != nil {
			uc.log.Error("persist downgraded status failed", "document_id", doc.ID, "error", updateErr)
		}
	}

	uc.observer.RunFinished(status)
	uc.log.Info("processing run finished", "document_id", doc.ID, "status", status)
}

func (uc *ProcessDocumentUseCase) renderArtifact(ctx context.Context, doc *domain.Document) error {
	pages, err := uc.pages.ListByDocument(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("list pages for rendering: %w", err)
	}

	artifact, err := uc.renderer.Render(ctx, doc, pages)
	if err != nil {
		return fmt.Errorf("render artifact: %w", err)
	}

	key := ArtifactKey(doc.ID)
	if err := uc.storage.Save(ctx, key, bytes.NewReader(artifact)); err != nil {
		return fmt.Errorf("store artifact: %w", err)
	}
	if err := uc.docs.SetArtifactPath(ctx, doc.ID, key); err != nil {
		return fmt.Errorf("persist artifact path: %w", err)
	}
	return nil
}

// ArtifactKey is the blob-store key of a document's rendered artifact.
func ArtifactKey(documentID string) string {
	return path.Join("doc-"+documentID, "book.html")
}

func mimeTypeFor(imagePath string) string {
	switch strings.ToLower(path.Ext(imagePath)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
