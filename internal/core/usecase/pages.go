package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/booklab/booklab/internal/core/domain"
	"github.com/booklab/booklab/internal/core/ports"
)

// EditPageUseCase applies manual overrides to TEXT pages. An edit is an
// explicit transition distinct from the pipeline's own DONE: the page is
// forced DONE unconditionally so the artifact can include hand-fixed text.
type EditPageUseCase struct {
	pages ports.PageRepository
}

func NewEditPageUseCase(pages ports.PageRepository) *EditPageUseCase {
	return &EditPageUseCase{pages: pages}
}

func (uc *EditPageUseCase) EditTextPage(ctx context.Context, pageID string, edit domain.PageEdit) (*domain.Page, error) {
	page, err := uc.pages.GetByID(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("load page: %w", err)
	}
	if page.InputKind != domain.InputText {
		return nil, domain.WrapError(domain.ErrInvalidInput, "edit page", fmt.Errorf("only TEXT pages are editable, page %d is %s", page.PageNumber, page.InputKind))
	}

	page.RawText = edit.RawText
	page.PlainText = edit.PlainText
	page.AnnotatedText = edit.AnnotatedText
	page.TranslatedText = edit.TranslatedText
	page.Status = domain.PageDone
	page.ErrorMessage = ""
	page.UpdatedAt = time.Now().UTC()

	if err := uc.pages.SaveManualEdit(ctx, page); err != nil {
		return nil, fmt.Errorf("save page edit: %w", err)
	}
	return page, nil
}
