package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/booklab/booklab/internal/core/domain"
)

type PageRepository struct {
	db *sql.DB
}

func NewPageRepository(db *sql.DB) *PageRepository {
	return &PageRepository{db: db}
}

func (r *PageRepository) Create(ctx context.Context, page *domain.Page) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO pages (
	id, document_id, page_number, input_kind, image_path, raw_text,
	status, plain_text, annotated_text, translated_text, error_message,
	created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
`,
		page.ID, page.DocumentID, page.PageNumber, string(page.InputKind),
		nullIfEmpty(page.ImagePath), nullIfEmpty(page.RawText), string(page.Status),
		nullIfEmpty(page.PlainText), nullIfEmpty(page.AnnotatedText), nullIfEmpty(page.TranslatedText),
		nullIfEmpty(page.ErrorMessage), page.CreatedAt, page.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert page: %w", err)
	}
	return nil
}

func (r *PageRepository) GetByID(ctx context.Context, id string) (*domain.Page, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, document_id, page_number, input_kind, image_path, raw_text,
	status, plain_text, annotated_text, translated_text, error_message,
	created_at, updated_at
FROM pages
WHERE id = $1
`, id)

	page, err := scanPage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrPageNotFound, "get page", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan page: %w", err)
	}
	return page, nil
}

// ListByDocument returns pages ordered by page number ascending. The order
// is load-bearing: it is the artifact's page order.
func (r *PageRepository) ListByDocument(ctx context.Context, documentID string) ([]domain.Page, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, document_id, page_number, input_kind, image_path, raw_text,
	status, plain_text, annotated_text, translated_text, error_message,
	created_at, updated_at
FROM pages
WHERE document_id = $1
ORDER BY page_number ASC
`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Page, 0)
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		out = append(out, *page)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pages: %w", err)
	}
	return out, nil
}

func (r *PageRepository) UpdateStatus(ctx context.Context, id string, status domain.PageStatus, errorMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE pages
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), nullIfEmpty(errorMessage), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update page status: %w", err)
	}
	return requirePageRow(result, id)
}

// SaveOutputs writes the three output fields in one statement so a page is
// never observed with a partial result.
func (r *PageRepository) SaveOutputs(ctx context.Context, id string, out domain.Extraction) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE pages
SET plain_text = $2, annotated_text = $3, translated_text = $4,
	status = $5, error_message = NULL, updated_at = $6
WHERE id = $1
`, id, out.PlainText, out.AnnotatedText, out.TranslatedText, string(domain.PageDone), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save page outputs: %w", err)
	}
	return requirePageRow(result, id)
}

func (r *PageRepository) SaveManualEdit(ctx context.Context, page *domain.Page) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE pages
SET raw_text = $2, plain_text = $3, annotated_text = $4, translated_text = $5,
	status = $6, error_message = NULL, updated_at = $7
WHERE id = $1
`,
		page.ID, nullIfEmpty(page.RawText), nullIfEmpty(page.PlainText),
		nullIfEmpty(page.AnnotatedText), nullIfEmpty(page.TranslatedText),
		string(page.Status), page.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save page edit: %w", err)
	}
	return requirePageRow(result, page.ID)
}

func (r *PageRepository) MaxPageNumber(ctx context.Context, documentID string) (int, error) {
	var max int
	err := r.db.QueryRowContext(ctx, `
SELECT COALESCE(MAX(page_number), 0) FROM pages WHERE document_id = $1
`, documentID).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max page number: %w", err)
	}
	return max, nil
}

func scanPage(row rowScanner) (*domain.Page, error) {
	var page domain.Page
	var inputKind, status string
	var imagePath, rawText, plainText, annotatedText, translatedText, errorMessage sql.NullString

	err := row.Scan(
		&page.ID, &page.DocumentID, &page.PageNumber, &inputKind, &imagePath, &rawText,
		&status, &plainText, &annotatedText, &translatedText, &errorMessage,
		&page.CreatedAt, &page.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	page.InputKind = domain.PageInputKind(inputKind)
	page.Status = domain.PageStatus(status)
	page.ImagePath = imagePath.String
	page.RawText = rawText.String
	page.PlainText = plainText.String
	page.AnnotatedText = annotatedText.String
	page.TranslatedText = translatedText.String
	page.ErrorMessage = errorMessage.String
	return &page, nil
}

func requirePageRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrPageNotFound, "update page", fmt.Errorf("id=%s", id))
	}
	return nil
}
