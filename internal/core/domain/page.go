package domain

import (
	"strings"
	"time"
)

type PageStatus string

const (
	PagePending    PageStatus = "PENDING"
	PageProcessing PageStatus = "PROCESSING"
	PageDone       PageStatus = "DONE"
	PageFailed     PageStatus = "FAILED"
)

type PageInputKind string

const (
	InputImage PageInputKind = "IMAGE"
	InputText  PageInputKind = "TEXT"
)

// Page is one unit of work in a document. Exactly one of ImagePath and
// RawText is populated, determined by InputKind. The three output fields are
// only ever written together, on a successful extraction.
type Page struct {
	ID         string        `json:"id"`
	DocumentID string        `json:"document_id"`
	PageNumber int           `json:"page_number"`
	InputKind  PageInputKind `json:"input_kind"`
	ImagePath  string        `json:"image_path,omitempty"`
	RawText    string        `json:"raw_text,omitempty"`
	Status     PageStatus    `json:"status"`

	PlainText      string `json:"plain_text,omitempty"`
	AnnotatedText  string `json:"annotated_text,omitempty"`
	TranslatedText string `json:"translated_text,omitempty"`

	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PageEdit is a manual override applied to a TEXT page. The edit replaces
// the stored texts and forces the page DONE, bypassing the pipeline.
type PageEdit struct {
	RawText        string `json:"raw_text"`
	PlainText      string `json:"plain_text"`
	AnnotatedText  string `json:"annotated_text"`
	TranslatedText string `json:"translated_text"`
}

// Extraction is the engine result for one page.
type Extraction struct {
	PlainText      string `json:"plain_text"`
	AnnotatedText  string `json:"annotated_text"`
	TranslatedText string `json:"translated_text"`
}

// errorMessageLimit bounds persisted page error messages so they stay
// storable and displayable.
const errorMessageLimit = 1000

// ShortenErrorMessage collapses whitespace and caps the message length
// before it is persisted on a failed page. The cap counts runes, so a
// multibyte message is never cut inside a character.
func ShortenErrorMessage(msg string) string {
	msg = strings.Join(strings.Fields(msg), " ")
	runes := []rune(msg)
	if len(runes) > errorMessageLimit {
		return string(runes[:errorMessageLimit]) + "..."
	}
	return msg
}
