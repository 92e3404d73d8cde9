package htmlrender

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/booklab/booklab/internal/core/domain"
)

// Renderer builds the downloadable book artifact as a single self-contained
// HTML document. Pages arrive in reading order and render as one section
// each, original text above its translation.
type Renderer struct {
	tmpl *template.Template
}

func New() (*Renderer, error) {
	tmpl, err := template.New("book").Parse(bookTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse book template: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

type bookView struct {
	Title string
	Pages []pageView
}

type pageView struct {
	Number          int
	SourceLines     []string
	TranslatedLines []string
}

func (r *Renderer) Render(_ context.Context, doc *domain.Document, pages []domain.Page) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("render: document is nil")
	}

	view := bookView{Title: doc.Title}
	for _, page := range pages {
		if page.Status != domain.PageDone {
			continue
		}
		view.Pages = append(view.Pages, pageView{
			Number:          page.PageNumber,
			SourceLines:     splitLines(sourceText(page)),
			TranslatedLines: splitLines(page.TranslatedText),
		})
	}
	if len(view.Pages) == 0 {
		return nil, fmt.Errorf("render: document %s has no finished pages", doc.ID)
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("execute book template: %w", err)
	}
	return buf.Bytes(), nil
}

// sourceText prefers the annotated rendition and falls back to plain text
// when the engine produced no annotations.
func sourceText(page domain.Page) string {
	if strings.TrimSpace(page.AnnotatedText) != "" {
		return page.AnnotatedText
	}
	return page.PlainText
}

func splitLines(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

const bookTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: serif; max-width: 48em; margin: 2em auto; padding: 0 1em; }
h1 { text-align: center; }
section.page { margin: 2.5em 0; border-top: 1px solid #ccc; padding-top: 1.5em; }
.page-number { color: #888; font-size: 0.85em; }
.source p { line-height: 1.9; }
.translation p { color: #444; line-height: 1.6; }
.translation { margin-top: 1em; border-left: 3px solid #ddd; padding-left: 1em; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{range .Pages}}<section class="page">
<div class="page-number">{{.Number}}</div>
<div class="source">
{{range .SourceLines}}<p>{{.}}</p>
{{end}}</div>
{{if .TranslatedLines}}<div class="translation">
{{range .TranslatedLines}}<p>{{.}}</p>
{{end}}</div>
{{end}}</section>
{{end}}</body>
</html>
`
