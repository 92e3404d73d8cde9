package httpadapter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/booklab/booklab/internal/core/domain"
	"github.com/booklab/booklab/internal/core/ports"
)

// maxUploadBytes bounds multipart memory use for page image uploads.
const maxUploadBytes = 64 << 20

type Router struct {
	ingestor ports.DocumentIngestor
	editor   ports.PageEditor
	docs     ports.DocumentRepository
	pages    ports.PageRepository
	storage  ports.ObjectStorage
	queue    ports.MessageQueue
	exporter ports.ReportExporter
}

func NewRouter(
	ingestor ports.DocumentIngestor,
	editor ports.PageEditor,
	docs ports.DocumentRepository,
	pages ports.PageRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	exporter ports.ReportExporter,
) *Router {
	return &Router{
		ingestor: ingestor,
		editor:   editor,
		docs:     docs,
		pages:    pages,
		storage:  storage,
		queue:    queue,
		exporter: exporter,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/documents", rt.documents)
	mux.HandleFunc("/v1/documents/", rt.documentSubroutes)
	mux.HandleFunc("/v1/pages/", rt.pageByID)
	return requestIDMiddleware(accessLogMiddleware(mux))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) documents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		rt.createDocument(w, r)
	case http.MethodGet:
		rt.listDocuments(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) createDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart form is required"})
		return
	}

	title := r.FormValue("title")
	var uploads []ports.PageUpload
	if r.MultipartForm != nil {
		for _, fileHeader := range r.MultipartForm.File["pages"] {
			file, err := fileHeader.Open()
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("open upload %q: %v", fileHeader.Filename, err)})
				return
			}
			defer file.Close()
			uploads = append(uploads, ports.PageUpload{
				Filename: fileHeader.Filename,
				MimeType: fileHeader.Header.Get("Content-Type"),
				Body:     file,
			})
		}
	}

	doc, err := rt.ingestor.CreateDocument(r.Context(), title, uploads)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := rt.docs.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

// documentSubroutes dispatches /v1/documents/{id} and its nested actions.
func (rt *Router) documentSubroutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	switch action {
	case "":
		rt.getDocument(w, r, id)
	case "process":
		rt.triggerProcessing(w, r, id)
	case "pages":
		rt.addTextPage(w, r, id)
	case "import-pdf":
		rt.importPDF(w, r, id)
	case "artifact":
		rt.downloadArtifact(w, r, id)
	case "report":
		rt.downloadReport(w, r, id)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown resource"})
	}
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	doc, err := rt.docs.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	pages, err := rt.pages.ListByDocument(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"document": doc,
		"progress": domain.ProgressOf(pages),
		"pages":    pages,
	})
}

func (rt *Router) triggerProcessing(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	if _, err := rt.docs.GetByID(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	if err := rt.queue.PublishProcessRequested(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "document_id": id})
}

func (rt *Router) addTextPage(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		RawText string `json:"raw_text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	page, err := rt.ingestor.AddTextPage(r.Context(), id, req.RawText)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, page)
}

func (rt *Router) importPDF(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read pdf upload"})
		return
	}

	pages, err := rt.ingestor.ImportPDF(r.Context(), id, bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"pages": pages})
}

func (rt *Router) downloadArtifact(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	doc, err := rt.docs.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if doc.ArtifactPath == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "artifact not rendered yet"})
		return
	}

	reader, err := rt.storage.Open(r.Context(), doc.ArtifactPath)
	if err != nil {
		writeError(w, err)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, reader)
}

func (rt *Router) downloadReport(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	doc, err := rt.docs.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	pages, err := rt.pages.ListByDocument(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	report, err := rt.exporter.Export(r.Context(), doc, pages)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "document-"+id+".xlsx"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(report)
}

func (rt *Router) pageByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/pages/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "page id is required"})
		return
	}

	switch r.Method {
	case http.MethodGet:
		page, err := rt.pages.GetByID(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, page)

	case http.MethodPatch:
		var edit domain.PageEdit
		if err := json.NewDecoder(r.Body).Decode(&edit); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
		page, err := rt.editor.EditTextPage(r.Context(), id, edit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, page)

	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
