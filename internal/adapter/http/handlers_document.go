package http

import (
	"net/http"

	"github.com/lexweave/depoflow/internal/domain/document"
)

type uploadURLRequest struct {
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
	FileSize int64  `json:"file_size"`
}

func (h *Handlers) requestUploadURL(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[uploadURLRequest](w, r)
	if !ok {
		return
	}
	grant, err := h.Intake.RequestUpload(r.Context(), req.FileName, req.MimeType, req.FileSize)
	if err != nil {
		writeDomainError(w, err, "firm not found")
		return
	}
	writeJSON(w, http.StatusOK, grant)
}

func (h *Handlers) completeUpload(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[document.CreateRequest](w, r)
	if !ok {
		return
	}
	res, err := h.Intake.CompleteUpload(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "firm not found")
		return
	}
	h.Stats.Invalidate(r.Context())
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handlers) listDocuments(w http.ResponseWriter, r *http.Request) {
	status := document.Status(r.URL.Query().Get("status"))
	docs, err := h.Documents.List(r.Context(), status, queryLimit(r, 50))
	if err != nil {
		writeDomainError(w, err, "documents not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs, "count": len(docs)})
}

func (h *Handlers) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Documents.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "document not found")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *Handlers) documentDownloadURL(w http.ResponseWriter, r *http.Request) {
	url, err := h.Documents.DownloadURL(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "document not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"download_url": url})
}

func (h *Handlers) deleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.Documents.Delete(r.Context(), urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "document not found")
		return
	}
	h.Stats.Invalidate(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) documentStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Stats.Documents(r.Context())
	if err != nil {
		writeDomainError(w, err, "firm not found")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handlers) listDocumentJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.Documents.Jobs(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "document not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs, "count": len(jobs)})
}
