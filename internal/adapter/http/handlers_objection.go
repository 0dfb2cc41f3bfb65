package http

import (
	"net/http"

	"github.com/lexweave/depoflow/internal/domain/objection"
)

type recordObjectionsRequest struct {
	Objections []objection.CreateRequest `json:"objections"`
}

func (h *Handlers) recordObjections(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[recordObjectionsRequest](w, r)
	if !ok {
		return
	}
	n, err := h.Objections.Record(r.Context(), req.Objections)
	if err != nil {
		writeDomainError(w, err, "document not found")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"recorded": n})
}

func (h *Handlers) listObjections(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := objection.Filter{
		DocumentID:      q.Get("document_id"),
		Category:        q.Get("category"),
		SequencePattern: objection.SequencePattern(q.Get("pattern")),
	}
	objs, err := h.Objections.List(r.Context(), filter, queryLimit(r, 200))
	if err != nil {
		writeDomainError(w, err, "objections not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"objections": objs, "count": len(objs)})
}

func (h *Handlers) listDocumentObjections(w http.ResponseWriter, r *http.Request) {
	filter := objection.Filter{DocumentID: urlParam(r, "id")}
	objs, err := h.Objections.List(r.Context(), filter, queryLimit(r, 200))
	if err != nil {
		writeDomainError(w, err, "document not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"objections": objs, "count": len(objs)})
}
