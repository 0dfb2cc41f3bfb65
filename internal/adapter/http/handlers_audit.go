package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/lexweave/depoflow/internal/domain/event"
)

func auditFilterFromQuery(r *http.Request) *event.AuditFilter {
	q := r.URL.Query()
	filter := &event.AuditFilter{
		Action:       q.Get("action"),
		ResourceType: q.Get("resource_type"),
		ResourceID:   q.Get("resource_id"),
	}
	if v := q.Get("after"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.After = &t
		}
	}
	if v := q.Get("before"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			filter.Before = &t
		}
	}
	return filter
}

func (h *Handlers) queryAudit(w http.ResponseWriter, r *http.Request) {
	page, err := h.Audit.Query(r.Context(), auditFilterFromQuery(r), r.URL.Query().Get("cursor"), queryLimit(r, 50))
	if err != nil {
		writeDomainError(w, err, "audit trail not found")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// exportAudit streams the matching trail as a JSON array. Large firms can
// have trails well beyond a single page, so the response is written
// incrementally rather than buffered.
func (h *Handlers) exportAudit(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-export.json"`)
	if err := h.Audit.Export(r.Context(), auditFilterFromQuery(r), w); err != nil {
		// Headers are already on the wire, the status cannot change now.
		slog.ErrorContext(r.Context(), "audit export aborted", "error", err)
	}
}
