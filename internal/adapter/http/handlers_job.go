package http

import (
	"encoding/json"
	"net/http"

	"github.com/lexweave/depoflow/internal/domain/job"
)

func (h *Handlers) getJob(w http.ResponseWriter, r *http.Request) {
	j, err := h.Jobs.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, j)
}

func (h *Handlers) listPendingJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.Jobs.Pending(r.Context(), queryLimit(r, 20))
	if err != nil {
		writeDomainError(w, err, "jobs not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs, "count": len(jobs)})
}

func (h *Handlers) claimJob(w http.ResponseWriter, r *http.Request) {
	j, err := h.Jobs.Claim(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, j)
}

type jobStatusRequest struct {
	Status    job.Status      `json:"status"`
	Progress  int             `json:"progress,omitempty"`
	PageCount int             `json:"page_count,omitempty"`
	WordCount int             `json:"word_count,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// updateJobStatus is the worker's report endpoint. Running reports carry
// progress; terminal reports settle the job and cascade to the document.
func (h *Handlers) updateJobStatus(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[jobStatusRequest](w, r)
	if !ok {
		return
	}
	id := urlParam(r, "id")

	var (
		j   *job.Job
		err error
	)
	switch req.Status {
	case job.StatusRunning:
		j, err = h.Jobs.Progress(r.Context(), id, req.Progress)
	case job.StatusCompleted:
		j, err = h.Jobs.Complete(r.Context(), id, job.CompleteResult{
			PageCount: req.PageCount,
			WordCount: req.WordCount,
			Result:    req.Result,
		})
	case job.StatusFailed:
		j, err = h.Jobs.Fail(r.Context(), id, req.Error)
	default:
		writeError(w, http.StatusBadRequest, "status must be running, completed or failed")
		return
	}
	if err != nil {
		writeDomainError(w, err, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, j)
}

func (h *Handlers) cancelJob(w http.ResponseWriter, r *http.Request) {
	j, err := h.Jobs.Cancel(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, j)
}
