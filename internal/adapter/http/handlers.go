package http

import (
	"net/http"
	"time"

	"github.com/lexweave/depoflow/internal/port/messagequeue"
	"github.com/lexweave/depoflow/internal/service"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Firms      *service.FirmService
	Ledger     *service.LedgerService
	Intake     *service.IntakeService
	Documents  *service.DocumentService
	Jobs       *service.JobService
	Objections *service.ObjectionService
	Stats      *service.StatsService
	Audit      *service.AuditService

	Queue messagequeue.Queue
}

// Health reports process liveness and queue connectivity.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	status := "ok"
	code := http.StatusOK
	natsUp := h.Queue != nil && h.Queue.IsConnected()
	if !natsUp {
		status = "degraded"
	}
	writeJSON(w, code, map[string]any{
		"status": status,
		"nats":   natsUp,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
