package http

import (
	"net/http"

	"github.com/lexweave/depoflow/internal/domain/firm"
	"github.com/lexweave/depoflow/internal/middleware"
)

func (h *Handlers) createFirm(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[firm.CreateRequest](w, r)
	if !ok {
		return
	}
	p, _ := middleware.PrincipalFromContext(r.Context())
	f, err := h.Firms.Provision(r.Context(), req, p.Email)
	if err != nil {
		writeDomainError(w, err, "firm not found")
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (h *Handlers) getFirm(w http.ResponseWriter, r *http.Request) {
	f, err := h.Firms.Get(r.Context())
	if err != nil {
		writeDomainError(w, err, "firm not found")
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *Handlers) updateFirmSettings(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[firm.UpdateSettingsRequest](w, r)
	if !ok {
		return
	}
	f, err := h.Firms.UpdateSettings(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "firm not found")
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *Handlers) listFirmMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.Firms.Members(r.Context())
	if err != nil {
		writeDomainError(w, err, "firm not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": members, "count": len(members)})
}

func (h *Handlers) listCredits(w http.ResponseWriter, r *http.Request) {
	f, err := h.Firms.Get(r.Context())
	if err != nil {
		writeDomainError(w, err, "firm not found")
		return
	}
	records, err := h.Ledger.History(r.Context(), queryLimit(r, 50))
	if err != nil {
		writeDomainError(w, err, "firm not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"balance":   f.Credits,
		"unlimited": f.Unlimited(),
		"records":   records,
	})
}

type adjustCreditsRequest struct {
	Delta       int64            `json:"delta"`
	Type        firm.BillingType `json:"type"`
	Description string           `json:"description"`
}

func (h *Handlers) adjustCredits(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[adjustCreditsRequest](w, r)
	if !ok {
		return
	}
	rec, err := h.Ledger.Adjust(r.Context(), req.Delta, req.Type, req.Description)
	if err != nil {
		writeDomainError(w, err, "firm not found")
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}
