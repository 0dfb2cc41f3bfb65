package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/lexweave/depoflow/internal/middleware"
)

// MountRoutes registers all API routes on the given chi router.
//
// The surface splits in three: firm provisioning (authenticated but not yet
// firm-bound), the tenant surface (every query scoped to the actor's firm),
// and the worker surface (system principals operating on jobs by ID).
func MountRoutes(r chi.Router, h *Handlers, jwtSecret string) {
	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(jwtSecret))
		r.Use(middleware.ResolveActor(h.Firms))

		// Provisioning: the only write available before a firm is attached.
		r.Post("/firm", h.createFirm)

		// Tenant surface
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireFirm)

			r.Get("/firm", h.getFirm)
			r.Put("/firm/settings", h.updateFirmSettings)
			r.Get("/firm/members", h.listFirmMembers)
			r.Get("/firm/credits", h.listCredits)
			r.Post("/firm/credits", h.adjustCredits)

			r.Post("/uploads/url", h.requestUploadURL)
			r.Post("/uploads/complete", h.completeUpload)

			r.Get("/documents", h.listDocuments)
			r.Get("/documents/stats", h.documentStats)
			r.Get("/documents/{id}", h.getDocument)
			r.Delete("/documents/{id}", h.deleteDocument)
			r.Get("/documents/{id}/download", h.documentDownloadURL)
			r.Get("/documents/{id}/jobs", h.listDocumentJobs)
			r.Get("/documents/{id}/objections", h.listDocumentObjections)

			r.Get("/objections", h.listObjections)

			r.Post("/jobs/{id}/cancel", h.cancelJob)

			r.Get("/audit", h.queryAudit)
			r.Get("/audit/export", h.exportAudit)
		})

		// Worker surface. Workers authenticate like any principal but carry
		// no firm; jobs are addressed by ID and tenancy rides on the job row.
		r.Get("/jobs/pending", h.listPendingJobs)
		r.Get("/jobs/{id}", h.getJob)
		r.Post("/jobs/{id}/claim", h.claimJob)
		r.Patch("/jobs/{id}/status", h.updateJobStatus)
		r.Post("/objections", h.recordObjections)
	})
}
