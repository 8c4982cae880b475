/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the admin frontend

ROUTE GROUPS:
  /api/applications/*   Application lifecycle (approve, reject, forward)
  /api/schemes/*        Schemes and their distribution templates
  /api/beneficiaries/*  Beneficiary records
  /api/donors,projects,users
  /api/masterdata/*     Workflow configuration records
  /api/disbursements/*  Phase payout rows

SECURITY NOTE:
  No authentication middleware; the service sits behind the deployment's
  identity proxy.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/applications", func(r chi.Router) {
			r.Get("/", h.ListApplications)
			r.Post("/", h.CreateApplication)
			r.Get("/{id}", h.GetApplication)
			r.Post("/{id}/approve", h.ApproveApplication)
			r.Post("/{id}/reject", h.RejectApplication)
			r.Post("/{id}/forward", h.ForwardApplication)
			r.Get("/{id}/schedule", h.GetRecurringSchedule)
			r.Get("/{id}/disbursements", h.ListApplicationDisbursements)
		})

		r.Route("/schemes", func(r chi.Router) {
			r.Get("/", h.ListSchemes)
			r.Post("/", h.CreateScheme)
			r.Get("/{id}", h.GetScheme)
			r.Get("/{id}/template", h.MaterializeSchemeTemplate)
		})

		r.Route("/beneficiaries", func(r chi.Router) {
			r.Get("/", h.ListBeneficiaries)
			r.Post("/", h.CreateBeneficiary)
			r.Get("/{id}", h.GetBeneficiary)
			r.Put("/{id}", h.UpdateBeneficiary)
		})

		r.Route("/donors", func(r chi.Router) {
			r.Get("/", h.ListDonors)
			r.Post("/", h.CreateDonor)
			r.Get("/{id}", h.GetDonor)
		})

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", h.ListProjects)
			r.Post("/", h.CreateProject)
			r.Get("/{id}", h.GetProject)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Post("/", h.CreateUser)
			r.Get("/{id}", h.GetUser)
		})

		r.Route("/masterdata", func(r chi.Router) {
			r.Get("/", h.ListMasterConfigs)
			r.Post("/", h.SaveMasterConfig)
			r.Get("/{id}", h.GetMasterConfig)
		})

		r.Route("/disbursements", func(r chi.Router) {
			r.Get("/", h.ListDisbursements)
			r.Post("/{id}/paid", h.MarkDisbursementPaid)
		})

		r.Post("/admin/reset", h.ResetData)
	})

	return r
}
