package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/loocor/rules-editor/internal/api/handlers"
	mw "github.com/loocor/rules-editor/internal/api/middleware"
)

type Dependencies struct {
	HMACSecret         []byte
	AuthHandler        *handlers.AuthHandler
	DocumentsHandler   *handlers.DocumentsHandler
	SimulationsHandler *handlers.SimulationsHandler
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	// Built-in middleware
	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging)
	r.Use(mw.CORS)
	r.Use(mw.RateLimit(10, 20))
	r.Use(chimid.Compress(5))

	// Health endpoints
	hh := handlers.NewHealthHandler()
	r.Get("/healthz", hh.Liveness)
	r.Get("/readyz", hh.Readiness)

	// Swagger documentation
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/docs/doc.json"),
	))

	r.Route("/api/v1", func(api chi.Router) {
		// Auth routes (public)
		api.Route("/auth", func(ar chi.Router) {
			ar.Post("/register", dep.AuthHandler.Register)
			ar.Post("/login", dep.AuthHandler.Login)
		})

		// Protected routes
		api.Group(func(protected chi.Router) {
			protected.Use(mw.Auth(dep.HMACSecret))

			protected.Get("/templates", dep.DocumentsHandler.ListTemplates)

			protected.Route("/documents", func(dr chi.Router) {
				dr.Get("/", dep.DocumentsHandler.List)
				dr.Post("/", dep.DocumentsHandler.Create)

				dr.Route("/{id}", func(doc chi.Router) {
					doc.Get("/", dep.DocumentsHandler.Get)
					doc.Patch("/", dep.DocumentsHandler.Rename)
					doc.Delete("/", dep.DocumentsHandler.Delete)

					doc.Route("/revisions", func(rr chi.Router) {
						rr.Get("/", dep.DocumentsHandler.ListRevisions)
						rr.Post("/", dep.DocumentsHandler.Save)
						rr.Get("/current", dep.DocumentsHandler.CurrentRevision)
						rr.Put("/current", dep.DocumentsHandler.SetCurrent)
						rr.Get("/{version}", dep.DocumentsHandler.GetRevision)
					})

					doc.Post("/import", dep.DocumentsHandler.Import)
					doc.Get("/export", dep.DocumentsHandler.Export)
					doc.Post("/template", dep.DocumentsHandler.ApplyTemplate)

					doc.Post("/simulate", dep.SimulationsHandler.Simulate)
					doc.Route("/simulations", func(sr chi.Router) {
						sr.Get("/", dep.SimulationsHandler.ListRuns)
						sr.Post("/", dep.SimulationsHandler.Enqueue)
					})
				})
			})

			protected.Get("/simulations/{runID}", dep.SimulationsHandler.GetRun)
		})
	})

	return r
}
