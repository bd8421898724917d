package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"

	"github.com/metricboard/engine/internal/api/handlers"
	mw "github.com/metricboard/engine/internal/api/middleware"
	"github.com/metricboard/engine/internal/share"
)

type Dependencies struct {
	Issuer           *share.Issuer
	Limiter          *mw.RateLimiter
	HealthHandler    *handlers.HealthHandler
	ProjectsHandler  *handlers.ProjectsHandler
	MetricsHandler   *handlers.MetricsHandler
	TabsHandler      *handlers.TabsHandler
	SnapshotsHandler *handlers.SnapshotsHandler
	ShareHandler     *handlers.ShareHandler
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	// Built-in middleware
	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging)
	r.Use(mw.CORS)
	if dep.Limiter != nil {
		r.Use(dep.Limiter.Handler)
	}
	r.Use(chimid.Compress(5))

	// Health endpoints
	r.Get("/healthz", dep.HealthHandler.Liveness)
	r.Get("/readyz", dep.HealthHandler.Readiness)

	r.Route("/api/v1/projects", func(pr chi.Router) {
		pr.Get("/", dep.ProjectsHandler.List)
		pr.Post("/", dep.ProjectsHandler.Create)

		pr.Route("/{projectID}", func(p chi.Router) {
			p.Get("/", dep.ProjectsHandler.Get)
			p.Delete("/", dep.ProjectsHandler.Delete)
			p.Put("/source", dep.ProjectsHandler.UpdateSource)
			p.Post("/share", dep.ShareHandler.Issue)

			// Metrics
			p.Route("/metrics", func(mr chi.Router) {
				mr.Get("/", dep.MetricsHandler.List)
				mr.Post("/sync", dep.MetricsHandler.Sync)
				mr.Post("/import", dep.MetricsHandler.Import)
				mr.Delete("/{metricID}", dep.MetricsHandler.Delete)
				mr.Put("/{metricID}/override", dep.MetricsHandler.Override)
				mr.Delete("/{metricID}/override", dep.MetricsHandler.ClearOverride)
			})

			// Tabs
			p.Get("/tabs", dep.TabsHandler.List)
			p.Route("/tabs/{tabID}", func(tr chi.Router) {
				tr.Get("/", dep.TabsHandler.Project)
				tr.Get("/layout", dep.TabsHandler.Layout)
				tr.Get("/export", dep.TabsHandler.Export)
				tr.Post("/reset", dep.TabsHandler.Reset)
				tr.Post("/metrics", dep.TabsHandler.AddCustomMetric)
				tr.Put("/metrics/{metricID}", dep.TabsHandler.PlaceMetric)
				tr.Patch("/metrics/{metricID}", dep.TabsHandler.UpdateEntry)
				tr.Delete("/metrics/{metricID}", dep.TabsHandler.RemoveEntry)
				tr.Post("/metrics/{metricID}/move", dep.TabsHandler.Move)
				tr.Patch("/charts/{chartID}", dep.TabsHandler.UpdateChart)
			})

			// Snapshots
			p.Route("/snapshots", func(sr chi.Router) {
				sr.Get("/", dep.SnapshotsHandler.List)
				sr.Post("/", dep.SnapshotsHandler.Capture)
				sr.Get("/nearest", dep.SnapshotsHandler.Nearest)
			})
		})
	})

	// Read-only share links
	r.Route("/public/{token}", func(pub chi.Router) {
		pub.Use(mw.ShareToken(dep.Issuer))
		pub.Get("/tabs", dep.ShareHandler.PublicTabs)
		pub.Get("/tabs/{tabID}", dep.ShareHandler.PublicTab)
	})

	return r
}
