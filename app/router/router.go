package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"luch-agregator/app/controller"
	"luch-agregator/app/middleware"
	"luch-agregator/logger"
	"luch-agregator/session"
)

type Controllers struct {
	Auth        *controller.AuthController
	Catalog     *controller.CatalogController
	Offer       *controller.OfferController
	DocumentLog *controller.DocumentLogController
}

// pingHandler handles GET /ping
func pingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// New builds the HTTP handler of the service
func New(controllers *Controllers, sessions *session.Manager, log *logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics())
	r.Use(middleware.RequestLogger(log))

	r.Get("/ping", pingHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/login", controllers.Auth.Login)
	r.Post("/logout", controllers.Auth.Logout)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(sessions, log))

		r.Get("/catalog", controllers.Catalog.Catalog)
		r.Route("/catalog/selection", func(r chi.Router) {
			r.Post("/update", controllers.Catalog.UpdateSelection)

			// Generation is reachable from plain links and from forms
			generation := map[string]http.HandlerFunc{
				"/generate-pdf":            controllers.Offer.GeneratePDF,
				"/generate-docx":           controllers.Offer.GenerateDOCX("main"),
				"/generate-umed-docx":      controllers.Offer.GenerateDOCX("umed"),
				"/generate-pos78-docx":     controllers.Offer.GenerateDOCX("pos78"),
				"/generate-docx/{variant}": controllers.Offer.GenerateDOCXVariant,
			}
			for pattern, handler := range generation {
				r.Get(pattern, handler)
				r.Post(pattern, handler)
			}
		})

		r.With(middleware.RequireStaff()).Get("/document-log", controllers.DocumentLog.List)
	})

	return r
}
