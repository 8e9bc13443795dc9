package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/ping", PingHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/voices", VoicesHandler)
		r.Get("/themes", ThemesHandler)

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", app.CreateJobHandler)
			r.Get("/", app.ListJobsHandler)
			r.Get("/{id}", app.GetJobHandler)
			r.Post("/{id}/start", app.StartJobHandler)
			r.Get("/{id}/events", app.JobEventsHandler)
			r.Get("/{id}/video", app.DownloadVideoHandler)
			r.Get("/{id}/subtitles", app.DownloadSubtitlesHandler)
		})
	})

	return r
}
