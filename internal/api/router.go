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

	r.Post("/api/analyze", app.AnalyzeHandler)
	r.Post("/api/analyze/url", app.AnalyzeURLHandler)

	// Stored uploads must be fetchable by the media loader.
	if app.UploadsDir != "" {
		fileServer := http.FileServer(http.Dir(app.UploadsDir))
		r.Handle("/uploads/*", http.StripPrefix("/uploads", fileServer))
	}

	return r
}
