package hc

import (
	"net/http"
	"time"

	"levee/handler/render"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
)

// Handle health check endpoint
func Handle(ver string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.NoCache)
	r.Handle("/", handle(ver))
	return r
}

func handle(version string) http.HandlerFunc {
	startedAt := time.Now()
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, render.H{
			"uptime":  time.Since(startedAt).Truncate(time.Millisecond).String(),
			"version": version,
		})
	}
}
