// Package http exposes the vault to the presentation layer. Rendering
// and styling live in the frontend; this is the boundary it talks to.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"voicevault/internal/app"
)

// NewRouter constructs the HTTP router for the service.
func NewRouter(application *app.Application) http.Handler {
	h := &handler{app: application}

	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		if err := application.Ready(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(err.Error()))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	// API routes
	r.Route("/v1", func(r chi.Router) {
		r.Post("/session", h.signIn)
		r.Get("/session", h.session)
		r.Delete("/session", h.signOut)

		r.Get("/recordings", h.listRecordings)
		r.Post("/recordings/start", h.startCapture)
		r.Post("/recordings/stop", h.stopCapture)

		r.Route("/recordings/{id}", func(r chi.Router) {
			r.Delete("/", h.deleteRecording)
			r.Get("/audio", h.downloadAudio)
			r.Get("/transcript", h.getTranscript)
			r.Post("/transcribe", h.transcribe)
		})

		r.Post("/transcribe/cancel", h.cancelTranscribe)
	})

	return r
}
