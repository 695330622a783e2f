package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gwi.com/toolchat/internal/session"
)

func NewRouter(h *APIHandler, secureCookies bool) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling
	r.Use(session.Middleware(secureCookies))

	// Server-rendered pages
	r.Get("/", h.IndexPage)
	r.Route("/apps/{app}", func(r chi.Router) {
		r.Get("/", h.ChatPage)
		r.Post("/messages", h.ChatSubmit)
		r.Post("/reset", h.ChatReset)
	})
	r.Route("/overthinking", func(r chi.Router) {
		r.Get("/", h.ReframePage)
		r.Post("/analyze", h.ReframeSubmit)
		r.Post("/reset", h.ReframeReset)
	})
	r.Post("/session/key", h.SetKeySubmit)
	r.Post("/session/forget", h.ForgetKeySubmit)

	// JSON API
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HealthHandler)
		r.Get("/apps", h.ListAppsHandler)
		r.Put("/session/key", h.SetAPIKeyHandler)

		r.Get("/apps/{app}/messages", h.ListMessagesHandler)
		r.Post("/apps/{app}/messages", h.PostMessageHandler)
		r.Post("/apps/{app}/reset", h.ResetChatHandler)

		r.Get("/overthinking/analyses", h.ListAnalysesHandler)
		r.Post("/overthinking/analyses", h.AnalyzeHandler)
		r.Post("/overthinking/reset", h.ResetAnalysesHandler)
	})

	return r
}
