package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler, limiter *RateLimiter) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling
	if limiter != nil {
		r.Use(limiter.Middleware)
	}

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/signup", apiHandler.SignupHandler)
		r.Post("/login", apiHandler.LoginHandler)
		r.Get("/health", apiHandler.HealthHandler)
		r.Get("/models", apiHandler.ListModelsHandler)

		// User-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.JWTAuthMiddleware)

			r.Post("/sessions", apiHandler.CreateSessionHandler)
			r.Route("/sessions/{sessionID}", func(r chi.Router) {
				r.Get("/", apiHandler.GetSessionHandler)
				r.Delete("/", apiHandler.DeleteSessionHandler)

				r.Get("/chats", apiHandler.ListChatsHandler)
				r.Post("/chats/{chatID}/select", apiHandler.SelectChatHandler)
				r.Delete("/chats/{chatID}", apiHandler.DeleteChatHandler)
				r.Post("/new", apiHandler.NewChatHandler)
				r.Post("/clear", apiHandler.ClearChatHandler)

				r.Post("/messages", apiHandler.PostMessageHandler)
				r.Put("/model", apiHandler.SelectModelHandler)
				r.Put("/settings", apiHandler.UpdateSettingsHandler)
				r.Post("/page-context", apiHandler.AnalyzePageHandler)
				r.Delete("/page-context", apiHandler.ClearPageContextHandler)
			})
		})
	})

	return r
}
