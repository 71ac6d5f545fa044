package api

import (
	"net/http"
	"time"
	"duel_arena/internal/api/handler"
	"duel_arena/internal/app/service"
	"duel_arena/internal/common/security"
	"duel_arena/internal/realtime"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

func NewRouter(
	records *service.RecordsService,
	wsHandler *realtime.Handler,
) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)

	// Public health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// WebSocket entry point. Browsers cannot set the Authorization header on
	// an upgrade request, so the token is also accepted as ?token=.
	r.Group(func(ws chi.Router) {
		ws.Use(jwtauth.Verify(security.TokenAuth, jwtauth.TokenFromQuery, jwtauth.TokenFromHeader))
		ws.Get("/ws", wsHandler.ServeWS)
	})

	// API v1 Routes
	r.Group(func(rest chi.Router) {
		rest.Use(chiMiddleware.Timeout(60 * time.Second))
		rest.Use(jwtauth.Verifier(security.TokenAuth)) // Verifies token, puts claims in context

		rest.Route("/api/v1", func(v1 chi.Router) {
			problemHandler := handler.NewProblemHandler(records)
			v1.Route("/problems", problemHandler.RegisterRoutes)

			matchHandler := handler.NewMatchHandler(records)
			v1.Route("/matches", matchHandler.RegisterRoutes)

			userHandler := handler.NewUserHandler(records)
			v1.Route("/users", userHandler.RegisterRoutes)
		})
	})

	return r
}
