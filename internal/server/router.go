// Package server assembles the HTTP router.
package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ayush/task-manager-api/internal/middleware"
	"github.com/ayush/task-manager-api/internal/respond"
	"github.com/ayush/task-manager-api/internal/tasks"
	"github.com/ayush/task-manager-api/internal/users"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the router mounts. Limiter may be nil, in
// which case register and login are not throttled.
type Deps struct {
	Users       *users.Handler
	Tasks       *tasks.Handler
	Tokens      middleware.TokenValidator
	Limiter     middleware.AttemptLimiter
	Store       Pinger
	CORSOrigins []string
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusNotFound, respond.Message{Message: "Route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusMethodNotAllowed, respond.Message{Message: "Method not allowed"})
	})

	r.Get("/health", health(d.Store))

	requireAuth := middleware.RequireAuth(d.Tokens)
	validID := middleware.ValidObjectID("id")

	r.Route("/api/users", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if d.Limiter != nil {
				r.Use(middleware.RateLimit(d.Limiter))
			}
			r.Post("/register", d.Users.Register)
			r.Post("/login", d.Users.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me", d.Users.Me)
			r.Put("/me", d.Users.UpdateMe)
			r.Delete("/me", d.Users.DeleteMe)
			r.With(middleware.RequireAdmin, validID).Get("/{id}", d.Users.GetByID)
		})
	})

	r.Route("/api/tasks", func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/", d.Tasks.Create)
		r.Get("/myTasks", d.Tasks.List)
		r.With(validID).Put("/{id}", d.Tasks.Replace)
		r.With(validID).Patch("/{id}", d.Tasks.Patch)
		r.With(validID).Delete("/{id}", d.Tasks.Delete)
	})

	return r
}

func health(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if store != nil {
			if err := store.Ping(ctx); err != nil {
				log.Printf("[health] store ping: %v", err)
				respond.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
