// Package server assembles the HTTP router.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/ayush/task-manager-api/internal/middleware"
	"github.com/ayush/task-manager-api/internal/tasks"
	"github.com/ayush/task-manager-api/internal/users"
)

// Options configures NewRouter.
type Options struct {
	Logger      zerolog.Logger
	CORSOrigins []string

	Tokens middleware.TokenVerifier
	Users  middleware.UserFinder

	UserHandler *users.Handler
	TaskHandler *tasks.Handler
}

// NewRouter creates the chi router serving /users and /tasks.
func NewRouter(o Options) *chi.Mux {
	r := chi.NewRouter()

	r.Use(hlog.NewHandler(o.Logger))
	r.Use(hlog.RequestIDHandler("req_id", "X-Request-Id"))
	r.Use(hlog.RemoteAddrHandler("remote"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", d).
			Msg("request")
	}))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   o.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	auth := middleware.RequireAuth(o.Tokens, o.Users)
	uh, th := o.UserHandler, o.TaskHandler

	r.Route("/users", func(r chi.Router) {
		r.Post("/", uh.Register)
		r.Post("/login", uh.Login)
		r.Get("/", uh.List)

		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Post("/logout", uh.Logout)
			r.Post("/logoutAll", uh.LogoutAll)
			r.Get("/me", uh.Me)
			r.Patch("/me", uh.UpdateMe)
			r.Delete("/me", uh.DeleteMe)
			r.Post("/me/avatar", uh.UploadAvatar)
			r.Delete("/me/avatar", uh.DeleteAvatar)
		})

		// Unauthenticated by-id routes.
		r.Get("/{id}", uh.Get)
		r.Delete("/{id}", uh.Delete)
		r.Get("/{id}/avatar", uh.GetAvatar)
	})

	r.Route("/tasks", func(r chi.Router) {
		r.Use(auth)
		r.Post("/", th.Create)
		r.Get("/", th.List)
		r.Get("/{id}", th.Get)
		r.Patch("/{id}", th.Update)
		r.Delete("/{id}", th.Delete)
	})

	return r
}
