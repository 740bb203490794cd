package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/taskly/taskly-be/internal/api/handlers"
	"github.com/taskly/taskly-be/internal/auth"
	"github.com/taskly/taskly-be/internal/services"
)

// NewRouter creates and configures a new Chi router with the full route
// table. Routes that require a session wrap the auth middleware; the rest,
// including PATCH/DELETE by id on both resources, are open, matching the
// documented contract.
func NewRouter(allowedOrigins []string, tokens *auth.TokenManager, userService services.UserServiceProvider, taskService services.TaskServiceProvider) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticated := auth.Middleware(tokens, userService)

	userHandler := handlers.NewUserHandler(userService, tokens)
	taskHandler := handlers.NewTaskHandler(taskService)

	r.Route("/users", func(r chi.Router) {
		r.Post("/", userHandler.Create)
		r.Get("/", userHandler.GetAll)
		r.Post("/login", userHandler.Login)

		r.With(authenticated).Get("/me", userHandler.GetMe)
		r.With(authenticated).Patch("/me", userHandler.UpdateMe)
		r.With(authenticated).Delete("/me", userHandler.DeleteMe)
		r.With(authenticated).Post("/me/avatar", userHandler.UploadAvatar)
		r.With(authenticated).Delete("/me/avatar", userHandler.DeleteAvatar)
		r.With(authenticated).Post("/logout", userHandler.Logout)
		r.With(authenticated).Post("/logoutAll", userHandler.LogoutAll)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", userHandler.Get)
			r.Patch("/", userHandler.Update)
			r.Delete("/", userHandler.Delete)
			r.Get("/avatar", userHandler.GetAvatar)
		})
	})

	r.Route("/tasks", func(r chi.Router) {
		r.With(authenticated).Post("/", taskHandler.Create)
		r.Get("/", taskHandler.GetAll)
		r.With(authenticated).Get("/me", taskHandler.GetMine)

		r.Route("/{id}", func(r chi.Router) {
			r.With(authenticated).Get("/", taskHandler.Get)
			r.Patch("/", taskHandler.Update)
			r.Delete("/", taskHandler.Delete)
		})
	})

	return r
}
