package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/tasktracker-be/internal/api/handlers"
	"github.com/isdelr/tasktracker-be/internal/auth"
	"github.com/isdelr/tasktracker-be/internal/services"
	"github.com/isdelr/tasktracker-be/internal/websocket"
)

// Services groups the service dependencies of the HTTP API.
type Services struct {
	Users    services.UserServiceProvider
	Tasks    services.TaskServiceProvider
	TimeLogs services.TimeLogServiceProvider
	Summary  services.SummaryServiceProvider
	Events   services.EventServiceProvider
	System   services.SystemServiceProvider
}

// Options configures the router.
type Options struct {
	AllowedOrigins []string
	SecureCookies  bool
}

// NewRouter creates and configures a new Chi router.
func NewRouter(hub *websocket.Hub, jwtManager *auth.JWTManager, svc Services, opts Options) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	userHandler := handlers.NewUserHandler(svc.Users, jwtManager, opts.SecureCookies)
	taskHandler := handlers.NewTaskHandler(svc.Tasks)
	timeLogHandler := handlers.NewTimeLogHandler(svc.TimeLogs)
	summaryHandler := handlers.NewSummaryHandler(svc.Summary)
	eventHandler := handlers.NewEventHandler(svc.Events)
	healthHandler := handlers.NewHealthHandler(svc.System)
	wsHandler := handlers.NewWebSocketHandler(hub, opts.AllowedOrigins)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.Get)

		// Public routes
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", userHandler.Register)
			r.Post("/login", userHandler.Login)
			r.Post("/logout", userHandler.Logout)
			r.With(jwtManager.Middleware()).Get("/me", userHandler.GetMe)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(jwtManager.Middleware())

			r.Get("/ws", wsHandler.Serve)

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", taskHandler.GetAll)
				r.Post("/", taskHandler.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", taskHandler.Get)
					r.Put("/", taskHandler.Update)
					r.Delete("/", taskHandler.Delete)
				})
			})

			r.Route("/timelogs", func(r chi.Router) {
				r.Get("/", timeLogHandler.GetAll)
				r.Get("/running", timeLogHandler.GetRunning)
				r.Post("/start", timeLogHandler.Start)
				r.Post("/stop", timeLogHandler.Stop)
			})

			r.Get("/summary/daily", summaryHandler.Daily)
			r.Get("/events", eventHandler.GetRecent)
		})
	})

	return r
}
