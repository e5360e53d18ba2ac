package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-news-publisher/internal/transport/http/handlers"
	"github.com/pribylovaa/go-news-publisher/internal/transport/http/middleware"
)

// Options - параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string // например, "/api"; если пустой - роуты регистрируются на корне.

	// Verifier проверяет Bearer-токены; обязателен.
	Verifier middleware.Verifier
	// Metrics - необязательные HTTP-метрики.
	Metrics *middleware.Metrics
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc handlers.Service, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),
		middleware.RequestID(), // до логирования: id попадает в логгер запроса
		middleware.Logging(opts.Logger),
	)
	if opts.Metrics != nil {
		root.Use(opts.Metrics.Middleware())
	}
	root.Use(middleware.Authenticate(opts.Verifier))
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout))
	}

	h := handlers.New(svc)

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h)
	return root
}

// registerRoutes - единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers) {
	r.Route("/session", func(r chi.Router) {
		r.Post("/", h.CreateSession)
		r.Put("/", h.RefreshSession)
		r.Delete("/", h.DeleteSession)
		r.Get("/admin/{user_id}", h.AdminListSessions)
		r.Get("/{user_id}", h.ListSessions)
	})

	r.Route("/user", func(r chi.Router) {
		r.Post("/", h.RegisterUser)
		r.Get("/", h.ListUsers)
		r.Get("/{user_id}", h.GetUser)
		r.Put("/{user_id}", h.UpdateUser)
		r.Put("/{user_id}/password", h.ChangePassword)
		r.Put("/{user_id}/role", h.ChangeRole)
		r.Delete("/{user_id}", h.DeleteUser)
	})

	r.Route("/news", func(r chi.Router) {
		r.Post("/", h.CreateNews)
		r.Get("/", h.ListNews)
		r.Get("/{news_id}", h.GetNews)
		r.Put("/{news_id}", h.UpdateNews)
		r.Delete("/{news_id}", h.DeleteNews)
	})

	r.Route("/comment", func(r chi.Router) {
		r.Post("/", h.CreateComment)
		r.Get("/", h.ListComments)
		r.Get("/{comment_id}", h.GetComment)
		r.Put("/{comment_id}", h.UpdateComment)
		r.Delete("/{comment_id}", h.DeleteComment)
	})
}
