package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-session-auth/internal/config"
	"github.com/pribylovaa/go-session-auth/internal/service"
	"github.com/pribylovaa/go-session-auth/internal/session"
	"github.com/pribylovaa/go-session-auth/internal/transport/http/middleware"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger  *slog.Logger
	Timeout time.Duration
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(svc *service.Service, sessions session.Store, cfg *config.Config, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),
		middleware.RequestID(),
		middleware.Logging(opts.Logger),
		middleware.Session(sessions, cfg.Session.CookieName),
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout))
	}

	h := NewHandlers(svc, sessions, cfg)

	root.Post("/auth/login", h.Login)
	root.Get("/auth/sessions/refresh", h.Refresh)

	// Эндпойнты за авторизационным guard'ом.
	root.Group(func(r chi.Router) {
		r.Use(middleware.Guard(svc))

		r.Get("/auth/sessions", h.Sessions)
		r.Delete("/auth/sessions/revoke", h.Revoke)
		r.Delete("/auth/sessions/reset", h.Reset)
	})

	return root
}
