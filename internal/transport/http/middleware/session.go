package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/pribylovaa/go-session-auth/internal/errors"
	logctx "github.com/pribylovaa/go-session-auth/internal/pkg/log"
	"github.com/pribylovaa/go-session-auth/internal/session"
)

// Session загружает сессию по cookie и кладёт её в контекст запроса.
// Отсутствие cookie или истёкшая запись — не ошибка: запрос продолжается
// без сессии (дальше решает guard). Ошибка самого хранилища — 500:
// "не знаю" нельзя трактовать как "сессии нет".
func Session(store session.Store, cookieName string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(cookieName)
			if err != nil || c.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess, err := store.Read(r.Context(), c.Value)
			if err != nil {
				if errors.Is(err, session.ErrNotFound) {
					next.ServeHTTP(w, r)
					return
				}

				logctx.From(r.Context()).LogAttrs(r.Context(), slog.LevelError,
					"session_store_read_failed", slog.String("err", err.Error()))
				apierrors.WriteError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), ctxSession, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
