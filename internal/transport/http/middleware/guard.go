package middleware

import (
	"context"
	"net/http"
	"regexp"

	apierrors "github.com/pribylovaa/go-session-auth/internal/errors"
	"github.com/pribylovaa/go-session-auth/internal/service"
)

// bearerRe — регистронезависимое извлечение bearer-учётных данных.
var bearerRe = regexp.MustCompile(`(?i)bearer\s+(.+)`)

// Guard пропускает запрос через авторизационную машину состояний сервиса.
// Сессию берёт из контекста (мидлвар Session), bearer — из Authorization.
// При успехе кладёт авторизованный payload в контекст; любой отказ
// транслируется в унифицированный ответ об ошибке.
func Guard(svc *service.Service) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var bearer string
			if m := bearerRe.FindStringSubmatch(r.Header.Get("Authorization")); m != nil {
				bearer = m[1]
			}

			payload, err := svc.Authorize(r.Context(), SessionFrom(r.Context()), bearer)
			if err != nil {
				apierrors.WriteError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), ctxAuth, payload)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
