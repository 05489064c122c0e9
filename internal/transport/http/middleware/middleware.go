package middleware

import (
	"context"
	"net/http"

	"github.com/pribylovaa/go-session-auth/internal/models"
	"github.com/pribylovaa/go-session-auth/internal/session"
)

// Middleware — стандартный net/http мидлвар.
type Middleware func(http.Handler) http.Handler

type ctxKey int

const (
	ctxRequestID ctxKey = iota
	ctxSession
	ctxAuth
)

// SessionFrom достаёт сессию текущего запроса из контекста (nil, если
// запрос пришёл без валидной cookie).
func SessionFrom(ctx context.Context) *session.Session {
	if s, ok := ctx.Value(ctxSession).(*session.Session); ok {
		return s
	}

	return nil
}

// AuthFrom достаёт авторизованный payload из контекста (nil до прохождения guard'а).
func AuthFrom(ctx context.Context) *models.AuthPayload {
	if a, ok := ctx.Value(ctxAuth).(*models.AuthPayload); ok {
		return a
	}

	return nil
}

// RequestIDFrom достаёт request id из контекста.
func RequestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(ctxRequestID).(string); ok {
		return id
	}

	return ""
}

// statusWriter оборачивает ResponseWriter, чтобы перехватить статус и размер.
type statusWriter struct {
	http.ResponseWriter
	status int
	count  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}

	count, err := w.ResponseWriter.Write(p)
	w.count += count
	return count, err
}

func newStatusWriter(w http.ResponseWriter) *statusWriter {
	return &statusWriter{ResponseWriter: w}
}
