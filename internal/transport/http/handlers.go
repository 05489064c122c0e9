// transport/http содержит REST-слой сервиса: маппинг запросов на операции
// ядра (service) и доменных ошибок на унифицированные HTTP-ответы.
// Вся логика протокола трекинга находится в пакете service.
package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pribylovaa/go-session-auth/internal/config"
	apierrors "github.com/pribylovaa/go-session-auth/internal/errors"
	"github.com/pribylovaa/go-session-auth/internal/models"
	"github.com/pribylovaa/go-session-auth/internal/service"
	"github.com/pribylovaa/go-session-auth/internal/session"
	"github.com/pribylovaa/go-session-auth/internal/transport/http/middleware"
)

// Handlers — зависимости HTTP-хендлеров.
type Handlers struct {
	svc      *service.Service
	sessions session.Store
	cfg      *config.Config
}

// NewHandlers создаёт набор хендлеров поверх сервисного слоя.
func NewHandlers(svc *service.Service, sessions session.Store, cfg *config.Config) *Handlers {
	return &Handlers{svc: svc, sessions: sessions, cfg: cfg}
}

type credentialRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type revokeRequest struct {
	SessionID string `json:"sid"`
}

// Login аутентифицирует по email/паролю, создаёт сессию (если запрос пришёл
// без неё) и выпускает токен. Повторный вход в рамках живой сессии сначала
// снимает предыдущую привязку (внутри Issue).
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, apierrors.ErrorResponse{
			Error: apierrors.APIError{Code: "bad_user_input", Message: "email and password are required"},
		})
		return
	}

	identity, err := h.svc.Accounts().Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	sess := middleware.SessionFrom(r.Context())
	if sess == nil {
		sess = &session.Session{
			ID:        session.NewID(),
			ExpiresAt: time.Now().UTC().Add(h.cfg.Session.TTL),
		}

		if err := h.sessions.Create(r.Context(), sess); err != nil {
			apierrors.WriteError(w, r, err)
			return
		}

		h.setSessionCookie(w, sess)
	}

	signed, err := h.svc.Issue(r.Context(), sess, *identity, h.deviceMeta(r))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":      identity.ID,
		"token":   signed,
		"success": true,
		"message": "logged in successfully",
	})
}

// Refresh выпускает новый токен для текущей аутентифицированной сессии.
// Предыдущая привязка снимается на стороне записи (внутри Issue).
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFrom(r.Context())
	if !sess.Authenticated() {
		apierrors.WriteError(w, r, service.ErrUnauthenticated)
		return
	}

	identity := models.Identity{
		ID:       sess.Account.ID,
		ClientID: sess.Account.ClientID,
		Email:    sess.Account.Email,
	}

	signed, err := h.svc.Issue(r.Context(), sess, identity, h.deviceMeta(r))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token":   signed,
		"success": true,
		"message": "refreshed successfully",
	})
}

// Sessions возвращает обзор живых сессий пользователя по всем устройствам.
func (h *Handlers) Sessions(w http.ResponseWriter, r *http.Request) {
	auth := middleware.AuthFrom(r.Context())
	if auth == nil {
		apierrors.WriteError(w, r, service.ErrUnauthenticated)
		return
	}

	infos, err := h.svc.Sessions(r.Context(), auth.ID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"sessions": infos})
}

// Revoke отзывает указанную сессию вызывающего пользователя.
func (h *Handlers) Revoke(w http.ResponseWriter, r *http.Request) {
	auth := middleware.AuthFrom(r.Context())
	if auth == nil {
		apierrors.WriteError(w, r, service.ErrUnauthenticated)
		return
	}

	var req revokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, apierrors.ErrorResponse{
			Error: apierrors.APIError{Code: "bad_user_input", Message: "sid is required"},
		})
		return
	}

	result, err := h.svc.Revoke(r.Context(), auth.ID, req.SessionID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Reset снимает привязку текущей сессии и уничтожает её; cookie гасится.
func (h *Handlers) Reset(w http.ResponseWriter, r *http.Request) {
	auth := middleware.AuthFrom(r.Context())
	sess := middleware.SessionFrom(r.Context())
	if auth == nil || sess == nil {
		apierrors.WriteError(w, r, service.ErrUnauthenticated)
		return
	}

	result, err := h.svc.Reset(r.Context(), auth.ID, sess.ID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, result)
}

// deviceMeta собирает метаданные устройства из запроса.
func (h *Handlers) deviceMeta(r *http.Request) models.DeviceMeta {
	return models.DeviceMeta{
		DeviceName: r.URL.Query().Get("device_name"),
		Locale:     "en",
	}
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, sess *session.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.Session.CookieName,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cfg.Env == "prod",
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.Session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.Env == "prod",
		SameSite: http.SameSiteStrictMode,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
