// errors стандартизирует ответы об ошибках HTTP-слоя.
// На вход принимает ошибку доменного слоя (сентинелы пакета service),
// а на выход даёт:
//   - корректный HTTP-статус;
//   - стабильный машиночитаемый код;
//   - краткое безопасное message без утечки деталей.
//
// Принцип отсутствия оракула: невалидная подпись и несовпадение членства
// отдаются одним кодом "forbidden" с одним сообщением — клиент не должен
// различать, какая именно проверка не прошла.
package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pribylovaa/go-session-auth/internal/accounts"
	"github.com/pribylovaa/go-session-auth/internal/service"
	"github.com/pribylovaa/go-session-auth/internal/session"
)

// APIError — единый формат ошибки для фронта.
// Code — короткий стабильный код для машиночитаемой обработки.
// Message — безопасное человекочитаемое описание.
// RequestID — прокидывается из X-Request-Id, если есть (для трассировки).
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует доменную ошибку в HTTP-статус и унифицированный ответ.
//
// Маппинг:
//   - ErrUnauthenticated / session.ErrNotFound -> 401 "unauthenticated";
//   - ErrUnauthorized -> 401 "unauthorized";
//   - ErrTokenCompromised / ErrTokenInvalid -> 403 "forbidden" (одно сообщение);
//   - ErrUnassociatedSession -> 403 "forbidden";
//   - ErrTokenExpired -> 403 "token_expired";
//   - ErrNonDeterministicAuth -> 403 "non_deterministic_authorization";
//   - accounts.ErrInvalidCredentials -> 400 "bad_user_input";
//   - прочее (включая ErrTrackDesync) -> 500 "internal" без деталей.
func ToHTTP(err error) (int, ErrorResponse) {
	status, code, msg := base(err)
	return status, ErrorResponse{Error: APIError{Code: code, Message: msg}}
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func base(err error) (int, string, string) {
	switch {
	case err == nil:
		// Программная ошибка вызова: не маскируем баг успешным ответом.
		return http.StatusInternalServerError, "internal", "internal error"
	case errors.Is(err, service.ErrUnauthenticated), errors.Is(err, session.ErrNotFound):
		return http.StatusUnauthorized, "unauthenticated", "you are unauthenticated"
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized", "you are unauthorized to make this request"
	case errors.Is(err, service.ErrTokenExpired):
		return http.StatusForbidden, "token_expired", "authorization token expired"
	case errors.Is(err, service.ErrTokenCompromised), errors.Is(err, service.ErrTokenInvalid):
		return http.StatusForbidden, "forbidden", "authorization token could be valid but possibly compromised or ambiguous"
	case errors.Is(err, service.ErrUnassociatedSession):
		return http.StatusForbidden, "forbidden", "you can not revoke a session you are not associated with"
	case errors.Is(err, service.ErrNonDeterministicAuth):
		return http.StatusForbidden, "non_deterministic_authorization", "authorization can not be unambiguously distinguished"
	case errors.Is(err, accounts.ErrInvalidCredentials):
		return http.StatusBadRequest, "bad_user_input", "incorrect credentials"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}
