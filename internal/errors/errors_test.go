package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-session-auth/internal/accounts"
	"github.com/pribylovaa/go-session-auth/internal/service"
	"github.com/pribylovaa/go-session-auth/internal/session"
)

// TestToHTTP_Mapping — табличная проверка маппинга доменных ошибок на
// статус/код. Обёрнутые ошибки распознаются через errors.Is.
func TestToHTTP_Mapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "unauthenticated", err: service.ErrUnauthenticated, wantStatus: http.StatusUnauthorized, wantCode: "unauthenticated"},
		{name: "session_not_found", err: session.ErrNotFound, wantStatus: http.StatusUnauthorized, wantCode: "unauthenticated"},
		{name: "unauthorized", err: service.ErrUnauthorized, wantStatus: http.StatusUnauthorized, wantCode: "unauthorized"},
		{name: "token_expired", err: service.ErrTokenExpired, wantStatus: http.StatusForbidden, wantCode: "token_expired"},
		{name: "token_compromised", err: service.ErrTokenCompromised, wantStatus: http.StatusForbidden, wantCode: "forbidden"},
		{name: "token_invalid", err: service.ErrTokenInvalid, wantStatus: http.StatusForbidden, wantCode: "forbidden"},
		{name: "unassociated_session", err: service.ErrUnassociatedSession, wantStatus: http.StatusForbidden, wantCode: "forbidden"},
		{name: "non_deterministic", err: service.ErrNonDeterministicAuth, wantStatus: http.StatusForbidden, wantCode: "non_deterministic_authorization"},
		{name: "invalid_credentials", err: accounts.ErrInvalidCredentials, wantStatus: http.StatusBadRequest, wantCode: "bad_user_input"},
		{name: "track_desync_is_internal", err: service.ErrTrackDesync, wantStatus: http.StatusInternalServerError, wantCode: "internal"},
		{name: "unknown", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantCode: "internal"},
		{name: "nil", err: nil, wantStatus: http.StatusInternalServerError, wantCode: "internal"},
		{name: "wrapped", err: fmt.Errorf("service.guard.Authorize: %w", service.ErrTokenExpired), wantStatus: http.StatusForbidden, wantCode: "token_expired"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			status, resp := ToHTTP(tt.err)
			require.Equal(t, tt.wantStatus, status)
			require.Equal(t, tt.wantCode, resp.Error.Code)
			require.NotEmpty(t, resp.Error.Message)
		})
	}
}

// TestNoOracle_CompromisedVsInvalid — компрометация и невалидная подпись
// наружу неразличимы: один статус, один код, одно сообщение.
func TestNoOracle_CompromisedVsInvalid(t *testing.T) {
	t.Parallel()

	s1, r1 := ToHTTP(service.ErrTokenCompromised)
	s2, r2 := ToHTTP(service.ErrTokenInvalid)

	require.Equal(t, s1, s2)
	require.Equal(t, r1.Error.Code, r2.Error.Code)
	require.Equal(t, r1.Error.Message, r2.Error.Message)
}

func TestWriteError_AddsRequestID(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-Id", "req-123")
	w := httptest.NewRecorder()

	WriteError(w, r, service.ErrUnauthorized)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "unauthorized", resp.Error.Code)
	require.Equal(t, "req-123", resp.Error.RequestID)
}

func TestWriteError_NoRequestID(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	WriteError(w, r, service.ErrUnauthenticated)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Empty(t, resp.Error.RequestID)
}
