package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/pribylovaa/go-session-auth/internal/models"
	"github.com/pribylovaa/go-session-auth/internal/pkg/log"
	"github.com/pribylovaa/go-session-auth/internal/pkg/redact"
	"github.com/pribylovaa/go-session-auth/internal/session"
	"github.com/pribylovaa/go-session-auth/internal/token"
)

// Authorize — машина состояний авторизации запроса.
//
// Последовательность:
//  1. сессия без прикреплённой идентичности -> ErrUnauthenticated;
//  2. пустой bearer -> ErrUnauthorized;
//  3. у сессии нет привязанных токенов -> ErrTrackDesync (это баг или
//     вмешательство в кэш, не пользовательская ошибка);
//  4. предъявленный токен не среди привязанных -> ErrTokenCompromised;
//  5. decoded-token кэш: попадание использует payload без повторной
//     верификации подписи (доверие заякорено проверкой членства из шага 4
//     плюс исходной верификацией, породившей запись); промах верифицирует
//     подпись (истёкшая -> ErrTokenExpired, иная невалидность -> ErrTokenInvalid);
//  6. идентичность payload'а != идентичности сессии -> ErrNonDeterministicAuth;
//  7. обновить lastAccessed и переписать запись кэша с остаточным TTL токена.
//
// Ошибка самого кэша (таймаут, обрыв) — это "не знаю", а не "нет записи":
// она пробрасывается как внутренняя, не превращаясь в отказ авторизации.
func (s *Service) Authorize(ctx context.Context, sess *session.Session, bearer string) (*models.AuthPayload, error) {
	const op = "service.guard.Authorize"

	lg := log.From(ctx)

	if !sess.Authenticated() {
		lg.Info("api_access_unauthenticated", slog.String("op", op))
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}

	if bearer == "" {
		lg.Info("api_access_without_authorization", slog.String("op", op))
		return nil, fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}

	tracked, err := s.tracker.TokensForSession(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(tracked) == 0 {
		lg.Error("session_track_missing_while_authenticated",
			slog.String("op", op),
			slog.String("sid", redact.SessionID(sess.ID)),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrTrackDesync)
	}

	// Сессии разрешён ровно один живой токен; несовпадение — кража, replay
	// или гонка с refresh'ем. Отказываем до любой работы с подписью.
	if !slices.Contains(tracked, bearer) {
		lg.Warn("token_possibly_compromised",
			slog.String("op", op),
			slog.String("sid", redact.SessionID(sess.ID)),
			slog.String("token", redact.Token()),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrTokenCompromised)
	}

	var payload models.AuthPayload

	found, err := s.cache.GetJSON(ctx, decodedKey(bearer), &payload)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !found {
		lg.Debug("decoded_token_cache_miss", slog.String("op", op))

		verified, err := s.codec.Verify(bearer)
		if err != nil {
			if errors.Is(err, token.ErrTokenExpired) {
				return nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
			}

			return nil, fmt.Errorf("%s: %w", op, ErrTokenInvalid)
		}

		payload = *verified
	}

	if payload.ID != sess.Account.ID {
		lg.Error("non_deterministic_authorization",
			slog.String("op", op),
			slog.String("sid", redact.SessionID(sess.ID)),
			slog.String("payload_id", payload.ID.String()),
			slog.String("session_id_claim", sess.Account.ID.String()),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrNonDeterministicAuth)
	}

	now := time.Now().UTC()

	// Запись кэша не должна пережить подписанный exp; скользящее обновление
	// всегда остаётся внутри этой границы.
	ttl := payload.ExpiresAt.Sub(now)
	if ttl <= 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
	}

	payload.LastAccessed = now

	if err := s.cache.SetJSON(ctx, decodedKey(bearer), &payload, ttl); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &payload, nil
}
