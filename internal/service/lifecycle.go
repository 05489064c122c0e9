package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-session-auth/internal/models"
	"github.com/pribylovaa/go-session-auth/internal/pkg/log"
	"github.com/pribylovaa/go-session-auth/internal/pkg/redact"
	"github.com/pribylovaa/go-session-auth/internal/session"
	"github.com/pribylovaa/go-session-auth/internal/token"
)

// RevokeResult — мягкий результат операций revoke/reset: best-effort очистка,
// а не security-гейт, поэтому частичный отказ внешних систем отдаётся как
// {success:false}, а не ошибкой.
type RevokeResult struct {
	SessionID string `json:"sid,omitempty"`
	Success   bool   `json:"success"`
	Message   string `json:"message"`
}

// Issue выпускает новый токен для сессии и записывает привязку.
//
// Порядок:
//  1. если к сессии уже прикреплена идентичность — сначала снять предыдущую
//     привязку и её запись в decoded-кэше (не более одного живого токена на
//     сессию обеспечивается на стороне записи, а не только чтения; сама
//     запись по ключу перезаписывающая, поэтому для той же сессии двух
//     привязок не бывает и без этого шага — он чистит decoded-кэш);
//  2. подписать клиентский payload (без email);
//  3. прикрепить серверный payload (с email) к сессии;
//  4. записать привязку с TTL = абсолютный срок cookie − сейчас.
func (s *Service) Issue(ctx context.Context, sess *session.Session, identity models.Identity, meta models.DeviceMeta) (string, error) {
	const op = "service.lifecycle.Issue"

	lg := log.From(ctx)

	if sess == nil {
		return "", fmt.Errorf("%s: nil session", op)
	}

	if sess.Authenticated() {
		if _, err := s.unassociate(ctx, sess.Account.ID, sess.ID); err != nil {
			// Best-effort: старая привязка истечёт по TTL; новая запись её
			// всё равно перезапишет.
			lg.Warn("previous_token_unassociate_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
		}
	}

	signed, err := s.codec.Sign(identity.ID, identity.ClientID, meta, s.cfg.Auth.TokenTTL)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	account := &models.SessionAccount{
		ID:       identity.ID,
		ClientID: identity.ClientID,
		Email:    identity.Email,
		Meta:     meta,
	}

	if err := s.sessions.Attach(ctx, sess.ID, account); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	sess.Account = account

	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return "", fmt.Errorf("%s: session cookie already expired", op)
	}

	if err := s.tracker.Track(ctx, identity.ID, sess.ID, signed, ttl); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("token_issued",
		slog.String("op", op),
		slog.String("sid", redact.SessionID(sess.ID)),
		slog.String("email", redact.Email(identity.Email)),
	)

	return signed, nil
}

// Revoke отзывает одну сессию пользователя и снимает связанные с ней записи.
//
// Идемпотентность: если привязок у пользователя нет вовсе — это успех
// "нечего отзывать". Попытка отозвать чужую/непривязанную сессию —
// ErrUnassociatedSession. Три удаления (запись сессии, decoded-кэш, привязка)
// независимы и не транзакционны; частичный отказ -> {success:false}.
func (s *Service) Revoke(ctx context.Context, userID uuid.UUID, sid string) (*RevokeResult, error) {
	const op = "service.lifecycle.Revoke"

	lg := log.From(ctx)

	tracked, err := s.tracker.AllForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if tracked == nil {
		return &RevokeResult{Success: true, Message: "no sessions to revoke"}, nil
	}

	bound, ok := tracked[sid]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrUnassociatedSession)
	}

	var failed bool

	if err := s.sessions.Destroy(ctx, sid); err != nil && !errors.Is(err, session.ErrNotFound) {
		lg.Error("revoke_session_destroy_failed", slog.String("op", op), slog.String("err", err.Error()))
		failed = true
	}

	if _, err := s.cache.Delete(ctx, decodedKey(bound)); err != nil {
		lg.Error("revoke_decoded_delete_failed", slog.String("op", op), slog.String("err", err.Error()))
		failed = true
	}

	if _, err := s.tracker.Untrack(ctx, userID, sid); err != nil {
		lg.Error("revoke_untrack_failed", slog.String("op", op), slog.String("err", err.Error()))
		failed = true
	}

	if failed {
		return &RevokeResult{
			SessionID: sid,
			Success:   false,
			Message:   fmt.Sprintf("unable to revoke session %q at the moment", sid),
		}, nil
	}

	lg.Info("session_revoked", slog.String("op", op), slog.String("sid", redact.SessionID(sid)))

	return &RevokeResult{SessionID: sid, Success: true, Message: "session revoked successfully"}, nil
}

// Reset снимает привязку текущей сессии и уничтожает саму сессию, так что
// последующие запросы по этому id не имеют прикреплённой идентичности.
func (s *Service) Reset(ctx context.Context, userID uuid.UUID, sid string) (*RevokeResult, error) {
	const op = "service.lifecycle.Reset"

	lg := log.From(ctx)

	if _, err := s.unassociate(ctx, userID, sid); err != nil {
		lg.Error("reset_unassociate_failed", slog.String("op", op), slog.String("err", err.Error()))
		return &RevokeResult{Success: false, Message: "unable to reset session at the moment"}, nil
	}

	if err := s.sessions.Destroy(ctx, sid); err != nil && !errors.Is(err, session.ErrNotFound) {
		lg.Error("reset_session_destroy_failed", slog.String("op", op), slog.String("err", err.Error()))
		return &RevokeResult{Success: false, Message: "unable to reset session at the moment"}, nil
	}

	return &RevokeResult{Success: true, Message: "current session reset successfully"}, nil
}

// Sessions возвращает обзор живых сессий пользователя по всем устройствам.
// Истёкшие токены отдаются с obsolete=true (данные best-effort декодирования
// без верификации); невалидный токен не должен был попасть в трекинг вовсе —
// его привязка снимается на месте.
func (s *Service) Sessions(ctx context.Context, userID uuid.UUID) ([]models.SessionInfo, error) {
	const op = "service.lifecycle.Sessions"

	lg := log.From(ctx)

	tracked, err := s.tracker.AllForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	infos := make([]models.SessionInfo, 0, len(tracked))

	for sid, bound := range tracked {
		payload, err := s.codec.Verify(bound)
		if err == nil {
			// lastAccessed живёт только в decoded-кэше; подпись его не несёт.
			var cached models.AuthPayload
			if ok, cerr := s.cache.GetJSON(ctx, decodedKey(bound), &cached); cerr == nil && ok {
				payload.LastAccessed = cached.LastAccessed
			}

			infos = append(infos, sessionInfo(sid, payload, false))
			continue
		}

		if errors.Is(err, token.ErrTokenExpired) {
			decoded, derr := s.codec.Decode(bound)
			if derr == nil {
				infos = append(infos, sessionInfo(sid, decoded, true))
				continue
			}
		}

		// Невалидный токен в трекинге — снимаем привязку.
		lg.Warn("invalid_token_in_track", slog.String("op", op), slog.String("sid", redact.SessionID(sid)))
		if _, uerr := s.tracker.Untrack(ctx, userID, sid); uerr != nil {
			lg.Error("untrack_invalid_failed", slog.String("op", op), slog.String("err", uerr.Error()))
		}
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].SessionID < infos[j].SessionID })

	return infos, nil
}

// unassociate снимает привязку сессии и её запись в decoded-кэше.
// Возвращает false, если снимать было нечего.
func (s *Service) unassociate(ctx context.Context, userID uuid.UUID, sid string) (bool, error) {
	const op = "service.lifecycle.unassociate"

	tracked, err := s.tracker.AllForUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	bound, ok := tracked[sid]
	if !ok {
		return false, nil
	}

	if _, err := s.cache.Delete(ctx, decodedKey(bound)); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.tracker.Untrack(ctx, userID, sid); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return true, nil
}

func sessionInfo(sid string, p *models.AuthPayload, obsolete bool) models.SessionInfo {
	return models.SessionInfo{
		SessionID:    sid,
		ClientID:     p.ClientID,
		Meta:         p.Meta,
		LastAccessed: p.LastAccessed,
		IssuedAt:     p.IssuedAt,
		ExpiresAt:    p.ExpiresAt,
		Obsolete:     obsolete,
	}
}
