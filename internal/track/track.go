// track владеет keyspace'ом session-track: привязкой (userID, sessionID)
// к текущему валидному токену сессии.
//
// Раскладка ключей: session:token-track:<userID>:<sessionID>.
// Паттерн "все сессии пользователя": session:token-track:<userID>:*.
// Паттерн "все владельцы сессии":    session:token-track:*:<sessionID>.
//
// Инвариант: не более одной записи на пару (userID, sessionID) — запись
// новой привязки для той же сессии перезаписывает старую (overwrite, не append).
package track

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-session-auth/internal/cache"
)

// TrackingPrefix — префикс keyspace'а привязок сессия→токен.
const TrackingPrefix = "session:token-track"

var (
	// ErrEmptySessionID — пустой идентификатор сессии.
	ErrEmptySessionID = errors.New("empty session id")
	// ErrEmptyToken — пустой токен.
	ErrEmptyToken = errors.New("empty token")
	// ErrNilUserID — нулевой идентификатор пользователя.
	ErrNilUserID = errors.New("nil user id")
)

// Tracker реализует операции над session-track keyspace'ом поверх Cache.
// Экземпляр безопасен для конкурентного использования: состояние целиком
// живёт во внешнем кэше, атомарность — на уровне одиночного ключа.
type Tracker struct {
	cache cache.Cache
}

// New создаёт Tracker поверх переданного кэша.
func New(c cache.Cache) *Tracker {
	return &Tracker{cache: c}
}

// Track записывает (или перезаписывает) привязку сессии к токену.
// TTL задаёт остаточное время жизни токена; перезапись по тому же ключу —
// штатный способ "переместить" токен на новую привязку.
func (t *Tracker) Track(ctx context.Context, userID uuid.UUID, sessionID, token string, ttl time.Duration) error {
	const op = "track.Track"

	if userID == uuid.Nil {
		return fmt.Errorf("%s: %w", op, ErrNilUserID)
	}
	if sessionID == "" {
		return fmt.Errorf("%s: %w", op, ErrEmptySessionID)
	}
	if token == "" {
		return fmt.Errorf("%s: %w", op, ErrEmptyToken)
	}

	if err := t.cache.Set(ctx, Key(userID, sessionID), token, ttl); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// AllForUser возвращает привязки всех сессий пользователя: sessionID → token.
// Ключи могут истечь между сканом и bulk-чтением — такие записи молча
// отбрасываются (benign race, а не ошибка). Если живых привязок нет,
// возвращается nil.
func (t *Tracker) AllForUser(ctx context.Context, userID uuid.UUID) (map[string]string, error) {
	const op = "track.AllForUser"

	if userID == uuid.Nil {
		return nil, fmt.Errorf("%s: %w", op, ErrNilUserID)
	}

	pattern := fmt.Sprintf("%s:%s:*", TrackingPrefix, userID)
	keys, err := t.cache.MatchKeys(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(keys) == 0 {
		return nil, nil
	}

	tokens, err := t.cache.GetMany(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := make(map[string]string, len(keys))
	for i, key := range keys {
		if tokens[i] == "" {
			continue
		}
		result[SessionIDFromKey(key)] = tokens[i]
	}

	if len(result) == 0 {
		return nil, nil
	}

	return result, nil
}

// TokensForSession возвращает токены, привязанные к сессии, по всем
// пользователям (используется, когда идентичность ещё не подтверждена).
// Больше одного токена теоретически невозможно (коллизия sessionID между
// пользователями) — вызывающий обязан трактовать это как неоднозначность.
func (t *Tracker) TokensForSession(ctx context.Context, sessionID string) ([]string, error) {
	const op = "track.TokensForSession"

	if sessionID == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptySessionID)
	}

	pattern := fmt.Sprintf("%s:*:%s", TrackingPrefix, sessionID)
	keys, err := t.cache.MatchKeys(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(keys) == 0 {
		return nil, nil
	}

	values, err := t.cache.GetMany(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	tokens := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			tokens = append(tokens, v)
		}
	}

	if len(tokens) == 0 {
		return nil, nil
	}

	return tokens, nil
}

// Untrack удаляет привязку сессии к токену; возвращает число удалённых (0 или 1).
func (t *Tracker) Untrack(ctx context.Context, userID uuid.UUID, sessionID string) (int64, error) {
	const op = "track.Untrack"

	if userID == uuid.Nil {
		return 0, fmt.Errorf("%s: %w", op, ErrNilUserID)
	}
	if sessionID == "" {
		return 0, fmt.Errorf("%s: %w", op, ErrEmptySessionID)
	}

	count, err := t.cache.Delete(ctx, Key(userID, sessionID))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return count, nil
}

// Key собирает ключ привязки для пары (userID, sessionID).
func Key(userID uuid.UUID, sessionID string) string {
	return fmt.Sprintf("%s:%s:%s", TrackingPrefix, userID, sessionID)
}

// SessionIDFromKey извлекает sessionID из ключа привязки.
// Ключ имеет вид "session:token-track:<userID>:<sessionID>" — sessionID
// находится в четвёртом сегменте.
func SessionIDFromKey(key string) string {
	parts := strings.SplitN(key, ":", 4)
	return parts[len(parts)-1]
}
