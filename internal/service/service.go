// service содержит ядро протокола трекинга сессия→токен:
// авторизационную машину состояний (guard.go) и координатор жизненного
// цикла пары (токен, сессия) (lifecycle.go).
//
// Основные аспекты:
//   - Service не хранит состояние запроса; экземпляр безопасен для
//     конкурентного использования — вся координация идёт через внешний кэш,
//     атомарный на уровне одиночного ключа.
//   - Мультиключевые последовательности (track + decoded-cache, трёхсторонее
//     удаление в Revoke) НЕ транзакционны. Гонка или падение между шагами
//     оставляет устаревшую запись, что лишь ненадолго расширяет окно
//     авторизации (отозванный токен может прожить до конца TTL decoded-кэша),
//     но никогда не сужает его. Это принятый компромисс слабой
//     консистентности; распределённые блокировки не используются намеренно.
//   - Ошибки маппятся транспортом на HTTP-статусы (см. комментарии ниже).
package service

import (
	"errors"

	"github.com/pribylovaa/go-session-auth/internal/accounts"
	"github.com/pribylovaa/go-session-auth/internal/cache"
	"github.com/pribylovaa/go-session-auth/internal/config"
	"github.com/pribylovaa/go-session-auth/internal/session"
	"github.com/pribylovaa/go-session-auth/internal/token"
	"github.com/pribylovaa/go-session-auth/internal/track"
)

var (
	// ErrUnauthenticated — запрос без сессии или без прикреплённой идентичности.
	// Транспорт: 401, код "unauthenticated".
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrUnauthorized — запрос без корректного bearer-заголовка.
	// Транспорт: 401, код "unauthorized".
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTokenCompromised — предъявленный токен не входит в число привязанных
	// к сессии: кража токена, replay устаревшего или гонка с refresh'ем.
	// Все случаи консервативно запрещаются. Транспорт: 403, код "forbidden";
	// логируется как security-событие.
	ErrTokenCompromised = errors.New("token possibly compromised")

	// ErrTokenInvalid — подпись/формат токена не прошли верификацию.
	// Наружу неотличим от компрометации (тот же статус-класс), чтобы не
	// давать оракула о причине отказа. Транспорт: 403, код "forbidden".
	ErrTokenInvalid = errors.New("token invalid")

	// ErrTokenExpired — срок действия подписи истёк; клиент должен обновить
	// токен. Транспорт: 403, код "token_expired".
	ErrTokenExpired = errors.New("token expired")

	// ErrNonDeterministicAuth — идентичность payload'а не совпала с
	// идентичностью сессии. В корректной работе недостижимо: порча кэша или
	// атака. Транспорт: 403, код "non_deterministic_authorization";
	// логируется как аномалия.
	ErrNonDeterministicAuth = errors.New("authorization can not be unambiguously distinguished")

	// ErrTrackDesync — у аутентифицированной сессии нет ни одной привязки
	// токена: рассинхрон кэша и сессионного хранилища либо вмешательство
	// извне. Транспорт: 500, generic; логируется с высокой серьёзностью.
	ErrTrackDesync = errors.New("session-token record missing")

	// ErrUnassociatedSession — попытка отозвать сессию, не принадлежащую
	// вызывающему. Транспорт: 403, код "forbidden".
	ErrUnassociatedSession = errors.New("can not revoke an unassociated session")
)

// decodedPrefix — keyspace проверенных payload'ов (decoded-token кэш).
const decodedPrefix = "session:token-decoded:"

// decodedKey — ключ записи decoded-token кэша для конкретного токена.
func decodedKey(token string) string {
	return decodedPrefix + token
}

// Service — ядро сервиса: guard + координатор жизненного цикла.
type Service struct {
	cache    cache.Cache
	tracker  *track.Tracker
	codec    *token.Codec
	sessions session.Store
	accounts accounts.Accounts
	cfg      config.Config
}

// New создаёт новый экземпляр Service.
func New(c cache.Cache, tr *track.Tracker, codec *token.Codec, sessions session.Store, acc accounts.Accounts, cfg config.Config) *Service {
	return &Service{
		cache:    c,
		tracker:  tr,
		codec:    codec,
		sessions: sessions,
		accounts: acc,
		cfg:      cfg,
	}
}

// Accounts возвращает коллаборатора проверки учётных данных.
func (s *Service) Accounts() accounts.Accounts {
	return s.accounts
}
