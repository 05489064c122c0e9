// session описывает серверную сессию и контракт её хранилища.
//
// Ядро протокола трекинга видит хранилище сессий как внешнего коллаборатора:
// create/read/destroy по id плюс прикрепление снимка идентичности.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-session-auth/internal/models"
)

// ErrNotFound — сессия не найдена (или истекла).
var ErrNotFound = errors.New("session not found")

// Session — серверная сессия: непрозрачный id, абсолютный срок жизни cookie
// и снимок идентичности, прикрепляемый при входе.
type Session struct {
	ID        string                 `json:"id"`
	Account   *models.SessionAccount `json:"account,omitempty"`
	ExpiresAt time.Time              `json:"expiresAt"`
}

// Authenticated сообщает, прикреплена ли к сессии идентичность.
func (s *Session) Authenticated() bool {
	return s != nil && s.Account != nil
}

// NewID генерирует коллизионно-устойчивый идентификатор сессии.
func NewID() string {
	return uuid.NewString()
}

// Store — контракт хранилища сессий.
type Store interface {
	// Create сохраняет новую сессию.
	Create(ctx context.Context, sess *Session) error
	// Read возвращает сессию по id (ErrNotFound, если записи нет).
	Read(ctx context.Context, id string) (*Session, error)
	// Attach прикрепляет снимок идентичности к существующей сессии,
	// сохраняя её срок жизни.
	Attach(ctx context.Context, id string, account *models.SessionAccount) error
	// Destroy удаляет сессию; отсутствие записи ошибкой не считается.
	Destroy(ctx context.Context, id string) error
}
