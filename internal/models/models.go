// models содержит доменные типы сервиса: снимок идентичности пользователя,
// клиентский и серверный payload'ы токена и метаданные устройства.
//
// Клиентский payload (подписывается и уходит наружу) намеренно не содержит
// email; полный снимок с email живёт только в серверной сессии.
package models

import (
	"time"

	"github.com/google/uuid"
)

// DeviceMeta — метаданные устройства, зафиксированные в момент выпуска токена.
type DeviceMeta struct {
	DeviceName string `json:"deviceName"`
	Locale     string `json:"locale"`
}

// Identity — аутентифицированная идентичность, которую сервис получает
// от коллаборатора accounts при входе. Ядро не владеет аккаунтами.
type Identity struct {
	ID       uuid.UUID
	ClientID string
	Email    string
}

// SessionAccount — серверный payload, прикрепляемый к сессии при выпуске
// токена. В отличие от клиентского payload'a содержит email.
type SessionAccount struct {
	ID       uuid.UUID  `json:"id"`
	ClientID string     `json:"acid"`
	Email    string     `json:"email"`
	Meta     DeviceMeta `json:"meta"`
}

// AuthPayload — проверенный payload токена: результат верификации подписи
// либо запись decoded-token кэша. Прикрепляется к контексту запроса
// после успешной авторизации.
type AuthPayload struct {
	ID           uuid.UUID  `json:"id"`
	ClientID     string     `json:"acid"`
	Meta         DeviceMeta `json:"meta"`
	LastAccessed time.Time  `json:"lastAccessed"`
	IssuedAt     time.Time  `json:"iat"`
	ExpiresAt    time.Time  `json:"exp"`
}

// SessionInfo — элемент обзора активных сессий пользователя.
// Obsolete=true означает, что подпись токена истекла и данные получены
// best-effort декодированием без верификации.
type SessionInfo struct {
	SessionID    string     `json:"sid"`
	ClientID     string     `json:"acid"`
	Meta         DeviceMeta `json:"meta"`
	LastAccessed time.Time  `json:"lastAccessed"`
	IssuedAt     time.Time  `json:"iat"`
	ExpiresAt    time.Time  `json:"exp"`
	Obsolete     bool       `json:"obsolete"`
}
