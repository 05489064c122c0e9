// accounts — коллаборатор проверки учётных данных. CRUD аккаунтов и политика
// паролей остаются вне ядра: сервис получает уже аутентифицированную
// идентичность (userId + email/метаданные) на входе в выпуск токена.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/pribylovaa/go-session-auth/internal/models"
)

// ErrInvalidCredentials — пара email/пароль неверна или аккаунт не найден.
// Наружу оба случая неразличимы.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Accounts — контракт проверки учётных данных.
type Accounts interface {
	// Authenticate проверяет пару email/пароль и возвращает идентичность.
	Authenticate(ctx context.Context, email, password string) (*models.Identity, error)
}

// Postgres — реализация Accounts поверх pgx-пула.
type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres создаёт подключение к базе аккаунтов.
func NewPostgres(ctx context.Context, dbURL string) (*Postgres, error) {
	const op = "accounts.NewPostgres"

	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Postgres{db: db}, nil
}

// Close закрывает пул соединений.
func (p *Postgres) Close() {
	p.db.Close()
}

var _ Accounts = (*Postgres)(nil)

// Authenticate находит аккаунт по email и сверяет пароль с bcrypt-хэшем.
func (p *Postgres) Authenticate(ctx context.Context, email, password string) (*models.Identity, error) {
	const op = "accounts.Authenticate"

	const query = `
		SELECT id, client_id, email, password_hash
		FROM accounts
		WHERE email = $1;
	`

	var (
		id       uuid.UUID
		clientID string
		normed   string
		hash     string
	)

	norm := strings.ToLower(strings.TrimSpace(email))

	err := p.db.QueryRow(ctx, query, norm).Scan(&id, &clientID, &normed, &hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	return &models.Identity{ID: id, ClientID: clientID, Email: normed}, nil
}
