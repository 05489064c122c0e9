package service

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-session-auth/internal/cache"
	"github.com/pribylovaa/go-session-auth/internal/config"
	"github.com/pribylovaa/go-session-auth/internal/models"
	"github.com/pribylovaa/go-session-auth/internal/session"
	"github.com/pribylovaa/go-session-auth/internal/token"
	"github.com/pribylovaa/go-session-auth/internal/track"
	"github.com/pribylovaa/go-session-auth/mocks"
)

// Общая обвязка тестов сервиса: in-memory кэш с настоящими Tracker и Codec
// (семантика keyspace'ов и подписи — предмет проверки, их не мокаем),
// хранилище сессий и аккаунты — gomock.

func testAuthCfg(t *testing.T) config.AuthConfig {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	privPEM := string(pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}))

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	pubPEM := string(pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: pubDER,
	}))

	return config.AuthConfig{
		PrivateKeyPEM: privPEM,
		PublicKeyPEM:  pubPEM,
		TokenTTL:      time.Hour,
		Issuer:        "session-auth",
	}
}

type testEnv struct {
	svc      *Service
	cache    *cache.Memory
	tracker  *track.Tracker
	codec    *token.Codec
	sessions *mocks.MockStore
	accounts *mocks.MockAccounts
	cfg      config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	cfg := config.Config{
		Auth:    testAuthCfg(t),
		Session: config.SessionConfig{CookieName: "sid", TTL: 168 * time.Hour},
	}

	codec, err := token.New(cfg.Auth)
	require.NoError(t, err)

	mem := cache.NewMemory()
	tracker := track.New(mem)
	sessions := mocks.NewMockStore(ctrl)
	accounts := mocks.NewMockAccounts(ctrl)

	return &testEnv{
		svc:      New(mem, tracker, codec, sessions, accounts, cfg),
		cache:    mem,
		tracker:  tracker,
		codec:    codec,
		sessions: sessions,
		accounts: accounts,
		cfg:      cfg,
	}
}

// authedSession — сессия с прикреплённой идентичностью.
func authedSession(id uuid.UUID) *session.Session {
	return &session.Session{
		ID: session.NewID(),
		Account: &models.SessionAccount{
			ID:       id,
			ClientID: "web",
			Email:    "user@example.com",
			Meta:     models.DeviceMeta{DeviceName: "laptop", Locale: "en"},
		},
		ExpiresAt: time.Now().Add(168 * time.Hour),
	}
}
