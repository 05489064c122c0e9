package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-session-auth/internal/models"
	"github.com/pribylovaa/go-session-auth/internal/session"
)

// bind — прямой Track в обход Issue, чтобы проверять guard изолированно.
func bind(t *testing.T, env *testEnv, uid uuid.UUID, sid, token string) {
	t.Helper()
	require.NoError(t, env.tracker.Track(context.Background(), uid, sid, token, time.Hour))
}

func TestAuthorize_Unauthenticated(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	// Nil-сессия и сессия без идентичности неразличимы для guard'а.
	_, err := env.svc.Authorize(ctx, nil, "some-token")
	require.ErrorIs(t, err, ErrUnauthenticated)

	anon := &session.Session{ID: session.NewID(), ExpiresAt: time.Now().Add(time.Hour)}
	_, err = env.svc.Authorize(ctx, anon, "some-token")
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAuthorize_EmptyBearer(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	sess := authedSession(uuid.New())

	_, err := env.svc.Authorize(context.Background(), sess, "")
	require.ErrorIs(t, err, ErrUnauthorized)
}

// TestAuthorize_TrackMissing — аутентифицированная сессия без единой
// привязки токена: рассинхрон, внутренняя ошибка, не пользовательская.
func TestAuthorize_TrackMissing(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	sess := authedSession(uuid.New())

	_, err := env.svc.Authorize(context.Background(), sess, "whatever")
	require.ErrorIs(t, err, ErrTrackDesync)
}

// TestAuthorize_ForeignToken — валидный токен того же пользователя, но
// привязанный к другой сессии, отклоняется как возможная компрометация.
func TestAuthorize_ForeignToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	uid := uuid.New()
	sess := authedSession(uid)

	bound, err := env.codec.Sign(uid, "web", models.DeviceMeta{}, time.Hour)
	require.NoError(t, err)
	foreign, err := env.codec.Sign(uid, "web", models.DeviceMeta{DeviceName: "other"}, time.Hour)
	require.NoError(t, err)

	bind(t, env, uid, sess.ID, bound)

	_, err = env.svc.Authorize(ctx, sess, foreign)
	require.ErrorIs(t, err, ErrTokenCompromised)
}

// TestAuthorize_StaleTokenAfterRefresh — после перевыпуска токена старый
// токен больше не привязан к сессии и отклоняется.
func TestAuthorize_StaleTokenAfterRefresh(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	uid := uuid.New()
	sess := authedSession(uid)

	// Разный TTL гарантирует разные exp и, значит, разные токены,
	// даже если оба выпущены в одну и ту же секунду.
	old, err := env.codec.Sign(uid, "web", models.DeviceMeta{}, time.Hour)
	require.NoError(t, err)
	fresh, err := env.codec.Sign(uid, "web", models.DeviceMeta{}, 2*time.Hour)
	require.NoError(t, err)
	require.NotEqual(t, old, fresh)

	bind(t, env, uid, sess.ID, old)
	bind(t, env, uid, sess.ID, fresh) // перезапись привязки

	_, err = env.svc.Authorize(ctx, sess, old)
	require.ErrorIs(t, err, ErrTokenCompromised)

	payload, err := env.svc.Authorize(ctx, sess, fresh)
	require.NoError(t, err)
	require.Equal(t, uid, payload.ID)
}

func TestAuthorize_CacheMiss_VerifiesAndCaches(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	uid := uuid.New()
	sess := authedSession(uid)
	meta := models.DeviceMeta{DeviceName: "laptop", Locale: "en"}

	signed, err := env.codec.Sign(uid, "web", meta, time.Hour)
	require.NoError(t, err)
	bind(t, env, uid, sess.ID, signed)

	payload, err := env.svc.Authorize(ctx, sess, signed)
	require.NoError(t, err)
	require.Equal(t, uid, payload.ID)
	require.Equal(t, "web", payload.ClientID)
	require.Equal(t, meta, payload.Meta)
	require.False(t, payload.LastAccessed.IsZero())

	// Запись появилась в decoded-кэше.
	var cached models.AuthPayload
	ok, err := env.cache.GetJSON(ctx, decodedKey(signed), &cached)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uid, cached.ID)
}

// TestAuthorize_CacheHit_SlidesLastAccessed — повторная авторизация берёт
// payload из кэша и сдвигает lastAccessed вперёд.
func TestAuthorize_CacheHit_SlidesLastAccessed(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	uid := uuid.New()
	sess := authedSession(uid)

	signed, err := env.codec.Sign(uid, "web", models.DeviceMeta{}, time.Hour)
	require.NoError(t, err)
	bind(t, env, uid, sess.ID, signed)

	first, err := env.svc.Authorize(ctx, sess, signed)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	second, err := env.svc.Authorize(ctx, sess, signed)
	require.NoError(t, err)
	require.True(t, second.LastAccessed.After(first.LastAccessed))
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, first.ExpiresAt, second.ExpiresAt)
}

func TestAuthorize_ExpiredToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	uid := uuid.New()
	sess := authedSession(uid)

	expired, err := env.codec.Sign(uid, "web", models.DeviceMeta{}, -time.Minute)
	require.NoError(t, err)
	bind(t, env, uid, sess.ID, expired)

	_, err = env.svc.Authorize(ctx, sess, expired)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestAuthorize_InvalidToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	uid := uuid.New()
	sess := authedSession(uid)

	bind(t, env, uid, sess.ID, "mangled-token")

	_, err := env.svc.Authorize(ctx, sess, "mangled-token")
	require.ErrorIs(t, err, ErrTokenInvalid)
}

// TestAuthorize_IdentityMismatch — payload токена принадлежит не тому
// пользователю, что прикреплён к сессии: неоднозначная авторизация.
func TestAuthorize_IdentityMismatch(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	uid := uuid.New()
	sess := authedSession(uid)

	stranger, err := env.codec.Sign(uuid.New(), "web", models.DeviceMeta{}, time.Hour)
	require.NoError(t, err)
	bind(t, env, uid, sess.ID, stranger)

	_, err = env.svc.Authorize(ctx, sess, stranger)
	require.ErrorIs(t, err, ErrNonDeterministicAuth)
}

// TestAuthorize_CorruptedCacheIdentity — порча decoded-кэша (payload другого
// пользователя под ключом токена) не проходит сверку идентичности.
func TestAuthorize_CorruptedCacheIdentity(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	uid := uuid.New()
	sess := authedSession(uid)

	signed, err := env.codec.Sign(uid, "web", models.DeviceMeta{}, time.Hour)
	require.NoError(t, err)
	bind(t, env, uid, sess.ID, signed)

	forged := models.AuthPayload{
		ID:        uuid.New(),
		ClientID:  "web",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, env.cache.SetJSON(ctx, decodedKey(signed), &forged, time.Hour))

	_, err = env.svc.Authorize(ctx, sess, signed)
	require.ErrorIs(t, err, ErrNonDeterministicAuth)
}

// TestAuthorize_CachedPayloadPastExpiry — запись кэша с истёкшим exp (часы
// сдвинулись, TTL задержался) не авторизует запрос.
func TestAuthorize_CachedPayloadPastExpiry(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	uid := uuid.New()
	sess := authedSession(uid)

	signed, err := env.codec.Sign(uid, "web", models.DeviceMeta{}, time.Hour)
	require.NoError(t, err)
	bind(t, env, uid, sess.ID, signed)

	stale := models.AuthPayload{
		ID:        uid,
		ClientID:  "web",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, env.cache.SetJSON(ctx, decodedKey(signed), &stale, time.Hour))

	_, err = env.svc.Authorize(ctx, sess, signed)
	require.ErrorIs(t, err, ErrTokenExpired)
}
