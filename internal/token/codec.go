// token оборачивает подпись и верификацию клиентского payload'а (RS256).
// Кодек — чистая capability без состояния: ключи и issuer инжектируются
// при конструировании, глобальной конфигурации нет.
package token

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pribylovaa/go-session-auth/internal/config"
	"github.com/pribylovaa/go-session-auth/internal/models"
)

var (
	// ErrTokenExpired — подпись валидна, но срок действия токена истёк.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid — токен некорректен по формату/подписи/claims.
	ErrTokenInvalid = errors.New("token invalid")
)

// Codec подписывает и верифицирует клиентские payload'ы токенов.
type Codec struct {
	private *rsa.PrivateKey
	public  *rsa.PublicKey
	issuer  string
}

type claims struct {
	UserID   string            `json:"id"`
	ClientID string            `json:"acid"`
	Meta     models.DeviceMeta `json:"meta"`
	jwt.RegisteredClaims
}

// New создаёт кодек из PEM-ключей конфигурации.
func New(cfg config.AuthConfig) (*Codec, error) {
	const op = "token.New"

	private, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cfg.PrivateKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("%s: parse private key: %w", op, err)
	}

	public, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.PublicKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("%s: parse public key: %w", op, err)
	}

	return &Codec{private: private, public: public, issuer: cfg.Issuer}, nil
}

// Sign выпускает подписанный токен для клиентского payload'а
// (userID + acid + метаданные устройства; email в токен не попадает).
func (c *Codec) Sign(userID uuid.UUID, clientID string, meta models.DeviceMeta, ttl time.Duration) (string, error) {
	const op = "token.Sign"

	now := time.Now().UTC()
	cl := claims{
		UserID:   userID.String(),
		ClientID: clientID,
		Meta:     meta,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    c.issuer,
			Subject:   userID.String(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, cl).SignedString(c.private)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// Verify проверяет подпись и claims токена.
// Истёкший срок действия отличим от прочих отказов: ErrTokenExpired vs
// ErrTokenInvalid.
func (c *Codec) Verify(tokenStr string) (*models.AuthPayload, error) {
	const op = "token.Verify"

	parsed, err := jwt.ParseWithClaims(tokenStr, &claims{},
		func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwt.SigningMethodRS256 {
				return nil, fmt.Errorf("%s: %w", op, ErrTokenInvalid)
			}

			return c.public, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithLeeway(5*time.Second),
		jwt.WithIssuer(c.issuer),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
		}

		return nil, fmt.Errorf("%s: %w", op, ErrTokenInvalid)
	}

	cl, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("%s: %w", op, ErrTokenInvalid)
	}

	return payloadFromClaims(cl, op)
}

// Decode декодирует claims без проверки подписи.
// Используется только для best-effort отображения данных истёкшего токена.
func (c *Codec) Decode(tokenStr string) (*models.AuthPayload, error) {
	const op = "token.Decode"

	var cl claims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, &cl); err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrTokenInvalid)
	}

	return payloadFromClaims(&cl, op)
}

func payloadFromClaims(cl *claims, op string) (*models.AuthPayload, error) {
	uid, err := uuid.Parse(cl.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrTokenInvalid)
	}

	payload := &models.AuthPayload{
		ID:       uid,
		ClientID: cl.ClientID,
		Meta:     cl.Meta,
	}

	if cl.IssuedAt != nil {
		payload.IssuedAt = cl.IssuedAt.Time.UTC()
	}
	if cl.ExpiresAt != nil {
		payload.ExpiresAt = cl.ExpiresAt.Time.UTC()
	}

	return payload, nil
}
