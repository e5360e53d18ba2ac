// token выпускает и проверяет access-токены (JWT HS256) и генерирует
// непрозрачные refresh-токены.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pribylovaa/go-news-publisher/internal/models"
)

// ErrInvalidToken - общий вид ошибки проверки; снаружи любая из ошибок
// ниже отображается в 401.
var ErrInvalidToken = errors.New("invalid token")

var (
	// ErrMalformed - токен не разбирается или в нём нет нужных claims.
	ErrMalformed = fmt.Errorf("malformed: %w", ErrInvalidToken)
	// ErrSignature - подпись не сходится или алгоритм не HS256.
	ErrSignature = fmt.Errorf("bad signature: %w", ErrInvalidToken)
	// ErrExpired - срок действия истёк.
	ErrExpired = fmt.Errorf("expired: %w", ErrInvalidToken)
)

type accessClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"user_role"`
	jwt.RegisteredClaims
}

// Codec подписывает и проверяет access-токены одним секретом.
type Codec struct {
	secret   []byte
	lifetime time.Duration
	issuer   string
	now      func() time.Time
}

// Option настраивает Codec.
type Option func(*Codec)

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// New создаёт Codec. Пустой секрет и неположительный lifetime недопустимы.
func New(secret string, lifetime time.Duration, issuer string, opts ...Option) (*Codec, error) {
	const op = "token.New"

	if secret == "" {
		return nil, fmt.Errorf("%s: empty secret", op)
	}
	if lifetime <= 0 {
		return nil, fmt.Errorf("%s: non-positive lifetime %s", op, lifetime)
	}

	c := &Codec{
		secret:   []byte(secret),
		lifetime: lifetime,
		issuer:   issuer,
		now:      time.Now,
	}
	for _, o := range opts {
		o(c)
	}

	return c, nil
}

// Lifetime возвращает срок жизни выпускаемых токенов.
func (c *Codec) Lifetime() time.Duration { return c.lifetime }

// Issue выпускает токен для субъекта с ролью. exp = iat + lifetime, где iat -
// текущее время с точностью до секунды.
func (c *Codec) Issue(subjectID int64, role models.Role) (string, models.AccessClaims, error) {
	const op = "token.Codec.Issue"

	// JWT хранит время в целых секундах: exp считается от уже усечённого now,
	// чтобы возвращаемые claims совпадали с подписанными.
	now := c.now().UTC().Truncate(time.Second)
	exp := now.Add(c.lifetime)
	sub := strconv.FormatInt(subjectID, 10)

	claims := accessClaims{
		UserID: sub,
		Role:   role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", models.AccessClaims{}, fmt.Errorf("%s: %w", op, err)
	}

	return signed, models.AccessClaims{
		SubjectID: subjectID,
		Role:      role,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Verify проверяет подпись, издателя и срок действия и возвращает claims.
// Ошибки: ErrMalformed, ErrSignature, ErrExpired (все оборачивают ErrInvalidToken).
func (c *Codec) Verify(tokenStr string) (*models.AccessClaims, error) {
	const op = "token.Codec.Verify"

	var claims accessClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims,
		func(t *jwt.Token) (any, error) {
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%s: %w", op, ErrExpired)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid),
			errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, fmt.Errorf("%s: %w", op, ErrSignature)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%s: %w", op, ErrMalformed)
		default:
			return nil, fmt.Errorf("%s: %w: %v", op, ErrInvalidToken, err)
		}
	}

	id, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil || claims.Subject != claims.UserID {
		return nil, fmt.Errorf("%s: user_id: %w", op, ErrMalformed)
	}

	role := models.Role(claims.Role)
	if !role.Valid() {
		return nil, fmt.Errorf("%s: user_role: %w", op, ErrMalformed)
	}

	out := &models.AccessClaims{
		SubjectID: id,
		Role:      role,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}

	return out, nil
}
