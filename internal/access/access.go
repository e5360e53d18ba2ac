// access - предикаты авторизации над claims access-токена.
//
// Claims кладёт в контекст middleware аутентификации; каждый обработчик
// явно вызывает нужный предикат.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/pribylovaa/go-news-publisher/internal/models"
	"github.com/pribylovaa/go-news-publisher/internal/storage"
)

var (
	// ErrUnauthenticated - в запросе нет проверенных claims (401).
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden - роль или владение не позволяют действие (403).
	ErrForbidden = errors.New("forbidden")
	// ErrResourceNotFound - проверяемый ресурс не существует (404).
	ErrResourceNotFound = errors.New("resource not found")
)

type ctxKey struct{}

// WithClaims кладёт claims в контекст.
func WithClaims(ctx context.Context, c *models.AccessClaims) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// ClaimsFrom достаёт claims из контекста; nil, если их нет.
func ClaimsFrom(ctx context.Context) *models.AccessClaims {
	c, _ := ctx.Value(ctxKey{}).(*models.AccessClaims)
	return c
}

// Owned - ресурс, у которого есть владелец.
type Owned interface {
	OwnerID() int64
}

// RequireRole пропускает только субъекта с ровно этой ролью.
func RequireRole(claims *models.AccessClaims, role models.Role) error {
	if claims == nil {
		return ErrUnauthenticated
	}
	if claims.Role != role {
		return fmt.Errorf("%w: role %q required", ErrForbidden, role)
	}

	return nil
}

// RequireSelf пропускает только самого пользователя.
func RequireSelf(claims *models.AccessClaims, targetUserID int64) error {
	if claims == nil {
		return ErrUnauthenticated
	}
	if claims.SubjectID != targetUserID {
		return ErrForbidden
	}

	return nil
}

// RequireSelfOrAdmin пропускает самого пользователя или администратора.
func RequireSelfOrAdmin(claims *models.AccessClaims, targetUserID int64) error {
	if claims == nil {
		return ErrUnauthenticated
	}
	if claims.SubjectID != targetUserID && !claims.IsAdmin() {
		return ErrForbidden
	}

	return nil
}

// RequireAuthorOrAdmin пропускает авторов и администраторов и возвращает ID субъекта.
func RequireAuthorOrAdmin(claims *models.AccessClaims) (int64, error) {
	if claims == nil {
		return 0, ErrUnauthenticated
	}
	if claims.Role != models.RoleAuthor && !claims.IsAdmin() {
		return 0, ErrForbidden
	}

	return claims.SubjectID, nil
}

// RequireOwnerOrAdmin загружает ресурс через fetch и пропускает его владельца
// или администратора. storage.ErrNotFound от fetch становится ErrResourceNotFound.
func RequireOwnerOrAdmin[R Owned](ctx context.Context, claims *models.AccessClaims, fetch func(context.Context) (R, error)) (R, error) {
	var zero R

	if claims == nil {
		return zero, ErrUnauthenticated
	}

	res, err := fetch(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return zero, ErrResourceNotFound
		}
		return zero, err
	}

	if res.OwnerID() != claims.SubjectID && !claims.IsAdmin() {
		return zero, ErrForbidden
	}

	return res, nil
}
