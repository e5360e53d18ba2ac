package access

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-news-publisher/internal/models"
	"github.com/pribylovaa/go-news-publisher/internal/storage"
)

func claims(id int64, role models.Role) *models.AccessClaims {
	return &models.AccessClaims{SubjectID: id, Role: role}
}

func TestClaimsContext(t *testing.T) {
	t.Parallel()

	require.Nil(t, ClaimsFrom(context.Background()))

	c := claims(1, models.RoleUser)
	require.Same(t, c, ClaimsFrom(WithClaims(context.Background(), c)))
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, RequireRole(nil, models.RoleAdmin), ErrUnauthenticated)
	require.NoError(t, RequireRole(claims(1, models.RoleAdmin), models.RoleAdmin))
	require.ErrorIs(t, RequireRole(claims(1, models.RoleAuthor), models.RoleAdmin), ErrForbidden)
}

func TestRequireSelf(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, RequireSelf(nil, 1), ErrUnauthenticated)
	require.NoError(t, RequireSelf(claims(1, models.RoleUser), 1))
	require.ErrorIs(t, RequireSelf(claims(2, models.RoleAdmin), 1), ErrForbidden)
}

func TestRequireSelfOrAdmin(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, RequireSelfOrAdmin(nil, 1), ErrUnauthenticated)
	require.NoError(t, RequireSelfOrAdmin(claims(1, models.RoleUser), 1))
	require.NoError(t, RequireSelfOrAdmin(claims(2, models.RoleAdmin), 1))
	require.ErrorIs(t, RequireSelfOrAdmin(claims(2, models.RoleAuthor), 1), ErrForbidden)
}

func TestRequireAuthorOrAdmin(t *testing.T) {
	t.Parallel()

	id, err := RequireAuthorOrAdmin(claims(5, models.RoleAuthor))
	require.NoError(t, err)
	require.Equal(t, int64(5), id)

	_, err = RequireAuthorOrAdmin(claims(6, models.RoleAdmin))
	require.NoError(t, err)

	_, err = RequireAuthorOrAdmin(claims(7, models.RoleUser))
	require.ErrorIs(t, err, ErrForbidden)

	_, err = RequireAuthorOrAdmin(nil)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRequireOwnerOrAdmin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	news := &models.News{ID: 10, AuthorID: 3}
	found := func(context.Context) (*models.News, error) { return news, nil }

	got, err := RequireOwnerOrAdmin(ctx, claims(3, models.RoleAuthor), found)
	require.NoError(t, err)
	require.Same(t, news, got)

	_, err = RequireOwnerOrAdmin(ctx, claims(1, models.RoleAdmin), found)
	require.NoError(t, err)

	_, err = RequireOwnerOrAdmin(ctx, claims(4, models.RoleAuthor), found)
	require.ErrorIs(t, err, ErrForbidden)

	missing := func(context.Context) (*models.Comment, error) { return nil, storage.ErrNotFound }
	_, err = RequireOwnerOrAdmin(ctx, claims(3, models.RoleUser), missing)
	require.ErrorIs(t, err, ErrResourceNotFound)

	boom := errors.New("boom")
	failing := func(context.Context) (*models.Comment, error) { return nil, boom }
	_, err = RequireOwnerOrAdmin(ctx, claims(3, models.RoleUser), failing)
	require.ErrorIs(t, err, boom)

	called := false
	_, err = RequireOwnerOrAdmin(ctx, nil, func(context.Context) (*models.News, error) {
		called = true
		return news, nil
	})
	require.ErrorIs(t, err, ErrUnauthenticated)
	require.False(t, called)
}
