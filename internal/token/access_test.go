package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-news-publisher/internal/models"
)

const (
	testSecret = "unit-test-secret"
	testIssuer = "news-publisher"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time { return f.t }

func newTestCodec(t *testing.T, clk *fakeClock) *Codec {
	t.Helper()

	c, err := New(testSecret, 15*time.Minute, testIssuer, WithClock(clk.Now))
	require.NoError(t, err)

	return c
}

func TestCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := newTestCodec(t, clk)

	for _, role := range []models.Role{models.RoleUser, models.RoleAuthor, models.RoleAdmin} {
		tok, issued, err := c.Issue(42, role)
		require.NoError(t, err)
		require.Equal(t, clk.t.Add(15*time.Minute), issued.ExpiresAt)

		got, err := c.Verify(tok)
		require.NoError(t, err)
		require.Equal(t, int64(42), got.SubjectID)
		require.Equal(t, role, got.Role)
		require.True(t, got.ExpiresAt.Equal(issued.ExpiresAt))
	}
}

func TestCodec_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clk := &fakeClock{t: start}
	c := newTestCodec(t, clk)

	tok, _, err := c.Issue(7, models.RoleUser)
	require.NoError(t, err)

	clk.t = start.Add(15*time.Minute - time.Second)
	_, err = c.Verify(tok)
	require.NoError(t, err)

	clk.t = start.Add(15*time.Minute + time.Second)
	_, err = c.Verify(tok)
	require.ErrorIs(t, err, ErrExpired)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestCodec_SubSecondClock(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 3, 1, 12, 0, 0, 900_000_000, time.UTC)
	clk := &fakeClock{t: start}
	c := newTestCodec(t, clk)

	tok, issued, err := c.Issue(7, models.RoleUser)
	require.NoError(t, err)
	require.Equal(t, start.Truncate(time.Second), issued.IssuedAt)
	require.Equal(t, issued.IssuedAt.Add(15*time.Minute), issued.ExpiresAt)

	got, err := c.Verify(tok)
	require.NoError(t, err)
	require.True(t, got.IssuedAt.Equal(issued.IssuedAt))
	require.True(t, got.ExpiresAt.Equal(issued.ExpiresAt))

	clk.t = issued.IssuedAt.Add(15*time.Minute - time.Second)
	_, err = c.Verify(tok)
	require.NoError(t, err)

	clk.t = issued.IssuedAt.Add(15*time.Minute + time.Second)
	_, err = c.Verify(tok)
	require.ErrorIs(t, err, ErrExpired)
}

func TestCodec_BadSignature(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{t: time.Now()}
	c := newTestCodec(t, clk)

	other, err := New("another-secret", 15*time.Minute, testIssuer, WithClock(clk.Now))
	require.NoError(t, err)

	tok, _, err := other.Issue(1, models.RoleAdmin)
	require.NoError(t, err)

	_, err = c.Verify(tok)
	require.ErrorIs(t, err, ErrSignature)
}

func TestCodec_WrongAlgorithm(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{t: time.Now()}
	c := newTestCodec(t, clk)

	claims := jwt.MapClaims{
		"user_id":   "1",
		"user_role": "admin",
		"sub":       "1",
		"iss":       testIssuer,
		"exp":       clk.t.Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = c.Verify(signed)
	require.ErrorIs(t, err, ErrSignature)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = c.Verify(none)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestCodec_MalformedAndBadClaims(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{t: time.Now()}
	c := newTestCodec(t, clk)

	_, err := c.Verify("not.a.jwt")
	require.ErrorIs(t, err, ErrMalformed)

	_, err = c.Verify("")
	require.ErrorIs(t, err, ErrMalformed)

	sign := func(m jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, m).SignedString([]byte(testSecret))
		require.NoError(t, err)
		return s
	}
	exp := clk.t.Add(time.Hour).Unix()

	_, err = c.Verify(sign(jwt.MapClaims{"user_id": "abc", "sub": "abc", "user_role": "user", "iss": testIssuer, "exp": exp}))
	require.ErrorIs(t, err, ErrMalformed)

	_, err = c.Verify(sign(jwt.MapClaims{"user_id": "1", "sub": "1", "user_role": "root", "iss": testIssuer, "exp": exp}))
	require.ErrorIs(t, err, ErrMalformed)

	_, err = c.Verify(sign(jwt.MapClaims{"user_id": "1", "sub": "1", "user_role": "user", "iss": "someone-else", "exp": exp}))
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = c.Verify(sign(jwt.MapClaims{"user_id": "1", "sub": "1", "user_role": "user", "iss": testIssuer}))
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestNew_RejectsBadParams(t *testing.T) {
	t.Parallel()

	_, err := New("", time.Minute, testIssuer)
	require.Error(t, err)

	_, err = New(testSecret, 0, testIssuer)
	require.Error(t, err)
}
