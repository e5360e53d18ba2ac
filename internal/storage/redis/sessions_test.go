package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pribylovaa/go-news-publisher/internal/models"
	"github.com/pribylovaa/go-news-publisher/internal/storage"
	"github.com/pribylovaa/go-news-publisher/internal/token"
)

// Интеграционные тесты хранилища сессий на реальном Redis (redis:7-alpine).
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/storage/redis -v -race -count=1

func startRedis(t *testing.T) (*Storage, *goredis.Client) {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	st, err := New(ctx, Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, st.Close()) })

	return st, st.rdb
}

func newSession(t *testing.T, userID int64, ua string) models.Session {
	t.Helper()

	tok, err := token.NewRefreshToken()
	require.NoError(t, err)

	return models.Session{
		UserID:                userID,
		UserAgent:             ua,
		RefreshToken:          tok,
		RefreshTokenExpiresAt: time.Now().UTC().Add(time.Hour).Truncate(time.Second),
	}
}

func collect(t *testing.T, seq func(func(models.Session, error) bool)) []models.Session {
	t.Helper()

	var out []models.Session
	for s, err := range seq {
		require.NoError(t, err)
		out = append(out, s)
	}

	return out
}

func TestIntegration_PutAndScan(t *testing.T) {
	st, rdb := startRedis(t)
	ctx := context.Background()

	a := newSession(t, 1, "firefox")
	b := newSession(t, 1, "chrome")
	c := newSession(t, 12, "firefox")

	for _, s := range []models.Session{a, b, c} {
		require.NoError(t, st.PutSession(ctx, s, time.Hour))
	}

	got := collect(t, st.SessionsByUser(ctx, 1))
	require.ElementsMatch(t, []models.Session{a, b}, got)

	got = collect(t, st.SessionsByToken(ctx, c.RefreshToken))
	require.Equal(t, []models.Session{c}, got)

	ttl, err := rdb.TTL(ctx, sessionKey(a.UserID, a.RefreshToken)).Result()
	require.NoError(t, err)
	require.Greater(t, ttl, 59*time.Minute)

	deleted, err := st.DeleteSession(ctx, a.UserID, a.RefreshToken)
	require.NoError(t, err)
	require.True(t, deleted)

	deleted, err = st.DeleteSession(ctx, a.UserID, a.RefreshToken)
	require.NoError(t, err)
	require.False(t, deleted)

	require.Equal(t, []models.Session{b}, collect(t, st.SessionsByUser(ctx, 1)))
}

func TestIntegration_DeleteUserSessions_RemovesCorrupted(t *testing.T) {
	st, rdb := startRedis(t)
	ctx := context.Background()

	a := newSession(t, 21, "firefox")
	other := newSession(t, 210, "firefox")
	require.NoError(t, st.PutSession(ctx, a, time.Hour))
	require.NoError(t, st.PutSession(ctx, other, time.Hour))

	broken := newSession(t, 21, "ua")
	require.NoError(t, rdb.Set(ctx, sessionKey(21, broken.RefreshToken), "garbage", time.Hour).Err())

	n, err := st.DeleteUserSessions(ctx, 21)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	require.Empty(t, collect(t, st.SessionsByUser(ctx, 21)))
	require.Equal(t, []models.Session{other}, collect(t, st.SessionsByUser(ctx, 210)))
}

func TestIntegration_GlobIsLiteral(t *testing.T) {
	st, _ := startRedis(t)
	ctx := context.Background()

	require.NoError(t, st.PutSession(ctx, newSession(t, 3, "ua"), time.Hour))

	require.Empty(t, collect(t, st.SessionsByToken(ctx, "*")))
	require.Empty(t, collect(t, st.SessionsByToken(ctx, "?")))
}

func TestIntegration_CorruptedRecord(t *testing.T) {
	st, rdb := startRedis(t)
	ctx := context.Background()

	s := newSession(t, 9, "ua")
	require.NoError(t, rdb.Set(ctx, sessionKey(9, s.RefreshToken), "garbage", time.Hour).Err())

	var gotErr error
	for _, err := range st.SessionsByToken(ctx, s.RefreshToken) {
		gotErr = err
	}
	require.ErrorIs(t, gotErr, storage.ErrCorrupted)
}

func TestIntegration_Expiry(t *testing.T) {
	st, _ := startRedis(t)
	ctx := context.Background()

	s := newSession(t, 4, "ua")
	require.NoError(t, st.PutSession(ctx, s, time.Second))

	require.Eventually(t, func() bool {
		n := 0
		for _, err := range st.SessionsByUser(ctx, 4) {
			if err != nil {
				return false
			}
			n++
		}
		return n == 0
	}, 5*time.Second, 100*time.Millisecond)
}

func TestUnavailable_WrapsSentinel(t *testing.T) {
	t.Parallel()

	// Порт 1 на loopback закрыт: соединение отклоняется сразу.
	st := NewWithClient(goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	}))
	defer st.Close()

	ctx := context.Background()

	err := st.PutSession(ctx, models.Session{UserID: 1, RefreshToken: "x"}, time.Hour)
	require.ErrorIs(t, err, storage.ErrUnavailable)

	_, err = st.DeleteSession(ctx, 1, "x")
	require.ErrorIs(t, err, storage.ErrUnavailable)

	_, err = st.DeleteUserSessions(ctx, 1)
	require.ErrorIs(t, err, storage.ErrUnavailable)

	var iterErr error
	for _, err := range st.SessionsByUser(ctx, 1) {
		iterErr = err
	}
	require.ErrorIs(t, iterErr, storage.ErrUnavailable)

	require.ErrorIs(t, st.Ping(ctx), storage.ErrUnavailable)
}

func TestPutSession_RejectsNonPositiveTTL(t *testing.T) {
	t.Parallel()

	st := NewWithClient(goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0"}))
	defer st.Close()

	err := st.PutSession(context.Background(), models.Session{UserID: 1, RefreshToken: "x"}, 0)
	require.Error(t, err)
	require.NotErrorIs(t, err, storage.ErrUnavailable)
}
