package service

import (
	"context"
	"fmt"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-news-publisher/internal/models"
	"github.com/pribylovaa/go-news-publisher/internal/pkg/password"
	"github.com/pribylovaa/go-news-publisher/internal/storage"
	"github.com/pribylovaa/go-news-publisher/internal/storage/inmem"
	"github.com/pribylovaa/go-news-publisher/internal/token"
)

const (
	testAccessTTL  = 15 * time.Minute
	testRefreshTTL = 30 * 24 * time.Hour
	uaFirefox      = "Mozilla/5.0 Firefox/128.0"
	uaCurl         = "curl/8.5.0"
)

// fixture - сервис на in-memory хранилище с общими управляемыми часами.
type fixture struct {
	svc   *Service
	st    *inmem.Storage
	codec *token.Codec
	now   time.Time
}

func (f *fixture) clock() time.Time { return f.now }

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{now: time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)}
	f.st = inmem.New(inmem.WithClock(f.clock))

	codec, err := token.New("unit-test-secret", testAccessTTL, "news-publisher", token.WithClock(f.clock))
	require.NoError(t, err)
	f.codec = codec

	f.svc = New(Deps{
		Users:    f.st,
		News:     f.st,
		Comments: f.st,
		Sessions: f.st,
		Hasher:   testHasher(),
		Tokens:   codec,
	}, testRefreshTTL, WithClock(f.clock))

	return f
}

func testHasher() *password.Hasher {
	return password.New(password.Params{MemoryKiB: 1024, Iterations: 1, Parallelism: 1})
}

// seedUser регистрирует пользователя через сервис и выставляет роль.
func (f *fixture) seedUser(t *testing.T, login string, role models.Role) int64 {
	t.Helper()

	u, err := f.svc.RegisterUser(context.Background(), "Name "+login, login, login+"@example.com", "pw-"+login)
	require.NoError(t, err)

	if role != models.RoleUser {
		require.NoError(t, f.st.UpdateRole(context.Background(), u.ID, role))
	}

	return u.ID
}

func claimsFor(id int64, role models.Role) *models.AccessClaims {
	return &models.AccessClaims{SubjectID: id, Role: role}
}

func seqOf(items ...models.Session) iter.Seq2[models.Session, error] {
	return func(yield func(models.Session, error) bool) {
		for _, s := range items {
			if !yield(s, nil) {
				return
			}
		}
	}
}

func failingSeq(err error) iter.Seq2[models.Session, error] {
	return func(yield func(models.Session, error) bool) {
		yield(models.Session{}, err)
	}
}

// seqThenErr отдаёт items, а затем ошибку обхода.
func seqThenErr(err error, items ...models.Session) iter.Seq2[models.Session, error] {
	return func(yield func(models.Session, error) bool) {
		for _, s := range items {
			if !yield(s, nil) {
				return
			}
		}
		yield(models.Session{}, err)
	}
}

// corruptedTail отдаёт настоящие сессии пользователя, а затем ошибку
// повреждённой записи, как это делает скан Redis.
type corruptedTail struct {
	*inmem.Storage
}

func (c corruptedTail) SessionsByUser(ctx context.Context, userID int64) iter.Seq2[models.Session, error] {
	return func(yield func(models.Session, error) bool) {
		for sess, err := range c.Storage.SessionsByUser(ctx, userID) {
			if !yield(sess, err) {
				return
			}
		}
		yield(models.Session{}, fmt.Errorf("decode: %w", storage.ErrCorrupted))
	}
}

