package redis

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pribylovaa/go-news-publisher/internal/models"
	"github.com/pribylovaa/go-news-publisher/internal/storage"
)

// scanCount - подсказка COUNT для SCAN.
const scanCount = 100

// PutSession записывает сессию с TTL. ttl должен быть положительным:
// нулевой TTL в Redis означает «без срока».
func (s *Storage) PutSession(ctx context.Context, session models.Session, ttl time.Duration) error {
	const op = "storage.redis.PutSession"

	if ttl <= 0 {
		return fmt.Errorf("%s: non-positive ttl %s", op, ttl)
	}

	raw, err := encodeSession(session)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.rdb.Set(ctx, sessionKey(session.UserID, session.RefreshToken), raw, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w: %w", op, storage.ErrUnavailable, err)
	}

	return nil
}

// SessionsByUser перечисляет сессии пользователя.
func (s *Storage) SessionsByUser(ctx context.Context, userID int64) iter.Seq2[models.Session, error] {
	return s.scan(ctx, "storage.redis.SessionsByUser", userPattern(userID))
}

// SessionsByToken перечисляет сессии с данным refresh-токеном.
func (s *Storage) SessionsByToken(ctx context.Context, refreshToken string) iter.Seq2[models.Session, error] {
	return s.scan(ctx, "storage.redis.SessionsByToken", tokenPattern(refreshToken))
}

// DeleteSession удаляет сессию и сообщает, был ли ключ (по счётчику DEL).
// Отсутствие ключа не ошибка.
func (s *Storage) DeleteSession(ctx context.Context, userID int64, refreshToken string) (bool, error) {
	const op = "storage.redis.DeleteSession"

	n, err := s.rdb.Del(ctx, sessionKey(userID, refreshToken)).Result()
	if err != nil {
		return false, fmt.Errorf("%s: %w: %w", op, storage.ErrUnavailable, err)
	}

	return n > 0, nil
}

// DeleteUserSessions удаляет все ключи пользователя пачками SCAN + DEL.
// Значения не читаются, поэтому повреждённые записи удаляются наравне с прочими.
func (s *Storage) DeleteUserSessions(ctx context.Context, userID int64) (int, error) {
	const op = "storage.redis.DeleteUserSessions"

	var (
		total int64
		batch = make([]string, 0, scanCount)
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := s.rdb.Del(ctx, batch...).Result()
		if err != nil {
			return err
		}
		total += n
		batch = batch[:0]
		return nil
	}

	it := s.rdb.Scan(ctx, 0, userPattern(userID), scanCount).Iterator()
	for it.Next(ctx) {
		batch = append(batch, it.Val())
		if len(batch) == scanCount {
			if err := flush(); err != nil {
				return int(total), fmt.Errorf("%s: %w: %w", op, storage.ErrUnavailable, err)
			}
		}
	}
	if err := it.Err(); err != nil {
		return int(total), fmt.Errorf("%s: %w: %w", op, storage.ErrUnavailable, err)
	}
	if err := flush(); err != nil {
		return int(total), fmt.Errorf("%s: %w: %w", op, storage.ErrUnavailable, err)
	}

	return int(total), nil
}

// scan лениво обходит ключи по шаблону и читает значения.
// SCAN может вернуть ключ повторно, поэтому повторы отбрасываются.
// Ключи, истёкшие между SCAN и GET, пропускаются.
func (s *Storage) scan(ctx context.Context, op, pattern string) iter.Seq2[models.Session, error] {
	return func(yield func(models.Session, error) bool) {
		seen := make(map[string]struct{})
		it := s.rdb.Scan(ctx, 0, pattern, scanCount).Iterator()

		for it.Next(ctx) {
			key := it.Val()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			raw, err := s.rdb.Get(ctx, key).Bytes()
			if errors.Is(err, goredis.Nil) {
				continue
			}
			if err != nil {
				yield(models.Session{}, fmt.Errorf("%s: %w: %w", op, storage.ErrUnavailable, err))
				return
			}

			sess, err := decodeSession(key, raw)
			if err != nil {
				yield(models.Session{}, fmt.Errorf("%s: %w", op, err))
				return
			}

			if !yield(sess, nil) {
				return
			}
		}

		if err := it.Err(); err != nil {
			yield(models.Session{}, fmt.Errorf("%s: %w: %w", op, storage.ErrUnavailable, err))
		}
	}
}
