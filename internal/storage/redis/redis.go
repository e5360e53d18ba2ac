// redis - хранилище сессий поверх Redis.
//
// Раскладка: ключ session:{user_id}:{refresh_token}, значение -
// версионированный JSON (см. record), TTL равен остатку жизни сессии.
package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pribylovaa/go-news-publisher/internal/storage"
)

// Options - параметры подключения.
type Options struct {
	Addr     string
	Password string
	DB       int
}

type Storage struct {
	rdb *goredis.Client
}

// New создаёт клиент Redis и проверяет соединение (fail-fast на старте).
func New(ctx context.Context, opts Options) (*Storage, error) {
	const op = "storage.redis.New"

	rdb := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: %w: %w", op, storage.ErrUnavailable, err)
	}

	return &Storage{rdb: rdb}, nil
}

// NewWithClient оборачивает уже созданный клиент. Владение клиентом
// переходит к Storage: Close закроет его.
func NewWithClient(rdb *goredis.Client) *Storage {
	return &Storage{rdb: rdb}
}

// Ping проверяет доступность Redis (для /healthz).
func (s *Storage) Ping(ctx context.Context) error {
	const op = "storage.redis.Ping"

	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%s: %w: %w", op, storage.ErrUnavailable, err)
	}

	return nil
}

// Close закрывает клиент.
func (s *Storage) Close() error {
	return s.rdb.Close()
}

// Проверка на соответствие интерфейсу SessionStorage.
var _ storage.SessionStorage = (*Storage)(nil)
