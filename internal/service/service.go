// service содержит бизнес-логику: сессии и их ротацию, управление
// пользователями, новостями и комментариями.
//
// Основные аспекты:
//   - Service не хранит состояние запроса и безопасен для конкурентного
//     использования при потокобезопасных хранилищах.
//   - Ошибки хранилищ наружу не выходят без метки: они переводятся в
//     ошибки ниже, а транспорт маппит их на HTTP-статусы.
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/pribylovaa/go-news-publisher/internal/models"
	"github.com/pribylovaa/go-news-publisher/internal/storage"
	"github.com/pribylovaa/go-news-publisher/internal/token"
)

var (
	// ErrUnknownLogin - пользователь с таким логином не зарегистрирован.
	// Транспорт: 401, text/plain "This login is not registered".
	ErrUnknownLogin = errors.New("login is not registered")

	// ErrInvalidCredentials - пароль не совпал.
	// Транспорт: 401, text/plain "Incorrect password".
	ErrInvalidCredentials = errors.New("incorrect password")

	// ErrInvalidToken - refresh-токен неизвестен (в том числе уже ротирован)
	// или имеет неверную форму. Транспорт: 401.
	ErrInvalidToken = errors.New("invalid token")

	// ErrDeviceMismatch - refresh-токен предъявлен с другого устройства
	// (User-Agent). Сессия не трогается. Транспорт: 403.
	ErrDeviceMismatch = errors.New("device mismatch")

	// ErrSessionExpired - срок сессии истёк, запись удалена. Транспорт: 400.
	ErrSessionExpired = errors.New("session expired")

	// ErrOrphanedToken - сессия ссылается на несуществующего пользователя.
	// Транспорт: 400.
	ErrOrphanedToken = errors.New("session belongs to unknown user")

	// ErrIntegrityViolation - один refresh-токен найден в нескольких сессиях.
	// Повторять запрос бессмысленно. Транспорт: 409.
	ErrIntegrityViolation = errors.New("refresh token is not unique")

	// ErrNotFound - сущность не найдена (в том числе пустой список сессий).
	// Транспорт: 404.
	ErrNotFound = errors.New("not found")

	// ErrNoSessions - у пользователя нет ни одной сессии. Транспорт: 404.
	ErrNoSessions = errors.New("no sessions")

	// ErrUserAgentUnmatched - нет сессии для этого User-Agent. Транспорт: 404.
	ErrUserAgentUnmatched = errors.New("no session for user agent")

	// ErrAlreadyExists - логин или email заняты. Транспорт: 409.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput - пустые или недопустимые поля запроса. Транспорт: 400.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnavailable - хранилище недоступно. Транспорт: 503.
	ErrUnavailable = errors.New("service unavailable")

	// ErrInternal - прочие сбои. Транспорт: 500.
	ErrInternal = errors.New("internal error")
)

// PasswordHasher хэширует и проверяет пароли.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) bool
}

// TokenIssuer выпускает access-токены.
type TokenIssuer interface {
	Issue(subjectID int64, role models.Role) (string, models.AccessClaims, error)
}

// Deps - зависимости Service.
type Deps struct {
	Users    storage.UserStorage
	News     storage.NewsStorage
	Comments storage.CommentStorage
	Sessions storage.SessionStorage
	Hasher   PasswordHasher
	Tokens   TokenIssuer
}

// Service описывает бизнес-логику сервиса.
type Service struct {
	users      storage.UserStorage
	news       storage.NewsStorage
	comments   storage.CommentStorage
	sessions   storage.SessionStorage
	hasher     PasswordHasher
	tokens     TokenIssuer
	refreshTTL time.Duration
	now        func() time.Time
	newRefresh func() (string, error)
}

// Option настраивает Service.
type Option func(*Service)

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New создаёт новый экземпляр Service. refreshTTL - срок жизни сессии.
func New(deps Deps, refreshTTL time.Duration, opts ...Option) *Service {
	s := &Service{
		users:      deps.Users,
		news:       deps.News,
		comments:   deps.Comments,
		sessions:   deps.Sessions,
		hasher:     deps.Hasher,
		tokens:     deps.Tokens,
		refreshTTL: refreshTTL,
		now:        time.Now,
		newRefresh: token.NewRefreshToken,
	}
	for _, o := range opts {
		o(s)
	}

	return s
}

// storageErr помечает ошибку хранилища, для которой нет доменного смысла.
func storageErr(op string, err error) error {
	if errors.Is(err, storage.ErrUnavailable) {
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}

	return fmt.Errorf("%s: %w: %w", op, ErrInternal, err)
}
