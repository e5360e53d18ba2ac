package storage

//go:generate mockgen -source=storage.go -destination=../../mocks/storage.go -package=mocks

import (
	"context"
	"errors"
	"iter"
	"time"

	"github.com/pribylovaa/go-news-publisher/internal/models"
)

var (
	// ErrNotFound - запись не найдена (пользователь/новость/комментарий).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists - нарушение уникальности (login/email).
	ErrAlreadyExists = errors.New("already exists")
	// ErrUnavailable - хранилище недоступно (сеть, таймаут, отказ сервера).
	ErrUnavailable = errors.New("storage unavailable")
	// ErrCorrupted - запись не декодируется или противоречит своему ключу.
	ErrCorrupted = errors.New("corrupted record")
)

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// SaveUser создаёт пользователя и возвращает присвоенный ID.
	SaveUser(ctx context.Context, user *models.User) (int64, error)
	// UserByLogin находит пользователя по логину.
	UserByLogin(ctx context.Context, login string) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id int64) (*models.User, error)
	// ListUsers возвращает всех пользователей по возрастанию ID.
	ListUsers(ctx context.Context) ([]models.User, error)
	// UpdateProfile меняет имя и email. Занятый email - ErrAlreadyExists.
	UpdateProfile(ctx context.Context, id int64, name, email string) error
	// UpdatePassword заменяет хэш пароля.
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	// UpdateRole меняет роль.
	UpdateRole(ctx context.Context, id int64, role models.Role) error
	// DeleteUser удаляет пользователя вместе с его новостями в одной транзакции
	// и возвращает ID удалённых новостей.
	DeleteUser(ctx context.Context, id int64) ([]int64, error)
}

// NewsStorage выполняет операции над новостями.
type NewsStorage interface {
	SaveNews(ctx context.Context, news *models.News) (int64, error)
	NewsByID(ctx context.Context, id int64) (*models.News, error)
	// ListNews возвращает все новости по возрастанию ID.
	ListNews(ctx context.Context) ([]models.News, error)
	// UpdateNews заменяет заголовок и текст новости news.ID.
	UpdateNews(ctx context.Context, news *models.News) error
	DeleteNews(ctx context.Context, id int64) error
}

// CommentStorage выполняет операции над комментариями.
type CommentStorage interface {
	SaveComment(ctx context.Context, comment *models.Comment) (string, error)
	CommentByID(ctx context.Context, id string) (*models.Comment, error)
	// ListComments возвращает все комментарии в порядке создания.
	ListComments(ctx context.Context) ([]models.Comment, error)
	// UpdateComment заменяет текст комментария.
	UpdateComment(ctx context.Context, id, text string) error
	DeleteComment(ctx context.Context, id string) error
	// DeleteCommentsByNews удаляет все комментарии новости.
	DeleteCommentsByNews(ctx context.Context, newsID int64) error
}

// SessionStorage - хранилище сессий с ключом (user_id, refresh_token).
//
// Итераторы ленивые: записи читаются из хранилища по мере обхода.
// Ошибка обхода отдаётся вторым значением и завершает итерацию.
type SessionStorage interface {
	// PutSession записывает сессию с временем жизни ttl (перезапись идемпотентна).
	PutSession(ctx context.Context, session models.Session, ttl time.Duration) error
	// SessionsByUser перечисляет сессии пользователя.
	SessionsByUser(ctx context.Context, userID int64) iter.Seq2[models.Session, error]
	// SessionsByToken перечисляет сессии с данным refresh-токеном.
	// В корректной системе их не больше одной.
	SessionsByToken(ctx context.Context, refreshToken string) iter.Seq2[models.Session, error]
	// DeleteSession удаляет сессию и сообщает, была ли запись.
	// Отсутствие записи ошибкой не считается.
	DeleteSession(ctx context.Context, userID int64, refreshToken string) (bool, error)
	// DeleteUserSessions удаляет все ключи сессий пользователя, не декодируя
	// значения (в том числе повреждённые), и возвращает число удалённых.
	DeleteUserSessions(ctx context.Context, userID int64) (int, error)
}
