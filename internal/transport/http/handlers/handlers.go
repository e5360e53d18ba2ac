package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-news-publisher/internal/models"
	apierrors "github.com/pribylovaa/go-news-publisher/internal/transport/http/errors"
)

// HeaderAccessToken - заголовок ответа с access-токеном после входа и ротации.
const HeaderAccessToken = "X-JWT"

// Service - операции сервисного слоя, которые вызывают хендлеры.
type Service interface {
	CreateSession(ctx context.Context, login, password, userAgent string) (*models.SessionTokens, error)
	ListSessions(ctx context.Context, userID int64) ([]models.Session, error)
	RefreshSession(ctx context.Context, refreshToken, userAgent string) (*models.SessionTokens, error)
	DeleteSession(ctx context.Context, userID int64, userAgent string) error

	RegisterUser(ctx context.Context, name, login, email, password string) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, claims *models.AccessClaims, id int64, name, email string) (*models.User, error)
	ChangePassword(ctx context.Context, claims *models.AccessClaims, id int64, password string) error
	ChangeRole(ctx context.Context, claims *models.AccessClaims, id int64, role models.Role) error
	DeleteUser(ctx context.Context, claims *models.AccessClaims, id int64) error

	CreateNews(ctx context.Context, claims *models.AccessClaims, header, content string) (*models.News, error)
	GetNews(ctx context.Context, id int64) (*models.News, error)
	ListNews(ctx context.Context) ([]models.News, error)
	UpdateNews(ctx context.Context, claims *models.AccessClaims, id int64, header, content string) (*models.News, error)
	DeleteNews(ctx context.Context, claims *models.AccessClaims, id int64) error

	CreateComment(ctx context.Context, claims *models.AccessClaims, newsID int64, text string) (*models.Comment, error)
	GetComment(ctx context.Context, id string) (*models.Comment, error)
	ListComments(ctx context.Context) ([]models.Comment, error)
	UpdateComment(ctx context.Context, claims *models.AccessClaims, id, text string) (*models.Comment, error)
	DeleteComment(ctx context.Context, claims *models.AccessClaims, id string) error
}

// Handlers агрегирует зависимости REST-эндпойнтов.
type Handlers struct {
	svc Service
}

func New(svc Service) *Handlers {
	return &Handlers{svc: svc}
}

// writeJSON - единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict - строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(value); err != nil {
		return fmt.Errorf("%w: %w", apierrors.ErrBadRequest, err)
	}
	return nil
}

// pathID разбирает положительный целочисленный параметр маршрута.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s", apierrors.ErrBadRequest, name)
	}
	return id, nil
}
