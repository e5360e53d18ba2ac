package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pribylovaa/go-news-publisher/internal/access"
	"github.com/pribylovaa/go-news-publisher/internal/models"
	"github.com/pribylovaa/go-news-publisher/internal/pkg/log"
	"github.com/pribylovaa/go-news-publisher/internal/pkg/redact"
	"github.com/pribylovaa/go-news-publisher/internal/storage"
)

// RegisterUser регистрирует пользователя с ролью user.
func (s *Service) RegisterUser(ctx context.Context, name, login, email, password string) (*models.User, error) {
	const op = "service.users.RegisterUser"

	name, login, email = strings.TrimSpace(name), strings.TrimSpace(login), strings.TrimSpace(email)
	if name == "" || login == "" || email == "" || password == "" {
		return nil, fmt.Errorf("%s: %w: name, login, email and password are required", op, ErrInvalidInput)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInternal, err)
	}

	user := &models.User{
		Name:         name,
		Login:        login,
		Email:        email,
		Role:         models.RoleUser,
		PasswordHash: hash,
		RegisteredAt: s.now().UTC(),
	}

	id, err := s.users.SaveUser(ctx, user)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrAlreadyExists)
		}

		return nil, storageErr(op, err)
	}
	user.ID = id

	log.From(ctx).Info("user_registered",
		slog.String("op", op),
		slog.Int64("user_id", id),
		slog.String("email", redact.Email(email)),
	)

	return user, nil
}

// GetUser возвращает пользователя по ID.
func (s *Service) GetUser(ctx context.Context, id int64) (*models.User, error) {
	const op = "service.users.GetUser"

	user, err := s.users.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, storageErr(op, err)
	}

	return user, nil
}

// ListUsers возвращает всех пользователей; пустой список - ErrNotFound.
func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	const op = "service.users.ListUsers"

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, storageErr(op, err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	return users, nil
}

// UpdateUser меняет имя и email (сам пользователь или администратор).
// Логин и пароль здесь не меняются, поэтому сессии остаются.
func (s *Service) UpdateUser(ctx context.Context, claims *models.AccessClaims, id int64, name, email string) (*models.User, error) {
	const op = "service.users.UpdateUser"

	if err := access.RequireSelfOrAdmin(claims, id); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" || email == "" {
		return nil, fmt.Errorf("%s: %w: name and email are required", op, ErrInvalidInput)
	}

	if err := s.users.UpdateProfile(ctx, id, name, email); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		case errors.Is(err, storage.ErrAlreadyExists):
			return nil, fmt.Errorf("%s: %w", op, ErrAlreadyExists)
		}

		return nil, storageErr(op, err)
	}

	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("user_updated",
		slog.String("op", op),
		slog.Int64("user_id", id),
		slog.Int64("by", claims.SubjectID),
	)

	return user, nil
}

// ChangePassword меняет пароль (сам пользователь или администратор)
// и закрывает все его сессии.
func (s *Service) ChangePassword(ctx context.Context, claims *models.AccessClaims, id int64, password string) error {
	const op = "service.users.ChangePassword"

	if err := access.RequireSelfOrAdmin(claims, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if password == "" {
		return fmt.Errorf("%s: %w: empty password", op, ErrInvalidInput)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrInternal, err)
	}

	if err := s.users.UpdatePassword(ctx, id, hash); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return storageErr(op, err)
	}

	if _, err := s.InvalidateSessions(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("user_password_changed",
		slog.String("op", op),
		slog.Int64("user_id", id),
		slog.Int64("by", claims.SubjectID),
	)

	return nil
}

// ChangeRole меняет роль пользователя (только администратор) и закрывает
// его сессии: старые access-токены несут прежнюю роль до истечения.
func (s *Service) ChangeRole(ctx context.Context, claims *models.AccessClaims, id int64, role models.Role) error {
	const op = "service.users.ChangeRole"

	if err := access.RequireRole(claims, models.RoleAdmin); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !role.Valid() {
		return fmt.Errorf("%s: %w: unknown role %q", op, ErrInvalidInput, role)
	}

	if err := s.users.UpdateRole(ctx, id, role); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return storageErr(op, err)
	}

	if _, err := s.InvalidateSessions(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.From(ctx).Info("user_role_changed",
		slog.String("op", op),
		slog.Int64("user_id", id),
		slog.String("role", role.String()),
	)

	return nil
}

// DeleteUser удаляет пользователя с его новостями и их комментариями
// и закрывает все его сессии.
func (s *Service) DeleteUser(ctx context.Context, claims *models.AccessClaims, id int64) error {
	const op = "service.users.DeleteUser"

	if err := access.RequireSelfOrAdmin(claims, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	// Каскад ниже пишет логи с тем же инициатором.
	ctx, lg := log.With(ctx, slog.Int64("by", claims.SubjectID))

	newsIDs, err := s.users.DeleteUser(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return storageErr(op, err)
	}

	// Пользователь уже удалён: сессии закрываются первыми и независимо
	// от уборки комментариев.
	var errs []error
	if _, err := s.InvalidateSessions(ctx, id); err != nil {
		errs = append(errs, err)
	}
	for _, nid := range newsIDs {
		if err := s.comments.DeleteCommentsByNews(ctx, nid); err != nil {
			errs = append(errs, storageErr(fmt.Sprintf("news %d", nid), err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		lg.Error("user_delete_cascade_failed",
			slog.String("op", op),
			slog.Int64("user_id", id),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("user_deleted",
		slog.String("op", op),
		slog.Int64("user_id", id),
		slog.Int("news_deleted", len(newsIDs)),
	)

	return nil
}
