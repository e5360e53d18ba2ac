package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pribylovaa/go-news-publisher/internal/models"
	"github.com/pribylovaa/go-news-publisher/internal/pkg/log"
	"github.com/pribylovaa/go-news-publisher/internal/pkg/redact"
	"github.com/pribylovaa/go-news-publisher/internal/storage"
	"github.com/pribylovaa/go-news-publisher/internal/token"
)

// CreateSession выполняет вход по логину и паролю и открывает сессию
// для устройства userAgent.
func (s *Service) CreateSession(ctx context.Context, login, password, userAgent string) (*models.SessionTokens, error) {
	const op = "service.sessions.CreateSession"

	lg := log.From(ctx)

	user, err := s.users.UserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Info("login_unknown",
				slog.String("op", op),
				slog.String("login", redact.Login(login)),
			)
			return nil, fmt.Errorf("%s: %w", op, ErrUnknownLogin)
		}

		return nil, storageErr(op, err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		lg.Info("login_bad_password",
			slog.String("op", op),
			slog.Int64("user_id", user.ID),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	tokens, err := s.openSession(ctx, user, userAgent)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("session_created",
		slog.String("op", op),
		slog.Int64("user_id", user.ID),
		slog.String("user_agent", userAgent),
	)

	return tokens, nil
}

// ListSessions возвращает все сессии пользователя; пустой список - ErrNotFound.
func (s *Service) ListSessions(ctx context.Context, userID int64) ([]models.Session, error) {
	const op = "service.sessions.ListSessions"

	var out []models.Session
	for sess, err := range s.sessions.SessionsByUser(ctx, userID) {
		if err != nil {
			return nil, storageErr(op, err)
		}
		out = append(out, sess)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	return out, nil
}

// RefreshSession ротирует refresh-токен: выпускает новую пару и удаляет
// старую сессию.
//
// Новая запись пишется раньше, чем удаляется старая. Если удалить старую
// не удалось, новая откатывается, и клиент может повторить запрос со
// старым токеном.
func (s *Service) RefreshSession(ctx context.Context, refreshToken, userAgent string) (*models.SessionTokens, error) {
	const op = "service.sessions.RefreshSession"

	lg := log.From(ctx)

	if !token.ValidRefreshToken(refreshToken) {
		lg.Warn("refresh_token_malformed", slog.String("op", op))
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	// Больше двух совпадений читать незачем: двух уже достаточно для отказа.
	var matches []models.Session
	for sess, err := range s.sessions.SessionsByToken(ctx, refreshToken) {
		if err != nil {
			lg.Error("refresh_lookup_failed",
				slog.String("op", op),
				slog.String("err", err.Error()),
			)
			return nil, storageErr(op, err)
		}
		matches = append(matches, sess)
		if len(matches) == 2 {
			break
		}
	}

	switch len(matches) {
	case 0:
		lg.Warn("refresh_token_unknown",
			slog.String("op", op),
			slog.String("refresh_token", redact.Token(refreshToken)),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	case 1:
	default:
		lg.Error("refresh_token_duplicated",
			slog.String("op", op),
			slog.String("refresh_token", redact.Token(refreshToken)),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrIntegrityViolation)
	}

	old := matches[0]

	if old.UserAgent != userAgent {
		lg.Warn("refresh_device_mismatch",
			slog.String("op", op),
			slog.Int64("user_id", old.UserID),
			slog.String("user_agent", userAgent),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrDeviceMismatch)
	}

	if old.Expired(s.now().UTC()) {
		if _, err := s.sessions.DeleteSession(ctx, old.UserID, old.RefreshToken); err != nil {
			return nil, storageErr(op, err)
		}

		lg.Info("refresh_session_expired",
			slog.String("op", op),
			slog.Int64("user_id", old.UserID),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrSessionExpired)
	}

	user, err := s.users.UserByID(ctx, old.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("refresh_orphaned_session",
				slog.String("op", op),
				slog.Int64("user_id", old.UserID),
			)
			return nil, fmt.Errorf("%s: %w", op, ErrOrphanedToken)
		}

		return nil, storageErr(op, err)
	}

	tokens, err := s.openSession(ctx, user, userAgent)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	fresh := tokens.Session
	deleted, err := s.sessions.DeleteSession(ctx, old.UserID, old.RefreshToken)
	if err != nil {
		if _, rbErr := s.sessions.DeleteSession(ctx, fresh.UserID, fresh.RefreshToken); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("rollback new session: %w", rbErr))
		}

		lg.Error("refresh_rotation_failed",
			slog.String("op", op),
			slog.Int64("user_id", old.UserID),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}

	// Старую запись уже удалил параллельный запрос с тем же токеном:
	// токен потрачен, новая сессия этого запроса не должна остаться.
	if !deleted {
		if _, rbErr := s.sessions.DeleteSession(ctx, fresh.UserID, fresh.RefreshToken); rbErr != nil {
			lg.Error("refresh_rollback_failed",
				slog.String("op", op),
				slog.Int64("user_id", old.UserID),
				slog.String("err", rbErr.Error()),
			)
			return nil, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, rbErr)
		}

		lg.Warn("refresh_token_reused",
			slog.String("op", op),
			slog.Int64("user_id", old.UserID),
			slog.String("refresh_token", redact.Token(refreshToken)),
		)
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	lg.Info("session_refreshed",
		slog.String("op", op),
		slog.Int64("user_id", user.ID),
	)

	return tokens, nil
}

// DeleteSession закрывает сессию пользователя на устройстве userAgent.
func (s *Service) DeleteSession(ctx context.Context, userID int64, userAgent string) error {
	const op = "service.sessions.DeleteSession"

	var (
		total  int
		target *models.Session
	)
	for sess, err := range s.sessions.SessionsByUser(ctx, userID) {
		if err != nil {
			return storageErr(op, err)
		}
		total++
		if sess.UserAgent == userAgent {
			target = &sess
			break
		}
	}

	switch {
	case total == 0:
		return fmt.Errorf("%s: %w", op, ErrNoSessions)
	case target == nil:
		return fmt.Errorf("%s: %w", op, ErrUserAgentUnmatched)
	}

	if _, err := s.sessions.DeleteSession(ctx, target.UserID, target.RefreshToken); err != nil {
		return storageErr(op, err)
	}

	log.From(ctx).Info("session_deleted",
		slog.String("op", op),
		slog.Int64("user_id", userID),
		slog.String("user_agent", userAgent),
	)

	return nil
}

// InvalidateSessions удаляет все сессии пользователя и возвращает их число.
//
// Каждая прочитанная сессия удаляется сразу, сбой удаления не прерывает
// обход. Если обход оборвался (например, на повреждённой записи) или
// какое-то удаление не прошло, ключи пользователя вычищаются без
// декодирования. Ошибка возвращается, только если не удалась и эта зачистка.
func (s *Service) InvalidateSessions(ctx context.Context, userID int64) (int, error) {
	const op = "service.sessions.InvalidateSessions"

	lg := log.From(ctx)

	var (
		n    int
		errs []error
	)
	for sess, err := range s.sessions.SessionsByUser(ctx, userID) {
		if err != nil {
			errs = append(errs, err)
			break
		}

		deleted, err := s.sessions.DeleteSession(ctx, sess.UserID, sess.RefreshToken)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if deleted {
			n++
		}
	}

	if len(errs) > 0 {
		lg.Warn("sessions_sweep",
			slog.String("op", op),
			slog.Int64("user_id", userID),
			slog.String("err", errors.Join(errs...).Error()),
		)

		swept, err := s.sessions.DeleteUserSessions(ctx, userID)
		if err != nil {
			errs = append(errs, err)
			lg.Error("sessions_invalidate_failed",
				slog.String("op", op),
				slog.Int64("user_id", userID),
				slog.Int("deleted", n),
				slog.String("err", err.Error()),
			)
			return n, storageErr(op, errors.Join(errs...))
		}
		n += swept
	}

	if n > 0 {
		lg.Info("sessions_invalidated",
			slog.String("op", op),
			slog.Int64("user_id", userID),
			slog.Int("count", n),
		)
	}

	return n, nil
}

// openSession выпускает access-токен и новый refresh-токен и сохраняет сессию.
func (s *Service) openSession(ctx context.Context, user *models.User, userAgent string) (*models.SessionTokens, error) {
	const op = "service.sessions.openSession"

	access, _, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInternal, err)
	}

	refresh, err := s.newRefresh()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrInternal, err)
	}

	sess := models.Session{
		UserID:                user.ID,
		UserAgent:             userAgent,
		RefreshToken:          refresh,
		RefreshTokenExpiresAt: s.now().UTC().Add(s.refreshTTL),
	}

	if err := s.sessions.PutSession(ctx, sess, s.refreshTTL); err != nil {
		return nil, storageErr(op, err)
	}

	return &models.SessionTokens{AccessToken: access, Session: sess}, nil
}
