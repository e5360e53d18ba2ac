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
	"github.com/pribylovaa/go-news-publisher/internal/storage"
)

// CreateNews публикует новость от имени автора или администратора.
func (s *Service) CreateNews(ctx context.Context, claims *models.AccessClaims, header, content string) (*models.News, error) {
	const op = "service.news.CreateNews"

	authorID, err := access.RequireAuthorOrAdmin(claims)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if strings.TrimSpace(header) == "" || strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%s: %w: header and content are required", op, ErrInvalidInput)
	}

	news := &models.News{
		AuthorID:    authorID,
		Header:      header,
		Content:     content,
		PublishedAt: s.now().UTC(),
	}

	id, err := s.news.SaveNews(ctx, news)
	if err != nil {
		return nil, storageErr(op, err)
	}
	news.ID = id

	log.From(ctx).Info("news_created",
		slog.String("op", op),
		slog.Int64("news_id", id),
		slog.Int64("author_id", authorID),
	)

	return news, nil
}

// GetNews возвращает новость по ID.
func (s *Service) GetNews(ctx context.Context, id int64) (*models.News, error) {
	const op = "service.news.GetNews"

	news, err := s.news.NewsByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, storageErr(op, err)
	}

	return news, nil
}

// ListNews возвращает все новости; пустой список - ErrNotFound.
func (s *Service) ListNews(ctx context.Context) ([]models.News, error) {
	const op = "service.news.ListNews"

	list, err := s.news.ListNews(ctx)
	if err != nil {
		return nil, storageErr(op, err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	return list, nil
}

// UpdateNews меняет заголовок и текст (владелец или администратор).
// Автор и дата публикации сохраняются.
func (s *Service) UpdateNews(ctx context.Context, claims *models.AccessClaims, id int64, header, content string) (*models.News, error) {
	const op = "service.news.UpdateNews"

	news, err := access.RequireOwnerOrAdmin(ctx, claims, func(ctx context.Context) (*models.News, error) {
		return s.news.NewsByID(ctx, id)
	})
	if err != nil {
		return nil, accessErr(op, err)
	}

	if strings.TrimSpace(header) == "" || strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%s: %w: header and content are required", op, ErrInvalidInput)
	}

	news.Header, news.Content = header, content
	if err := s.news.UpdateNews(ctx, news); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, storageErr(op, err)
	}

	log.From(ctx).Info("news_updated",
		slog.String("op", op),
		slog.Int64("news_id", id),
		slog.Int64("by", claims.SubjectID),
	)

	return news, nil
}

// DeleteNews удаляет новость (владелец или администратор) вместе с комментариями.
func (s *Service) DeleteNews(ctx context.Context, claims *models.AccessClaims, id int64) error {
	const op = "service.news.DeleteNews"

	_, err := access.RequireOwnerOrAdmin(ctx, claims, func(ctx context.Context) (*models.News, error) {
		return s.news.NewsByID(ctx, id)
	})
	if err != nil {
		return accessErr(op, err)
	}

	if err := s.news.DeleteNews(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return storageErr(op, err)
	}

	if err := s.comments.DeleteCommentsByNews(ctx, id); err != nil {
		return storageErr(op, err)
	}

	log.From(ctx).Info("news_deleted",
		slog.String("op", op),
		slog.Int64("news_id", id),
		slog.Int64("by", claims.SubjectID),
	)

	return nil
}

// accessErr пропускает ошибки предикатов как есть, а сбой загрузки ресурса
// помечает как ошибку хранилища.
func accessErr(op string, err error) error {
	switch {
	case errors.Is(err, access.ErrUnauthenticated),
		errors.Is(err, access.ErrForbidden),
		errors.Is(err, access.ErrResourceNotFound):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return storageErr(op, err)
	}
}
