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

// CreateComment добавляет комментарий к существующей новости.
func (s *Service) CreateComment(ctx context.Context, claims *models.AccessClaims, newsID int64, text string) (*models.Comment, error) {
	const op = "service.comments.CreateComment"

	if claims == nil {
		return nil, fmt.Errorf("%s: %w", op, access.ErrUnauthenticated)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%s: %w: empty text", op, ErrInvalidInput)
	}

	if _, err := s.news.NewsByID(ctx, newsID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: news %d: %w", op, newsID, ErrNotFound)
		}

		return nil, storageErr(op, err)
	}

	comment := &models.Comment{
		NewsID:      newsID,
		AuthorID:    claims.SubjectID,
		Text:        text,
		PublishedAt: s.now().UTC(),
	}

	id, err := s.comments.SaveComment(ctx, comment)
	if err != nil {
		return nil, storageErr(op, err)
	}
	comment.ID = id

	log.From(ctx).Info("comment_created",
		slog.String("op", op),
		slog.String("comment_id", id),
		slog.Int64("news_id", newsID),
	)

	return comment, nil
}

// GetComment возвращает комментарий по ID.
func (s *Service) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	const op = "service.comments.GetComment"

	c, err := s.comments.CommentByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, storageErr(op, err)
	}

	return c, nil
}

// ListComments возвращает все комментарии; пустой список - ErrNotFound.
func (s *Service) ListComments(ctx context.Context) ([]models.Comment, error) {
	const op = "service.comments.ListComments"

	list, err := s.comments.ListComments(ctx)
	if err != nil {
		return nil, storageErr(op, err)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	return list, nil
}

// UpdateComment меняет текст комментария (владелец или администратор).
func (s *Service) UpdateComment(ctx context.Context, claims *models.AccessClaims, id, text string) (*models.Comment, error) {
	const op = "service.comments.UpdateComment"

	comment, err := access.RequireOwnerOrAdmin(ctx, claims, func(ctx context.Context) (*models.Comment, error) {
		return s.comments.CommentByID(ctx, id)
	})
	if err != nil {
		return nil, accessErr(op, err)
	}

	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%s: %w: empty text", op, ErrInvalidInput)
	}

	if err := s.comments.UpdateComment(ctx, comment.ID, text); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return nil, storageErr(op, err)
	}
	comment.Text = text

	log.From(ctx).Info("comment_updated",
		slog.String("op", op),
		slog.String("comment_id", id),
		slog.Int64("by", claims.SubjectID),
	)

	return comment, nil
}

// DeleteComment удаляет комментарий (владелец или администратор).
func (s *Service) DeleteComment(ctx context.Context, claims *models.AccessClaims, id string) error {
	const op = "service.comments.DeleteComment"

	_, err := access.RequireOwnerOrAdmin(ctx, claims, func(ctx context.Context) (*models.Comment, error) {
		return s.comments.CommentByID(ctx, id)
	})
	if err != nil {
		return accessErr(op, err)
	}

	if err := s.comments.DeleteComment(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return storageErr(op, err)
	}

	log.From(ctx).Info("comment_deleted",
		slog.String("op", op),
		slog.String("comment_id", id),
		slog.Int64("by", claims.SubjectID),
	)

	return nil
}
