package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pribylovaa/go-news-publisher/internal/models"
	"github.com/pribylovaa/go-news-publisher/internal/storage"
)

const newsColumns = `id, author_id, header, content, published_at`

// SaveNews сохраняет новость и возвращает её ID.
func (s *Storage) SaveNews(ctx context.Context, news *models.News) (int64, error) {
	const op = "storage.postgres.SaveNews"

	var id int64
	err := s.db.QueryRow(ctx, `
		INSERT INTO news (author_id, header, content, published_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, news.AuthorID, news.Header, news.Content, news.PublishedAt.UTC()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, classify(err))
	}

	return id, nil
}

// NewsByID возвращает новость по идентификатору.
// Если запись не найдена - storage.ErrNotFound.
func (s *Storage) NewsByID(ctx context.Context, id int64) (*models.News, error) {
	const op = "storage.postgres.NewsByID"

	news, err := scanNews(s.db.QueryRow(ctx, `
		SELECT `+newsColumns+`
		FROM news
		WHERE id = $1
	`, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return news, nil
}

// ListNews возвращает все новости по возрастанию ID.
func (s *Storage) ListNews(ctx context.Context) ([]models.News, error) {
	const op = "storage.postgres.ListNews"

	rows, err := s.db.Query(ctx, `SELECT `+newsColumns+` FROM news ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}

	list, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.News, error) {
		n, err := scanNews(row)
		if err != nil {
			return models.News{}, err
		}
		return *n, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}

	return list, nil
}

// UpdateNews заменяет заголовок и текст новости.
func (s *Storage) UpdateNews(ctx context.Context, news *models.News) error {
	const op = "storage.postgres.UpdateNews"

	tag, err := s.db.Exec(ctx, `UPDATE news SET header = $2, content = $3 WHERE id = $1`,
		news.ID, news.Header, news.Content)
	if err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// DeleteNews удаляет новость.
func (s *Storage) DeleteNews(ctx context.Context, id int64) error {
	const op = "storage.postgres.DeleteNews"

	tag, err := s.db.Exec(ctx, `DELETE FROM news WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

func scanNews(row pgx.Row) (*models.News, error) {
	var news models.News

	err := row.Scan(
		&news.ID,
		&news.AuthorID,
		&news.Header,
		&news.Content,
		&news.PublishedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}

		return nil, classify(err)
	}

	news.PublishedAt = news.PublishedAt.UTC()

	return &news, nil
}
