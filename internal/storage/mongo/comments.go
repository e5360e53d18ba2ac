package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pribylovaa/go-news-publisher/internal/models"
	"github.com/pribylovaa/go-news-publisher/internal/storage"
)

type commentDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	NewsID      int64              `bson:"news_id"`
	AuthorID    int64              `bson:"author_id"`
	Text        string             `bson:"text"`
	PublishedAt time.Time          `bson:"published_at"`
}

func (d commentDoc) model() *models.Comment {
	return &models.Comment{
		ID:          d.ID.Hex(),
		NewsID:      d.NewsID,
		AuthorID:    d.AuthorID,
		Text:        d.Text,
		PublishedAt: d.PublishedAt.UTC(),
	}
}

// SaveComment сохраняет комментарий и возвращает его ID (hex ObjectID).
func (m *Mongo) SaveComment(ctx context.Context, c *models.Comment) (string, error) {
	const op = "storage.mongo.SaveComment"

	// MongoDB DateTime хранит миллисекунды.
	doc := commentDoc{
		NewsID:      c.NewsID,
		AuthorID:    c.AuthorID,
		Text:        c.Text,
		PublishedAt: c.PublishedAt.UTC().Truncate(time.Millisecond),
	}

	res, err := m.comments.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("%s: insert: %w", op, classify(err))
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("%s: inserted id type %T", op, res.InsertedID)
	}

	return oid.Hex(), nil
}

// CommentByID возвращает комментарий. Некорректный id трактуется как «нет такой записи».
func (m *Mongo) CommentByID(ctx context.Context, id string) (*models.Comment, error) {
	const op = "storage.mongo.CommentByID"

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	var doc commentDoc
	if err := m.comments.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}

	return doc.model(), nil
}

// ListComments возвращает все комментарии по возрастанию _id (порядок вставки).
func (m *Mongo) ListComments(ctx context.Context) ([]models.Comment, error) {
	const op = "storage.mongo.ListComments"

	cur, err := m.comments.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%s: find: %w", op, classify(err))
	}

	var docs []commentDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%s: decode: %w", op, classify(err))
	}

	out := make([]models.Comment, 0, len(docs))
	for _, d := range docs {
		out = append(out, *d.model())
	}

	return out, nil
}

// UpdateComment заменяет текст комментария.
func (m *Mongo) UpdateComment(ctx context.Context, id, text string) error {
	const op = "storage.mongo.UpdateComment"

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	res, err := m.comments.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "text", Value: text}}}},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// DeleteComment удаляет комментарий.
func (m *Mongo) DeleteComment(ctx context.Context, id string) error {
	const op = "storage.mongo.DeleteComment"

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	res, err := m.comments.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// DeleteCommentsByNews удаляет все комментарии новости.
func (m *Mongo) DeleteCommentsByNews(ctx context.Context, newsID int64) error {
	const op = "storage.mongo.DeleteCommentsByNews"

	if _, err := m.comments.DeleteMany(ctx, bson.D{{Key: "news_id", Value: newsID}}); err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}

	return nil
}
