// mongo - хранилище комментариев поверх MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/pribylovaa/go-news-publisher/internal/storage"
)

const (
	commentsCollection = "comments"
	defaultDBName      = "news"
)

// Mongo - тонкий адаптер над клиентом и коллекцией комментариев.
type Mongo struct {
	client   *mongodriver.Client
	comments *mongodriver.Collection
}

// New подключается к MongoDB, проверяет соединение и создаёт индексы.
func New(ctx context.Context, uri, database string) (*Mongo, error) {
	const op = "storage.mongo.New"

	if uri == "" {
		return nil, fmt.Errorf("%s: empty uri", op)
	}
	if database == "" {
		database = defaultDBName
	}

	cli, err := mongodriver.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%s: connect: %w", op, err)
	}

	if err := cli.Ping(ctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, fmt.Errorf("%s: ping: %w: %w", op, storage.ErrUnavailable, err)
	}

	m := &Mongo{
		client:   cli,
		comments: cli.Database(database).Collection(commentsCollection),
	}

	if err := m.ensureIndexes(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("%s: %w", op, err), m.Close(context.Background()))
	}

	return m, nil
}

// Ping проверяет доступность MongoDB (для /healthz).
func (m *Mongo) Ping(ctx context.Context) error {
	if err := m.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("storage.mongo.Ping: %w: %w", storage.ErrUnavailable, err)
	}

	return nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// ensureIndexes: выборка и удаление комментариев новости идут по news_id.
func (m *Mongo) ensureIndexes(ctx context.Context) error {
	_, err := m.comments.Indexes().CreateOne(ctx, mongodriver.IndexModel{
		Keys:    bson.D{{Key: "news_id", Value: 1}},
		Options: options.Index().SetName("news_id"),
	})
	if err != nil {
		return fmt.Errorf("ensure indexes: %w", classify(err))
	}

	return nil
}

// classify помечает сетевые отказы и таймауты как storage.ErrUnavailable.
func classify(err error) error {
	if mongodriver.IsNetworkError(err) || mongodriver.IsTimeout(err) {
		return fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
	}

	return err
}

var _ storage.CommentStorage = (*Mongo)(nil)
