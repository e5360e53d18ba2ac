package models

import "time"

// News - новость (реляционное хранилище).
type News struct {
	ID          int64
	AuthorID    int64
	Header      string
	Content     string
	PublishedAt time.Time
}

// OwnerID возвращает автора новости.
func (n *News) OwnerID() int64 { return n.AuthorID }

// Comment - комментарий к новости (MongoDB).
// ID - hex-представление ObjectID.
type Comment struct {
	ID          string
	NewsID      int64
	AuthorID    int64
	Text        string
	PublishedAt time.Time
}

// OwnerID возвращает автора комментария.
func (c *Comment) OwnerID() int64 { return c.AuthorID }
