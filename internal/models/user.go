// models содержит доменные сущности news-publisher.
// Эти типы используются слоями бизнес-логики, хранилища и транспорта.
package models

import "time"

// Role - роль пользователя, определяющая набор разрешённых операций.
type Role string

const (
	RoleUser   Role = "user"
	RoleAuthor Role = "author"
	RoleAdmin  Role = "admin"
)

// Valid сообщает, является ли значение одной из известных ролей.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAuthor, RoleAdmin:
		return true
	default:
		return false
	}
}

func (r Role) String() string { return string(r) }

// User - модель пользователя (реляционное хранилище).
// PasswordHash хранится в самоописывающем формате argon2id (см. pkg/password).
type User struct {
	ID           int64
	Name         string
	Login        string
	Email        string
	Role         Role
	PasswordHash string
	RegisteredAt time.Time
}
