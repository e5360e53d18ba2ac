package models

import "time"

// AccessClaims - проверенное содержимое access-токена.
// Нигде не хранится: существует только внутри подписанной строки у клиента.
type AccessClaims struct {
	SubjectID int64
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IsAdmin - сокращение для проверок прав.
func (c AccessClaims) IsAdmin() bool { return c.Role == RoleAdmin }
