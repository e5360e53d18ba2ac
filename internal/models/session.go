package models

import "time"

// Session - запись хранилища сессий: одна сессия = один вход с устройства.
//
// Ключ записи выводится из пары (UserID, RefreshToken), поэтому одно и то же
// значение RefreshToken не может принадлежать двум сессиям; обнаруженный
// дубль считается нарушением целостности, а не допустимым состоянием.
type Session struct {
	UserID                int64
	UserAgent             string
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
}

// Expired сообщает, истёк ли refresh-токен сессии к моменту now.
func (s Session) Expired(now time.Time) bool {
	return now.After(s.RefreshTokenExpiresAt)
}

// SessionTokens - результат входа или ротации: access-токен отдаётся
// заголовком ответа, сессия (с refresh-токеном) - телом.
type SessionTokens struct {
	AccessToken string
	Session     Session
}
