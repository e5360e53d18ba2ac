package redis

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pribylovaa/go-news-publisher/internal/models"
	"github.com/pribylovaa/go-news-publisher/internal/storage"
)

const (
	keyPrefix     = "session:"
	recordVersion = 1
)

// record - формат значения в Redis. Поле v отсутствует у записей,
// сделанных до введения версий; они читаются как версия 1.
type record struct {
	V            int       `json:"v,omitempty"`
	UserID       int64     `json:"user_id"`
	UserAgent    string    `json:"user_agent"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"refresh_token_expiretime"`
}

func sessionKey(userID int64, refreshToken string) string {
	return keyPrefix + strconv.FormatInt(userID, 10) + ":" + refreshToken
}

func userPattern(userID int64) string {
	return keyPrefix + strconv.FormatInt(userID, 10) + ":*"
}

func tokenPattern(refreshToken string) string {
	return keyPrefix + "*:" + escapeGlob(refreshToken)
}

// escapeGlob экранирует метасимволы шаблона MATCH.
func escapeGlob(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '^', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}

	return b.String()
}

// parseKey разбирает session:{user_id}:{refresh_token}.
func parseKey(key string) (int64, string, bool) {
	rest, ok := strings.CutPrefix(key, keyPrefix)
	if !ok {
		return 0, "", false
	}

	idStr, token, ok := strings.Cut(rest, ":")
	if !ok || token == "" {
		return 0, "", false
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, "", false
	}

	return id, token, true
}

func encodeSession(s models.Session) ([]byte, error) {
	return json.Marshal(record{
		V:            recordVersion,
		UserID:       s.UserID,
		UserAgent:    s.UserAgent,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.RefreshTokenExpiresAt.UTC(),
	})
}

// decodeSession декодирует значение и сверяет его с ключом.
// Любое расхождение - storage.ErrCorrupted.
func decodeSession(key string, raw []byte) (models.Session, error) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return models.Session{}, fmt.Errorf("%w: %s: %v", storage.ErrCorrupted, key, err)
	}

	if rec.V == 0 {
		rec.V = 1
	}
	if rec.V != recordVersion {
		return models.Session{}, fmt.Errorf("%w: %s: unknown version %d", storage.ErrCorrupted, key, rec.V)
	}

	userID, token, ok := parseKey(key)
	if !ok {
		return models.Session{}, fmt.Errorf("%w: %s: bad key", storage.ErrCorrupted, key)
	}
	if rec.UserID != userID || rec.RefreshToken != token {
		return models.Session{}, fmt.Errorf("%w: %s: body does not match key", storage.ErrCorrupted, key)
	}
	if rec.ExpiresAt.IsZero() {
		return models.Session{}, fmt.Errorf("%w: %s: missing expiry", storage.ErrCorrupted, key)
	}

	return models.Session{
		UserID:                rec.UserID,
		UserAgent:             rec.UserAgent,
		RefreshToken:          rec.RefreshToken,
		RefreshTokenExpiresAt: rec.ExpiresAt.UTC(),
	}, nil
}
