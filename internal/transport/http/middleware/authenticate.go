package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pribylovaa/go-news-publisher/internal/access"
	"github.com/pribylovaa/go-news-publisher/internal/models"
	logctx "github.com/pribylovaa/go-news-publisher/internal/pkg/log"
	"github.com/pribylovaa/go-news-publisher/internal/token"
)

// Verifier проверяет access-токен (реализация - token.Codec).
type Verifier interface {
	Verify(tok string) (*models.AccessClaims, error)
}

// Authenticate извлекает Bearer-токен из Authorization, проверяет его
// и кладёт claims в контекст через access.WithClaims.
//
// Отсутствующий или негодный токен не обрывает запрос: он продолжается
// без claims, а решение принимают предикаты доступа в хендлерах.
func Authenticate(v Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearer(r.Header.Get("Authorization"))
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				logctx.From(r.Context()).LogAttrs(r.Context(), slog.LevelWarn, "access_token_rejected",
					slog.String("reason", tokenReason(err)),
				)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(access.WithClaims(r.Context(), claims)))
		})
	}
}

func bearer(h string) (string, bool) {
	const prefix = "Bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}

	tok := strings.TrimSpace(h[len(prefix):])
	return tok, tok != ""
}

func tokenReason(err error) string {
	switch {
	case errors.Is(err, token.ErrExpired):
		return "expired"
	case errors.Is(err, token.ErrSignature):
		return "signature"
	case errors.Is(err, token.ErrMalformed):
		return "malformed"
	default:
		return "invalid"
	}
}
