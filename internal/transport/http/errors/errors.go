// errors стандартизирует ответы об ошибках HTTP-слоя.
// На вход принимает ошибку сервисного слоя, предикатов доступа или
// кодека токенов, а на выход даёт:
//   - корректный HTTP-статус;
//   - краткое безопасное message без утечки деталей.
//
// Исключение - неудачный вход: для него WritePlain отдаёт text/plain,
// как ожидают существующие клиенты.
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/pribylovaa/go-news-publisher/internal/access"
	"github.com/pribylovaa/go-news-publisher/internal/service"
	"github.com/pribylovaa/go-news-publisher/internal/token"
)

// Нестандартный код часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// APIError - единый формат для фронта.
// Code - короткий стабильный код для машиночитаемой обработки на FE.
// Message - безопасное человекочитаемое описание.
// RequestID - прокидывается из X-Request-Id, если есть.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse - корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ErrBadRequest - локальная ошибка разбора запроса в хендлерах.
var ErrBadRequest = stderrors.New("bad request")

// rule - строка таблицы маппинга; первая совпавшая побеждает.
type rule struct {
	target  error
	status  int
	code    string
	message string
}

// Порядок важен: доменные виды проверяются раньше инфраструктурных,
// дедлайн раньше ErrUnavailable (адаптеры хранилищ заворачивают таймауты в него).
var rules = []rule{
	{service.ErrUnknownLogin, http.StatusUnauthorized, "unauthenticated", "unauthenticated"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "unauthenticated", "unauthenticated"},
	{service.ErrInvalidToken, http.StatusUnauthorized, "invalid_token", "invalid token"},
	{token.ErrInvalidToken, http.StatusUnauthorized, "invalid_token", "invalid token"},
	{access.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated", "unauthenticated"},

	{service.ErrDeviceMismatch, http.StatusForbidden, "device_mismatch", "token was issued to another device"},
	{access.ErrForbidden, http.StatusForbidden, "permission_denied", "permission denied"},

	{service.ErrSessionExpired, http.StatusBadRequest, "session_expired", "session expired"},
	{service.ErrOrphanedToken, http.StatusBadRequest, "orphaned_token", "session belongs to unknown user"},
	{service.ErrInvalidInput, http.StatusBadRequest, "invalid_argument", "invalid argument"},
	{ErrBadRequest, http.StatusBadRequest, "invalid_argument", "invalid argument"},

	{service.ErrIntegrityViolation, http.StatusConflict, "integrity_violation", "refresh token is not unique"},
	{service.ErrAlreadyExists, http.StatusConflict, "already_exists", "already exists"},

	{service.ErrNotFound, http.StatusNotFound, "not_found", "not found"},
	{service.ErrNoSessions, http.StatusNotFound, "not_found", "no sessions"},
	{service.ErrUserAgentUnmatched, http.StatusNotFound, "not_found", "no session for user agent"},
	{access.ErrResourceNotFound, http.StatusNotFound, "not_found", "not found"},

	{context.Canceled, StatusClientClosedRequest, "canceled", "canceled"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "deadline_exceeded", "deadline exceeded"},
	{service.ErrUnavailable, http.StatusServiceUnavailable, "unavailable", "service unavailable"},
}

// ToHTTP конвертирует ошибку в HTTP-статус и унифицированный ответ.
//
// Поведение:
//   - err == nil - программная ошибка вызова: 500/internal,
//     чтобы не послать "200 OK" с телом ошибки;
//   - известный вид ошибки - статус из таблицы rules;
//   - прочее (включая service.ErrInternal) - 500/internal без деталей.
func ToHTTP(err error) (int, ErrorResponse) {
	if err != nil {
		for _, rl := range rules {
			if stderrors.Is(err, rl.target) {
				return rl.status, ErrorResponse{
					Error: APIError{Code: rl.code, Message: rl.message},
				}
			}
		}
	}

	return http.StatusInternalServerError, ErrorResponse{
		Error: APIError{
			Code:    "internal",
			Message: "internal error",
		},
	}
}

// WriteError - хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// WritePlain пишет неудачный вход текстом: 401 и одна из двух фраз.
// Для прочих ошибок делегирует WriteError.
func WritePlain(w http.ResponseWriter, r *http.Request, err error) {
	var msg string
	switch {
	case stderrors.Is(err, service.ErrInvalidCredentials):
		msg = "Incorrect password"
	case stderrors.Is(err, service.ErrUnknownLogin):
		msg = "This login is not registered"
	default:
		WriteError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(msg))
}
