package handlers

import (
	"net/http"

	"github.com/pribylovaa/go-news-publisher/internal/access"
	"github.com/pribylovaa/go-news-publisher/internal/models"
	apierrors "github.com/pribylovaa/go-news-publisher/internal/transport/http/errors"
)

// CreateSession - вход по логину и паролю. Устройство определяется
// заголовком User-Agent; access-токен уходит в заголовке X-JWT.
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	tokens, err := h.svc.CreateSession(r.Context(), in.Login, in.Password, r.UserAgent())
	if err != nil {
		apierrors.WritePlain(w, r, err)
		return
	}

	writeTokens(w, tokens)
}

// ListSessions отдаёт пользователю его сессии без refresh-токенов.
func (h *Handlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user_id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}
	if err := access.RequireSelf(access.ClaimsFrom(r.Context()), userID); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	sessions, err := h.svc.ListSessions(r.Context(), userID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out := make([]sessionView, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toSessionView(s))
	}
	writeJSON(w, http.StatusOK, out)
}

// AdminListSessions - то же для администратора, вместе с refresh-токенами.
func (h *Handlers) AdminListSessions(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "user_id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}
	if err := access.RequireRole(access.ClaimsFrom(r.Context()), models.RoleAdmin); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	sessions, err := h.svc.ListSessions(r.Context(), userID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toSessionResponse(s))
	}
	writeJSON(w, http.StatusOK, out)
}

// RefreshSession ротирует refresh-токен. Access-токен не требуется.
func (h *Handlers) RefreshSession(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	tokens, err := h.svc.RefreshSession(r.Context(), in.RefreshToken, r.UserAgent())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeTokens(w, tokens)
}

// DeleteSession завершает сессию текущего устройства.
func (h *Handlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	claims := access.ClaimsFrom(r.Context())
	if claims == nil {
		apierrors.WriteError(w, r, access.ErrUnauthenticated)
		return
	}

	if err := h.svc.DeleteSession(r.Context(), claims.SubjectID, r.UserAgent()); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeTokens(w http.ResponseWriter, tokens *models.SessionTokens) {
	w.Header().Set(HeaderAccessToken, tokens.AccessToken)
	writeJSON(w, http.StatusOK, toSessionResponse(tokens.Session))
}
