package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-news-publisher/internal/access"
	apierrors "github.com/pribylovaa/go-news-publisher/internal/transport/http/errors"
)

func (h *Handlers) CreateComment(w http.ResponseWriter, r *http.Request) {
	var in commentRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	comment, err := h.svc.CreateComment(r.Context(), access.ClaimsFrom(r.Context()), in.NewsID, in.Text)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCommentResponse(comment))
}

func (h *Handlers) ListComments(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListComments(r.Context())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toList(list, toCommentResponse))
}

func (h *Handlers) GetComment(w http.ResponseWriter, r *http.Request) {
	comment, err := h.svc.GetComment(r.Context(), chi.URLParam(r, "comment_id"))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCommentResponse(comment))
}

func (h *Handlers) UpdateComment(w http.ResponseWriter, r *http.Request) {
	var in commentTextRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	comment, err := h.svc.UpdateComment(r.Context(), access.ClaimsFrom(r.Context()), chi.URLParam(r, "comment_id"), in.Text)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toCommentResponse(comment))
}

// DeleteComment: comment_id - hex ObjectID, проверяется хранилищем.
func (h *Handlers) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "comment_id")

	if err := h.svc.DeleteComment(r.Context(), access.ClaimsFrom(r.Context()), id); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
