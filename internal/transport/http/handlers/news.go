package handlers

import (
	"net/http"

	"github.com/pribylovaa/go-news-publisher/internal/access"
	apierrors "github.com/pribylovaa/go-news-publisher/internal/transport/http/errors"
)

func (h *Handlers) CreateNews(w http.ResponseWriter, r *http.Request) {
	var in newsRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	news, err := h.svc.CreateNews(r.Context(), access.ClaimsFrom(r.Context()), in.Header, in.Content)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toNewsResponse(news))
}

func (h *Handlers) GetNews(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "news_id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	news, err := h.svc.GetNews(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toNewsResponse(news))
}

func (h *Handlers) ListNews(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListNews(r.Context())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toList(list, toNewsResponse))
}

func (h *Handlers) UpdateNews(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "news_id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	var in newsRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	news, err := h.svc.UpdateNews(r.Context(), access.ClaimsFrom(r.Context()), id, in.Header, in.Content)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toNewsResponse(news))
}

// DeleteNews удаляет новость вместе с комментариями к ней.
func (h *Handlers) DeleteNews(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "news_id")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if err := h.svc.DeleteNews(r.Context(), access.ClaimsFrom(r.Context()), id); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
