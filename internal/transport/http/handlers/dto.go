package handlers

import (
	"time"

	"github.com/pribylovaa/go-news-publisher/internal/models"
)

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// sessionResponse - тело ответа входа и ротации, а также элемент
// административного списка сессий.
type sessionResponse struct {
	UserID                int64     `json:"user_id"`
	UserAgent             string    `json:"user_agent"`
	RefreshToken          string    `json:"refresh_token"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
}

// sessionView - сессия без refresh-токена: владелец видит свои устройства,
// но не секреты.
type sessionView struct {
	UserID                int64     `json:"user_id"`
	UserAgent             string    `json:"user_agent"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
}

func toSessionResponse(s models.Session) sessionResponse {
	return sessionResponse{
		UserID:                s.UserID,
		UserAgent:             s.UserAgent,
		RefreshToken:          s.RefreshToken,
		RefreshTokenExpiresAt: s.RefreshTokenExpiresAt.UTC(),
	}
}

func toSessionView(s models.Session) sessionView {
	return sessionView{
		UserID:                s.UserID,
		UserAgent:             s.UserAgent,
		RefreshTokenExpiresAt: s.RefreshTokenExpiresAt.UTC(),
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Login    string `json:"login"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

type profileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type roleRequest struct {
	Role string `json:"role"`
}

// userResponse не содержит хэша пароля.
type userResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Login        string    `json:"login"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	RegisteredAt time.Time `json:"registered_at"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:           u.ID,
		Name:         u.Name,
		Login:        u.Login,
		Email:        u.Email,
		Role:         u.Role.String(),
		RegisteredAt: u.RegisteredAt.UTC(),
	}
}

type newsRequest struct {
	Header  string `json:"header"`
	Content string `json:"content"`
}

type newsResponse struct {
	ID          int64     `json:"id"`
	AuthorID    int64     `json:"author_id"`
	Header      string    `json:"header"`
	Content     string    `json:"content"`
	PublishedAt time.Time `json:"published_at"`
}

func toNewsResponse(n *models.News) newsResponse {
	return newsResponse{
		ID:          n.ID,
		AuthorID:    n.AuthorID,
		Header:      n.Header,
		Content:     n.Content,
		PublishedAt: n.PublishedAt.UTC(),
	}
}

type commentRequest struct {
	NewsID int64  `json:"news_id"`
	Text   string `json:"text"`
}

type commentTextRequest struct {
	Text string `json:"text"`
}

type commentResponse struct {
	ID          string    `json:"id"`
	NewsID      int64     `json:"news_id"`
	AuthorID    int64     `json:"author_id"`
	Text        string    `json:"text"`
	PublishedAt time.Time `json:"published_at"`
}

func toCommentResponse(c *models.Comment) commentResponse {
	return commentResponse{
		ID:          c.ID,
		NewsID:      c.NewsID,
		AuthorID:    c.AuthorID,
		Text:        c.Text,
		PublishedAt: c.PublishedAt.UTC(),
	}
}

// toList применяет конвертер к каждому элементу среза.
func toList[M, R any](items []M, conv func(*M) R) []R {
	out := make([]R, 0, len(items))
	for i := range items {
		out = append(out, conv(&items[i]))
	}
	return out
}
