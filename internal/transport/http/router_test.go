package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-news-publisher/internal/models"
	"github.com/pribylovaa/go-news-publisher/internal/pkg/password"
	"github.com/pribylovaa/go-news-publisher/internal/service"
	"github.com/pribylovaa/go-news-publisher/internal/storage/inmem"
	"github.com/pribylovaa/go-news-publisher/internal/token"
	transporthttp "github.com/pribylovaa/go-news-publisher/internal/transport/http"
	"github.com/pribylovaa/go-news-publisher/internal/transport/http/middleware"
)

const (
	uaFirefox = "Mozilla/5.0 Firefox/128.0"
	uaCurl    = "curl/8.5.0"
)

type env struct {
	srv *httptest.Server
	st  *inmem.Storage
	reg *prometheus.Registry
}

func newEnv(t *testing.T, basePath string) *env {
	t.Helper()

	st := inmem.New()
	codec, err := token.New("e2e-secret", 15*time.Minute, "news-publisher")
	require.NoError(t, err)

	svc := service.New(service.Deps{
		Users:    st,
		News:     st,
		Comments: st,
		Sessions: st,
		Hasher:   password.New(password.Params{MemoryKiB: 1024, Iterations: 1, Parallelism: 1}),
		Tokens:   codec,
	}, 30*24*time.Hour)

	reg := prometheus.NewRegistry()
	metrics := middleware.NewMetrics(reg)
	router := transporthttp.NewRouter(svc, transporthttp.Options{
		Timeout:  5 * time.Second,
		BasePath: basePath,
		Verifier: codec,
		Metrics:  metrics,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &env{srv: srv, st: st, reg: reg}
}

// do отправляет запрос; bearer и ua необязательны.
func (e *env) do(t *testing.T, method, path, bearer, ua string, body any) *http.Response {
	t.Helper()

	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

type sessionBody struct {
	UserID                int64     `json:"user_id"`
	UserAgent             string    `json:"user_agent"`
	RefreshToken          string    `json:"refresh_token"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
}

type errBody struct {
	Error struct {
		Code      string `json:"code"`
		RequestID string `json:"request_id"`
	} `json:"error"`
}

func (e *env) register(t *testing.T, login, pw string) int64 {
	t.Helper()

	resp := e.do(t, http.MethodPost, "/user/", "", "", map[string]string{
		"name": "User " + login, "login": login, "email": login + "@example.com", "password": pw,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	u := decode[struct {
		ID   int64  `json:"id"`
		Role string `json:"role"`
	}](t, resp)
	require.Equal(t, "user", u.Role)

	return u.ID
}

func (e *env) login(t *testing.T, login, pw, ua string) (string, sessionBody) {
	t.Helper()

	resp := e.do(t, http.MethodPost, "/session/", "", ua, map[string]string{"login": login, "password": pw})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	jwt := resp.Header.Get("X-JWT")
	require.NotEmpty(t, jwt)

	return jwt, decode[sessionBody](t, resp)
}

func TestSessionLifecycle(t *testing.T) {
	e := newEnv(t, "")
	aliceID := e.register(t, "alice", "Secret123!")

	// Вход.
	jwt, sess := e.login(t, "alice", "Secret123!", uaFirefox)
	require.Equal(t, aliceID, sess.UserID)
	require.Equal(t, uaFirefox, sess.UserAgent)
	require.True(t, token.ValidRefreshToken(sess.RefreshToken))
	require.WithinDuration(t, time.Now().Add(30*24*time.Hour), sess.RefreshTokenExpiresAt, time.Minute)

	// Свои сессии: без refresh-токена.
	resp := e.do(t, http.MethodGet, "/session/"+strconv.FormatInt(aliceID, 10), jwt, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NotContains(t, string(raw), sess.RefreshToken)
	require.NotContains(t, string(raw), "refresh_token\"")

	var views []sessionBody
	require.NoError(t, json.Unmarshal(raw, &views))
	require.Len(t, views, 1)
	require.Equal(t, uaFirefox, views[0].UserAgent)

	// Ротация с того же устройства.
	resp = e.do(t, http.MethodPut, "/session/", "", uaFirefox, map[string]string{"refresh_token": sess.RefreshToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-JWT"))
	rotated := decode[sessionBody](t, resp)
	require.NotEqual(t, sess.RefreshToken, rotated.RefreshToken)
	require.Equal(t, aliceID, rotated.UserID)

	// Старый токен больше не принимается.
	resp = e.do(t, http.MethodPut, "/session/", "", uaFirefox, map[string]string{"refresh_token": sess.RefreshToken})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "invalid_token", decode[errBody](t, resp).Error.Code)

	// Новый токен с чужого устройства: 403, сессия не тронута.
	resp = e.do(t, http.MethodPut, "/session/", "", uaCurl, map[string]string{"refresh_token": rotated.RefreshToken})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "device_mismatch", decode[errBody](t, resp).Error.Code)

	// Выход с устройства.
	resp = e.do(t, http.MethodDelete, "/session/", jwt, uaFirefox, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = e.do(t, http.MethodDelete, "/session/", jwt, uaFirefox, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = e.do(t, http.MethodPut, "/session/", "", uaFirefox, map[string]string{"refresh_token": rotated.RefreshToken})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginFailures_PlainText(t *testing.T) {
	e := newEnv(t, "")
	e.register(t, "alice", "Secret123!")

	tcs := []struct {
		name, login, pw, want string
	}{
		{"bad_password", "alice", "wrong", "Incorrect password"},
		{"unknown_login", "bob", "Secret123!", "This login is not registered"},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			resp := e.do(t, http.MethodPost, "/session/", "", uaFirefox, map[string]string{"login": tc.login, "password": tc.pw})
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			require.Contains(t, resp.Header.Get("Content-Type"), "text/plain")

			raw, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			require.Equal(t, tc.want, string(raw))
		})
	}
}

func TestSessionListing_Access(t *testing.T) {
	e := newEnv(t, "")
	aliceID := e.register(t, "alice", "Secret123!")
	bobID := e.register(t, "bob", "Secret456!")
	require.NoError(t, e.st.UpdateRole(context.Background(), bobID, models.RoleAdmin))

	aliceJWT, aliceSess := e.login(t, "alice", "Secret123!", uaFirefox)
	bobJWT, _ := e.login(t, "bob", "Secret456!", uaCurl)
	alicePath := strconv.FormatInt(aliceID, 10)

	// Без токена.
	resp := e.do(t, http.MethodGet, "/session/"+alicePath, "", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Негодный токен равносилен его отсутствию.
	resp = e.do(t, http.MethodGet, "/session/"+alicePath, "garbage", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Чужие сессии через пользовательский маршрут недоступны даже админу.
	resp = e.do(t, http.MethodGet, "/session/"+alicePath, bobJWT, "", nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Административный маршрут: только admin, с refresh-токенами.
	resp = e.do(t, http.MethodGet, "/session/admin/"+alicePath, aliceJWT, "", nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = e.do(t, http.MethodGet, "/session/admin/"+alicePath, bobJWT, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]sessionBody](t, resp)
	require.Len(t, list, 1)
	require.Equal(t, aliceSess.RefreshToken, list[0].RefreshToken)

	// Кривой id.
	resp = e.do(t, http.MethodGet, "/session/admin/abc", bobJWT, "", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMalformedBody_Returns400WithRequestID(t *testing.T) {
	e := newEnv(t, "")

	resp := e.do(t, http.MethodPut, "/session/", "", uaFirefox, map[string]string{"refresh_token": "x", "extra": "y"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decode[errBody](t, resp)
	require.Equal(t, "invalid_argument", body.Error.Code)
	require.Equal(t, resp.Header.Get("X-Request-Id"), body.Error.RequestID)
	require.NotEmpty(t, body.Error.RequestID)
}

func TestPasswordChange_InvalidatesSessions(t *testing.T) {
	e := newEnv(t, "")
	aliceID := e.register(t, "alice", "Secret123!")
	jwt, sess := e.login(t, "alice", "Secret123!", uaFirefox)

	resp := e.do(t, http.MethodPut, "/user/"+strconv.FormatInt(aliceID, 10)+"/password", jwt, "", map[string]string{"password": "N3w-Secret!"})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = e.do(t, http.MethodPut, "/session/", "", uaFirefox, map[string]string{"refresh_token": sess.RefreshToken})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	e.login(t, "alice", "N3w-Secret!", uaFirefox)
}

func TestNewsAndComments_UnderBasePath(t *testing.T) {
	e := newEnv(t, "/api")
	authorID := e.register(t, "carol", "Secret789!")
	readerID := e.register(t, "dave", "Secret000!")
	require.NoError(t, e.st.UpdateRole(context.Background(), authorID, models.RoleAuthor))

	authorJWT, _ := e.login(t, "carol", "Secret789!", uaFirefox)
	readerJWT, _ := e.login(t, "dave", "Secret000!", uaFirefox)

	// Читатель не может публиковать.
	resp := e.do(t, http.MethodPost, "/api/news/", readerJWT, "", map[string]string{"header": "h", "content": "c"})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = e.do(t, http.MethodPost, "/api/news/", authorJWT, "", map[string]string{"header": "Hello", "content": "World"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	news := decode[struct {
		ID       int64 `json:"id"`
		AuthorID int64 `json:"author_id"`
	}](t, resp)
	require.Equal(t, authorID, news.AuthorID)
	newsPath := "/api/news/" + strconv.FormatInt(news.ID, 10)

	resp = e.do(t, http.MethodGet, newsPath, "", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = e.do(t, http.MethodPost, "/api/comment/", readerJWT, "", map[string]any{"news_id": news.ID, "text": "nice"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	comment := decode[struct {
		ID       string `json:"id"`
		AuthorID int64  `json:"author_id"`
	}](t, resp)
	require.Equal(t, readerID, comment.AuthorID)

	// Автор новости не владеет чужим комментарием.
	resp = e.do(t, http.MethodDelete, "/api/comment/"+comment.ID, authorJWT, "", nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = e.do(t, http.MethodDelete, newsPath, readerJWT, "", nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = e.do(t, http.MethodDelete, newsPath, authorJWT, "", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = e.do(t, http.MethodGet, newsPath, "", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Комментарии удалены вместе с новостью.
	resp = e.do(t, http.MethodDelete, "/api/comment/"+comment.ID, readerJWT, "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Вне базового пути маршрутов нет.
	resp = e.do(t, http.MethodGet, "/news/"+strconv.FormatInt(news.ID, 10), "", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	n, err := testutil.GatherAndCount(e.reg, "news_publisher_http_requests_total")
	require.NoError(t, err)
	require.Positive(t, n)
}

func TestListsReturn404WhenEmpty(t *testing.T) {
	e := newEnv(t, "")

	for _, path := range []string{"/user/", "/news/", "/comment/"} {
		resp := e.do(t, http.MethodGet, path, "", "", nil)
		require.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		require.Equal(t, "not_found", decode[errBody](t, resp).Error.Code)
	}
}

func TestUserProfileUpdate(t *testing.T) {
	e := newEnv(t, "")
	aliceID := e.register(t, "alice", "Secret123!")
	e.register(t, "bob", "Secret456!")
	alicePath := "/user/" + strconv.FormatInt(aliceID, 10)

	aliceJWT, _ := e.login(t, "alice", "Secret123!", uaFirefox)
	bobJWT, _ := e.login(t, "bob", "Secret456!", uaFirefox)

	resp := e.do(t, http.MethodGet, "/user/", "", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, decode[[]map[string]any](t, resp), 2)

	profile := map[string]string{"name": "Alice A.", "email": "alice@new.example.com"}

	resp = e.do(t, http.MethodPut, alicePath, "", "", profile)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = e.do(t, http.MethodPut, alicePath, bobJWT, "", profile)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = e.do(t, http.MethodPut, alicePath, aliceJWT, "", map[string]string{"name": "A", "email": "bob@example.com"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = e.do(t, http.MethodPut, alicePath, aliceJWT, "", profile)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	u := decode[struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Login string `json:"login"`
	}](t, resp)
	require.Equal(t, "Alice A.", u.Name)
	require.Equal(t, "alice@new.example.com", u.Email)
	require.Equal(t, "alice", u.Login)
}

func TestNewsAndCommentUpdates_OwnerOrAdmin(t *testing.T) {
	e := newEnv(t, "")
	authorID := e.register(t, "carol", "Secret789!")
	e.register(t, "dave", "Secret000!")
	adminID := e.register(t, "root", "R00t-Secret!")
	require.NoError(t, e.st.UpdateRole(context.Background(), authorID, models.RoleAuthor))
	require.NoError(t, e.st.UpdateRole(context.Background(), adminID, models.RoleAdmin))

	authorJWT, _ := e.login(t, "carol", "Secret789!", uaFirefox)
	readerJWT, _ := e.login(t, "dave", "Secret000!", uaFirefox)
	adminJWT, _ := e.login(t, "root", "R00t-Secret!", uaFirefox)

	resp := e.do(t, http.MethodPost, "/news/", authorJWT, "", map[string]string{"header": "Hello", "content": "World"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	news := decode[struct {
		ID int64 `json:"id"`
	}](t, resp)
	newsPath := "/news/" + strconv.FormatInt(news.ID, 10)

	edit := map[string]string{"header": "Hello again", "content": "World!"}

	resp = e.do(t, http.MethodPut, newsPath, readerJWT, "", edit)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = e.do(t, http.MethodPut, "/news/999", authorJWT, "", edit)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = e.do(t, http.MethodPut, newsPath, authorJWT, "", edit)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = e.do(t, http.MethodPut, newsPath, adminJWT, "", map[string]string{"header": "Moderated", "content": "World!"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[struct {
		Header   string `json:"header"`
		AuthorID int64  `json:"author_id"`
	}](t, resp)
	require.Equal(t, "Moderated", updated.Header)
	require.Equal(t, authorID, updated.AuthorID)

	resp = e.do(t, http.MethodGet, "/news/", "", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, decode[[]map[string]any](t, resp), 1)

	resp = e.do(t, http.MethodPost, "/comment/", readerJWT, "", map[string]any{"news_id": news.ID, "text": "nice"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	comment := decode[struct {
		ID string `json:"id"`
	}](t, resp)
	commentPath := "/comment/" + comment.ID

	resp = e.do(t, http.MethodGet, commentPath, "", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = e.do(t, http.MethodPut, commentPath, authorJWT, "", map[string]string{"text": "mine now"})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = e.do(t, http.MethodPut, commentPath, readerJWT, "", map[string]any{"text": "x", "news_id": 1})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.do(t, http.MethodPut, commentPath, readerJWT, "", map[string]string{"text": "very nice"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "very nice", decode[struct {
		Text string `json:"text"`
	}](t, resp).Text)

	resp = e.do(t, http.MethodGet, "/comment/", "", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]struct {
		Text string `json:"text"`
	}](t, resp)
	require.Len(t, list, 1)
	require.Equal(t, "very nice", list[0].Text)

	resp = e.do(t, http.MethodGet, "/comment/missing", "", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
