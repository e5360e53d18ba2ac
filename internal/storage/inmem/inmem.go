// inmem - хранилище в памяти процесса для локального запуска и тестов.
// Реализует все контракты пакета storage; срок жизни сессий эмулирует
// TTL Redis по инжектируемым часам.
package inmem

import (
	"context"
	"iter"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/pribylovaa/go-news-publisher/internal/models"
	"github.com/pribylovaa/go-news-publisher/internal/storage"
)

type sessionKey struct {
	userID int64
	token  string
}

type sessionEntry struct {
	session  models.Session
	deadline time.Time
}

type Storage struct {
	now func() time.Time

	mu       sync.Mutex
	sessions map[sessionKey]sessionEntry
	users    map[int64]models.User
	news     map[int64]models.News
	comments map[string]models.Comment
	userSeq  int64
	newsSeq  int64
	commSeq  int64
}

// Option настраивает Storage.
type Option func(*Storage)

// WithClock подменяет источник времени для истечения сессий.
func WithClock(now func() time.Time) Option {
	return func(s *Storage) { s.now = now }
}

// New создаёт пустое хранилище.
func New(opts ...Option) *Storage {
	s := &Storage{
		now:      time.Now,
		sessions: make(map[sessionKey]sessionEntry),
		users:    make(map[int64]models.User),
		news:     make(map[int64]models.News),
		comments: make(map[string]models.Comment),
	}
	for _, o := range opts {
		o(s)
	}

	return s
}

// Ping всегда успешен.
func (s *Storage) Ping(context.Context) error { return nil }

// Close - noop.
func (s *Storage) Close() error { return nil }

// --- sessions ---

func (s *Storage) PutSession(ctx context.Context, session models.Session, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionKey{session.UserID, session.RefreshToken}] = sessionEntry{
		session:  session,
		deadline: s.now().Add(ttl),
	}

	return nil
}

func (s *Storage) SessionsByUser(ctx context.Context, userID int64) iter.Seq2[models.Session, error] {
	return s.sessionsWhere(ctx, func(k sessionKey) bool { return k.userID == userID })
}

func (s *Storage) SessionsByToken(ctx context.Context, refreshToken string) iter.Seq2[models.Session, error] {
	return s.sessionsWhere(ctx, func(k sessionKey) bool { return k.token == refreshToken })
}

func (s *Storage) DeleteSession(ctx context.Context, userID int64, refreshToken string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := sessionKey{userID, refreshToken}
	e, ok := s.sessions[k]
	if !ok {
		return false, nil
	}
	delete(s.sessions, k)

	// Истёкшая запись в Redis уже исчезла бы по TTL.
	return s.now().Before(e.deadline), nil
}

func (s *Storage) DeleteUserSessions(ctx context.Context, userID int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for k, e := range s.sessions {
		if k.userID != userID {
			continue
		}
		delete(s.sessions, k)
		if now.Before(e.deadline) {
			n++
		}
	}

	return n, nil
}

// sessionsWhere снимает копию под мьютексом и отдаёт её без блокировки,
// чтобы вызывающий мог удалять сессии во время обхода.
func (s *Storage) sessionsWhere(ctx context.Context, match func(sessionKey) bool) iter.Seq2[models.Session, error] {
	return func(yield func(models.Session, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(models.Session{}, err)
			return
		}

		s.mu.Lock()
		now := s.now()
		var out []models.Session
		for k, e := range s.sessions {
			if !now.Before(e.deadline) {
				delete(s.sessions, k)
				continue
			}
			if match(k) {
				out = append(out, e.session)
			}
		}
		s.mu.Unlock()

		sort.Slice(out, func(i, j int) bool { return out[i].RefreshToken < out[j].RefreshToken })

		for _, sess := range out {
			if !yield(sess, nil) {
				return
			}
		}
	}
}

// --- users ---

func (s *Storage) SaveUser(_ context.Context, user *models.User) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Login == user.Login || u.Email == user.Email {
			return 0, storage.ErrAlreadyExists
		}
	}

	s.userSeq++
	u := *user
	u.ID = s.userSeq
	s.users[u.ID] = u

	return u.ID, nil
}

func (s *Storage) UserByLogin(_ context.Context, login string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Login == login {
			return &u, nil
		}
	}

	return nil, storage.ErrNotFound
}

func (s *Storage) UserByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	return &u, nil
}

func (s *Storage) ListUsers(context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (s *Storage) UpdateProfile(_ context.Context, id int64, name, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	for _, other := range s.users {
		if other.ID != id && other.Email == email {
			return storage.ErrAlreadyExists
		}
	}
	u.Name, u.Email = name, email
	s.users[id] = u

	return nil
}

func (s *Storage) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	return s.updateUser(id, func(u *models.User) { u.PasswordHash = passwordHash })
}

func (s *Storage) UpdateRole(_ context.Context, id int64, role models.Role) error {
	return s.updateUser(id, func(u *models.User) { u.Role = role })
}

func (s *Storage) updateUser(id int64, fn func(*models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	fn(&u)
	s.users[id] = u

	return nil
}

func (s *Storage) DeleteUser(_ context.Context, id int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return nil, storage.ErrNotFound
	}

	var newsIDs []int64
	for nid, n := range s.news {
		if n.AuthorID == id {
			newsIDs = append(newsIDs, nid)
			delete(s.news, nid)
		}
	}
	delete(s.users, id)

	sort.Slice(newsIDs, func(i, j int) bool { return newsIDs[i] < newsIDs[j] })

	return newsIDs, nil
}

// --- news ---

func (s *Storage) SaveNews(_ context.Context, news *models.News) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.newsSeq++
	n := *news
	n.ID = s.newsSeq
	s.news[n.ID] = n

	return n.ID, nil
}

func (s *Storage) NewsByID(_ context.Context, id int64) (*models.News, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.news[id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	return &n, nil
}

func (s *Storage) ListNews(context.Context) ([]models.News, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.News, 0, len(s.news))
	for _, n := range s.news {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (s *Storage) UpdateNews(_ context.Context, news *models.News) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.news[news.ID]
	if !ok {
		return storage.ErrNotFound
	}
	n.Header, n.Content = news.Header, news.Content
	s.news[n.ID] = n

	return nil
}

func (s *Storage) DeleteNews(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.news[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.news, id)

	return nil
}

// --- comments ---

func (s *Storage) SaveComment(_ context.Context, c *models.Comment) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.commSeq++
	cc := *c
	cc.ID = strconv.FormatInt(s.commSeq, 10)
	s.comments[cc.ID] = cc

	return cc.ID, nil
}

func (s *Storage) CommentByID(_ context.Context, id string) (*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok {
		return nil, storage.ErrNotFound
	}

	return &c, nil
}

func (s *Storage) ListComments(context.Context) ([]models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Comment, 0, len(s.comments))
	for _, c := range s.comments {
		out = append(out, c)
	}
	// ID - возрастающий счётчик в десятичной записи.
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].ID) != len(out[j].ID) {
			return len(out[i].ID) < len(out[j].ID)
		}
		return out[i].ID < out[j].ID
	})

	return out, nil
}

func (s *Storage) UpdateComment(_ context.Context, id, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[id]
	if !ok {
		return storage.ErrNotFound
	}
	c.Text = text
	s.comments[id] = c

	return nil
}

func (s *Storage) DeleteComment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.comments, id)

	return nil
}

func (s *Storage) DeleteCommentsByNews(_ context.Context, newsID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, c := range s.comments {
		if c.NewsID == newsID {
			delete(s.comments, id)
		}
	}

	return nil
}

var (
	_ storage.SessionStorage = (*Storage)(nil)
	_ storage.UserStorage    = (*Storage)(nil)
	_ storage.NewsStorage    = (*Storage)(nil)
	_ storage.CommentStorage = (*Storage)(nil)
)
