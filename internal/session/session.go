// Package session keeps per-browser state: the list screen and pending toasts.
package session

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/simp-lee/peopleadmin/internal/screen"
)

const (
	contextKey        = "session"
	defaultCookieName = "people_sid"
	defaultTTL        = 30 * time.Minute
	maxFlashes        = 20
)

// Session is the state of one browser. It implements screen.Notifier by
// queueing toasts until the next render drains them.
type Session struct {
	ID string

	listOnce sync.Once
	list     *screen.ListScreen

	mu      sync.Mutex
	flashes []screen.Toast
}

// Notify queues a toast. The oldest toast is dropped once the queue is full.
func (s *Session) Notify(t screen.Toast) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.flashes) >= maxFlashes {
		s.flashes = s.flashes[1:]
	}
	s.flashes = append(s.flashes, t)
}

// Drain returns and clears the queued toasts.
func (s *Session) Drain() []screen.Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.flashes
	s.flashes = nil
	return out
}

// List returns the session's list screen, creating it with newFn on first use.
func (s *Session) List(newFn func(n screen.Notifier) *screen.ListScreen) *screen.ListScreen {
	s.listOnce.Do(func() {
		s.list = newFn(s)
	})
	return s.list
}

// Options configures a Store.
type Options struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Store holds sessions in memory; idle sessions expire after the TTL.
type Store struct {
	items  *gocache.Cache
	ttl    time.Duration
	cookie string
	secure bool
}

// NewStore creates an in-memory session store.
func NewStore(opts Options) *Store {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	cookie := opts.CookieName
	if cookie == "" {
		cookie = defaultCookieName
	}
	return &Store{
		items:  gocache.New(ttl, ttl/2),
		ttl:    ttl,
		cookie: cookie,
		secure: opts.Secure,
	}
}

// Get returns the session id, extending its lifetime.
func (st *Store) Get(id string) (*Session, bool) {
	v, ok := st.items.Get(id)
	if !ok {
		return nil, false
	}
	s := v.(*Session)
	st.items.Set(id, s, st.ttl)
	return s, true
}

// New creates and stores a fresh session.
func (st *Store) New() *Session {
	s := &Session{ID: uuid.NewString()}
	st.items.Set(s.ID, s, st.ttl)
	return s
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	return st.items.ItemCount()
}

// Middleware loads the session named by the cookie, or starts one, and
// stores it in the gin.Context.
func (st *Store) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		var s *Session
		if id, err := c.Cookie(st.cookie); err == nil && id != "" {
			s, _ = st.Get(id)
		}
		if s == nil {
			s = st.New()
		}
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     st.cookie,
			Value:    s.ID,
			Path:     "/",
			MaxAge:   int(st.ttl.Seconds()),
			HttpOnly: true,
			Secure:   st.secure,
			SameSite: http.SameSiteLaxMode,
		})
		c.Set(contextKey, s)
		c.Next()
	}
}

// FromContext returns the session set by Middleware, or nil.
func FromContext(c *gin.Context) *Session {
	if v, ok := c.Get(contextKey); ok {
		if s, ok := v.(*Session); ok {
			return s
		}
	}
	return nil
}
