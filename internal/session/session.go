package session

import (
	"context"
	"maps"
	"net/http"
	"sync"
	"time"

	"github.com/goliatone/go-mesh/pkg/interfaces"
	"github.com/google/uuid"
)

type contextKey struct{}

// Session is an in-memory interfaces.Session implementation.
type Session struct {
	id       string
	mu       sync.RWMutex
	values   map[string]string
	lastSeen time.Time
}

var _ interfaces.Session = (*Session)(nil)

// New returns a detached session, useful for background work and tests.
func New() *Session {
	return &Session{
		id:       uuid.NewString(),
		values:   map[string]string{},
		lastSeen: time.Now(),
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	return value, ok
}

func (s *Session) Set(key, value string) {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
}

func (s *Session) Delete(key string) {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
}

// Values returns a copy of the stored values.
func (s *Session) Values() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.values)
}

// WithSession stores sess on ctx.
func WithSession(ctx context.Context, sess interfaces.Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, contextKey{}, sess)
}

// FromContext returns the session attached to ctx, or nil.
func FromContext(ctx context.Context) interfaces.Session {
	if ctx == nil {
		return nil
	}
	sess, _ := ctx.Value(contextKey{}).(interfaces.Session)
	return sess
}

// Store keeps sessions in process memory, keyed by the id sent in the session
// cookie. Idle sessions are swept at most once per sweep interval, on lookup
// and on creation. Once the store holds maxSessions entries the least
// recently seen session is evicted for each new one.
type Store struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	cookieName  string
	secure      bool
	maxIdle     time.Duration
	maxSessions int
	lastSweep   time.Time
	now         func() time.Time
}

// StoreOption customises a Store.
type StoreOption func(*Store)

func WithSecureCookie(secure bool) StoreOption {
	return func(s *Store) {
		s.secure = secure
	}
}

func WithMaxIdle(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.maxIdle = d
		}
	}
}

// WithMaxSessions caps the number of live sessions.
func WithMaxSessions(limit int) StoreOption {
	return func(s *Store) {
		if limit > 0 {
			s.maxSessions = limit
		}
	}
}

func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

const (
	defaultCookieName  = "mesh.frontend"
	defaultMaxSessions = 100000
	sweepInterval      = time.Minute
)

func NewStore(cookieName string, opts ...StoreOption) *Store {
	if cookieName == "" {
		cookieName = defaultCookieName
	}
	store := &Store{
		sessions:    map[string]*Session{},
		cookieName:  cookieName,
		maxIdle:     24 * time.Hour,
		maxSessions: defaultMaxSessions,
		now:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Lookup returns the session with id, refreshing its idle timer.
func (s *Store) Lookup(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweepLocked(now)
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if s.expired(sess, now) {
		delete(s.sessions, id)
		return nil, false
	}
	sess.lastSeen = now
	return sess, true
}

func (s *Store) create() *Session {
	sess := New()
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweepLocked(now)
	for len(s.sessions) >= s.maxSessions {
		s.evictOldestLocked()
	}
	sess.lastSeen = now
	s.sessions[sess.id] = sess
	return sess
}

func (s *Store) expired(sess *Session, now time.Time) bool {
	return sess.lastSeen.Before(now.Add(-s.maxIdle))
}

func (s *Store) sweepLocked(now time.Time) {
	if !s.lastSweep.IsZero() && now.Sub(s.lastSweep) < sweepInterval {
		return
	}
	s.lastSweep = now
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, id)
		}
	}
}

func (s *Store) evictOldestLocked() {
	var (
		oldestID string
		oldest   time.Time
	)
	for id, sess := range s.sessions {
		if oldestID == "" || sess.lastSeen.Before(oldest) {
			oldestID, oldest = id, sess.lastSeen
		}
	}
	delete(s.sessions, oldestID)
}

// Middleware attaches a session to every request. Requests that already carry
// a session in their context keep it, so an embedding application can supply
// its own store.
func (s *Store) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if FromContext(r.Context()) != nil {
			next.ServeHTTP(w, r)
			return
		}

		var sess *Session
		if cookie, err := r.Cookie(s.cookieName); err == nil && cookie.Value != "" {
			sess, _ = s.Lookup(cookie.Value)
		}
		if sess == nil {
			sess = s.create()
			http.SetCookie(w, &http.Cookie{
				Name:     s.cookieName,
				Value:    sess.id,
				Path:     "/",
				HttpOnly: true,
				Secure:   s.secure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
	})
}
