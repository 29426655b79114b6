package restclient

import (
	"net/http"
	"strings"
	"sync"

	"github.com/goliatone/go-mesh/internal/auth"
)

// SessionCookieName identifies the CMS session cookie among Set-Cookie
// headers.
const SessionCookieName = "mesh.session"

// CookieStore remembers the latest CMS session cookie per credential pair.
// Entries live as long as the store and are replaced by every newer cookie.
type CookieStore struct {
	mu       sync.RWMutex
	cookies  map[auth.Credentials]string
	onChange func(size int)
}

func NewCookieStore() *CookieStore {
	return &CookieStore{cookies: map[auth.Credentials]string{}}
}

func (s *CookieStore) Get(creds auth.Credentials) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cookie, ok := s.cookies[creds]
	return cookie, ok
}

func (s *CookieStore) Set(creds auth.Credentials, cookie string) {
	s.mu.Lock()
	s.cookies[creds] = cookie
	size := len(s.cookies)
	s.mu.Unlock()
	s.notify(size)
}

func (s *CookieStore) Delete(creds auth.Credentials) {
	s.mu.Lock()
	delete(s.cookies, creds)
	size := len(s.cookies)
	s.mu.Unlock()
	s.notify(size)
}

func (s *CookieStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cookies)
}

// Capture stores the CMS session cookie found in header under creds. Only the
// name=value part before the first ';' is kept. It reports whether a cookie
// was stored.
func (s *CookieStore) Capture(creds auth.Credentials, header http.Header) bool {
	captured := false
	for _, raw := range header.Values("Set-Cookie") {
		if !strings.Contains(raw, SessionCookieName) {
			continue
		}
		cookie, _, _ := strings.Cut(raw, ";")
		s.Set(creds, strings.TrimSpace(cookie))
		captured = true
	}
	return captured
}

func (s *CookieStore) notify(size int) {
	if s.onChange != nil {
		s.onChange(size)
	}
}
