package transport

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"
)

const defaultSessionKey = "default"

// Session is one browsing identity: a cookie jar plus the fingerprint the
// site saw when the cookies were issued.
type Session struct {
	Key string

	mu          sync.Mutex
	jar         *cookiejar.Jar
	fingerprint Fingerprint
	resets      int
	pick        func() Fingerprint
}

func newSession(key string, pick func() Fingerprint) *Session {
	s := &Session{Key: key, pick: pick}
	s.jar = newJar()
	s.fingerprint = pick()
	return s
}

func newJar() *cookiejar.Jar {
	// cookiejar.New never returns a non-nil error.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return jar
}

// Cookies returns the cookies to send to u.
func (s *Session) Cookies(u *url.URL) []*http.Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jar.Cookies(u)
}

// StoreCookies records cookies set by a response from u.
func (s *Session) StoreCookies(u *url.URL, cookies []*http.Cookie) {
	if len(cookies) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jar.SetCookies(u, cookies)
}

// Reset discards every cookie and picks a new fingerprint.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jar = newJar()
	s.fingerprint = s.pick()
	s.resets++
}

func (s *Session) Fingerprint() Fingerprint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fingerprint
}

// Resets returns how many times the session has been reset.
func (s *Session) Resets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resets
}

// SessionStore owns every Session of a Transport, keyed by session key.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	pick     func() Fingerprint
}

func NewSessionStore(pick func() Fingerprint) *SessionStore {
	if pick == nil {
		pick = RandomFingerprint
	}
	return &SessionStore{
		sessions: make(map[string]*Session),
		pick:     pick,
	}
}

// Get returns the session for key, creating it on first use.
func (st *SessionStore) Get(key string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[key]
	if !ok {
		s = newSession(key, st.pick)
		st.sessions[key] = s
	}
	return s
}

// Lookup returns the session for key without creating it.
func (st *SessionStore) Lookup(key string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[key]
	return s, ok
}

// Destroy forgets the session.
func (st *SessionStore) Destroy(key string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, key)
}

func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// NewSessionKey returns a key no other caller uses.
func NewSessionKey() string {
	return uuid.NewString()
}
