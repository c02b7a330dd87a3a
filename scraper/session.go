package scraper

import (
	"net/http"
	"strings"
	"time"

	"github.com/aluiziolira/go-catalog-watch/parser"
)

const bootstrapPath = "/cookie-policy"

// Session is the current CSRF credential. The zero value means not authenticated.
type Session struct {
	Token      string
	AcquiredAt time.Time
}

// SessionManager owns the CSRF token used by catalog requests.
type SessionManager struct {
	client  Transport
	baseURL string
	session Session
	now     func() time.Time
}

// NewSessionManager returns a manager with no token.
func NewSessionManager(client Transport, baseURL string) *SessionManager {
	return &SessionManager{
		client:  client,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		now:     time.Now,
	}
}

// CurrentToken returns the stored token, or "" before the first refresh.
func (m *SessionManager) CurrentToken() string {
	return m.session.Token
}

// Session returns a copy of the current session.
func (m *SessionManager) Session() Session {
	return m.session
}

// Clear forgets the current token so the next cycle has to refresh it.
func (m *SessionManager) Clear() {
	m.session = Session{}
}

// Refresh fetches the bootstrap page and stores the token found in it. On
// failure the previous session is kept.
func (m *SessionManager) Refresh() (string, error) {
	header := http.Header{}
	header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")

	resp, err := m.client.Get(m.baseURL+bootstrapPath, header)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &TransportError{StatusCode: resp.StatusCode}
	}

	token, found := parser.ExtractCSRFToken(string(resp.Body))
	if !found || token == "" {
		return "", ErrTokenNotFound
	}

	m.session = Session{Token: token, AcquiredAt: m.now()}
	return token, nil
}
