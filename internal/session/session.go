// Package session identifies browser sessions and holds the secrets that
// must only live in memory for as long as the session does.
package session

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	CookieName   = "toolchat_session"
	cookieMaxAge = 7 * 24 * time.Hour
)

type contextKey int

const sessionIDKey contextKey = iota

// Manager holds the vendor API key each session typed in. Keys are never
// persisted and are dropped when the process exits.
type Manager struct {
	mu   sync.RWMutex
	keys map[string]string
}

func NewManager() *Manager {
	return &Manager{keys: make(map[string]string)}
}

// SetAPIKey stores key for the session; an empty key forgets it.
func (m *Manager) SetAPIKey(sessionID, key string) {
	key = strings.TrimSpace(key)
	m.mu.Lock()
	defer m.mu.Unlock()
	if key == "" {
		delete(m.keys, sessionID)
		return
	}
	m.keys[sessionID] = key
}

func (m *Manager) APIKey(sessionID string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.keys[sessionID]
}

func (m *Manager) HasAPIKey(sessionID string) bool {
	return m.APIKey(sessionID) != ""
}

func (m *Manager) Forget(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, sessionID)
}

// IDFromContext returns the session id the middleware attached, or "".
func IDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return ""
}

// WithID attaches a session id to ctx.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, id)
}

// Middleware reuses a valid session cookie or issues a new one.
func Middleware(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(CookieName); err == nil {
				if parsed, err := uuid.Parse(c.Value); err == nil {
					id = parsed.String()
				}
			}
			if id == "" {
				id = uuid.NewString()
			}

			http.SetCookie(w, &http.Cookie{
				Name:     CookieName,
				Value:    id,
				Path:     "/",
				MaxAge:   int(cookieMaxAge.Seconds()),
				Expires:  time.Now().Add(cookieMaxAge),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
				Secure:   secure,
			})
			next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
		})
	}
}
