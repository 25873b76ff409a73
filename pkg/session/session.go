package session

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"mercator-hq/parley/pkg/config"
	"mercator-hq/parley/pkg/telemetry/logging"

	"github.com/google/uuid"
)

// keySize is the length of a generated signing key.
const keySize = 32

type contextKey struct{}

// Manager issues and verifies signed session cookies.
//
// A cookie value is "<uuid>.<signature>" where the signature is the
// unpadded base64url HMAC-SHA256 of the id under the signing key. The
// cookie carries only the id; transcripts stay server-side.
type Manager struct {
	cookieName string
	key        []byte
	secure     bool
	maxAge     time.Duration
}

// NewManager creates a Manager from the session configuration. An empty
// SecretKey yields a random key, so sessions do not survive a restart.
func NewManager(cfg config.SessionConfig) (*Manager, error) {
	name := cfg.CookieName
	if name == "" {
		name = config.DefaultSessionCookieName
	}

	key := []byte(cfg.SecretKey)
	if len(key) == 0 {
		key = make([]byte, keySize)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate session key: %w", err)
		}
		slog.Warn("session secret key not set, using a random key",
			"cookie", name,
		)
	}

	return &Manager{
		cookieName: name,
		key:        key,
		secure:     cfg.Secure,
		maxAge:     cfg.MaxAge,
	}, nil
}

// CookieName returns the name of the session cookie.
func (m *Manager) CookieName() string {
	return m.cookieName
}

// NewID returns a fresh session id.
func NewID() string {
	return uuid.NewString()
}

// Sign returns the cookie value for a session id.
func (m *Manager) Sign(id string) string {
	return id + "." + m.signature(id)
}

// Verify checks a cookie value and returns its session id.
func (m *Manager) Verify(value string) (string, error) {
	id, sig, ok := strings.Cut(value, ".")
	if !ok || id == "" || sig == "" {
		return "", errors.New("malformed session cookie")
	}
	if !hmac.Equal([]byte(sig), []byte(m.signature(id))) {
		return "", errors.New("invalid session cookie signature")
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("invalid session id: %w", err)
	}
	return id, nil
}

func (m *Manager) signature(id string) string {
	mac := hmac.New(sha256.New, m.key)
	mac.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Cookie builds the session cookie for id.
func (m *Manager) Cookie(id string) *http.Cookie {
	c := &http.Cookie{
		Name:     m.cookieName,
		Value:    m.Sign(id),
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if m.maxAge > 0 {
		c.MaxAge = int(m.maxAge.Seconds())
		c.Expires = time.Now().Add(m.maxAge)
	}
	return c
}

// Middleware resolves the session of each request. A missing, tampered or
// malformed cookie starts a new session and sets a fresh cookie. The id is
// stored in the request context and added to log records.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(m.cookieName); err == nil {
			verified, err := m.Verify(c.Value)
			if err != nil {
				slog.DebugContext(r.Context(), "discarding session cookie", "error", err)
			} else {
				id = verified
			}
		}

		if id == "" {
			id = NewID()
			http.SetCookie(w, m.Cookie(id))
		}

		ctx := WithID(r.Context(), id)
		ctx = logging.WithSession(ctx, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithID returns a context carrying the session id.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the session id stored by Middleware, or "".
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}
