package session

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/parley/pkg/config"
	"mercator-hq/parley/pkg/telemetry/logging"
)

func newTestManager(t *testing.T, secret string) *Manager {
	t.Helper()
	m, err := NewManager(config.SessionConfig{
		CookieName: "parley_session",
		SecretKey:  secret,
		MaxAge:     time.Hour,
	})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m
}

func TestManager_SignVerify(t *testing.T) {
	m := newTestManager(t, "test-secret")
	id := NewID()
	value := m.Sign(id)

	tests := []struct {
		name    string
		value   string
		wantID  string
		wantErr bool
	}{
		{name: "valid", value: value, wantID: id},
		{name: "no separator", value: id, wantErr: true},
		{name: "empty", value: "", wantErr: true},
		{name: "tampered id", value: NewID() + value[strings.Index(value, "."):], wantErr: true},
		{name: "tampered signature", value: value[:len(value)-2] + "xx", wantErr: true},
		{name: "other key", value: newTestManager(t, "other-secret").Sign(id), wantErr: true},
		{name: "not a uuid", value: m.Sign("not-a-uuid"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Verify(tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Verify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.wantID {
				t.Errorf("Verify() = %q, want %q", got, tt.wantID)
			}
		})
	}
}

func TestNewManager_RandomKey(t *testing.T) {
	a := newTestManager(t, "")
	b := newTestManager(t, "")

	id := NewID()
	if _, err := b.Verify(a.Sign(id)); err == nil {
		t.Error("cookie signed with one random key verified under another")
	}
	if a.CookieName() != "parley_session" {
		t.Errorf("CookieName() = %q, want parley_session", a.CookieName())
	}
}

func TestManager_Cookie(t *testing.T) {
	m, err := NewManager(config.SessionConfig{SecretKey: "k", Secure: true, MaxAge: 2 * time.Hour})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	c := m.Cookie(NewID())
	if c.Name != config.DefaultSessionCookieName {
		t.Errorf("Name = %q, want %q", c.Name, config.DefaultSessionCookieName)
	}
	if !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteLaxMode {
		t.Errorf("cookie flags = HttpOnly %v Secure %v SameSite %v", c.HttpOnly, c.Secure, c.SameSite)
	}
	if c.MaxAge != 7200 {
		t.Errorf("MaxAge = %d, want 7200", c.MaxAge)
	}
}

func TestManager_Middleware(t *testing.T) {
	m := newTestManager(t, "test-secret")

	var seen []string
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := FromContext(r.Context())
		if id == "" {
			t.Error("session id missing from context")
		}
		if logging.GetSession(r.Context()) != id {
			t.Error("session id missing from logging context")
		}
		seen = append(seen, id)
	}))

	// First request starts a session
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d, want 1", len(cookies))
	}

	// Second request with the cookie keeps it
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if len(rec.Result().Cookies()) != 0 {
		t.Error("valid session cookie was reissued")
	}

	// A forged cookie starts a new session
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "parley_session", Value: seen[0] + ".forged"})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if len(rec.Result().Cookies()) != 1 {
		t.Error("forged cookie did not start a new session")
	}

	if len(seen) != 3 {
		t.Fatalf("handler calls = %d, want 3", len(seen))
	}
	if seen[0] != seen[1] {
		t.Errorf("session changed across requests: %q then %q", seen[0], seen[1])
	}
	if seen[2] == seen[0] {
		t.Error("forged cookie reused the original session")
	}
}
