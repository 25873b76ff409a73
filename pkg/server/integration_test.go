//go:build integration

package server

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"io"
	"math/big"
	"net/http"
	"net/http/cookiejar"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	testproviders "mercator-hq/parley/internal/providers"
	"mercator-hq/parley/pkg/chat"
	"mercator-hq/parley/pkg/config"
	"mercator-hq/parley/pkg/providers"
	"mercator-hq/parley/pkg/providers/openai"
	"mercator-hq/parley/pkg/proxy/handlers"
	"mercator-hq/parley/pkg/session"
	"mercator-hq/parley/pkg/transcript"
)

// startRelay runs a server wired to a real upstream client and a SQLite
// transcript store, and returns its base URL.
func startRelay(t *testing.T, upstreamURL string, mutate func(*config.Config)) string {
	t.Helper()

	cfg := config.Default()
	cfg.Server.ListenAddress = "127.0.0.1:0"
	cfg.Server.ShutdownTimeout = 2 * time.Second
	cfg.Session.SecretKey = "integration-secret"
	cfg.Transcript.MaxLength = 4
	cfg.Transcript.Backend = "sqlite"
	cfg.Transcript.SQLite.Path = filepath.Join(t.TempDir(), "transcripts.db")
	if mutate != nil {
		mutate(cfg)
	}

	up, err := openai.NewProvider(testproviders.TestConfig(upstreamURL))
	if err != nil {
		t.Fatalf("openai.NewProvider() error = %v", err)
	}
	store, err := transcript.Open(cfg.Transcript)
	if err != nil {
		t.Fatalf("transcript.Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	svc, err := chat.NewService(chat.Options{
		Upstreams: providers.NewHolder(up),
		Store:     store,
		MaxLength: cfg.Transcript.MaxLength,
	})
	if err != nil {
		t.Fatalf("chat.NewService() error = %v", err)
	}
	sessions, err := session.NewManager(cfg.Session)
	if err != nil {
		t.Fatalf("session.NewManager() error = %v", err)
	}

	srv, err := NewServer(cfg, Dependencies{
		Chat:     handlers.NewChatHandler(svc, cfg.Server.MaxBodyBytes),
		Sessions: sessions,
	})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	if !srv.WaitReady(5 * time.Second) {
		t.Fatal("server did not become ready")
	}

	scheme := "http"
	if cfg.Security.TLS.Enabled {
		scheme = "https"
	}
	return scheme + "://" + srv.Addr()
}

func newClient(t *testing.T, transport http.RoundTripper) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{Jar: jar, Transport: transport, Timeout: 10 * time.Second}
}

func post(t *testing.T, client *http.Client, url, body string) (int, string) {
	t.Helper()
	resp, err := client.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read %s: %v", url, err)
	}
	return resp.StatusCode, string(raw)
}

// TestConversationIntegration drives a whole conversation through the
// relay: stream, commit, follow-up with history, trimming and reset.
func TestConversationIntegration(t *testing.T) {
	ms := testproviders.NewMockServer()
	defer ms.Close()

	base := startRelay(t, ms.URL(), nil)
	client := newClient(t, nil)

	ms.StreamDeltas("Hel", "lo")
	status, body := post(t, client, base+"/api/chat", `{"message":"hi"}`)
	if status != http.StatusOK {
		t.Fatalf("chat status = %d, body = %s", status, body)
	}
	if want := `{"ok": true, "chunks": [{"delta":"Hel"},{"delta":"lo"}]}`; body != want {
		t.Fatalf("chat body = %s, want %s", body, want)
	}

	if status, body := post(t, client, base+"/api/commit", `{"content":"Hello"}`); status != http.StatusOK {
		t.Fatalf("commit status = %d, body = %s", status, body)
	}

	ms.StreamDeltas("Fine")
	if status, _ := post(t, client, base+"/api/chat", `{"message":"how are you?"}`); status != http.StatusOK {
		t.Fatalf("second chat status = %d", status)
	}

	reqs := ms.Requests()
	if len(reqs) != 2 {
		t.Fatalf("upstream received %d requests, want 2", len(reqs))
	}
	var got []string
	for _, m := range reqs[1].Body.Messages {
		got = append(got, m.Role+":"+m.Content)
	}
	want := []string{"user:hi", "assistant:Hello", "user:how are you?"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("second request history = %v, want %v", got, want)
	}

	// Commit twice more; the transcript is bounded to four messages.
	post(t, client, base+"/api/commit", `{"content":"Fine"}`)
	ms.StreamDeltas("ok")
	post(t, client, base+"/api/chat", `{"message":"third"}`)
	post(t, client, base+"/api/commit", `{"content":"ok"}`)

	ms.StreamDeltas("x")
	post(t, client, base+"/api/chat", `{"message":"fourth"}`)
	reqs = ms.Requests()
	last := reqs[len(reqs)-1].Body.Messages
	if len(last) != 5 {
		t.Fatalf("history sent = %d messages, want 4 kept plus the new one", len(last))
	}
	if last[0].Content != "how are you?" {
		t.Errorf("oldest kept message = %q, want %q", last[0].Content, "how are you?")
	}

	if status, _ := post(t, client, base+"/api/reset", ``); status != http.StatusOK {
		t.Fatalf("reset status = %d", status)
	}
	ms.StreamDeltas("fresh")
	post(t, client, base+"/api/chat", `{"message":"again"}`)
	reqs = ms.Requests()
	if n := len(reqs[len(reqs)-1].Body.Messages); n != 1 {
		t.Errorf("history after reset = %d messages, want 1", n)
	}

	// A second browser has its own transcript.
	other := newClient(t, nil)
	ms.StreamDeltas("hey")
	post(t, other, base+"/api/chat", `{"message":"other"}`)
	reqs = ms.Requests()
	if n := len(reqs[len(reqs)-1].Body.Messages); n != 1 {
		t.Errorf("other session history = %d messages, want 1", n)
	}
}

// TestUpstreamFailureIntegration checks that an upstream error status is
// reported inside the envelope and the transcript keeps the user message.
func TestUpstreamFailureIntegration(t *testing.T) {
	ms := testproviders.NewMockServer()
	defer ms.Close()

	base := startRelay(t, ms.URL(), nil)
	client := newClient(t, nil)

	ms.SetResponse(testproviders.MockAuthError())
	status, body := post(t, client, base+"/api/chat", `{"message":"hi"}`)
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200 with in-band error", status)
	}
	if !strings.HasPrefix(body, `{"ok": true, "chunks": [{"error":"401 Unauthorized`) {
		t.Errorf("body = %s", body)
	}

	ms.StreamDeltas("ok")
	post(t, client, base+"/api/chat", `{"message":"retry"}`)
	reqs := ms.Requests()
	if n := len(reqs[len(reqs)-1].Body.Messages); n != 2 {
		t.Errorf("history after failed turn = %d messages, want 2", n)
	}
}

func TestTLSServerIntegration(t *testing.T) {
	ms := testproviders.NewMockServer()
	defer ms.Close()

	certFile, keyFile := writeServerCert(t, t.TempDir())
	base := startRelay(t, ms.URL(), func(cfg *config.Config) {
		cfg.Security.TLS = config.TLSConfig{
			Enabled:    true,
			CertFile:   certFile,
			KeyFile:    keyFile,
			MinVersion: "1.3",
		}
	})

	pool := x509.NewCertPool()
	certPEM, err := os.ReadFile(certFile)
	if err != nil {
		t.Fatal(err)
	}
	pool.AppendCertsFromPEM(certPEM)

	client := newClient(t, &http.Transport{
		TLSClientConfig: &tls.Config{RootCAs: pool, ServerName: "localhost"},
	})

	resp, err := client.Get(base + "/health")
	if err != nil {
		t.Fatalf("GET /health over TLS: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if resp.TLS == nil || resp.TLS.Version != tls.VersionTLS13 {
		t.Errorf("negotiated TLS state = %+v, want TLS 1.3", resp.TLS)
	}

	old := newClient(t, &http.Transport{
		TLSClientConfig: &tls.Config{RootCAs: pool, ServerName: "localhost", MaxVersion: tls.VersionTLS12},
	})
	if _, err := old.Get(base + "/health"); err == nil {
		t.Error("expected TLS 1.2 client to be rejected")
	}
}

func writeServerCert(t *testing.T, dir string) (string, string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		DNSNames:     []string{"localhost"},
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}

	certFile := filepath.Join(dir, "cert.pem")
	keyFile := filepath.Join(dir, "key.pem")
	if err := os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0600); err != nil {
		t.Fatal(err)
	}
	return certFile, keyFile
}
