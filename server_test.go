package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"

	"github.com/shape-portfolio/site/internal/auth"
	"github.com/shape-portfolio/site/internal/config"
	"github.com/shape-portfolio/site/internal/mailer"
	"github.com/shape-portfolio/site/internal/store"
)

const testPassword = "correct horse battery"

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSender struct {
	mu   sync.Mutex
	sent []mailer.Mail
	err  error
}

func (f *fakeSender) Send(_ context.Context, m mailer.Mail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, m)
	return f.err
}

func (f *fakeSender) mails() []mailer.Mail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]mailer.Mail(nil), f.sent...)
}

type testEnv struct {
	t      *testing.T
	cfg    *config.Config
	srv    *server
	h      http.Handler
	st     *store.Store
	sender *fakeSender
}

func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Server.Mode = gin.TestMode
	cfg.Server.StaticDir = t.TempDir()
	cfg.Uploads.Dir = t.TempDir()
	cfg.Admin.Password = testPassword
	cfg.Admin.Secret = strings.Repeat("k", 40)
	cfg.SMTP.User, cfg.SMTP.Pass = "site@example.com", "app-password"
	for _, m := range mutate {
		m(cfg)
	}

	st, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	if _, err := st.SeedSkills(context.Background(), store.DefaultSkills); err != nil {
		t.Fatalf("SeedSkills: %v", err)
	}
	authn, err := auth.New(auth.Options{
		Username: cfg.Admin.Username,
		Password: cfg.Admin.Password,
		Secret:   cfg.Admin.Secret,
		APIToken: cfg.Admin.APIToken,
		TTL:      cfg.Admin.TokenTTL,
	})
	if err != nil {
		t.Fatalf("auth.New: %v", err)
	}

	contact, login, rdb, err := newLimiters(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newLimiters: %v", err)
	}

	sender := &fakeSender{}
	srv, err := newServer(deps{cfg: cfg, store: st, auth: authn, sender: sender, contact: contact, login: login})
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}
	env := &testEnv{t: t, cfg: cfg, srv: srv, h: srv.handler(), st: st, sender: sender}
	t.Cleanup(func() {
		env.drain()
		st.Close()
		if rdb != nil {
			rdb.Close()
		}
	})
	return env
}

// drain waits for background visitor writes and queued mail.
func (e *testEnv) drain() {
	e.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.srv.close(ctx); err != nil {
		e.t.Errorf("close: %v", err)
	}
}

func (e *testEnv) token() string {
	e.t.Helper()
	tok, _, err := e.srv.auth.IssueToken()
	if err != nil {
		e.t.Fatalf("IssueToken: %v", err)
	}
	return tok
}

type reqOpt func(*http.Request)

func bearer(tok string) reqOpt {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) }
}

func header(k, v string) reqOpt {
	return func(r *http.Request) { r.Header.Set(k, v) }
}

// do sends a request. A string body is sent as is, anything else as JSON.
func (e *testEnv) do(method, path string, body any, opts ...reqOpt) *httptest.ResponseRecorder {
	e.t.Helper()
	var rd io.Reader
	isJSON := false
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	case io.Reader:
		rd = b
	default:
		data, err := json.Marshal(b)
		if err != nil {
			e.t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(data)
		isJSON = true
	}
	req := httptest.NewRequest(method, path, rd)
	if isJSON {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, o := range opts {
		o(req)
	}
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return v
}

type apiError struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := decode[map[string]string](t, rec); got["status"] != "ok" {
		t.Errorf("body = %v", got)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Error("missing request id header")
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/api/health", nil, header(requestIDHeader, "abc-123"))
	if got := rec.Header().Get(requestIDHeader); got != "abc-123" {
		t.Errorf("request id = %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodOptions, "/api/projects", nil,
		header("Origin", "https://portfolio.example.com"),
		header("Access-Control-Request-Method", "PUT"),
		header("Access-Control-Request-Headers", "X-Auth-Token"))

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://portfolio.example.com" {
		t.Errorf("allow origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("allow credentials = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "PUT") {
		t.Errorf("allow methods = %q", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodGet, "/api/health", nil)

	rec := env.do(http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"http_request_duration_seconds", `path="/api/health"`, "mail_queue_depth"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestUnknownAPIPathIsJSON(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/api/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if e := decode[apiError](t, rec); e.Success || e.Error == "" {
		t.Errorf("body = %+v", e)
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/admin/login", map[string]string{"username": "admin", "password": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: status = %d", rec.Code)
	}

	rec = env.do(http.MethodPost, "/api/admin/login", map[string]string{"username": "admin"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing password: status = %d", rec.Code)
	}

	rec = env.do(http.MethodPost, "/api/admin/login", map[string]string{"username": "admin", "password": testPassword})
	if rec.Code != http.StatusOK {
		t.Fatalf("good login: status = %d body=%s", rec.Code, rec.Body)
	}
	body := decode[struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
	}](t, rec)
	if !body.Success || body.Token == "" {
		t.Fatalf("body = %+v", body)
	}

	cookie := rec.Header().Get("Set-Cookie")
	for _, want := range []string{adminCookie + "=" + body.Token, "Path=/", "HttpOnly", "SameSite=Strict"} {
		if !strings.Contains(cookie, want) {
			t.Errorf("cookie %q missing %q", cookie, want)
		}
	}

	rec = env.do(http.MethodGet, "/api/messages", nil, bearer(body.Token))
	if rec.Code != http.StatusOK {
		t.Errorf("token from login rejected: %d", rec.Code)
	}
}

func TestLoginRateLimited(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.RateLimit.LoginLimit = 2
	})
	bad := map[string]string{"username": "admin", "password": "nope"}
	for i := 0; i < 2; i++ {
		if rec := env.do(http.MethodPost, "/api/admin/login", bad); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status = %d", i, rec.Code)
		}
	}
	rec := env.do(http.MethodPost, "/api/admin/login", map[string]string{"username": "admin", "password": testPassword})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
}

func TestClientKeyIsStableAcrossInstances(t *testing.T) {
	a, b := newTestEnv(t), newTestEnv(t)
	const ip = "203.0.113.7"

	if ka, kb := a.srv.clientKey(ip), b.srv.clientKey(ip); ka != kb {
		t.Errorf("instances disagree on limiter key: %s vs %s", ka, kb)
	}
	if a.srv.clientKey(ip) == a.srv.clientKey("203.0.113.8") {
		t.Error("different IPs share a limiter key")
	}

	other := newTestEnv(t, func(c *config.Config) { c.Admin.Secret = strings.Repeat("z", 40) })
	if other.srv.clientKey(ip) == a.srv.clientKey(ip) {
		t.Error("limiter key does not depend on admin.secret")
	}
	if strings.Contains(a.srv.clientKey(ip), ip) {
		t.Error("limiter key leaks the raw IP")
	}
}

func TestContactLimitSharedThroughRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	shared := func(c *config.Config) {
		c.Redis.Addr = mr.Addr()
		c.RateLimit.ContactLimit = 2
	}
	a, b := newTestEnv(t, shared), newTestEnv(t, shared)

	for i, env := range []*testEnv{a, b} {
		if rec := env.do(http.MethodPost, "/api/contact", validContact); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rec.Code)
		}
	}
	rec := a.do(http.MethodPost, "/api/contact", validContact)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request across instances: status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	if keys := mr.Keys(); len(keys) != 1 {
		t.Errorf("redis keys = %v, want one shared contact key", keys)
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/api/admin/logout", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if c := rec.Header().Get("Set-Cookie"); !strings.Contains(c, "Max-Age=0") {
		t.Errorf("cookie not cleared: %q", c)
	}
}

func TestAdminAuthSources(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.Admin.APIToken = "static-script-token"
	})
	tok := env.token()

	tests := []struct {
		name string
		opt  reqOpt
		want int
	}{
		{"none", func(*http.Request) {}, http.StatusUnauthorized},
		{"bearer", bearer(tok), http.StatusOK},
		{"bare authorization", header("Authorization", tok), http.StatusOK},
		{"x-auth-token", header("X-Auth-Token", tok), http.StatusOK},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: adminCookie, Value: tok}) }, http.StatusOK},
		{"static token", bearer("static-script-token"), http.StatusOK},
		{"garbage", bearer("not-a-token"), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodGet, "/api/messages", nil, tt.opt)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestAdminStats(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodPost, "/api/contact", map[string]string{
		"name": "Ada", "email": "ada@example.com", "subject": "Hi", "message": "Hello",
	})

	rec := env.do(http.MethodGet, "/api/admin/stats", nil, bearer(env.token()))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode[struct {
		Stats AdminStats `json:"stats"`
	}](t, rec)
	if body.Stats.TotalMessages != 1 || body.Stats.UnreadMessages != 1 {
		t.Errorf("message counts = %d/%d", body.Stats.TotalMessages, body.Stats.UnreadMessages)
	}
	if body.Stats.Skills != int64(len(store.DefaultSkills)) {
		t.Errorf("skills = %d", body.Stats.Skills)
	}
	if !body.Stats.MailConfigured {
		t.Error("mail should be configured")
	}
}

func TestVisitorTracking(t *testing.T) {
	env := newTestEnv(t)

	env.do(http.MethodGet, "/", nil, header("User-Agent", "test-browser"))
	env.do(http.MethodGet, "/projects", nil)
	env.do(http.MethodGet, "/", nil, header("DNT", "1"))
	env.do(http.MethodGet, "/api/skills", nil)
	env.do(http.MethodGet, "/privacy", nil)
	env.srv.bg.Wait()

	stats, err := env.st.VisitorStats(context.Background())
	if err != nil {
		t.Fatalf("VisitorStats: %v", err)
	}
	if stats.TotalVisitors != 2 {
		t.Errorf("total = %d, want 2", stats.TotalVisitors)
	}
	if stats.UniqueVisitors != 1 {
		t.Errorf("unique = %d, want 1", stats.UniqueVisitors)
	}

	visits, err := env.st.RecentVisits(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentVisits: %v", err)
	}
	for _, v := range visits {
		if strings.Contains(v.HashedIP, "192.0.2") || len(v.HashedIP) != 16 {
			t.Errorf("visitor ip not hashed: %q", v.HashedIP)
		}
	}
}

func TestVisitorTrackingDisabled(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.Visitors.Enabled = false })
	env.do(http.MethodGet, "/", nil)
	env.srv.bg.Wait()

	stats, err := env.st.VisitorStats(context.Background())
	if err != nil {
		t.Fatalf("VisitorStats: %v", err)
	}
	if stats.TotalVisitors != 0 {
		t.Errorf("total = %d, want 0", stats.TotalVisitors)
	}
}

func TestUntrackedPath(t *testing.T) {
	tests := map[string]bool{
		"/":                    false,
		"/projects/3":          false,
		"/static/style.css":    true,
		"/image/project/a.png": true,
		"/admin":               true,
		"/admin/login":         true,
		"/api/projects":        true,
		"/metrics":             true,
		"/favicon.ico":         true,
		"/privacy":             true,
	}
	for path, want := range tests {
		if got := untrackedPath(path); got != want {
			t.Errorf("untrackedPath(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestRetentionText(t *testing.T) {
	if got := retentionText(365 * 24 * time.Hour); got != "365 days" {
		t.Errorf("got %q", got)
	}
	if got := retentionText(24 * time.Hour); got != "1 day" {
		t.Errorf("got %q", got)
	}
}

func TestGenerateSalt(t *testing.T) {
	a, err := generateSalt()
	if err != nil {
		t.Fatalf("generateSalt: %v", err)
	}
	b, _ := generateSalt()
	if len(a) != 64 || a == b {
		t.Errorf("salts %q and %q should be distinct 64-char hex strings", a, b)
	}

	env := newTestEnv(t)
	if env.srv.hashingSalt == "" {
		t.Error("server started without a hashing salt")
	}
}
