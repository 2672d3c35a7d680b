package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestAuth(t *testing.T, apiToken string) *Authenticator {
	t.Helper()
	a, err := New(Options{
		Username: "admin",
		Password: "admin123",
		Secret:   strings.Repeat("s", 32),
		APIToken: apiToken,
		TTL:      time.Hour,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestCheckCredentials(t *testing.T) {
	a := newTestAuth(t, "")

	tests := []struct {
		user, pass string
		want       bool
	}{
		{"admin", "admin123", true},
		{"admin", "wrong", false},
		{"root", "admin123", false},
		{"", "", false},
	}
	for _, tt := range tests {
		if got := a.CheckCredentials(tt.user, tt.pass); got != tt.want {
			t.Errorf("CheckCredentials(%q, %q) = %v, want %v", tt.user, tt.pass, got, tt.want)
		}
	}
}

func TestPasswordHashOption(t *testing.T) {
	hash, err := HashPassword("from-hash")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	a, err := New(Options{Username: "admin", Password: "ignored", PasswordHash: hash, TTL: time.Hour})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !a.CheckCredentials("admin", "from-hash") {
		t.Error("expected hash password to be accepted")
	}
	if a.CheckCredentials("admin", "ignored") {
		t.Error("plaintext password should lose to the hash")
	}

	if _, err := New(Options{Username: "admin", PasswordHash: "not-bcrypt", TTL: time.Hour}); err == nil {
		t.Error("expected error for malformed hash")
	}
}

func TestNewValidation(t *testing.T) {
	cases := []Options{
		{Password: "x", TTL: time.Hour},
		{Username: "admin", TTL: time.Hour},
		{Username: "admin", Password: "x"},
	}
	for i, opts := range cases {
		if _, err := New(opts); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

func TestIssueAndVerify(t *testing.T) {
	a := newTestAuth(t, "")

	token, exp, err := a.IssueToken()
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Errorf("expiry %v is not in the future", exp)
	}

	user, err := a.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if user != "admin" {
		t.Errorf("subject = %q, want admin", user)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	a := newTestAuth(t, "")
	a.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := a.IssueToken()
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	a.now = time.Now
	if _, err := a.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token: got %v", err)
	}
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	a := newTestAuth(t, "")
	other, err := New(Options{Username: "admin", Password: "x", Secret: strings.Repeat("o", 32), TTL: time.Hour})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	token, _, _ := other.IssueToken()
	if _, err := a.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("foreign token: got %v", err)
	}
	if _, err := a.Verify(""); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("empty token: got %v", err)
	}
	if _, err := a.Verify("garbage"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage token: got %v", err)
	}
}

func TestVerifyAPIToken(t *testing.T) {
	a := newTestAuth(t, "static-token")
	if user, err := a.Verify("static-token"); err != nil || user != "admin" {
		t.Errorf("Verify(api token) = %q, %v", user, err)
	}
	if _, err := a.Verify("static-token-x"); err == nil {
		t.Error("expected near-miss api token to fail")
	}
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		authz, x, want string
	}{
		{"Bearer abc", "", "abc"},
		{"bearer  abc ", "", "abc"},
		{"abc", "", "abc"},
		{"", "xyz", "xyz"},
		{"Bearer abc", "xyz", "abc"},
		{"", "", ""},
	}
	for _, tt := range tests {
		if got := ExtractToken(tt.authz, tt.x); got != tt.want {
			t.Errorf("ExtractToken(%q, %q) = %q, want %q", tt.authz, tt.x, got, tt.want)
		}
	}
}

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret()
	if err != nil {
		t.Fatalf("GenerateSecret: %v", err)
	}
	b, _ := GenerateSecret()
	if len(a) != 43 {
		t.Errorf("len = %d, want 43", len(a))
	}
	if a == b {
		t.Error("two secrets should differ")
	}
	if strings.ContainsAny(a, "+/=") {
		t.Errorf("secret %q is not URL-safe", a)
	}
}
