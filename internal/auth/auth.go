// Package auth checks the admin's credentials and issues the session tokens
// the dashboard sends back on every API call.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidToken is returned for a missing, expired or forged token.
var ErrInvalidToken = errors.New("invalid token")

const issuer = "portfolio-admin"

// Options configures an Authenticator.
type Options struct {
	Username string
	// Password is hashed with bcrypt at construction; PasswordHash wins when set.
	Password     string
	PasswordHash string
	// Secret signs session tokens. A random one is generated when empty, which
	// logs every admin out on restart.
	Secret string
	// APIToken is an optional static token accepted alongside session tokens.
	APIToken string
	TTL      time.Duration
}

// Authenticator verifies the single admin account.
type Authenticator struct {
	username string
	hash     []byte
	secret   []byte
	apiToken string
	ttl      time.Duration
	now      func() time.Time
}

// New builds an Authenticator from opts.
func New(opts Options) (*Authenticator, error) {
	if opts.Username == "" {
		return nil, errors.New("admin username is required")
	}
	if opts.TTL <= 0 {
		return nil, errors.New("token ttl must be positive")
	}

	hash := []byte(opts.PasswordHash)
	if len(hash) == 0 {
		if opts.Password == "" {
			return nil, errors.New("admin password is required")
		}
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hashing admin password: %w", err)
		}
	} else if _, err := bcrypt.Cost(hash); err != nil {
		return nil, fmt.Errorf("admin password hash: %w", err)
	}

	secret := opts.Secret
	if secret == "" {
		var err error
		if secret, err = GenerateSecret(); err != nil {
			return nil, err
		}
	}

	return &Authenticator{
		username: opts.Username,
		hash:     hash,
		secret:   []byte(secret),
		apiToken: opts.APIToken,
		ttl:      opts.TTL,
		now:      time.Now,
	}, nil
}

// Username returns the admin account name.
func (a *Authenticator) Username() string {
	return a.username
}

// CheckCredentials reports whether username and password match the admin account.
func (a *Authenticator) CheckCredentials(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passOK := bcrypt.CompareHashAndPassword(a.hash, []byte(password)) == nil
	return userOK && passOK
}

// IssueToken signs a session token for the admin and returns its expiry.
func (a *Authenticator) IssueToken() (string, time.Time, error) {
	now := a.now()
	exp := now.Add(a.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   a.username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return token, exp, nil
}

// Verify accepts either the static API token or a session token signed by
// this Authenticator, and returns the admin username.
func (a *Authenticator) Verify(token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	if a.apiToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(a.apiToken)) == 1 {
		return a.username, nil
	}

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithSubject(a.username),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// ExtractToken picks the token out of an Authorization header value
// ("Bearer <t>" or a bare token) or, failing that, an X-Auth-Token value.
func ExtractToken(authorization, xAuthToken string) string {
	if v := strings.TrimSpace(authorization); v != "" {
		if len(v) > 7 && strings.EqualFold(v[:7], "bearer ") {
			return strings.TrimSpace(v[7:])
		}
		return v
	}
	return strings.TrimSpace(xAuthToken)
}

// GenerateSecret returns 32 random bytes encoded URL-safe without padding.
func GenerateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashPassword returns a bcrypt hash suitable for admin.password_hash.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is empty")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(h), nil
}
