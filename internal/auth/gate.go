// Package auth is the authentication gate (C11): issues short-lived
// signed session tokens, validates them on every transport upgrade, and
// enforces the admin-only policy used by the subject registry's
// administrative endpoints.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mythosmud/mudserver/internal/apperr"
)

// UserView is what a validated token resolves to; it is never the
// durable user record, only the claims the core needs.
type UserView struct {
	UserID string
	Admin  bool
}

type claims struct {
	Admin bool `json:"admin"`
	jwt.RegisteredClaims
}

// Gate issues and validates session tokens and rate-limits validation
// attempts per source (typically a remote address).
type Gate struct {
	signingKey []byte
	lifetime   time.Duration
	limiter    *attemptLimiter
}

func New(signingKey string, lifetime time.Duration, rateLimitAttempts int, rateLimitWindow time.Duration) *Gate {
	return &Gate{
		signingKey: []byte(signingKey),
		lifetime:   lifetime,
		limiter:    newAttemptLimiter(rateLimitAttempts, rateLimitWindow),
	}
}

// IssueSessionToken produces a time-bounded opaque token for userID.
func (g *Gate) IssueSessionToken(userID string, admin bool) (string, error) {
	now := time.Now()
	c := claims{
		Admin: admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.lifetime)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(g.signingKey)
	if err != nil {
		return "", apperr.Internalize(err)
	}
	return signed, nil
}

// ValidateSessionToken parses and verifies tokenString, rate-limited per
// sourceKey. Missing, malformed, or expired tokens all return
// apperr.Unauthenticated; exceeding the rate limit returns
// apperr.RateLimited before the token is even parsed.
func (g *Gate) ValidateSessionToken(tokenString, sourceKey string) (UserView, error) {
	if !g.limiter.allow(sourceKey) {
		return UserView{}, apperr.New(apperr.RateLimited, "too many authentication attempts")
	}
	if tokenString == "" {
		return UserView{}, apperr.New(apperr.Unauthenticated, "missing session token")
	}

	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		return g.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil || !token.Valid {
		return UserView{}, apperr.New(apperr.Unauthenticated, "invalid or expired session token")
	}

	return UserView{UserID: c.Subject, Admin: c.Admin}, nil
}

// PruneLimiters drops idle per-source rate limiters so the map backing
// them does not grow for the lifetime of the process. Intended to be
// called periodically from the maintenance ticker.
func (g *Gate) PruneLimiters() int {
	return g.limiter.prune()
}

// RequireAdmin rejects a non-admin caller before a handler (and
// therefore the protected resource) is ever reached.
func RequireAdmin(user UserView) error {
	if !user.Admin {
		return apperr.New(apperr.Forbidden, "admin privileges required")
	}
	return nil
}
