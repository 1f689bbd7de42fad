package auth_test

import (
	"testing"
	"time"

	"github.com/mythosmud/mudserver/internal/apperr"
	"github.com/mythosmud/mudserver/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueThenValidateRoundTrips(t *testing.T) {
	g := auth.New("test-signing-key", time.Hour, 100, time.Minute)

	token, err := g.IssueSessionToken("player-1", false)
	require.NoError(t, err)

	user, err := g.ValidateSessionToken(token, "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "player-1", user.UserID)
	assert.False(t, user.Admin)
}

func TestValidateRejectsMalformedToken(t *testing.T) {
	g := auth.New("test-signing-key", time.Hour, 100, time.Minute)

	_, err := g.ValidateSessionToken("not-a-real-token", "127.0.0.1")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Unauthenticated))
}

func TestValidateRejectsEmptyToken(t *testing.T) {
	g := auth.New("test-signing-key", time.Hour, 100, time.Minute)

	_, err := g.ValidateSessionToken("", "127.0.0.1")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Unauthenticated))
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	g := auth.New("test-signing-key", -time.Minute, 100, time.Minute)

	token, err := g.IssueSessionToken("player-1", false)
	require.NoError(t, err)

	_, err = g.ValidateSessionToken(token, "127.0.0.1")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Unauthenticated))
}

func TestValidateRejectsTokenSignedWithDifferentKey(t *testing.T) {
	issuer := auth.New("key-a", time.Hour, 100, time.Minute)
	verifier := auth.New("key-b", time.Hour, 100, time.Minute)

	token, err := issuer.IssueSessionToken("player-1", false)
	require.NoError(t, err)

	_, err = verifier.ValidateSessionToken(token, "127.0.0.1")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Unauthenticated))
}

func TestValidateRateLimitsAttempts(t *testing.T) {
	g := auth.New("test-signing-key", time.Hour, 2, time.Hour)

	_, _ = g.ValidateSessionToken("bad", "source-1")
	_, _ = g.ValidateSessionToken("bad", "source-1")
	_, err := g.ValidateSessionToken("bad", "source-1")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.RateLimited))
}

func TestRequireAdminRejectsNonAdmin(t *testing.T) {
	err := auth.RequireAdmin(auth.UserView{UserID: "player-1", Admin: false})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Forbidden))
}

func TestRequireAdminAllowsAdmin(t *testing.T) {
	err := auth.RequireAdmin(auth.UserView{UserID: "player-1", Admin: true})
	require.NoError(t, err)
}
