// Package lifecycle composes the authentication gate (C11) and the
// connection manager (C3) into the new-login / disconnect / reconnect
// flow (C12).
package lifecycle

import (
	"context"

	"github.com/mythosmud/mudserver/internal/apperr"
	"github.com/mythosmud/mudserver/internal/auth"
	"github.com/mythosmud/mudserver/internal/session"
	"go.uber.org/zap"
)

// CharacterResolver maps an authenticated user id to the character they
// are about to play and that character's current room. This is the
// "resolves the user's character" collaborator spec.md leaves external.
type CharacterResolver interface {
	ResolveCharacter(ctx context.Context, userID string) (playerID, roomID string, err error)
}

// Lifecycle is the single entry point transports call on upgrade and on
// closure.
type Lifecycle struct {
	gate       *auth.Gate
	sessions   *session.Manager
	characters CharacterResolver
	log        *zap.Logger
}

func New(gate *auth.Gate, sessions *session.Manager, characters CharacterResolver, log *zap.Logger) *Lifecycle {
	return &Lifecycle{gate: gate, sessions: sessions, characters: characters, log: log}
}

// Login validates token, resolves the caller's character, triggers
// handle_new_game_session to atomically evict any prior connection for
// that character, then installs the new session.
func (l *Lifecycle) Login(ctx context.Context, transport session.Transport, token, sourceKey string) (sessionID, playerID string, err error) {
	user, err := l.gate.ValidateSessionToken(token, sourceKey)
	if err != nil {
		return "", "", err
	}

	playerID, roomID, err := l.characters.ResolveCharacter(ctx, user.UserID)
	if err != nil {
		return "", "", apperr.Internalize(err)
	}

	evicted := l.sessions.HandleNewGameSession(playerID, "")
	if len(evicted.Errors) > 0 {
		l.log.Warn("lifecycle: errors evicting prior session", zap.String("player_id", playerID), zap.Error(session.CombineErrors(evicted.Errors...)))
	}

	sessionID, err = l.sessions.Connect(transport, playerID, roomID)
	if err != nil {
		return "", "", err
	}
	return sessionID, playerID, nil
}

// Logout is the explicit client-initiated disconnect: presence drops
// immediately, no grace period.
func (l *Lifecycle) Logout(playerID string) {
	l.sessions.Disconnect(playerID, session.ReasonLogout)
}

// TransportClosed is called by a transport that detects closure on its
// own (network drop, idle timeout); reason decides whether a grace
// period starts.
func (l *Lifecycle) TransportClosed(playerID string, reason session.DisconnectReason) {
	l.sessions.Disconnect(playerID, reason)
}
