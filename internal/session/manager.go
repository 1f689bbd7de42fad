// Package session is the connection manager (C3): it owns the set of
// live transport sessions and their subscriptions, enforces per-player
// session uniqueness, and hides transient disconnects behind a grace
// period.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mythosmud/mudserver/internal/apperr"
	"github.com/mythosmud/mudserver/internal/broker"
	"github.com/mythosmud/mudserver/internal/config"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Manager is the single owner of the session map, subscription map,
// pending queues, and grace records. All mutations are serialised on mu,
// matching the "single writer" shared-resource policy.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session // playerID -> active session
	grace    map[string]*GraceRecord
	pending  map[string]*pendingQueue
	timers   map[string]*time.Timer // grace expiry timers, by playerID

	broker  *broker.Broker
	limiter *connectLimiter
	log     *zap.Logger

	graceTimeout  time.Duration
	pendingCap    int
}

// New builds a connection manager bound to the broker used for room/global
// fan-out.
func New(b *broker.Broker, cfg *config.Config, log *zap.Logger) *Manager {
	return &Manager{
		sessions:     make(map[string]*Session),
		grace:        make(map[string]*GraceRecord),
		pending:      make(map[string]*pendingQueue),
		timers:       make(map[string]*time.Timer),
		broker:       b,
		limiter:      newConnectLimiter(cfg.Connection.RateLimitAttempts, cfg.Connection.RateLimitWindowSeconds),
		log:          log,
		graceTimeout: cfg.Grace.TimeoutSeconds,
		pendingCap:   cfg.Pending.QueueCapacity,
	}
}

// EvictResult is returned by HandleNewGameSession.
type EvictResult struct {
	DisconnectedCount int
	Errors            []error
}

// Connect subscribes a new session to the player's room/global subjects.
// If the player is in grace, the grace record is cleared and pending
// messages are replayed in order before live delivery resumes. Any prior
// active session for the player is evicted first.
func (m *Manager) Connect(transport Transport, playerID, roomID string) (string, error) {
	if !m.limiter.allow(playerID) {
		return "", apperr.New(apperr.RateLimited, "connection attempts rate-limited for player %q", playerID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if prior, ok := m.sessions[playerID]; ok {
		m.evictLocked(prior, ReasonSuperseded)
	}

	sessionID := uuid.NewString()
	sess := &Session{
		ID:          sessionID,
		PlayerID:    playerID,
		RoomID:      roomID,
		Transport:   transport,
		ConnectedAt: time.Now(),
	}

	sess.subs = m.subscribeRoomSubjectsLocked(sess, roomID, playerID, transport)

	var replay []broker.Envelope
	if _, inGrace := m.grace[playerID]; inGrace {
		m.cancelGraceLocked(playerID)
		if q, ok := m.pending[playerID]; ok {
			replay = q.drain()
		}
	}

	m.sessions[playerID] = sess

	for _, env := range replay {
		_ = transport.Send(env)
	}

	return sessionID, nil
}

// Disconnect removes a session. Transient reasons start a grace period;
// explicit logout/kick remove presence immediately.
func (m *Manager) Disconnect(playerID string, reason DisconnectReason) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[playerID]
	if !ok {
		return
	}
	delete(m.sessions, playerID)
	for _, s := range sess.subs {
		s.Unsubscribe()
	}

	if reason.transient() {
		m.startGraceLocked(playerID, sess.RoomID, reason)
		return
	}

	m.publishPlayerLeft(sess.RoomID, playerID)
}

func (m *Manager) startGraceLocked(playerID, roomID string, reason DisconnectReason) {
	m.grace[playerID] = &GraceRecord{
		PlayerID:  playerID,
		RoomID:    roomID,
		StartedAt: time.Now(),
		Reason:    string(reason),
	}
	m.pending[playerID] = newPendingQueue(m.pendingCap)

	timer := time.AfterFunc(m.graceTimeout, func() {
		m.expireGrace(playerID)
	})
	m.timers[playerID] = timer
}

func (m *Manager) cancelGraceLocked(playerID string) {
	if t, ok := m.timers[playerID]; ok {
		t.Stop()
		delete(m.timers, playerID)
	}
	delete(m.grace, playerID)
}

// expireGrace is invoked by the grace timer goroutine; it re-enters the
// manager through the lock like any other mutation.
func (m *Manager) expireGrace(playerID string) {
	m.mu.Lock()
	rec, ok := m.grace[playerID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.grace, playerID)
	delete(m.timers, playerID)
	delete(m.pending, playerID)
	roomID := rec.RoomID
	m.mu.Unlock()

	m.publishPlayerLeft(roomID, playerID)
}

func (m *Manager) publishPlayerLeft(roomID, playerID string) {
	subj := "events.player_left." + roomID
	if _, err := m.broker.Publish(subj, "player_left", playerID, roomID, nil); err != nil {
		m.log.Warn("session: publish player_left failed", zap.Error(err))
	}
}

// evictLocked disconnects a prior session for the same player with a
// reason code, without starting a grace period (the new session
// supersedes it immediately). Must be called with mu held.
func (m *Manager) evictLocked(sess *Session, reason DisconnectReason) {
	delete(m.sessions, sess.PlayerID)
	for _, s := range sess.subs {
		s.Unsubscribe()
	}
	sess.Transport.Close(string(reason))
}

// HandleNewGameSession atomically evicts any prior connection for
// playerID. Idempotent: calling it with no prior session is a no-op.
func (m *Manager) HandleNewGameSession(playerID, newSessionID string) EvictResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	prior, ok := m.sessions[playerID]
	if !ok {
		return EvictResult{}
	}
	var errs []error
	func() {
		defer func() {
			if r := recover(); r != nil {
				errs = append(errs, apperr.New(apperr.Internal, "panic evicting session: %v", r))
			}
		}()
		m.evictLocked(prior, ReasonSuperseded)
	}()
	return EvictResult{DisconnectedCount: 1, Errors: errs}
}

// Move re-subscribes playerID's active session from its old room's
// subjects to newRoomID's, updating the session's room of record. A
// no-op if the player has no active session (e.g. in grace).
func (m *Manager) Move(playerID, newRoomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[playerID]
	if !ok || sess.RoomID == newRoomID {
		return
	}

	for _, s := range sess.subs {
		s.Unsubscribe()
	}
	sess.RoomID = newRoomID
	sess.subs = m.subscribeRoomSubjectsLocked(sess, newRoomID, playerID, sess.Transport)
}

// subscribeRoomSubjectsLocked installs every subject a session listens
// to for a given room: room events, room/global/system chat, and the
// player's personal whisper channel. Must be called with mu held.
func (m *Manager) subscribeRoomSubjectsLocked(sess *Session, roomID, playerID string, transport Transport) []unsubscriber {
	deliver := func(env broker.Envelope) { _ = transport.Send(env) }
	patterns := []string{
		"events.*." + roomID,
		"chat.say.room." + roomID,
		"chat.emote.room." + roomID,
		"chat.pose.room." + roomID,
		"chat.global",
		"chat.system",
		"chat.whisper.player." + playerID,
	}
	subs := make([]unsubscriber, 0, len(patterns))
	for _, pattern := range patterns {
		subs = append(subs, m.broker.Subscribe(pattern, deliver))
	}
	return subs
}

// BroadcastToRoom delegates to the broker under events.*.{room_id}.
func (m *Manager) BroadcastToRoom(roomID string, kind broker.EventKind, playerID string, payload any, exclude string) (broker.Envelope, error) {
	subj := "events." + string(kind) + "." + roomID
	return m.broker.Publish(subj, kind, playerID, roomID, payload)
}

// BroadcastGlobal delegates to the broker under the global chat subject.
func (m *Manager) BroadcastGlobal(kind broker.EventKind, playerID string, payload any) (broker.Envelope, error) {
	return m.broker.Publish("chat.global", kind, playerID, "", payload)
}

// BroadcastChatRoom publishes a say/emote/pose event under
// chat.{verb}.room.{room_id}, the subject tree room-scoped chat handlers
// subscribe to (distinct from events.*.{room_id}).
func (m *Manager) BroadcastChatRoom(verb, roomID string, kind broker.EventKind, playerID string, payload any) (broker.Envelope, error) {
	subj := "chat." + verb + ".room." + roomID
	return m.broker.Publish(subj, kind, playerID, roomID, payload)
}

// Whisper publishes a private message under chat.whisper.player.{target_id}.
func (m *Manager) Whisper(targetID string, kind broker.EventKind, playerID string, payload any) (broker.Envelope, error) {
	subj := "chat.whisper.player." + targetID
	return m.broker.Publish(subj, kind, playerID, "", payload)
}

// SendPersonal sends directly if the player has an active session;
// otherwise enqueues on the pending queue if the player is in grace.
func (m *Manager) SendPersonal(playerID string, env broker.Envelope) (delivered bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.sessions[playerID]; ok {
		_ = sess.Transport.Send(env)
		return true
	}
	if q, ok := m.pending[playerID]; ok {
		q.push(env)
	}
	return false
}

// IsActive reports whether playerID has a live session.
func (m *Manager) IsActive(playerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[playerID]
	return ok
}

// IsInGrace reports whether playerID is in the grace set (linkdead).
func (m *Manager) IsInGrace(playerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.grace[playerID]
	return ok
}

// PendingDropped returns how many envelopes have been discarded from
// playerID's pending queue due to overflow (metrics surface).
func (m *Manager) PendingDropped(playerID string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q, ok := m.pending[playerID]; ok {
		return q.dropped
	}
	return 0
}

// CombineErrors is a thin wrapper so callers outside this package don't
// need to import go.uber.org/multierr directly to build an EvictResult
// error summary.
func CombineErrors(errs ...error) error {
	return multierr.Combine(errs...)
}
