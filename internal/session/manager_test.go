package session_test

import (
	"sync"
	"testing"
	"time"

	"github.com/mythosmud/mudserver/internal/broker"
	"github.com/mythosmud/mudserver/internal/config"
	"github.com/mythosmud/mudserver/internal/session"
	"github.com/mythosmud/mudserver/internal/subject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeTransport struct {
	mu       sync.Mutex
	received []broker.Envelope
	closed   bool
	reason   string
}

func (f *fakeTransport) Send(env broker.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append(f.received, env)
	return nil
}

func (f *fakeTransport) Close(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.reason = reason
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.received)
}

func newTestManager(t *testing.T) (*session.Manager, *broker.Broker) {
	t.Helper()
	reg := subject.New()
	b := broker.New(reg, nil, zap.NewNop())
	cfg := testConfig()
	return session.New(b, cfg, zap.NewNop()), b
}

func testConfig() *config.Config {
	return &config.Config{
		Connection: config.ConnectionConfig{RateLimitAttempts: 100, RateLimitWindowSeconds: time.Second},
		Grace:      config.GraceConfig{TimeoutSeconds: 30 * time.Millisecond},
		Pending:    config.PendingConfig{QueueCapacity: 4},
	}
}

func TestConnectEvictsPriorSession(t *testing.T) {
	mgr, _ := newTestManager(t)

	t1 := &fakeTransport{}
	_, err := mgr.Connect(t1, "P", "R1")
	require.NoError(t, err)

	t2 := &fakeTransport{}
	_, err = mgr.Connect(t2, "P", "R1")
	require.NoError(t, err)

	assert.True(t, t1.closed)
	assert.Equal(t, "superseded", t1.reason)
	assert.True(t, mgr.IsActive("P"))
}

func TestDisconnectTransientStartsGraceThenExpires(t *testing.T) {
	mgr, _ := newTestManager(t)

	tr := &fakeTransport{}
	_, err := mgr.Connect(tr, "P", "R1")
	require.NoError(t, err)

	mgr.Disconnect("P", session.ReasonNetworkDrop)
	assert.False(t, mgr.IsActive("P"))
	assert.True(t, mgr.IsInGrace("P"))

	require.Eventually(t, func() bool {
		return !mgr.IsInGrace("P")
	}, time.Second, 5*time.Millisecond)
}

func TestDisconnectLogoutRemovesPresenceImmediately(t *testing.T) {
	mgr, _ := newTestManager(t)

	tr := &fakeTransport{}
	_, err := mgr.Connect(tr, "P", "R1")
	require.NoError(t, err)

	mgr.Disconnect("P", session.ReasonLogout)
	assert.False(t, mgr.IsActive("P"))
	assert.False(t, mgr.IsInGrace("P"))
}

func TestPendingQueueReplayedOnReconnect(t *testing.T) {
	mgr, _ := newTestManager(t)

	tr := &fakeTransport{}
	_, err := mgr.Connect(tr, "P", "R1")
	require.NoError(t, err)
	mgr.Disconnect("P", session.ReasonNetworkDrop)

	delivered := mgr.SendPersonal("P", broker.Envelope{Subject: "chat.whisper.player.P"})
	assert.False(t, delivered) // queued, not delivered live

	tr2 := &fakeTransport{}
	_, err = mgr.Connect(tr2, "P", "R1")
	require.NoError(t, err)

	assert.Equal(t, 1, tr2.count())
}

func TestPendingQueueDropsOldestOnOverflow(t *testing.T) {
	mgr, _ := newTestManager(t)

	tr := &fakeTransport{}
	_, _ = mgr.Connect(tr, "P", "R1")
	mgr.Disconnect("P", session.ReasonNetworkDrop)

	for i := 0; i < 6; i++ {
		mgr.SendPersonal("P", broker.Envelope{SequenceNumber: uint64(i)})
	}
	assert.EqualValues(t, 2, mgr.PendingDropped("P")) // cap=4, pushed 6

	tr2 := &fakeTransport{}
	_, _ = mgr.Connect(tr2, "P", "R1")
	require.Len(t, tr2.received, 4)
	assert.EqualValues(t, 2, tr2.received[0].SequenceNumber) // oldest two dropped
}

func TestHandleNewGameSessionIdempotent(t *testing.T) {
	mgr, _ := newTestManager(t)

	res := mgr.HandleNewGameSession("P", "s1")
	assert.Equal(t, 0, res.DisconnectedCount)
	assert.Empty(t, res.Errors)

	tr := &fakeTransport{}
	_, _ = mgr.Connect(tr, "P", "R1")

	res = mgr.HandleNewGameSession("P", "s2")
	assert.Equal(t, 1, res.DisconnectedCount)
	assert.Empty(t, res.Errors)
}
