package command_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mythosmud/mudserver/internal/broker"
	"github.com/mythosmud/mudserver/internal/combat"
	"github.com/mythosmud/mudserver/internal/combatscript"
	"github.com/mythosmud/mudserver/internal/command"
	"github.com/mythosmud/mudserver/internal/config"
	"github.com/mythosmud/mudserver/internal/look"
	"github.com/mythosmud/mudserver/internal/party"
	"github.com/mythosmud/mudserver/internal/session"
	"github.com/mythosmud/mudserver/internal/spellbook"
	"github.com/mythosmud/mudserver/internal/subject"
	"github.com/mythosmud/mudserver/internal/worldmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubPersistence struct {
	players map[string]*worldmodel.Player
	rooms   map[string]*worldmodel.Room
}

func newStubPersistence() *stubPersistence {
	return &stubPersistence{players: map[string]*worldmodel.Player{}, rooms: map[string]*worldmodel.Room{}}
}

func (s *stubPersistence) GetPlayerByID(_ context.Context, id string) (*worldmodel.Player, error) {
	return s.players[id], nil
}
func (s *stubPersistence) GetPlayerByName(_ context.Context, name string) (*worldmodel.Player, error) {
	for _, p := range s.players {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, nil
}
func (s *stubPersistence) SavePlayer(_ context.Context, p *worldmodel.Player) error {
	s.players[p.ID] = p
	return nil
}
func (s *stubPersistence) GetRoomByID(_ context.Context, id string) (*worldmodel.Room, error) {
	return s.rooms[id], nil
}
func (s *stubPersistence) GetPlayersInRoom(_ context.Context, roomID string) ([]*worldmodel.Player, error) {
	var out []*worldmodel.Player
	for _, p := range s.players {
		if p.RoomID == roomID {
			out = append(out, p)
		}
	}
	return out, nil
}
func (s *stubPersistence) GetContainersByRoomID(context.Context, string) ([]*worldmodel.Container, error) {
	return nil, nil
}
func (s *stubPersistence) GetContainer(context.Context, string) (*worldmodel.Container, error) {
	return nil, nil
}
func (s *stubPersistence) GetProfessionByID(context.Context, string) (*worldmodel.Profession, error) {
	return nil, nil
}

type stubNPCRuntime struct{ npcs map[string]*worldmodel.NPC }

func (s *stubNPCRuntime) ActiveNPC(id string) (*worldmodel.NPC, bool) {
	n, ok := s.npcs[id]
	return n, ok
}
func (s *stubNPCRuntime) BaseStats(string) (worldmodel.NPCBaseStats, bool) {
	return worldmodel.NPCBaseStats{}, false
}

type stubPrototypes struct{}

func (stubPrototypes) Get(string) (worldmodel.Prototype, bool) { return worldmodel.Prototype{}, false }

type fakeTransport struct {
	sent   []broker.Envelope
	closed bool
}

func (f *fakeTransport) Send(env broker.Envelope) error { f.sent = append(f.sent, env); return nil }
func (f *fakeTransport) Close(string)                   { f.closed = true }

type fakeAwarder struct{}

func (fakeAwarder) AwardXP(context.Context, string, int) error { return nil }

func newTestHandlerContext(t *testing.T, playerID, roomID string) (*command.HandlerContext, *stubPersistence) {
	t.Helper()
	persistence := newStubPersistence()
	persistence.rooms[roomID] = &worldmodel.Room{
		ID: roomID, Name: "Test Room", Description: "a plain room",
		Exits: map[string]string{"north": roomID + "-north"},
	}
	persistence.rooms[roomID+"-north"] = &worldmodel.Room{ID: roomID + "-north", Name: "Northern Room", Description: "further north"}
	persistence.players[playerID] = &worldmodel.Player{ID: playerID, Name: "Hero", RoomID: roomID, Dex: 10, HP: 20, MaxHP: 20, Level: 1}

	npcRuntime := &stubNPCRuntime{npcs: map[string]*worldmodel.NPC{}}

	log := zap.NewNop()
	cfg := &config.Config{
		Connection: config.ConnectionConfig{RateLimitAttempts: 100, RateLimitWindowSeconds: time.Minute},
		Grace:      config.GraceConfig{TimeoutSeconds: time.Minute},
		Pending:    config.PendingConfig{QueueCapacity: 10},
	}

	reg := subject.New()
	b := broker.New(reg, nil, log)
	sessions := session.New(b, cfg, log)
	tr := &fakeTransport{}
	_, err := sessions.Connect(tr, playerID, roomID)
	require.NoError(t, err)

	combatEngine := combat.New(b, combat.XPTable{}, fakeAwarder{}, 5*time.Minute, log)
	lookEngine := look.New(persistence, npcRuntime, stubPrototypes{}, sessions)
	partyCoordinator := party.New()
	scriptEngine, err := combatscript.NewEngine("", log)
	require.NoError(t, err)

	hc := &command.HandlerContext{
		PlayerID:    playerID,
		RoomID:      func() string { return persistence.players[playerID].RoomID },
		Persistence: persistence,
		NPCRuntime:  npcRuntime,
		Prototypes:  stubPrototypes{},
		Grace:       sessions,
		Sessions:    sessions,
		Combat:      combatEngine,
		Look:        lookEngine,
		Party:       partyCoordinator,
		Script:      scriptEngine,
	}
	return hc, persistence
}

func TestSayHandlerBroadcastsToRoom(t *testing.T) {
	p := command.New(256)
	command.RegisterDefaults(p)
	hc, _ := newTestHandlerContext(t, "p1", "room1")

	result, err := p.Dispatch(context.Background(), hc, "say hello there", false, false)
	require.NoError(t, err)
	assert.Contains(t, result.Text, "hello there")
}

func TestLookHandlerBareRendersRoom(t *testing.T) {
	p := command.New(256)
	command.RegisterDefaults(p)
	hc, _ := newTestHandlerContext(t, "p1", "room1")

	result, err := p.Dispatch(context.Background(), hc, "look", false, false)
	require.NoError(t, err)
	assert.Equal(t, "a plain room", result.Text)
}

func TestLookHandlerDirection(t *testing.T) {
	p := command.New(256)
	command.RegisterDefaults(p)
	hc, _ := newTestHandlerContext(t, "p1", "room1")

	result, err := p.Dispatch(context.Background(), hc, "look north", false, false)
	require.NoError(t, err)
	assert.Equal(t, "further north", result.Text)
}

func TestMoveHandlerUpdatesRoom(t *testing.T) {
	p := command.New(256)
	command.RegisterDefaults(p)
	hc, persistence := newTestHandlerContext(t, "p1", "room1")

	result, err := p.Dispatch(context.Background(), hc, "north", false, false)
	require.NoError(t, err)
	assert.Equal(t, "further north", result.Text)
	assert.Equal(t, "room1-north", persistence.players["p1"].RoomID)
}

func TestAttackHandlerBlockedDuringGraceForCombatBearingVerb(t *testing.T) {
	p := command.New(256)
	command.RegisterDefaults(p)
	hc, persistence := newTestHandlerContext(t, "p1", "room1")
	persistence.rooms["room1"].NPCIDs = []string{"rat1"}

	_, err := p.Dispatch(context.Background(), hc, "attack rat", false, true)
	require.Error(t, err)
}

func TestCastHandlerHealsSelf(t *testing.T) {
	p := command.New(256)
	command.RegisterDefaults(p)
	hc, persistence := newTestHandlerContext(t, "p1", "room1")
	persistence.players["p1"].HP = 5
	persistence.players["p1"].KnownSpells = []string{"minor_heal"}

	dir := t.TempDir()
	path := filepath.Join(dir, "spells.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
spells:
  - spell_id: minor_heal
    effect_kind: heal
    effect_data: ""
    mastery: 1
`), 0o644))
	book, err := spellbook.Load(path)
	require.NoError(t, err)
	hc.Spellbook = book
	hc.Log = zap.NewNop()

	result, err := p.Dispatch(context.Background(), hc, "cast minor_heal hero", false, false)
	require.NoError(t, err)
	assert.Contains(t, result.Text, "healed")
	assert.Greater(t, persistence.players["p1"].HP, 5)
}

func TestCastHandlerRejectsUnknownSpell(t *testing.T) {
	p := command.New(256)
	command.RegisterDefaults(p)
	hc, _ := newTestHandlerContext(t, "p1", "room1")

	_, err := p.Dispatch(context.Background(), hc, "cast fireball hero", false, false)
	require.Error(t, err)
}

func TestCastHandlerBlockedDuringGrace(t *testing.T) {
	p := command.New(256)
	command.RegisterDefaults(p)
	hc, persistence := newTestHandlerContext(t, "p1", "room1")
	persistence.players["p1"].KnownSpells = []string{"minor_heal"}

	_, err := p.Dispatch(context.Background(), hc, "cast minor_heal hero", false, true)
	require.Error(t, err)
}

func TestUnknownCommandReturnsCannedMessage(t *testing.T) {
	p := command.New(256)
	command.RegisterDefaults(p)
	hc, _ := newTestHandlerContext(t, "p1", "room1")

	result, err := p.Dispatch(context.Background(), hc, "frobnicate", false, false)
	require.NoError(t, err)
	assert.Equal(t, "unknown command", result.Text)
}
