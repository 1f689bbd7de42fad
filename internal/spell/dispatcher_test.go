package spell_test

import (
	"context"
	"testing"

	"github.com/mythosmud/mudserver/internal/apperr"
	"github.com/mythosmud/mudserver/internal/combatscript"
	"github.com/mythosmud/mudserver/internal/spell"
	"github.com/mythosmud/mudserver/internal/target"
	"github.com/mythosmud/mudserver/internal/worldmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubPersistence struct{ players []*worldmodel.Player }

func (s *stubPersistence) GetPlayerByID(_ context.Context, id string) (*worldmodel.Player, error) {
	for _, p := range s.players {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}
func (s *stubPersistence) GetPlayerByName(context.Context, string) (*worldmodel.Player, error) { return nil, nil }
func (s *stubPersistence) SavePlayer(context.Context, *worldmodel.Player) error                { return nil }
func (s *stubPersistence) GetRoomByID(context.Context, string) (*worldmodel.Room, error)       { return nil, nil }
func (s *stubPersistence) GetPlayersInRoom(context.Context, string) ([]*worldmodel.Player, error) {
	return s.players, nil
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

type recordingMutator struct {
	healed    map[string]int
	damaged   map[string]int
	statuses  []spell.StatusEffect
	dieOnHit  bool
}

func (m *recordingMutator) Heal(_ context.Context, targetID string, _ target.Kind, amount int) error {
	if m.healed == nil {
		m.healed = make(map[string]int)
	}
	m.healed[targetID] = amount
	return nil
}
func (m *recordingMutator) Damage(_ context.Context, targetID string, _ target.Kind, amount int) (bool, error) {
	if m.damaged == nil {
		m.damaged = make(map[string]int)
	}
	m.damaged[targetID] = amount
	return m.dieOnHit, nil
}
func (m *recordingMutator) ApplyStatus(_ context.Context, _ string, _ target.Kind, effect spell.StatusEffect) error {
	m.statuses = append(m.statuses, effect)
	return nil
}

func newScript(t *testing.T) *combatscript.Engine {
	t.Helper()
	eng, err := combatscript.NewEngine("", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(eng.Close)
	return eng
}

func TestDispatchHealCapsAtMaxHP(t *testing.T) {
	room := &worldmodel.Room{ID: "r1"}
	victim := &worldmodel.Player{ID: "t1", Name: "Wounded", RoomID: "r1", HP: 95, MaxHP: 100}
	persistence := &stubPersistence{players: []*worldmodel.Player{victim}}
	mutator := &recordingMutator{}
	script := newScript(t)

	def := spell.Definition{SpellID: "minor_heal", EffectKind: spell.EffectHeal, Mastery: 10}
	result, err := spell.Dispatch(context.Background(), persistence, &stubNPCRuntime{}, room, script, "wounded", def, 5, mutator)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, result.EffectApplied)
	assert.LessOrEqual(t, mutator.healed["t1"], 5) // capped to remaining headroom (100-95)
}

func TestDispatchDamageInvokesMutator(t *testing.T) {
	room := &worldmodel.Room{ID: "r1", NPCIDs: []string{"rat1"}}
	npcs := &stubNPCRuntime{npcs: map[string]*worldmodel.NPC{"rat1": {ID: "rat1", Name: "rat", HP: 10, MaxHP: 10}}}
	mutator := &recordingMutator{dieOnHit: true}
	script := newScript(t)

	def := spell.Definition{SpellID: "fire_bolt", EffectKind: spell.EffectDamage, Mastery: 3}
	result, err := spell.Dispatch(context.Background(), &stubPersistence{}, npcs, room, script, "rat", def, 5, mutator)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, result.Message, "slain")
	assert.Greater(t, mutator.damaged["rat1"], 0)
}

func TestDispatchStatusEffectRecordsDuration(t *testing.T) {
	room := &worldmodel.Room{ID: "r1", NPCIDs: []string{"rat1"}}
	npcs := &stubNPCRuntime{npcs: map[string]*worldmodel.NPC{"rat1": {ID: "rat1", Name: "rat", HP: 10, MaxHP: 10}}}
	mutator := &recordingMutator{}
	script := newScript(t)

	def := spell.Definition{SpellID: "poison_touch", EffectKind: spell.EffectStatus, EffectData: "poison", Mastery: 2}
	result, err := spell.Dispatch(context.Background(), &stubPersistence{}, npcs, room, script, "rat", def, 5, mutator)
	require.NoError(t, err)
	assert.True(t, result.EffectApplied)
	require.Len(t, mutator.statuses, 1)
	assert.Equal(t, "poison", mutator.statuses[0].DataKey)
	assert.Greater(t, mutator.statuses[0].DurationSeconds, 0)
}

func TestDispatchUnknownTargetReturnsTypedError(t *testing.T) {
	room := &worldmodel.Room{ID: "r1"}
	mutator := &recordingMutator{}
	script := newScript(t)

	def := spell.Definition{SpellID: "minor_heal", EffectKind: spell.EffectHeal, Mastery: 1}
	_, err := spell.Dispatch(context.Background(), &stubPersistence{}, &stubNPCRuntime{}, room, script, "nobody", def, 1, mutator)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.NoMatch))
}
