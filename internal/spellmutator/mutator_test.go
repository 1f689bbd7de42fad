package spellmutator_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mythosmud/mudserver/internal/combat"
	"github.com/mythosmud/mudserver/internal/npcdata"
	"github.com/mythosmud/mudserver/internal/persist/memory"
	"github.com/mythosmud/mudserver/internal/spellmutator"
	"github.com/mythosmud/mudserver/internal/target"
	"github.com/mythosmud/mudserver/internal/worldmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAwarder struct {
	awardedTo     string
	awardedAmount int
}

func (f *fakeAwarder) AwardXP(_ context.Context, playerID string, amount int) error {
	f.awardedTo = playerID
	f.awardedAmount = amount
	return nil
}

func newNPCTable(t *testing.T) *npcdata.Table {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "npcs.yaml")
	content := `
templates:
  - id: rat_template
    name: a sewer rat
    level: 1
    dex: 8
    hp: 10
    xp_value: 15
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	table, err := npcdata.Load(path)
	require.NoError(t, err)
	return table
}

func TestHealClampsAtMaxHP(t *testing.T) {
	store := memory.New()
	store.SeedRoom(&worldmodel.Room{ID: "room-1"})
	store.SeedPlayer(&worldmodel.Player{ID: "p1", Name: "A", RoomID: "room-1", HP: 15, MaxHP: 20})

	m := &spellmutator.Mutator{Persistence: store, Log: zap.NewNop()}
	require.NoError(t, m.Heal(context.Background(), "p1", target.KindPlayer, 100))

	got, err := store.GetPlayerByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 20, got.HP)
}

func TestDamagePlayerReportsDeath(t *testing.T) {
	store := memory.New()
	store.SeedRoom(&worldmodel.Room{ID: "room-1"})
	store.SeedPlayer(&worldmodel.Player{ID: "p1", Name: "A", RoomID: "room-1", HP: 5, MaxHP: 20})

	m := &spellmutator.Mutator{Persistence: store, Log: zap.NewNop()}
	died, err := m.Damage(context.Background(), "p1", target.KindPlayer, 999)
	require.NoError(t, err)
	assert.True(t, died)

	got, err := store.GetPlayerByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, got.HP)
}

func TestDamageNPCAwardsXPOnDeath(t *testing.T) {
	npcs := newNPCTable(t)
	npcs.Spawn("npc-1", "rat_template", "room-1")

	awarder := &fakeAwarder{}
	m := &spellmutator.Mutator{
		NPCs:      npcs,
		XP:        combat.XPTable{"rat_template": 15},
		XPAwarder: awarder,
		CasterID:  "p1",
		Log:       zap.NewNop(),
	}

	died, err := m.Damage(context.Background(), "npc-1", target.KindNPC, 999)
	require.NoError(t, err)
	assert.True(t, died)
	assert.Equal(t, "p1", awarder.awardedTo)
	assert.Equal(t, 15, awarder.awardedAmount)

	_, stillThere := npcs.ActiveNPC("npc-1")
	assert.False(t, stillThere)
}

func TestDamageNPCSurvivesPartialDamage(t *testing.T) {
	npcs := newNPCTable(t)
	npcs.Spawn("npc-1", "rat_template", "room-1")

	m := &spellmutator.Mutator{NPCs: npcs, Log: zap.NewNop()}
	died, err := m.Damage(context.Background(), "npc-1", target.KindNPC, 3)
	require.NoError(t, err)
	assert.False(t, died)

	npc, ok := npcs.ActiveNPC("npc-1")
	require.True(t, ok)
	assert.Equal(t, 7, npc.HP)
}
