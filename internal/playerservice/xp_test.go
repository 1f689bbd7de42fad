package playerservice_test

import (
	"context"
	"testing"

	"github.com/mythosmud/mudserver/internal/persist/memory"
	"github.com/mythosmud/mudserver/internal/playerservice"
	"github.com/mythosmud/mudserver/internal/worldmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAwardXPAccumulates(t *testing.T) {
	store := memory.New()
	store.SeedRoom(&worldmodel.Room{ID: "room-1"})
	store.SeedPlayer(&worldmodel.Player{ID: "p1", Name: "A", RoomID: "room-1", XP: 10})

	a := &playerservice.XPAwarder{Persistence: store}
	require.NoError(t, a.AwardXP(context.Background(), "p1", 7))

	got, err := store.GetPlayerByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.EqualValues(t, 17, got.XP)
}

func TestAwardXPUnknownPlayerFails(t *testing.T) {
	store := memory.New()
	a := &playerservice.XPAwarder{Persistence: store}
	err := a.AwardXP(context.Background(), "missing", 5)
	assert.Error(t, err)
}
