package memory_test

import (
	"context"
	"testing"

	"github.com/mythosmud/mudserver/internal/persist/memory"
	"github.com/mythosmud/mudserver/internal/worldmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPlayerByIDReturnsNilWhenMissing(t *testing.T) {
	s := memory.New()
	p, err := s.GetPlayerByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestSaveAndGetPlayerByName(t *testing.T) {
	s := memory.New()
	s.SeedRoom(&worldmodel.Room{ID: "room-1", Name: "Square"})

	p := &worldmodel.Player{ID: "p1", Name: "Kael", RoomID: "room-1", HP: 20, MaxHP: 20}
	require.NoError(t, s.SavePlayer(context.Background(), p))

	got, err := s.GetPlayerByName(context.Background(), "Kael")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "p1", got.ID)

	// mutating the returned value must not affect the store's copy
	got.HP = 1
	reread, err := s.GetPlayerByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 20, reread.HP)
}

func TestSavePlayerRenameUpdatesNameIndex(t *testing.T) {
	s := memory.New()
	s.SeedRoom(&worldmodel.Room{ID: "room-1"})
	p := &worldmodel.Player{ID: "p1", Name: "Old", RoomID: "room-1"}
	require.NoError(t, s.SavePlayer(context.Background(), p))

	p.Name = "New"
	require.NoError(t, s.SavePlayer(context.Background(), p))

	_, err := s.GetPlayerByName(context.Background(), "Old")
	require.NoError(t, err)
	got, err := s.GetPlayerByName(context.Background(), "Old")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = s.GetPlayerByName(context.Background(), "New")
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestGetRoomByIDPopulatesPlayerIDs(t *testing.T) {
	s := memory.New()
	s.SeedRoom(&worldmodel.Room{ID: "room-1", Name: "Square"})
	s.SeedPlayer(&worldmodel.Player{ID: "p1", Name: "A", RoomID: "room-1"})
	s.SeedPlayer(&worldmodel.Player{ID: "p2", Name: "B", RoomID: "room-1"})
	s.SeedPlayer(&worldmodel.Player{ID: "p3", Name: "C", RoomID: "room-2"})

	room, err := s.GetRoomByID(context.Background(), "room-1")
	require.NoError(t, err)
	require.NotNil(t, room)
	assert.ElementsMatch(t, []string{"p1", "p2"}, room.PlayerIDs)
}

func TestGetContainersByRoomIDFiltersByRoom(t *testing.T) {
	s := memory.New()
	s.SeedContainer(&worldmodel.Container{ID: "c1", RoomID: "room-1", Capacity: 5})
	s.SeedContainer(&worldmodel.Container{ID: "c2", RoomID: "room-2", Capacity: 5})

	got, err := s.GetContainersByRoomID(context.Background(), "room-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c1", got[0].ID)
}
