package party_test

import (
	"context"
	"testing"

	"github.com/mythosmud/mudserver/internal/apperr"
	"github.com/mythosmud/mudserver/internal/party"
	"github.com/mythosmud/mudserver/internal/worldmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPersistence struct{ players []*worldmodel.Player }

func (s *stubPersistence) GetPlayerByID(context.Context, string) (*worldmodel.Player, error)   { return nil, nil }
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

func TestRequestFollowNPCLeaderIsImmediate(t *testing.T) {
	room := &worldmodel.Room{ID: "r1", NPCIDs: []string{"guide1"}}
	npcs := &stubNPCRuntime{npcs: map[string]*worldmodel.NPC{"guide1": {ID: "guide1", Name: "guide"}}}
	persistence := &stubPersistence{}
	c := party.New()

	immediate, leaderID, err := c.RequestFollow(context.Background(), persistence, npcs, room, "p1", "guide")
	require.NoError(t, err)
	assert.True(t, immediate)
	assert.Equal(t, "guide1", leaderID)

	view := c.View("p1")
	assert.Equal(t, "guide1", view.Leader)
}

func TestRequestFollowPlayerLeaderRequiresAccept(t *testing.T) {
	room := &worldmodel.Room{ID: "r1"}
	persistence := &stubPersistence{players: []*worldmodel.Player{
		{ID: "p1", Name: "Follower", RoomID: "r1"},
		{ID: "p2", Name: "Leader", RoomID: "r1"},
	}}
	c := party.New()

	immediate, leaderID, err := c.RequestFollow(context.Background(), persistence, &stubNPCRuntime{}, room, "p1", "leader")
	require.NoError(t, err)
	assert.False(t, immediate)
	assert.Equal(t, "p2", leaderID)

	// Not yet following until accepted.
	assert.Equal(t, "", c.View("p1").Leader)

	require.NoError(t, c.Accept("p2", "p1", "r1", "r1"))
	assert.Equal(t, "p2", c.View("p1").Leader)
	assert.Contains(t, c.View("p2").Followers, "p1")
}

func TestAcceptFailsWhenRoomsDiverged(t *testing.T) {
	room := &worldmodel.Room{ID: "r1"}
	persistence := &stubPersistence{players: []*worldmodel.Player{
		{ID: "p1", Name: "Follower", RoomID: "r1"},
		{ID: "p2", Name: "Leader", RoomID: "r1"},
	}}
	c := party.New()

	_, _, err := c.RequestFollow(context.Background(), persistence, &stubNPCRuntime{}, room, "p1", "leader")
	require.NoError(t, err)

	err = c.Accept("p2", "p1", "r1", "r2")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.NotInRoom))
}

func TestRequestFollowRejectsSelfFollow(t *testing.T) {
	room := &worldmodel.Room{ID: "r1"}
	persistence := &stubPersistence{players: []*worldmodel.Player{{ID: "p1", Name: "Me", RoomID: "r1"}}}
	c := party.New()

	_, _, err := c.RequestFollow(context.Background(), persistence, &stubNPCRuntime{}, room, "p1", "me")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Forbidden))
}

func TestOnLeaderMovedTriggersSameRoomFollowersOnly(t *testing.T) {
	room := &worldmodel.Room{ID: "r1", NPCIDs: []string{"guide1"}}
	npcs := &stubNPCRuntime{npcs: map[string]*worldmodel.NPC{"guide1": {ID: "guide1", Name: "guide"}}}
	c := party.New()

	_, _, err := c.RequestFollow(context.Background(), &stubPersistence{}, npcs, room, "p1", "guide")
	require.NoError(t, err)
	_, _, err = c.RequestFollow(context.Background(), &stubPersistence{}, npcs, room, "p2", "guide")
	require.NoError(t, err)

	rooms := map[string]string{"p1": "r1", "p2": "r2"} // p2 already elsewhere
	moved := map[string]bool{}
	c.OnLeaderMoved("guide1", func(id string) string { return rooms[id] }, "r1", func(followerID string) error {
		moved[followerID] = true
		return nil
	})

	assert.True(t, moved["p1"])
	assert.False(t, moved["p2"])
}

func TestUnfollowRemovesEdge(t *testing.T) {
	room := &worldmodel.Room{ID: "r1", NPCIDs: []string{"guide1"}}
	npcs := &stubNPCRuntime{npcs: map[string]*worldmodel.NPC{"guide1": {ID: "guide1", Name: "guide"}}}
	c := party.New()

	_, _, err := c.RequestFollow(context.Background(), &stubPersistence{}, npcs, room, "p1", "guide")
	require.NoError(t, err)
	c.Unfollow("p1")
	assert.Equal(t, "", c.View("p1").Leader)
	assert.NotContains(t, c.View("guide1").Followers, "p1")
}
