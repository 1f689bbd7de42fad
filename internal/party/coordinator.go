// Package party tracks follow relationships between players and NPCs
// (C9): at most one "following" edge per player, any number of
// "being followed by" edges, with leader-movement propagation.
package party

import (
	"context"
	"sync"
	"time"

	"github.com/mythosmud/mudserver/internal/apperr"
	"github.com/mythosmud/mudserver/internal/target"
	"github.com/mythosmud/mudserver/internal/worldmodel"
)

type pendingRequest struct {
	LeaderID    string
	RequestedAt time.Time
}

// Coordinator owns every follow edge and pending player-leader request.
type Coordinator struct {
	mu         sync.Mutex
	following  map[string]string            // followerID -> leaderID
	followers  map[string]map[string]bool   // leaderID -> set of followerIDs
	pending    map[string]pendingRequest     // followerID -> pending request
}

func New() *Coordinator {
	return &Coordinator{
		following: make(map[string]string),
		followers: make(map[string]map[string]bool),
		pending:   make(map[string]pendingRequest),
	}
}

// Following is the rendered state for /following: who this player
// follows, and who follows this player.
type Following struct {
	Leader    string
	Followers []string
}

// RequestFollow resolves leaderText in room and either establishes the
// edge immediately (NPC leader) or records a pending request awaiting
// Accept/Reject (player leader). followerID and the resolved leader must
// both be present in room.
func (c *Coordinator) RequestFollow(
	ctx context.Context,
	persistence worldmodel.Persistence,
	npcRuntime worldmodel.NPCRuntime,
	room *worldmodel.Room,
	followerID, leaderText string,
) (immediate bool, leaderID string, err error) {
	m, _, err := target.Resolve(ctx, persistence, npcRuntime, room, leaderText)
	if err != nil {
		return false, "", err
	}
	if m.ID == followerID {
		return false, "", apperr.New(apperr.Forbidden, "cannot follow yourself")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if m.Kind == target.KindNPC {
		c.setFollowingLocked(followerID, m.ID)
		return true, m.ID, nil
	}

	c.pending[followerID] = pendingRequest{LeaderID: m.ID, RequestedAt: time.Now()}
	return false, m.ID, nil
}

// Accept confirms a pending request. leaderRoomID and followerRoomID are
// the requester's current rooms at acceptance time; both must still
// match for the edge to form.
func (c *Coordinator) Accept(leaderID, followerID, leaderRoomID, followerRoomID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	req, ok := c.pending[followerID]
	if !ok || req.LeaderID != leaderID {
		return apperr.New(apperr.NoMatch, "no pending follow request from %q", followerID)
	}
	delete(c.pending, followerID)

	if leaderRoomID == "" || leaderRoomID != followerRoomID {
		return apperr.New(apperr.NotInRoom, "leader and follower must share a room to confirm following")
	}

	c.setFollowingLocked(followerID, leaderID)
	return nil
}

// Reject discards a pending request without forming an edge.
func (c *Coordinator) Reject(leaderID, followerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	req, ok := c.pending[followerID]
	if !ok || req.LeaderID != leaderID {
		return apperr.New(apperr.NoMatch, "no pending follow request from %q", followerID)
	}
	delete(c.pending, followerID)
	return nil
}

func (c *Coordinator) setFollowingLocked(followerID, leaderID string) {
	if prev, ok := c.following[followerID]; ok {
		if set := c.followers[prev]; set != nil {
			delete(set, followerID)
		}
	}
	c.following[followerID] = leaderID
	if c.followers[leaderID] == nil {
		c.followers[leaderID] = make(map[string]bool)
	}
	c.followers[leaderID][followerID] = true
}

// Unfollow removes followerID's following edge, if any.
func (c *Coordinator) Unfollow(followerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	leaderID, ok := c.following[followerID]
	if !ok {
		return
	}
	delete(c.following, followerID)
	if set := c.followers[leaderID]; set != nil {
		delete(set, followerID)
	}
}

// View renders playerID's following state for /following.
func (c *Coordinator) View(playerID string) Following {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := Following{Leader: c.following[playerID]}
	for id := range c.followers[playerID] {
		out.Followers = append(out.Followers, id)
	}
	return out
}

// Mover attempts to move followerID the same way the leader just moved.
// A failure (no exit, in combat, grace period) is the caller's concern
// to silently skip; Mover returning an error is treated as "skip".
type Mover func(followerID string) error

// OnLeaderMoved triggers every same-room follower's movement attempt.
// Followers whose Mover call fails are silently skipped.
func (c *Coordinator) OnLeaderMoved(leaderID string, followerRoomLookup func(followerID string) string, leaderRoomID string, mover Mover) {
	c.mu.Lock()
	followerIDs := make([]string, 0, len(c.followers[leaderID]))
	for id := range c.followers[leaderID] {
		followerIDs = append(followerIDs, id)
	}
	c.mu.Unlock()

	for _, followerID := range followerIDs {
		if followerRoomLookup(followerID) != leaderRoomID {
			continue
		}
		_ = mover(followerID)
	}
}
