// Package presence computes room occupant views and annotates them with
// linkdead status (C4).
package presence

import (
	"context"
	"fmt"

	"github.com/mythosmud/mudserver/internal/worldmodel"
)

// GraceChecker reports whether a player is currently in the connection
// manager's grace set. internal/session.Manager satisfies this.
type GraceChecker interface {
	IsInGrace(playerID string) bool
}

// Occupants is the rendered view of who/what is in a room, excluding the
// viewer themself. Ordering within each slice is stable insertion order;
// callers render players, then NPCs, then containers, then drops.
type Occupants struct {
	Players    []string // "Name" or "Name (linkdead)"
	NPCs       []string
	Containers []string
	Drops      []string
}

// ListOccupants computes the occupant view of room, excluding viewerID.
func ListOccupants(
	ctx context.Context,
	persistence worldmodel.Persistence,
	npcRuntime worldmodel.NPCRuntime,
	grace GraceChecker,
	room *worldmodel.Room,
	viewerID string,
) (Occupants, error) {
	var out Occupants

	players, err := persistence.GetPlayersInRoom(ctx, room.ID)
	if err != nil {
		return out, fmt.Errorf("list occupants: get players in room: %w", err)
	}
	for _, p := range players {
		if p.ID == viewerID {
			continue
		}
		name := p.Name
		if grace.IsInGrace(p.ID) {
			name += " (linkdead)"
		}
		out.Players = append(out.Players, name)
	}

	for _, npcID := range room.NPCIDs {
		npc, ok := npcRuntime.ActiveNPC(npcID)
		if !ok {
			continue
		}
		out.NPCs = append(out.NPCs, npc.Name)
	}

	containers, err := persistence.GetContainersByRoomID(ctx, room.ID)
	if err != nil {
		return out, fmt.Errorf("list occupants: get containers: %w", err)
	}
	for _, c := range containers {
		out.Containers = append(out.Containers, c.Name)
	}

	for _, d := range room.Drops {
		out.Drops = append(out.Drops, d.PrototypeID)
	}

	return out, nil
}
