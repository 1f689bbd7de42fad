package worldmodel

import "context"

// Persistence is the storage-layer contract the core consumes. Only the
// asynchronous (context-carrying) variants are exposed — per Open
// Question 2, the core never calls a synchronous persistence method.
type Persistence interface {
	GetPlayerByID(ctx context.Context, id string) (*Player, error)
	GetPlayerByName(ctx context.Context, name string) (*Player, error)
	SavePlayer(ctx context.Context, p *Player) error

	GetRoomByID(ctx context.Context, id string) (*Room, error)
	GetPlayersInRoom(ctx context.Context, roomID string) ([]*Player, error)

	GetContainersByRoomID(ctx context.Context, roomID string) ([]*Container, error)
	GetContainer(ctx context.Context, id string) (*Container, error)

	GetProfessionByID(ctx context.Context, id string) (*Profession, error)
}

// NPCBaseStats is the minimal shape the combat engine needs to award XP
// on an NPC kill.
type NPCBaseStats struct {
	XPValue int
}

// NPCRuntime is the external NPC lifecycle manager's contract.
type NPCRuntime interface {
	// ActiveNPC returns the live NPC by world object id.
	ActiveNPC(id string) (*NPC, bool)
	// BaseStats returns the NPC template's static stats (xp_value etc.)
	BaseStats(templateID string) (NPCBaseStats, bool)
}

// Prototype is the shape the prototype registry returns for an item
// lookup in the look engine.
type Prototype struct {
	Name            string
	LongDescription string
}

// PrototypeRegistry resolves item/container prototype ids to display
// data.
type PrototypeRegistry interface {
	Get(prototypeID string) (Prototype, bool)
}
