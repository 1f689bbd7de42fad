// Package combat is the combat engine (C8): per-encounter state, turn
// ordering by dexterity, attack resolution, death/XP propagation, and
// cleanup.
package combat

import "time"

// ParticipantKind distinguishes player from NPC combatants.
type ParticipantKind string

const (
	KindPlayer ParticipantKind = "player"
	KindNPC    ParticipantKind = "npc"
)

// Participant is one side's live state within a combat instance.
type Participant struct {
	ID         string
	Name       string
	Kind       ParticipantKind
	TemplateID string // NPC template id, used to look up XP value on death
	HP         int
	MaxHP      int
	Dex        int
	Dead       bool
}

// Status is the combat instance's lifecycle state.
type Status string

const (
	StatusInitialising Status = "initialising"
	StatusActive       Status = "active"
	StatusEnded        Status = "ended"
)

// Instance is a single encounter's transient state.
type Instance struct {
	ID               string
	RoomID           string
	Participants     map[string]*Participant
	Order            []string // turn order: non-increasing dex, tie-break by id
	Status           Status
	CurrentTurnIndex int
	RoundNumber      int
	LastActionAt     time.Time
}

func (inst *Instance) aliveCount() int {
	n := 0
	for _, p := range inst.Participants {
		if !p.Dead {
			n++
		}
	}
	return n
}

// PlayerCombatState is held next to session state; used by movement and
// login guards to block conflicting actions.
type PlayerCombatState struct {
	PlayerID     string
	CombatID     string
	RoomID       string
	LastActivity time.Time
}

// AttackResult is returned by ProcessAttack.
type AttackResult struct {
	Success      bool
	DamageDealt  int
	TargetDied   bool
	CombatEnded  bool
	XPAwarded    int
}
