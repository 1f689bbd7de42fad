// Package command is the command dispatch pipeline (C5): gate, sanitise,
// parse, and dispatch a raw text line to a verb handler.
package command

import (
	"context"

	"github.com/mythosmud/mudserver/internal/combat"
	"github.com/mythosmud/mudserver/internal/combatscript"
	"github.com/mythosmud/mudserver/internal/look"
	"github.com/mythosmud/mudserver/internal/party"
	"github.com/mythosmud/mudserver/internal/presence"
	"github.com/mythosmud/mudserver/internal/session"
	"github.com/mythosmud/mudserver/internal/spellbook"
	"github.com/mythosmud/mudserver/internal/spellmutator"
	"github.com/mythosmud/mudserver/internal/worldmodel"
	"go.uber.org/zap"
)

// Result is a handler's return value: rendered text plus optional
// structured data a richer client can use (e.g. room drops for the UI).
type Result struct {
	Text string
	Data any
}

// HandlerContext carries every collaborator a handler might need. It is
// built once per session and reused across that session's commands.
type HandlerContext struct {
	PlayerID    string
	RoomID      func() string // current room, read fresh each dispatch (may change between commands)
	Persistence worldmodel.Persistence
	NPCRuntime  worldmodel.NPCRuntime
	Prototypes  worldmodel.PrototypeRegistry
	Grace       presence.GraceChecker
	Sessions    *session.Manager
	Combat      *combat.Engine
	Look        *look.Engine
	Party       *party.Coordinator
	Script      *combatscript.Engine

	// Spell-casting collaborators. NPCs may be nil when the server runs
	// with no NPC table loaded; casting damage at an NPC then fails with
	// apperr.NoMatch the same way an unresolvable target would.
	Spellbook *spellbook.Table
	NPCs      spellmutator.NPCMutator
	XP        combat.XPTable
	XPAwarder combat.PlayerXPAwarder
	Log       *zap.Logger
}

// HandlerFunc handles one parsed command invocation.
type HandlerFunc func(ctx context.Context, hc *HandlerContext, args string) (Result, error)
