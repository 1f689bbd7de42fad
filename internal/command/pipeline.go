package command

import (
	"context"

	"github.com/mythosmud/mudserver/internal/apperr"
	"github.com/mythosmud/mudserver/internal/worldmodel"
)

type registeredHandler struct {
	fn            HandlerFunc
	combatBearing bool
}

// Pipeline is the verb-indexed dispatch table plus the alias map and
// sanitisation limits it enforces before a handler ever runs.
type Pipeline struct {
	handlers      map[string]registeredHandler
	aliases       map[string]string
	maxLineLength int
}

func New(maxLineLength int) *Pipeline {
	p := &Pipeline{
		handlers:      make(map[string]registeredHandler),
		aliases:       make(map[string]string),
		maxLineLength: maxLineLength,
	}
	for alias, canonical := range defaultAliases {
		p.aliases[alias] = canonical
	}
	return p
}

// Register installs handler under verb. combatBearing marks handlers the
// grace-period gate blocks (attack-family); look, say, move, and other
// non-combat handlers pass combatBearing=false.
func (p *Pipeline) Register(verb string, combatBearing bool, handler HandlerFunc) {
	p.handlers[verb] = registeredHandler{fn: handler, combatBearing: combatBearing}
}

// Alias installs an additional surface-verb-to-canonical-verb mapping,
// beyond the built-in defaults.
func (p *Pipeline) Alias(surface, canonical string) {
	p.aliases[surface] = canonical
}

// Dispatch runs the full gate -> sanitise -> parse -> dispatch pipeline
// for one raw line from playerID's session. The shutdown gate applies
// before anything else; the grace-period gate applies once the verb's
// handler is known, since it blocks only combat-bearing handlers.
func (p *Pipeline) Dispatch(ctx context.Context, hc *HandlerContext, line string, shuttingDown bool, inGrace bool) (Result, error) {
	if shuttingDown {
		return Result{}, apperr.New(apperr.ShutdownPending, "the server is shutting down")
	}

	cleaned, err := sanitize(line, p.maxLineLength)
	if err != nil {
		return Result{}, err
	}

	verb, args := parse(cleaned)
	if direction, ok := directionWords[verb]; ok {
		verb, args = "move", direction
	} else if canonical, ok := p.aliases[verb]; ok {
		verb = canonical
	}

	handler, ok := p.handlers[verb]
	if !ok {
		return Result{Text: "unknown command"}, nil
	}

	if inGrace && handler.combatBearing {
		return Result{}, apperr.New(apperr.GracePeriodBlocked, "you cannot do that while reconnecting")
	}

	return handler.fn(ctx, hc, args)
}

// roomOf is a small helper handlers use to fetch the viewer's current
// room, surfacing not_in_room consistently.
func roomOf(ctx context.Context, persistence worldmodel.Persistence, hc *HandlerContext) (*worldmodel.Room, error) {
	roomID := hc.RoomID()
	if roomID == "" {
		return nil, apperr.New(apperr.NotInRoom, "you have no current room")
	}
	room, err := persistence.GetRoomByID(ctx, roomID)
	if err != nil || room == nil {
		return nil, apperr.Internalize(err)
	}
	return room, nil
}
