// Package look renders what a player sees: rooms, adjacent rooms,
// players, NPCs, items, and containers, with priority-ordered implicit
// target resolution (C7).
package look

import (
	"context"
	"fmt"
	"strings"

	"github.com/mythosmud/mudserver/internal/apperr"
	"github.com/mythosmud/mudserver/internal/presence"
	"github.com/mythosmud/mudserver/internal/target"
	"github.com/mythosmud/mudserver/internal/worldmodel"
)

// Engine renders look results from the shared persistence/NPC/prototype
// collaborators; it holds no state of its own.
type Engine struct {
	persistence worldmodel.Persistence
	npcRuntime  worldmodel.NPCRuntime
	prototypes  worldmodel.PrototypeRegistry
	grace       presence.GraceChecker
}

func New(persistence worldmodel.Persistence, npcRuntime worldmodel.NPCRuntime, prototypes worldmodel.PrototypeRegistry, grace presence.GraceChecker) *Engine {
	return &Engine{persistence: persistence, npcRuntime: npcRuntime, prototypes: prototypes, grace: grace}
}

// RoomView is the rendered content of a default room look.
type RoomView struct {
	Name        string
	Description string
	Occupants   presence.Occupants
	Exits       []string
}

func (e *Engine) Room(ctx context.Context, room *worldmodel.Room, viewerID string) (RoomView, error) {
	if room == nil {
		return RoomView{}, apperr.New(apperr.NotInRoom, "viewer has no current room")
	}
	occupants, err := presence.ListOccupants(ctx, e.persistence, e.npcRuntime, e.grace, room, viewerID)
	if err != nil {
		return RoomView{}, apperr.Internalize(err)
	}
	exits := make([]string, 0, len(room.Exits))
	for dir := range room.Exits {
		exits = append(exits, dir)
	}
	return RoomView{Name: room.Name, Description: room.Description, Occupants: occupants, Exits: exits}, nil
}

// Direction renders the adjacent room in the given exit direction, or a
// "nothing special that way" placeholder when there is no such exit.
func (e *Engine) Direction(ctx context.Context, room *worldmodel.Room, direction string) (RoomView, error) {
	if room == nil {
		return RoomView{}, apperr.New(apperr.NotInRoom, "viewer has no current room")
	}
	destID, ok := room.Exits[strings.ToLower(direction)]
	if !ok {
		return RoomView{Description: "nothing special that way"}, nil
	}
	dest, err := e.persistence.GetRoomByID(ctx, destID)
	if err != nil || dest == nil {
		return RoomView{Description: "nothing special that way"}, nil
	}
	return RoomView{Name: dest.Name, Description: dest.Description}, nil
}

// PlayerView is the rendered content of a "look at player" result.
type PlayerView struct {
	Name        string
	Linkdead    bool
	Equipment   []string
	Position    string
	HealthLabel string
	LucidityLabel string
}

func (e *Engine) Player(ctx context.Context, room *worldmodel.Room, nameText string) (PlayerView, error) {
	m, _, err := target.Resolve(ctx, e.persistence, e.npcRuntime, room, nameText)
	if err != nil {
		return PlayerView{}, err
	}
	if m.Kind != target.KindPlayer {
		return PlayerView{}, apperr.New(apperr.NoMatch, "no player matching %q in this room", nameText)
	}
	p, err := e.persistence.GetPlayerByID(ctx, m.ID)
	if err != nil || p == nil {
		return PlayerView{}, apperr.Internalize(err)
	}

	view := PlayerView{
		Name:          p.Name,
		Linkdead:      e.grace.IsInGrace(p.ID),
		Position:      p.Position,
		HealthLabel:   healthBand(p.HP, p.MaxHP),
		LucidityLabel: lucidityBand(p.Lucidity, p.MaxLucidity),
	}
	for _, slot := range worldmodel.VisibleSlots {
		item, ok := p.Equipment[slot]
		if !ok {
			continue
		}
		view.Equipment = append(view.Equipment, fmt.Sprintf("%s: %s", slot, item.Name))
	}
	return view, nil
}

// healthBand renders the spec's four-band health descriptor.
func healthBand(current, max int) string {
	if max <= 0 {
		return "mortally wounded"
	}
	pct := float64(current) / float64(max) * 100
	switch {
	case current <= 0:
		return "mortally wounded"
	case pct > 75:
		return "healthy"
	case pct >= 25:
		return "wounded"
	default:
		return "critical"
	}
}

// lucidityBand renders the spec's four-band lucidity descriptor.
func lucidityBand(current, max int) string {
	if max <= 0 {
		return "mad"
	}
	pct := float64(current) / float64(max) * 100
	switch {
	case current <= 0:
		return "mad"
	case pct > 75:
		return "lucid"
	case pct >= 25:
		return "disturbed"
	default:
		return "unstable"
	}
}

// ItemView is the rendered content of an item look.
type ItemView struct {
	PrototypeID     string
	Name            string
	LongDescription string
}

// Item searches room drops, then the viewer's inventory, then (unless
// skipEquipped) the viewer's equipped items, in that order.
func (e *Engine) Item(room *worldmodel.Room, viewer *worldmodel.Player, nameText string, skipEquipped bool) (ItemView, error) {
	base, instance := parseInstance(nameText)
	if instance == 0 {
		instance = 1
	}

	var candidates []string
	if room != nil {
		for _, d := range room.Drops {
			if e.matchesPrototype(d.PrototypeID, base) {
				candidates = append(candidates, d.PrototypeID)
			}
		}
	}
	if viewer != nil {
		for _, it := range viewer.Inventory {
			if e.matchesPrototype(it.PrototypeID, base) {
				candidates = append(candidates, it.PrototypeID)
			}
		}
		if !skipEquipped {
			for _, slot := range worldmodel.VisibleSlots {
				item, ok := viewer.Equipment[slot]
				if ok && e.matchesPrototype(item.PrototypeID, base) {
					candidates = append(candidates, item.PrototypeID)
				}
			}
		}
	}

	if len(candidates) == 0 {
		return ItemView{}, apperr.New(apperr.NoMatch, "you don't see any %q here", base)
	}
	if instance > len(candidates) {
		return ItemView{}, apperr.New(apperr.InstanceOutOfRange, "aren't that many")
	}
	protoID := candidates[instance-1]
	proto, ok := e.prototypes.Get(protoID)
	if !ok {
		return ItemView{}, apperr.New(apperr.NoMatch, "no description available for %q", protoID)
	}
	return ItemView{PrototypeID: protoID, Name: proto.Name, LongDescription: proto.LongDescription}, nil
}

func (e *Engine) matchesPrototype(prototypeID, base string) bool {
	proto, ok := e.prototypes.Get(prototypeID)
	if !ok {
		return strings.Contains(strings.ToLower(prototypeID), strings.ToLower(base))
	}
	return strings.Contains(strings.ToLower(proto.Name), strings.ToLower(base))
}

// ContainerView is the rendered content of a container look.
type ContainerView struct {
	Name     string
	Locked   bool
	Sealed   bool
	Used     int
	Capacity int
	Contents []ItemView
}

// Container locates nameText by name among the room's containers,
// optionally rendering contents. The viewer's equipped containers are not
// searched, and containers are not matched by id.
func (e *Engine) Container(ctx context.Context, room *worldmodel.Room, nameText string, showContents bool) (ContainerView, error) {
	base, instance := parseInstance(nameText)
	if instance == 0 {
		instance = 1
	}

	var candidates []*worldmodel.Container
	if room != nil {
		cs, err := e.persistence.GetContainersByRoomID(ctx, room.ID)
		if err != nil {
			return ContainerView{}, apperr.Internalize(err)
		}
		for _, c := range cs {
			if strings.Contains(strings.ToLower(c.Name), strings.ToLower(base)) {
				candidates = append(candidates, c)
			}
		}
	}

	if len(candidates) == 0 {
		return ContainerView{}, apperr.New(apperr.NoMatch, "you don't see any %q here", base)
	}
	if instance > len(candidates) {
		return ContainerView{}, apperr.New(apperr.InstanceOutOfRange, "aren't that many")
	}
	c := candidates[instance-1]

	view := ContainerView{Name: c.Name, Locked: c.Locked, Sealed: c.Sealed, Used: c.Used(), Capacity: c.Capacity}
	if showContents {
		for _, stack := range c.Items {
			proto, ok := e.prototypes.Get(stack.PrototypeID)
			name := stack.PrototypeID
			desc := ""
			if ok {
				name, desc = proto.Name, proto.LongDescription
			}
			view.Contents = append(view.Contents, ItemView{PrototypeID: stack.PrototypeID, Name: name, LongDescription: desc})
		}
	}
	return view, nil
}

// Implicit resolves a bare name with no declared kind, trying player,
// then NPC, then item, then container, in that priority order.
func (e *Engine) Implicit(ctx context.Context, room *worldmodel.Room, viewer *worldmodel.Player, nameText string) (any, error) {
	if m, _, err := target.Resolve(ctx, e.persistence, e.npcRuntime, room, nameText); err == nil {
		switch m.Kind {
		case target.KindPlayer:
			return e.Player(ctx, room, nameText)
		case target.KindNPC:
			return e.npcView(m)
		}
	} else if apperr.Is(err, apperr.DisambiguationRequired) {
		return nil, err
	}

	if iv, err := e.Item(room, viewer, nameText, false); err == nil {
		return iv, nil
	}
	if cv, err := e.Container(ctx, room, nameText, false); err == nil {
		return cv, nil
	}

	base, _ := parseInstance(nameText)
	return nil, apperr.New(apperr.NoMatch, "you don't see any %q here", base)
}

// NPCView is the rendered content of a "look at npc" result.
type NPCView struct {
	Name        string
	HealthLabel string
}

func (e *Engine) npcView(m target.Match) (NPCView, error) {
	npc, ok := e.npcRuntime.ActiveNPC(m.ID)
	if !ok {
		return NPCView{}, apperr.New(apperr.NoMatch, "no such npc %q", m.ID)
	}
	return NPCView{Name: npc.Name, HealthLabel: healthBand(npc.HP, npc.MaxHP)}, nil
}
