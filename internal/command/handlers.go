package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/mythosmud/mudserver/internal/apperr"
	"github.com/mythosmud/mudserver/internal/combat"
	"github.com/mythosmud/mudserver/internal/combatscript"
	"github.com/mythosmud/mudserver/internal/look"
	"github.com/mythosmud/mudserver/internal/spell"
	"github.com/mythosmud/mudserver/internal/spellmutator"
	"github.com/mythosmud/mudserver/internal/target"
	"go.uber.org/zap"
)

// RegisterDefaults installs the built-in verb handlers this game's
// command set exposes: say, emote, pose, whisper, look, attack, cast,
// move, and follow.
func RegisterDefaults(p *Pipeline) {
	p.Register("say", false, sayHandler)
	p.Register("emote", false, emoteHandler)
	p.Register("pose", false, poseHandler)
	p.Register("whisper", false, whisperHandler)
	p.Register("look", false, lookHandler)
	p.Register("attack", true, attackHandler)
	p.Register("cast", true, castHandler)
	p.Register("move", false, moveHandler)
	p.Register("follow", false, followHandler)
}

func sayHandler(ctx context.Context, hc *HandlerContext, args string) (Result, error) {
	if strings.TrimSpace(args) == "" {
		return Result{Text: "say what?"}, nil
	}
	roomID := hc.RoomID()
	if roomID == "" {
		return Result{}, apperr.New(apperr.NotInRoom, "you have no current room")
	}
	if _, err := hc.Sessions.BroadcastChatRoom("say", roomID, "chat_say", hc.PlayerID, map[string]any{"text": args}); err != nil {
		return Result{}, apperr.Internalize(err)
	}
	return Result{Text: fmt.Sprintf("You say, \"%s\"", args)}, nil
}

func emoteHandler(ctx context.Context, hc *HandlerContext, args string) (Result, error) {
	if strings.TrimSpace(args) == "" {
		return Result{Text: "emote what?"}, nil
	}
	roomID := hc.RoomID()
	if roomID == "" {
		return Result{}, apperr.New(apperr.NotInRoom, "you have no current room")
	}
	if _, err := hc.Sessions.BroadcastChatRoom("emote", roomID, "chat_emote", hc.PlayerID, map[string]any{"text": args}); err != nil {
		return Result{}, apperr.Internalize(err)
	}
	return Result{Text: args}, nil
}

func poseHandler(ctx context.Context, hc *HandlerContext, args string) (Result, error) {
	if strings.TrimSpace(args) == "" {
		return Result{Text: "pose what?"}, nil
	}
	roomID := hc.RoomID()
	if roomID == "" {
		return Result{}, apperr.New(apperr.NotInRoom, "you have no current room")
	}
	if _, err := hc.Sessions.BroadcastChatRoom("pose", roomID, "chat_pose", hc.PlayerID, map[string]any{"text": args}); err != nil {
		return Result{}, apperr.Internalize(err)
	}
	return Result{Text: args}, nil
}

func whisperHandler(ctx context.Context, hc *HandlerContext, args string) (Result, error) {
	parts := strings.SplitN(strings.TrimSpace(args), " ", 2)
	if len(parts) < 2 || parts[1] == "" {
		return Result{}, apperr.New(apperr.NoTarget, "whisper what to whom?")
	}
	room, err := roomOf(ctx, hc.Persistence, hc)
	if err != nil {
		return Result{}, err
	}
	m, _, err := target.Resolve(ctx, hc.Persistence, hc.NPCRuntime, room, parts[0])
	if err != nil {
		return Result{}, err
	}
	if m.Kind != target.KindPlayer {
		return Result{}, apperr.New(apperr.NoMatch, "no player matching %q here", parts[0])
	}
	if _, err := hc.Sessions.Whisper(m.ID, "chat_whisper", hc.PlayerID, map[string]any{"text": parts[1]}); err != nil {
		return Result{}, apperr.Internalize(err)
	}
	return Result{Text: fmt.Sprintf("you whisper to %s, \"%s\"", m.DisplayName, parts[1])}, nil
}

func lookHandler(ctx context.Context, hc *HandlerContext, args string) (Result, error) {
	room, err := roomOf(ctx, hc.Persistence, hc)
	if err != nil {
		return Result{}, err
	}

	trimmed := strings.TrimSpace(args)
	if trimmed == "" {
		view, err := hc.Look.Room(ctx, room, hc.PlayerID)
		if err != nil {
			return Result{}, err
		}
		return Result{Text: view.Description, Data: view}, nil
	}

	if dir, ok := directionWords[strings.ToLower(trimmed)]; ok {
		view, err := hc.Look.Direction(ctx, room, dir)
		if err != nil {
			return Result{}, err
		}
		return Result{Text: view.Description, Data: view}, nil
	}

	viewer, err := hc.Persistence.GetPlayerByID(ctx, hc.PlayerID)
	if err != nil {
		return Result{}, apperr.Internalize(err)
	}
	result, err := hc.Look.Implicit(ctx, room, viewer, trimmed)
	if err != nil {
		return Result{}, err
	}
	return renderLookResult(result), nil
}

func renderLookResult(result any) Result {
	switch v := result.(type) {
	case look.PlayerView:
		return Result{Text: v.Name, Data: v}
	case look.NPCView:
		return Result{Text: v.Name, Data: v}
	case look.ItemView:
		return Result{Text: v.LongDescription, Data: v}
	case look.ContainerView:
		return Result{Text: v.Name, Data: v}
	default:
		return Result{Text: "you don't see anything unusual"}
	}
}

func attackHandler(ctx context.Context, hc *HandlerContext, args string) (Result, error) {
	if strings.TrimSpace(args) == "" {
		return Result{}, apperr.New(apperr.NoTarget, "attack whom?")
	}
	room, err := roomOf(ctx, hc.Persistence, hc)
	if err != nil {
		return Result{}, err
	}

	if !hc.Combat.IsPlayerInCombat(hc.PlayerID) {
		m, _, err := target.Resolve(ctx, hc.Persistence, hc.NPCRuntime, room, args)
		if err != nil {
			return Result{}, err
		}
		attacker, err := buildParticipant(ctx, hc, hc.PlayerID, target.KindPlayer)
		if err != nil {
			return Result{}, err
		}
		defender, err := buildParticipant(ctx, hc, m.ID, m.Kind)
		if err != nil {
			return Result{}, err
		}
		if _, err := hc.Combat.StartCombat(room.ID, attacker, defender); err != nil {
			return Result{}, err
		}
	}

	m, _, err := target.Resolve(ctx, hc.Persistence, hc.NPCRuntime, room, args)
	if err != nil {
		return Result{}, err
	}

	attackerDex, targetDex, attackerLevel, targetLevel := combatStatsFor(ctx, hc, hc.PlayerID, m)
	melee := hc.Script.CalcMeleeAttack(combatscript.MeleeContext{
		AttackerDex: attackerDex, AttackerLevel: attackerLevel,
		TargetDex: targetDex, TargetLevel: targetLevel,
	})
	if !melee.Hit {
		return Result{Text: "you miss"}, nil
	}

	result, err := hc.Combat.ProcessAttack(hc.PlayerID, m.ID, melee.Damage)
	if err != nil {
		return Result{}, err
	}

	text := fmt.Sprintf("you hit %s for %d damage", m.DisplayName, result.DamageDealt)
	if result.TargetDied {
		text = fmt.Sprintf("you have slain %s", m.DisplayName)
	}
	return Result{Text: text, Data: result}, nil
}

// castHandler parses "cast <spell> <target>", checks the caster knows the
// spell, and hands the rest off to spell.Dispatch. It is combat-bearing:
// the grace-period gate blocks it the same way it blocks attack, since a
// damage spell is as disruptive to a reconnecting player as a melee swing.
func castHandler(ctx context.Context, hc *HandlerContext, args string) (Result, error) {
	parts := strings.SplitN(strings.TrimSpace(args), " ", 2)
	spellID := parts[0]
	if spellID == "" {
		return Result{}, apperr.New(apperr.NoTarget, "cast what?")
	}
	if hc.Spellbook == nil {
		return Result{}, apperr.New(apperr.UnknownSpell, "no such spell %q", spellID)
	}
	def, ok := hc.Spellbook.Get(spellID)
	if !ok {
		return Result{}, apperr.New(apperr.UnknownSpell, "no such spell %q", spellID)
	}

	caster, err := hc.Persistence.GetPlayerByID(ctx, hc.PlayerID)
	if err != nil || caster == nil {
		return Result{}, apperr.Internalize(err)
	}
	if !knowsSpell(caster.KnownSpells, spellID) {
		return Result{}, apperr.New(apperr.SpellNotKnown, "you do not know how to cast %q", spellID)
	}
	if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
		return Result{}, apperr.New(apperr.NoTarget, "cast %s at whom?", spellID)
	}

	room, err := roomOf(ctx, hc.Persistence, hc)
	if err != nil {
		return Result{}, err
	}

	log := hc.Log
	if log == nil {
		log = zap.NewNop()
	}
	mutator := &spellmutator.Mutator{
		Persistence: hc.Persistence,
		NPCs:        hc.NPCs,
		XP:          hc.XP,
		XPAwarder:   hc.XPAwarder,
		CasterID:    hc.PlayerID,
		Log:         log,
	}

	result, err := spell.Dispatch(ctx, hc.Persistence, hc.NPCRuntime, room, hc.Script, parts[1], def, caster.Level, mutator)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: result.Message, Data: result}, nil
}

func knowsSpell(known []string, spellID string) bool {
	for _, s := range known {
		if s == spellID {
			return true
		}
	}
	return false
}

func buildParticipant(ctx context.Context, hc *HandlerContext, id string, kind target.Kind) (combat.Participant, error) {
	switch kind {
	case target.KindPlayer:
		p, err := hc.Persistence.GetPlayerByID(ctx, id)
		if err != nil || p == nil {
			return combat.Participant{}, apperr.Internalize(err)
		}
		return combat.Participant{ID: p.ID, Name: p.Name, Kind: combat.KindPlayer, Dex: p.Dex, HP: p.HP, MaxHP: p.MaxHP}, nil
	case target.KindNPC:
		n, ok := hc.NPCRuntime.ActiveNPC(id)
		if !ok {
			return combat.Participant{}, apperr.New(apperr.NoMatch, "no such npc %q", id)
		}
		return combat.Participant{ID: n.ID, Name: n.Name, Kind: combat.KindNPC, TemplateID: n.TemplateID, Dex: n.Dex, HP: n.HP, MaxHP: n.MaxHP}, nil
	default:
		return combat.Participant{}, apperr.New(apperr.InvalidValue, "unknown target kind %q", kind)
	}
}

func combatStatsFor(ctx context.Context, hc *HandlerContext, attackerID string, m target.Match) (attackerDex, targetDex, attackerLevel, targetLevel int) {
	if p, err := hc.Persistence.GetPlayerByID(ctx, attackerID); err == nil && p != nil {
		attackerDex, attackerLevel = p.Dex, p.Level
	}
	switch m.Kind {
	case target.KindPlayer:
		if p, err := hc.Persistence.GetPlayerByID(ctx, m.ID); err == nil && p != nil {
			targetDex, targetLevel = p.Dex, p.Level
		}
	case target.KindNPC:
		if n, ok := hc.NPCRuntime.ActiveNPC(m.ID); ok {
			targetDex, targetLevel = n.Dex, n.Level
		}
	}
	return attackerDex, targetDex, attackerLevel, targetLevel
}

func moveHandler(ctx context.Context, hc *HandlerContext, args string) (Result, error) {
	direction := strings.ToLower(strings.TrimSpace(args))
	if direction == "" {
		return Result{}, apperr.New(apperr.NoTarget, "go where?")
	}
	if hc.Combat.IsPlayerInCombat(hc.PlayerID) {
		return Result{}, apperr.New(apperr.NotYourTurn, "you cannot leave while in combat")
	}

	room, err := roomOf(ctx, hc.Persistence, hc)
	if err != nil {
		return Result{}, err
	}
	destID, ok := room.Exits[direction]
	if !ok {
		return Result{Text: "you cannot go that way"}, nil
	}

	player, err := hc.Persistence.GetPlayerByID(ctx, hc.PlayerID)
	if err != nil || player == nil {
		return Result{}, apperr.Internalize(err)
	}
	player.RoomID = destID
	if err := hc.Persistence.SavePlayer(ctx, player); err != nil {
		return Result{}, apperr.Internalize(err)
	}
	hc.Sessions.Move(hc.PlayerID, destID)

	if hc.Party != nil {
		hc.Party.OnLeaderMoved(hc.PlayerID, func(followerID string) string {
			if p, err := hc.Persistence.GetPlayerByID(ctx, followerID); err == nil && p != nil {
				return p.RoomID
			}
			return ""
		}, room.ID, func(followerID string) error {
			follower, err := hc.Persistence.GetPlayerByID(ctx, followerID)
			if err != nil || follower == nil {
				return apperr.New(apperr.NoMatch, "no such follower")
			}
			follower.RoomID = destID
			if err := hc.Persistence.SavePlayer(ctx, follower); err != nil {
				return err
			}
			hc.Sessions.Move(followerID, destID)
			return nil
		})
	}

	destRoom, err := hc.Persistence.GetRoomByID(ctx, destID)
	if err != nil || destRoom == nil {
		return Result{Text: "you arrive somewhere unfamiliar"}, nil
	}
	return Result{Text: destRoom.Description, Data: destRoom}, nil
}

func followHandler(ctx context.Context, hc *HandlerContext, args string) (Result, error) {
	if strings.TrimSpace(args) == "" {
		view := hc.Party.View(hc.PlayerID)
		if view.Leader == "" {
			return Result{Text: "you are not following anyone", Data: view}, nil
		}
		return Result{Text: fmt.Sprintf("you are following %s", view.Leader), Data: view}, nil
	}

	room, err := roomOf(ctx, hc.Persistence, hc)
	if err != nil {
		return Result{}, err
	}
	immediate, leaderID, err := hc.Party.RequestFollow(ctx, hc.Persistence, hc.NPCRuntime, room, hc.PlayerID, args)
	if err != nil {
		return Result{}, err
	}
	if immediate {
		return Result{Text: fmt.Sprintf("you start following %s", leaderID)}, nil
	}
	return Result{Text: "follow request sent, awaiting acceptance"}, nil
}
