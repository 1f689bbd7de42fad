package spell

import (
	"context"
	"fmt"

	"github.com/mythosmud/mudserver/internal/apperr"
	"github.com/mythosmud/mudserver/internal/combatscript"
	"github.com/mythosmud/mudserver/internal/target"
	"github.com/mythosmud/mudserver/internal/worldmodel"
)

// Mutator is the player-service collaborator the dispatcher invokes for
// the actual state change; it owns persistence and any typed-reduction
// logic the concrete effect needs.
type Mutator interface {
	Heal(ctx context.Context, targetID string, kind target.Kind, amount int) error
	Damage(ctx context.Context, targetID string, kind target.Kind, amount int) (targetDied bool, err error)
	ApplyStatus(ctx context.Context, targetID string, kind target.Kind, effect StatusEffect) error
}

// Dispatch resolves targetText in room, evaluates def's effect through
// script, and invokes mutator with the relevant mutation.
func Dispatch(
	ctx context.Context,
	persistence worldmodel.Persistence,
	npcRuntime worldmodel.NPCRuntime,
	room *worldmodel.Room,
	script *combatscript.Engine,
	targetText string,
	def Definition,
	casterLevel int,
	mutator Mutator,
) (Result, error) {
	m, _, err := target.Resolve(ctx, persistence, npcRuntime, room, targetText)
	if err != nil {
		return Result{}, err
	}

	effCtx := combatscript.EffectContext{Mastery: def.Mastery, CasterLevel: casterLevel}

	switch def.EffectKind {
	case EffectHeal:
		eff := script.CalcEffect(string(EffectHeal), effCtx)
		curHP, maxHP, err := lookupHP(ctx, persistence, npcRuntime, m)
		if err != nil {
			return Result{}, apperr.Internalize(err)
		}
		amount := eff.Amount
		if curHP+amount > maxHP {
			amount = maxHP - curHP
		}
		if amount < 0 {
			amount = 0
		}
		if err := mutator.Heal(ctx, m.ID, m.Kind, amount); err != nil {
			return Result{}, apperr.Internalize(err)
		}
		return Result{Success: true, Message: fmt.Sprintf("%s is healed for %d", m.DisplayName, amount), EffectApplied: amount > 0}, nil

	case EffectDamage:
		eff := script.CalcEffect(string(EffectDamage), effCtx)
		died, err := mutator.Damage(ctx, m.ID, m.Kind, eff.Amount)
		if err != nil {
			return Result{}, apperr.Internalize(err)
		}
		msg := fmt.Sprintf("%s takes %d damage", m.DisplayName, eff.Amount)
		if died {
			msg = fmt.Sprintf("%s is slain", m.DisplayName)
		}
		return Result{Success: true, Message: msg, EffectApplied: true}, nil

	case EffectStatus:
		eff := script.CalcEffect(string(EffectStatus), effCtx)
		se := StatusEffect{SpellID: def.SpellID, DataKey: def.EffectData, DurationSeconds: eff.DurationSeconds}
		if err := mutator.ApplyStatus(ctx, m.ID, m.Kind, se); err != nil {
			return Result{}, apperr.Internalize(err)
		}
		return Result{Success: true, Message: fmt.Sprintf("%s is affected by %s", m.DisplayName, def.EffectData), EffectApplied: true}, nil

	default:
		return Result{}, apperr.New(apperr.InvalidValue, "unknown effect kind %q", def.EffectKind)
	}
}

func lookupHP(ctx context.Context, persistence worldmodel.Persistence, npcRuntime worldmodel.NPCRuntime, m target.Match) (current, max int, err error) {
	switch m.Kind {
	case target.KindPlayer:
		p, err := persistence.GetPlayerByID(ctx, m.ID)
		if err != nil || p == nil {
			return 0, 0, apperr.New(apperr.NoMatch, "no such player %q", m.ID)
		}
		return p.HP, p.MaxHP, nil
	case target.KindNPC:
		n, ok := npcRuntime.ActiveNPC(m.ID)
		if !ok {
			return 0, 0, apperr.New(apperr.NoMatch, "no such npc %q", m.ID)
		}
		return n.HP, n.MaxHP, nil
	default:
		return 0, 0, apperr.New(apperr.InvalidValue, "unknown target kind %q", m.Kind)
	}
}
