// Package spellmutator is the player-service collaborator spell.Dispatch
// calls to apply a resolved effect, grounded on the same HP-clamp and
// kill/XP-award sequence internal/combat.Engine.ProcessAttack uses for
// turn-based damage, generalized to a standalone (non-combat-instance)
// cast.
package spellmutator

import (
	"context"

	"github.com/mythosmud/mudserver/internal/combat"
	"github.com/mythosmud/mudserver/internal/spell"
	"github.com/mythosmud/mudserver/internal/target"
	"github.com/mythosmud/mudserver/internal/worldmodel"
	"go.uber.org/zap"
)

// NPCMutator is the narrow slice of internal/npcdata.Table's surface this
// package needs to damage and despawn an NPC, kept as an interface so
// tests can fake it without a YAML-backed table.
type NPCMutator interface {
	ApplyDamage(id string, amount int) (*worldmodel.NPC, bool)
	Remove(id string)
}

// Mutator applies heal/damage/status effects to a resolved target,
// persisting player state through worldmodel.Persistence and NPC state
// through the NPC runtime.
type Mutator struct {
	Persistence worldmodel.Persistence
	NPCs        NPCMutator
	XP          combat.XPTable
	XPAwarder   combat.PlayerXPAwarder
	CasterID    string
	Log         *zap.Logger
}

var _ spell.Mutator = (*Mutator)(nil)

func (m *Mutator) Heal(ctx context.Context, targetID string, kind target.Kind, amount int) error {
	if amount <= 0 {
		return nil
	}
	switch kind {
	case target.KindPlayer:
		p, err := m.Persistence.GetPlayerByID(ctx, targetID)
		if err != nil || p == nil {
			return err
		}
		p.HP += amount
		if p.HP > p.MaxHP {
			p.HP = p.MaxHP
		}
		return m.Persistence.SavePlayer(ctx, p)
	case target.KindNPC:
		// NPC healing is cosmetic only; the runtime has no persisted
		// record to heal against beyond its in-memory instance.
		return nil
	default:
		return nil
	}
}

func (m *Mutator) Damage(ctx context.Context, targetID string, kind target.Kind, amount int) (bool, error) {
	if amount < 0 {
		amount = 0
	}
	switch kind {
	case target.KindPlayer:
		p, err := m.Persistence.GetPlayerByID(ctx, targetID)
		if err != nil || p == nil {
			return false, err
		}
		dealt := amount
		if dealt > p.HP {
			dealt = p.HP
		}
		p.HP -= dealt
		if err := m.Persistence.SavePlayer(ctx, p); err != nil {
			return false, err
		}
		return p.HP <= 0, nil

	case target.KindNPC:
		npc, ok := m.NPCs.ApplyDamage(targetID, amount)
		if !ok {
			return false, nil
		}
		if npc.HP > 0 {
			return false, nil
		}
		if xpAmount, ok := m.XP[npc.TemplateID]; ok && xpAmount > 0 && m.CasterID != "" {
			if err := m.XPAwarder.AwardXP(ctx, m.CasterID, xpAmount); err != nil {
				m.Log.Warn("spellmutator: xp award failed", zap.String("player", m.CasterID), zap.Error(err))
			}
		}
		m.NPCs.Remove(targetID)
		return true, nil

	default:
		return false, nil
	}
}

// ApplyStatus is a no-op: this implementation carries no status-effect
// store yet, so casts resolve but leave no lingering state.
func (m *Mutator) ApplyStatus(ctx context.Context, targetID string, kind target.Kind, effect spell.StatusEffect) error {
	m.Log.Debug("spellmutator: status effect applied (not persisted)",
		zap.String("target", targetID), zap.String("spell_id", effect.SpellID))
	return nil
}
