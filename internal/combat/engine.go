package combat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mythosmud/mudserver/internal/apperr"
	"github.com/mythosmud/mudserver/internal/broker"
	"go.uber.org/zap"
)

// XPTable maps an NPC template id to the XP it awards on death.
type XPTable map[string]int

// PlayerXPAwarder is the player service collaborator the engine calls to
// persist an XP gain and emit the player_xp_awarded event payload.
type PlayerXPAwarder interface {
	AwardXP(ctx context.Context, playerID string, amount int) error
}

// Engine owns every active combat instance. Each instance is logically
// serialised on itself; cross-instance lookups (byParticipant) use a
// short critical section under mu.
type Engine struct {
	mu            sync.Mutex
	instances     map[string]*Instance
	byParticipant map[string]string // participant id -> combat id
	playerState   map[string]*PlayerCombatState

	broker      *broker.Broker
	xp          XPTable
	xpAwarder   PlayerXPAwarder
	idleTimeout time.Duration
	log         *zap.Logger
}

func New(b *broker.Broker, xp XPTable, awarder PlayerXPAwarder, idleTimeout time.Duration, log *zap.Logger) *Engine {
	return &Engine{
		instances:     make(map[string]*Instance),
		byParticipant: make(map[string]string),
		playerState:   make(map[string]*PlayerCombatState),
		broker:        b,
		xp:            xp,
		xpAwarder:     awarder,
		idleTimeout:   idleTimeout,
		log:           log,
	}
}

// StartCombat creates a combat instance between attacker and target,
// installs both participants, computes round order, and publishes
// combat.started.{room_id}.
func (e *Engine) StartCombat(roomID string, attacker, target Participant) (*Instance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cid, ok := e.byParticipant[attacker.ID]; ok {
		return nil, apperr.New(apperr.CombatEnded, "attacker %q already in combat %q", attacker.ID, cid)
	}

	inst := &Instance{
		ID:     uuid.NewString(),
		RoomID: roomID,
		Status: StatusInitialising,
		Participants: map[string]*Participant{
			attacker.ID: cloneParticipant(attacker),
			target.ID:   cloneParticipant(target),
		},
		RoundNumber:  1,
		LastActionAt: time.Now(),
	}
	inst.Order = computeOrder(inst.Participants)
	inst.CurrentTurnIndex = 0
	inst.Status = StatusActive

	e.instances[inst.ID] = inst
	e.byParticipant[attacker.ID] = inst.ID
	e.byParticipant[target.ID] = inst.ID

	for _, p := range []Participant{attacker, target} {
		if p.Kind == KindPlayer {
			e.playerState[p.ID] = &PlayerCombatState{PlayerID: p.ID, CombatID: inst.ID, RoomID: roomID, LastActivity: time.Now()}
		}
	}

	e.publish(roomID, "combat.started."+roomID, "combat_started", "", nil)
	return inst, nil
}

func cloneParticipant(p Participant) *Participant {
	cp := p
	return &cp
}

// ProcessAttack resolves one attack. The attacker must be the active
// turn-holder; if the attacker is upcoming later in the current round,
// the engine auto-advances to them (supporting interactive play) rather
// than failing.
func (e *Engine) ProcessAttack(attackerID, targetID string, damage int) (AttackResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	combatID, ok := e.byParticipant[attackerID]
	if !ok {
		return AttackResult{}, apperr.New(apperr.NotInCombat, "player %q is not in combat", attackerID)
	}
	inst := e.instances[combatID]
	if inst == nil || inst.Status == StatusEnded {
		return AttackResult{}, apperr.New(apperr.CombatEnded, "combat %q has ended", combatID)
	}

	target, ok := inst.Participants[targetID]
	if !ok {
		return AttackResult{}, apperr.New(apperr.TargetNotParticipant, "target %q is not in this combat", targetID)
	}

	pos := indexOf(inst.Order, attackerID)
	if pos < 0 {
		return AttackResult{}, apperr.New(apperr.TargetNotParticipant, "attacker %q is not a participant", attackerID)
	}
	switch {
	case pos == inst.CurrentTurnIndex:
		// normal case
	case pos > inst.CurrentTurnIndex:
		inst.CurrentTurnIndex = pos // auto-advance within the round
	default:
		return AttackResult{}, apperr.New(apperr.NotYourTurn, "it is not %q's turn", attackerID)
	}

	inst.LastActionAt = time.Now()
	if p, ok := e.playerState[attackerID]; ok {
		p.LastActivity = inst.LastActionAt
	}

	// DamageDealt reports the damage the attack actually rolled, even past
	// lethal; only the HP subtraction clamps at zero, so a 10-damage hit on
	// a 5-hp rat reports damage_dealt: 10 while HP only drops by 5.
	hpLoss := damage
	if hpLoss > target.HP {
		hpLoss = target.HP
	}
	if hpLoss < 0 {
		hpLoss = 0
	}
	target.HP -= hpLoss

	result := AttackResult{Success: true, DamageDealt: damage}

	e.publish(inst.RoomID, "combat.damage."+inst.RoomID, "combat_damage", targetID, map[string]any{
		"attacker_id": attackerID, "target_id": targetID, "damage": damage,
	})

	if target.HP <= 0 {
		target.Dead = true
		result.TargetDied = true

		if attacker := inst.Participants[attackerID]; attacker != nil && attacker.Kind == KindPlayer && target.Kind == KindNPC {
			if xpAmount, ok := e.xp[target.TemplateID]; ok && xpAmount > 0 {
				if err := e.xpAwarder.AwardXP(context.Background(), attackerID, xpAmount); err != nil {
					e.log.Warn("combat: xp award failed", zap.String("player", attackerID), zap.Error(err))
				} else {
					result.XPAwarded = xpAmount
					e.publish("", "combat.dp_update."+attackerID, "player_xp_awarded", attackerID, map[string]any{"amount": xpAmount})
				}
			}
		}

		if target.Kind == KindNPC {
			e.publish(inst.RoomID, "combat.npc_died."+inst.RoomID, "combat_npc_died", targetID, nil)
		} else {
			e.publish(inst.RoomID, "events.player_died."+inst.RoomID, "player_died", targetID, nil)
		}
	}

	if inst.aliveCount() < 2 {
		e.endLocked(inst, "last_one_standing")
		result.CombatEnded = true
	} else {
		e.advanceTurn(inst)
	}

	return result, nil
}

func (e *Engine) advanceTurn(inst *Instance) {
	next := (inst.CurrentTurnIndex + 1) % len(inst.Order)
	if next == 0 {
		inst.RoundNumber++
	}
	inst.CurrentTurnIndex = next
	e.publish(inst.RoomID, "combat.turn."+inst.RoomID, "combat_turn", inst.Order[next], nil)
}

// EndCombat transitions combatID to ended and publishes a combat-ended
// event, removing both participants' in-combat state.
func (e *Engine) EndCombat(combatID, reason string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	inst, ok := e.instances[combatID]
	if !ok {
		return apperr.New(apperr.NotInCombat, "no such combat %q", combatID)
	}
	e.endLocked(inst, reason)
	return nil
}

// endLocked must be called with mu held.
func (e *Engine) endLocked(inst *Instance, reason string) {
	if inst.Status == StatusEnded {
		return
	}
	inst.Status = StatusEnded
	for id := range inst.Participants {
		delete(e.byParticipant, id)
		delete(e.playerState, id)
	}
	delete(e.instances, inst.ID)

	subj := "combat.ended." + inst.RoomID
	kind := broker.EventKind("combat_ended")
	if reason == "timeout" {
		subj = "combat.timeout." + inst.RoomID
		kind = "combat_timeout"
	}
	e.publish(inst.RoomID, subj, kind, "", map[string]any{"reason": reason})
}

// CleanupStaleCombats ends every combat whose last action predates
// idleTimeout, returning the ended combat ids.
func (e *Engine) CleanupStaleCombats(now time.Time) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	var ended []string
	for id, inst := range e.instances {
		if now.Sub(inst.LastActionAt) > e.idleTimeout {
			e.endLocked(inst, "timeout")
			ended = append(ended, id)
		}
	}
	return ended
}

// IsPlayerInCombat is a synchronous query used by movement and login
// guards. A player combat state record stale by more than idleTimeout is
// treated as not-in-combat (lazily reaped here).
func (e *Engine) IsPlayerInCombat(playerID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	st, ok := e.playerState[playerID]
	if !ok {
		return false
	}
	if time.Since(st.LastActivity) > e.idleTimeout {
		delete(e.playerState, playerID)
		delete(e.byParticipant, playerID)
		return false
	}
	return true
}

func (e *Engine) publish(roomID, subj string, kind broker.EventKind, playerID string, payload any) {
	if e.broker == nil {
		return
	}
	if _, err := e.broker.Publish(subj, kind, playerID, roomID, payload); err != nil {
		e.log.Warn("combat: publish failed", zap.String("subject", subj), zap.Error(err))
	}
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
