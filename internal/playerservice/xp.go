// Package playerservice is the thin player-state mutation surface spec.md
// refers to as "the player service" (combat XP awards, spell effects):
// the collaborator that owns persisting a player record, as opposed to
// the combat/spell engines that only compute what changed.
package playerservice

import (
	"context"
	"fmt"

	"github.com/mythosmud/mudserver/internal/worldmodel"
)

// XPAwarder persists an XP gain against worldmodel.Persistence. It
// implements combat.PlayerXPAwarder; the combat engine itself publishes
// the resulting combat.dp_update.{player_id} envelope, so this type only
// owns the write.
type XPAwarder struct {
	Persistence worldmodel.Persistence
}

func (a *XPAwarder) AwardXP(ctx context.Context, playerID string, amount int) error {
	p, err := a.Persistence.GetPlayerByID(ctx, playerID)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("playerservice: no such player %q", playerID)
	}
	p.XP += int64(amount)
	return a.Persistence.SavePlayer(ctx, p)
}
