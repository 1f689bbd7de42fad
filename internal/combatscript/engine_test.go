package combatscript_test

import (
	"testing"

	"github.com/mythosmud/mudserver/internal/combatscript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEngine(t *testing.T) *combatscript.Engine {
	t.Helper()
	eng, err := combatscript.NewEngine("", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(eng.Close)
	return eng
}

func TestCalcMeleeAttackReturnsPositiveDamageOnHit(t *testing.T) {
	eng := newTestEngine(t)
	result := eng.CalcMeleeAttack(combatscript.MeleeContext{AttackerDex: 50, AttackerLevel: 10, TargetDex: 1, TargetLevel: 1})
	if result.Hit {
		assert.Greater(t, result.Damage, 0)
	} else {
		assert.Equal(t, 0, result.Damage)
	}
}

func TestCalcEffectHealScalesWithMastery(t *testing.T) {
	eng := newTestEngine(t)
	low := eng.CalcEffect("heal", combatscript.EffectContext{Mastery: 1, CasterLevel: 5})
	high := eng.CalcEffect("heal", combatscript.EffectContext{Mastery: 10, CasterLevel: 5})
	assert.Greater(t, high.Amount, low.Amount)
}

func TestCalcEffectStatusReturnsDuration(t *testing.T) {
	eng := newTestEngine(t)
	result := eng.CalcEffect("status_effect", combatscript.EffectContext{Mastery: 2, CasterLevel: 3})
	assert.Greater(t, result.DurationSeconds, 0)
	assert.Equal(t, 0, result.Amount)
}

func TestCalcEffectUnknownKindReturnsZero(t *testing.T) {
	eng := newTestEngine(t)
	result := eng.CalcEffect("unknown_kind", combatscript.EffectContext{Mastery: 5})
	assert.Equal(t, 0, result.Amount)
	assert.Equal(t, 0, result.DurationSeconds)
}
