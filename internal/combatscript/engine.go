// Package combatscript wraps a Lua-scriptable damage/effect formula
// layer consumed by the combat engine (C8) and the spell dispatcher
// (C10), generalized from the teacher's internal/scripting.Engine.
package combatscript

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

//go:embed default.lua
var defaultScript string

// Engine wraps a single gopher-lua VM for damage/effect formula
// evaluation. Single-goroutine access only.
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine loads the embedded default script, then any .lua files in
// scriptsDir (later files may redefine calc_melee_attack/calc_effect).
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{SkipOpenLibs: false})

	if err := vm.DoString(defaultScript); err != nil {
		vm.Close()
		return nil, fmt.Errorf("combatscript: load default script: %w", err)
	}

	e := &Engine{vm: vm, log: log}
	if scriptsDir != "" {
		if err := e.loadDir(scriptsDir); err != nil {
			vm.Close()
			return nil, err
		}
	}
	return e, nil
}

func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("combatscript: read scripts dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("combatscript: load %s: %w", path, err)
		}
		e.log.Debug("combatscript: loaded override script", zap.String("file", path))
	}
	return nil
}

// Close releases the underlying VM.
func (e *Engine) Close() { e.vm.Close() }

// MeleeContext is the pre-packed input to calc_melee_attack.
type MeleeContext struct {
	AttackerDex   int
	AttackerLevel int
	TargetDex     int
	TargetLevel   int
}

// MeleeResult is calc_melee_attack's return value.
type MeleeResult struct {
	Hit    bool
	Damage int
}

// CalcMeleeAttack evaluates the loaded calc_melee_attack function. Any
// script error falls back to a minimal guaranteed hit, never panics.
func (e *Engine) CalcMeleeAttack(ctx MeleeContext) MeleeResult {
	fn := e.vm.GetGlobal("calc_melee_attack")
	if fn == lua.LNil {
		e.log.Error("combatscript: calc_melee_attack not defined")
		return MeleeResult{Hit: true, Damage: 1}
	}

	t := e.vm.NewTable()
	atk := e.vm.NewTable()
	atk.RawSetString("dex", lua.LNumber(ctx.AttackerDex))
	atk.RawSetString("level", lua.LNumber(ctx.AttackerLevel))
	t.RawSetString("attacker", atk)

	tgt := e.vm.NewTable()
	tgt.RawSetString("dex", lua.LNumber(ctx.TargetDex))
	tgt.RawSetString("level", lua.LNumber(ctx.TargetLevel))
	t.RawSetString("target", tgt)

	if err := e.vm.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, t); err != nil {
		e.log.Error("combatscript: calc_melee_attack error", zap.Error(err))
		return MeleeResult{Hit: true, Damage: 1}
	}
	defer e.vm.Pop(1)

	rt, ok := e.vm.Get(-1).(*lua.LTable)
	if !ok {
		e.log.Error("combatscript: calc_melee_attack returned non-table")
		return MeleeResult{Hit: true, Damage: 1}
	}
	return MeleeResult{
		Hit:    rt.RawGetString("is_hit") == lua.LTrue,
		Damage: int(lua.LVAsNumber(rt.RawGetString("damage"))),
	}
}

// EffectContext is the pre-packed input to calc_effect.
type EffectContext struct {
	Mastery     int
	CasterLevel int
}

// EffectResult is calc_effect's return value.
type EffectResult struct {
	Amount          int
	DurationSeconds int
}

// CalcEffect evaluates calc_effect(kind, ctx) for kind in
// {heal, damage, status_effect}.
func (e *Engine) CalcEffect(kind string, ctx EffectContext) EffectResult {
	fn := e.vm.GetGlobal("calc_effect")
	if fn == lua.LNil {
		e.log.Error("combatscript: calc_effect not defined")
		return EffectResult{}
	}

	t := e.vm.NewTable()
	t.RawSetString("mastery", lua.LNumber(ctx.Mastery))
	t.RawSetString("caster_level", lua.LNumber(ctx.CasterLevel))

	if err := e.vm.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, lua.LString(kind), t); err != nil {
		e.log.Error("combatscript: calc_effect error", zap.Error(err), zap.String("kind", kind))
		return EffectResult{}
	}
	defer e.vm.Pop(1)

	rt, ok := e.vm.Get(-1).(*lua.LTable)
	if !ok {
		e.log.Error("combatscript: calc_effect returned non-table")
		return EffectResult{}
	}
	return EffectResult{
		Amount:          int(lua.LVAsNumber(rt.RawGetString("amount"))),
		DurationSeconds: int(lua.LVAsNumber(rt.RawGetString("duration_seconds"))),
	}
}
