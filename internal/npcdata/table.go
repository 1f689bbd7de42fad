// Package npcdata is the YAML-loaded NPC template/instance table backing
// worldmodel.NPCRuntime, generalized from the teacher's data.LoadXTable
// family (one YAML file, one typed table, indexed by id).
package npcdata

import (
	"fmt"
	"os"
	"sync"

	"github.com/mythosmud/mudserver/internal/worldmodel"
	"gopkg.in/yaml.v3"
)

// Template is one NPC's static definition.
type Template struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Level   int    `yaml:"level"`
	Dex     int    `yaml:"dex"`
	HP      int    `yaml:"hp"`
	XPValue int    `yaml:"xp_value"`
}

type templateFile struct {
	Templates []Template `yaml:"templates"`
}

// Table is the NPC runtime: static templates plus the currently live
// instances spawned from them. Instance mutation (HP loss, death) comes
// from the combat engine through ApplyDamage/Remove.
type Table struct {
	mu        sync.RWMutex
	templates map[string]Template
	instances map[string]*worldmodel.NPC
}

var _ worldmodel.NPCRuntime = (*Table)(nil)

// Load reads templates from path and returns an empty-instance Table.
func Load(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read npc templates %s: %w", path, err)
	}
	var f templateFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse npc templates %s: %w", path, err)
	}
	t := &Table{
		templates: make(map[string]Template, len(f.Templates)),
		instances: make(map[string]*worldmodel.NPC),
	}
	for _, tmpl := range f.Templates {
		t.templates[tmpl.ID] = tmpl
	}
	return t, nil
}

// Count returns the number of loaded templates.
func (t *Table) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.templates)
}

// XPValues returns each loaded template's xp_value, keyed by template id,
// for building the combat engine's XP table at boot.
func (t *Table) XPValues() map[string]int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]int, len(t.templates))
	for id, tmpl := range t.templates {
		out[id] = tmpl.XPValue
	}
	return out
}

// Spawn instantiates a live NPC from templateID in roomID.
func (t *Table) Spawn(id, templateID, roomID string) (*worldmodel.NPC, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tmpl, ok := t.templates[templateID]
	if !ok {
		return nil, false
	}
	npc := &worldmodel.NPC{
		ID:         id,
		TemplateID: templateID,
		Name:       tmpl.Name,
		RoomID:     roomID,
		Level:      tmpl.Level,
		Dex:        tmpl.Dex,
		HP:         tmpl.HP,
		MaxHP:      tmpl.HP,
		XPValue:    tmpl.XPValue,
		Attackable: true,
	}
	t.instances[id] = npc
	return npc, true
}

// ApplyDamage reduces a live NPC's HP, clamped to zero, returning the
// NPC's post-damage state.
func (t *Table) ApplyDamage(id string, amount int) (*worldmodel.NPC, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	npc, ok := t.instances[id]
	if !ok {
		return nil, false
	}
	npc.HP -= amount
	if npc.HP < 0 {
		npc.HP = 0
	}
	return npc, true
}

// Remove deletes a dead NPC's instance from the runtime.
func (t *Table) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.instances, id)
}

// ActiveNPC implements worldmodel.NPCRuntime.
func (t *Table) ActiveNPC(id string) (*worldmodel.NPC, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	npc, ok := t.instances[id]
	return npc, ok
}

// BaseStats implements worldmodel.NPCRuntime.
func (t *Table) BaseStats(templateID string) (worldmodel.NPCBaseStats, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	tmpl, ok := t.templates[templateID]
	if !ok {
		return worldmodel.NPCBaseStats{}, false
	}
	return worldmodel.NPCBaseStats{XPValue: tmpl.XPValue}, true
}
