// Package spellbook is the YAML-loaded spell definition table, the same
// LoadXTable idiom internal/npcdata and internal/prototype use, here
// indexed by spell_id for internal/spell's Dispatch.
package spellbook

import (
	"fmt"
	"os"

	"github.com/mythosmud/mudserver/internal/spell"
	"gopkg.in/yaml.v3"
)

type entry struct {
	SpellID    string `yaml:"spell_id"`
	EffectKind string `yaml:"effect_kind"`
	EffectData string `yaml:"effect_data"`
	Mastery    int    `yaml:"mastery"`
}

type spellFile struct {
	Spells []entry `yaml:"spells"`
}

// Table is a static, read-only spell definition lookup.
type Table struct {
	byID map[string]spell.Definition
}

func Load(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spellbook %s: %w", path, err)
	}
	var f spellFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse spellbook %s: %w", path, err)
	}
	t := &Table{byID: make(map[string]spell.Definition, len(f.Spells))}
	for _, e := range f.Spells {
		t.byID[e.SpellID] = spell.Definition{
			SpellID:    e.SpellID,
			EffectKind: spell.EffectKind(e.EffectKind),
			EffectData: e.EffectData,
			Mastery:    e.Mastery,
		}
	}
	return t, nil
}

func (t *Table) Count() int { return len(t.byID) }

// Get returns the named spell's definition.
func (t *Table) Get(spellID string) (spell.Definition, bool) {
	d, ok := t.byID[spellID]
	return d, ok
}
