package spellbook_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mythosmud/mudserver/internal/spell"
	"github.com/mythosmud/mudserver/internal/spellbook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAndGet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spells.yaml")
	content := `
spells:
  - spell_id: minor_heal
    effect_kind: heal
    effect_data: ""
    mastery: 1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table, err := spellbook.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Count())

	def, ok := table.Get("minor_heal")
	require.True(t, ok)
	assert.Equal(t, spell.EffectHeal, def.EffectKind)
}
