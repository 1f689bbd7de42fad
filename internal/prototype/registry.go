// Package prototype is the YAML-loaded item/container prototype table
// backing worldmodel.PrototypeRegistry, the same LoadXTable idiom
// internal/npcdata uses for NPC templates.
package prototype

import (
	"fmt"
	"os"

	"github.com/mythosmud/mudserver/internal/worldmodel"
	"gopkg.in/yaml.v3"
)

type entry struct {
	ID              string `yaml:"id"`
	Name            string `yaml:"name"`
	LongDescription string `yaml:"long_description"`
}

type prototypeFile struct {
	Prototypes []entry `yaml:"prototypes"`
}

// Registry is a static, read-only prototype lookup.
type Registry struct {
	byID map[string]worldmodel.Prototype
}

var _ worldmodel.PrototypeRegistry = (*Registry)(nil)

func Load(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prototypes %s: %w", path, err)
	}
	var f prototypeFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse prototypes %s: %w", path, err)
	}
	r := &Registry{byID: make(map[string]worldmodel.Prototype, len(f.Prototypes))}
	for _, e := range f.Prototypes {
		r.byID[e.ID] = worldmodel.Prototype{Name: e.Name, LongDescription: e.LongDescription}
	}
	return r, nil
}

func (r *Registry) Count() int { return len(r.byID) }

// Get implements worldmodel.PrototypeRegistry.
func (r *Registry) Get(prototypeID string) (worldmodel.Prototype, bool) {
	p, ok := r.byID[prototypeID]
	return p, ok
}
