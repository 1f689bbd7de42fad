package subject

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed bootstrap.yaml
var bootstrapYAML []byte

type bootstrapFile struct {
	Patterns []bootstrapPattern `yaml:"patterns"`
}

type bootstrapPattern struct {
	Name        string   `yaml:"name"`
	Template    string   `yaml:"template"`
	Required    []string `yaml:"required"`
	Description string   `yaml:"description"`
}

// loadBuiltins parses the embedded pattern table. It panics on a malformed
// embed, the same way the teacher treats a corrupt compiled-in asset as a
// programmer error rather than a runtime one.
func loadBuiltins() []bootstrapPattern {
	var f bootstrapFile
	if err := yaml.Unmarshal(bootstrapYAML, &f); err != nil {
		panic(fmt.Sprintf("subject: malformed bootstrap.yaml: %v", err))
	}
	return f.Patterns
}
