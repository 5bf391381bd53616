package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Palette is the account-color palette loaded from a YAML file. Accounts
// without an explicit color pick one from the cycle in declaration order.
type Palette struct {
	Name   string            `yaml:"name"`
	Cycle  []string          `yaml:"cycle"`
	Named  map[string]string `yaml:"named,omitempty"`
}

// DefaultPalette is used when no palette file is configured.
func DefaultPalette() *Palette {
	return &Palette{
		Name: "default",
		Cycle: []string{
			"#4a86e8",
			"#6aa84f",
			"#e69138",
			"#a64d79",
			"#45818e",
			"#cc4125",
		},
	}
}

// LoadPalette reads a palette from a YAML file.
func LoadPalette(path string) (*Palette, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read palette file: %w", err)
	}

	var palette Palette
	if err := yaml.Unmarshal(data, &palette); err != nil {
		return nil, fmt.Errorf("failed to parse palette file: %w", err)
	}

	if len(palette.Cycle) == 0 {
		return nil, fmt.Errorf("palette %q has an empty cycle", palette.Name)
	}

	return &palette, nil
}

// ColorAt returns the cycle color for the i-th account.
func (p *Palette) ColorAt(i int) string {
	if len(p.Cycle) == 0 {
		return ""
	}
	return p.Cycle[i%len(p.Cycle)]
}

// Lookup resolves a named color, falling back to the name itself so hex
// values pass through.
func (p *Palette) Lookup(name string) string {
	if c, ok := p.Named[name]; ok {
		return c
	}
	return name
}
