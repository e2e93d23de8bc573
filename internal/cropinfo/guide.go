package cropinfo

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// NotFoundMessage is shown for crops missing from the guide.
const NotFoundMessage = "Crop not found. Try another."

//go:embed crops.yaml
var cropsYAML []byte

// CropGuide is the temperature guidance for one crop.
type CropGuide struct {
	Name     string   `yaml:"-" json:"name"`
	Aliases  []string `yaml:"aliases" json:"aliases,omitempty"`
	MinC     float64  `yaml:"minC" json:"minC"`
	MaxC     float64  `yaml:"maxC" json:"maxC"`
	Guidance string   `yaml:"guidance" json:"guidance"`
}

// Guide looks crops up by name or alias, case-insensitively.
type Guide struct {
	crops []CropGuide
	index map[string]int
}

// LoadGuide parses the embedded crop table.
func LoadGuide() (*Guide, error) {
	return ParseGuide(cropsYAML)
}

// ParseGuide parses a crop table in the embedded YAML layout.
func ParseGuide(data []byte) (*Guide, error) {
	var doc struct {
		Crops map[string]CropGuide `yaml:"crops"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse crop guide: %w", err)
	}

	names := make([]string, 0, len(doc.Crops))
	for name := range doc.Crops {
		names = append(names, name)
	}
	sort.Strings(names)

	g := &Guide{index: make(map[string]int)}
	for _, name := range names {
		c := doc.Crops[name]
		c.Name = name
		g.crops = append(g.crops, c)
		i := len(g.crops) - 1
		g.index[normalizeName(name)] = i
		for _, alias := range c.Aliases {
			g.index[normalizeName(alias)] = i
		}
	}
	return g, nil
}

// Lookup returns the guide entry for a crop name or alias.
func (g *Guide) Lookup(name string) (CropGuide, bool) {
	i, ok := g.index[normalizeName(name)]
	if !ok {
		return CropGuide{}, false
	}
	return g.crops[i], true
}

// Describe returns the guidance text, or NotFoundMessage.
func (g *Guide) Describe(name string) string {
	if c, ok := g.Lookup(name); ok {
		return c.Guidance
	}
	return NotFoundMessage
}

// All returns every crop, sorted by name.
func (g *Guide) All() []CropGuide {
	out := make([]CropGuide, len(g.crops))
	copy(out, g.crops)
	return out
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
