package compose

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"aura-assistant-backend/internal/types"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type Catalog struct {
	Capabilities []types.Capability `yaml:"capabilities"`
	Fallbacks    []string           `yaml:"fallbacks"`
	Generation   GenerationOptions  `yaml:"generation"`
}

type TempoOption struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// GenerationOptions are the option sets music ideas are drawn from.
type GenerationOptions struct {
	Genres          []string      `yaml:"genres"`
	Moods           []string      `yaml:"moods"`
	Keys            []string      `yaml:"keys"`
	Tempos          []TempoOption `yaml:"tempos"`
	Structures      [][]string    `yaml:"structures"`
	Instruments     []string      `yaml:"instruments"`
	InstrumentCount int           `yaml:"instrument_count"`
	Durations       []int         `yaml:"durations"`
}

// DefaultCatalog parses the catalog compiled into the binary.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

func ParseCatalog(b []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	g := c.Generation
	switch {
	case len(c.Capabilities) == 0:
		return errors.New("no capabilities")
	case len(c.Fallbacks) == 0:
		return errors.New("no fallback sentences")
	case len(g.Genres) == 0, len(g.Moods) == 0, len(g.Keys) == 0:
		return errors.New("generation needs genres, moods and keys")
	case len(g.Tempos) == 0, len(g.Structures) == 0, len(g.Durations) == 0:
		return errors.New("generation needs tempos, structures and durations")
	case g.InstrumentCount < 1 || g.InstrumentCount > len(g.Instruments):
		return fmt.Errorf("instrument_count %d out of range for %d instruments", g.InstrumentCount, len(g.Instruments))
	}
	for _, t := range g.Tempos {
		if t.Min <= 0 || t.Min > t.Max {
			return fmt.Errorf("bad tempo range %d-%d", t.Min, t.Max)
		}
	}
	for i, s := range g.Structures {
		if len(s) == 0 {
			return fmt.Errorf("structure %d is empty", i)
		}
	}
	return nil
}

