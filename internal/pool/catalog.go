package pool

import (
	_ "embed"
	"fmt"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stitts-dev/acca-builder/internal/ticket"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Catalog is the static data the synthesizer draws fixtures from.
type Catalog struct {
	Competitions  []Competition             `yaml:"competitions"`
	SportTeams    map[ticket.Sport][]string `yaml:"sport_teams"`
	FallbackTeams []string                  `yaml:"fallback_teams"`
	Specials      []SpecialMarket           `yaml:"specials"`
	NBAStars      []string                  `yaml:"nba_stars"`

	// Durations is the expected length of an event per sport, used to
	// estimate when a ticket settles.
	Durations       map[ticket.Sport]time.Duration `yaml:"durations"`
	DefaultDuration time.Duration                  `yaml:"default_duration"`
}

const fallbackDuration = 2 * time.Hour

type Competition struct {
	Name  string       `yaml:"name"`
	Sport ticket.Sport `yaml:"sport"`
	Teams []string     `yaml:"teams,omitempty"`
}

// SpecialMarket is a football special with its odds range.
type SpecialMarket struct {
	Name string  `yaml:"name"`
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
}

// LoadCatalog parses and validates a YAML catalog.
func LoadCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Competitions) == 0 {
		return fmt.Errorf("catalog has no competitions")
	}
	if len(c.FallbackTeams) < 2 {
		return fmt.Errorf("catalog needs at least two fallback teams")
	}
	if len(c.Specials) == 0 {
		return fmt.Errorf("catalog has no special markets")
	}
	if len(c.NBAStars) == 0 {
		return fmt.Errorf("catalog has no NBA players")
	}
	for _, comp := range c.Competitions {
		if comp.Name == "" || comp.Sport == "" {
			return fmt.Errorf("competition %q is missing a name or sport", comp.Name)
		}
	}
	for _, s := range c.Specials {
		if s.Min <= 0 || s.Max < s.Min {
			return fmt.Errorf("special %q has invalid odds range [%v, %v]", s.Name, s.Min, s.Max)
		}
	}
	if c.DefaultDuration < 0 {
		return fmt.Errorf("default duration must not be negative")
	}
	for sport, d := range c.Durations {
		if d <= 0 {
			return fmt.Errorf("sport %q has non-positive duration %v", sport, d)
		}
	}
	return nil
}

// Duration is the expected length of an event of the given sport. Sports
// without an entry use the catalog default, then two hours.
func (c *Catalog) Duration(sport ticket.Sport) time.Duration {
	if d, ok := c.Durations[sport]; ok {
		return d
	}
	if c.DefaultDuration > 0 {
		return c.DefaultDuration
	}
	return fallbackDuration
}

// teamsFor resolves the team list for a competition: its own list, then the
// sport list, then the fallback list.
func (c *Catalog) teamsFor(comp Competition) []string {
	if len(comp.Teams) > 0 {
		return comp.Teams
	}
	if teams := c.SportTeams[comp.Sport]; len(teams) > 0 {
		return teams
	}
	return c.FallbackTeams
}

func (c *Catalog) special(name string) (SpecialMarket, bool) {
	for _, s := range c.Specials {
		if s.Name == name {
			return s, true
		}
	}
	return SpecialMarket{}, false
}

func (c *Catalog) specialNames() []string {
	names := make([]string, len(c.Specials))
	for i, s := range c.Specials {
		names[i] = s.Name
	}
	return names
}

var (
	defaultCatalog     *Catalog
	defaultCatalogOnce sync.Once
)

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() *Catalog {
	defaultCatalogOnce.Do(func() {
		c, err := LoadCatalog(catalogYAML)
		if err != nil {
			panic(fmt.Sprintf("pool: embedded catalog is invalid: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}
