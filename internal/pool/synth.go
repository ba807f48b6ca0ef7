package pool

import (
	"fmt"
	"math"
	"time"

	"github.com/stitts-dev/acca-builder/internal/ticket"
)

const (
	minOdds = 1.1
	maxOdds = 80.0
)

var (
	resultSelections   = []string{"1", "X", "2"}
	goalsSelections    = []string{"0-2", "3+", "4+", "5+", "7+", "GG", "GG3+"}
	halfFullSelections = []string{"1-1", "2-2", "X-X", "1-2", "2-1", "1-X", "2-X"}
	sideSelections     = []string{"1", "2"}
	overUnder          = []string{"OVER", "UNDER"}

	footballMarkets   = []ticket.Market{ticket.MarketMatchResult, ticket.MarketGoals, ticket.MarketHalfFull, ticket.MarketSpecial}
	basketballMarkets = []ticket.Market{ticket.MarketPoints, ticket.MarketSpecial}
	otherMarkets      = []ticket.Market{ticket.MarketHandicap, ticket.MarketTotal, ticket.MarketSpecial}
)

// Generator synthesizes seeded event pools from a catalog.
type Generator struct {
	catalog *Catalog
}

func NewGenerator(c *Catalog) *Generator {
	if c == nil {
		c = DefaultCatalog()
	}
	return &Generator{catalog: c}
}

// Duration is the catalog's expected event length for sport.
func (g *Generator) Duration(sport ticket.Sport) time.Duration {
	return g.catalog.Duration(sport)
}

// Synthesize is Generator.Synthesize on the embedded catalog.
func Synthesize(seed uint32, hours int, now time.Time) []ticket.Leg {
	return NewGenerator(nil).Synthesize(seed, hours, now)
}

// Synthesize builds 2 to 6 fixtures per competition starting within the next
// hours, one market and selection each. The same seed and now always yield
// the same pool.
func (g *Generator) Synthesize(seed uint32, hours int, now time.Time) []ticket.Leg {
	r := ticket.NewRand(seed)
	base := now.UnixMilli()
	span := float64(time.Duration(hours) * time.Hour / time.Millisecond)
	specials := g.catalog.specialNames()

	legs := make([]ticket.Leg, 0, len(g.catalog.Competitions)*4)
	for _, comp := range g.catalog.Competitions {
		n := 2 + r.Intn(5)
		for i := 0; i < n; i++ {
			start := base + int64(math.Floor(r.Float64()*span))
			teams := g.randTeams(r, comp)

			var markets []ticket.Market
			switch comp.Sport {
			case ticket.SportFootball:
				markets = footballMarkets
			case ticket.SportBasketball:
				markets = basketballMarkets
			default:
				markets = otherMarkets
			}

			market := ticket.Pick(r, markets)
			if market == ticket.MarketSpecial && r.Float64() < 0.5 &&
				comp.Sport != ticket.SportFootball && comp.Sport != ticket.SportBasketball {
				market = ticket.MarketHandicap
			}

			var selection string
			switch comp.Sport {
			case ticket.SportFootball:
				switch market {
				case ticket.MarketMatchResult:
					selection = ticket.Pick(r, resultSelections)
				case ticket.MarketGoals:
					selection = ticket.Pick(r, goalsSelections)
				case ticket.MarketHalfFull:
					selection = ticket.Pick(r, halfFullSelections)
				case ticket.MarketSpecial:
					selection = ticket.Pick(r, specials)
				}
			case ticket.SportBasketball:
				switch market {
				case ticket.MarketSpecial:
					name := ticket.Pick(r, g.catalog.NBAStars)
					side := ticket.Pick(r, overUnder)
					line := float64(18+r.Intn(17)) + 0.5
					selection = fmt.Sprintf("%s POINTS %s %.1f", name, side, line)
				case ticket.MarketPoints:
					selection = ticket.Pick(r, overUnder)
				default:
					selection = ticket.Pick(r, sideSelections)
				}
			default:
				if market == ticket.MarketSpecial {
					market = ticket.MarketHandicap
				}
				if market == ticket.MarketTotal {
					selection = ticket.Pick(r, overUnder)
				} else {
					selection = ticket.Pick(r, sideSelections)
				}
			}

			var odds float64
			if market == ticket.MarketSpecial && comp.Sport == ticket.SportFootball {
				odds = g.specialOdds(r, selection)
			} else {
				odds = marketOdds(r, comp.Sport, market, selection)
			}

			legs = append(legs, ticket.Leg{
				ID:          fmt.Sprintf("%s|%s|%d|%s|%s", comp.Name, teams, start, market, selection),
				Sport:       comp.Sport,
				Competition: comp.Name,
				Teams:       teams,
				Market:      market,
				Selection:   selection,
				Odds:        clamp(math.Round(odds*100)/100, minOdds, maxOdds),
				StartTime:   time.UnixMilli(start).UTC(),
			})
		}
	}
	return legs
}

func (g *Generator) randTeams(r *ticket.Rand, comp Competition) string {
	teams := g.catalog.teamsFor(comp)
	i := r.Intn(len(teams))
	j := r.Intn(len(teams))
	if j == i {
		j = (j + 1) % len(teams)
	}
	return teams[i] + " vs " + teams[j]
}

func (g *Generator) specialOdds(r *ticket.Rand, name string) float64 {
	if s, ok := g.catalog.special(name); ok {
		return r.Between(s.Min, s.Max)
	}
	return r.Between(3.0, 9.0)
}

func marketOdds(r *ticket.Rand, sport ticket.Sport, market ticket.Market, selection string) float64 {
	switch sport {
	case ticket.SportFootball:
		return footballOdds(r, market, selection)
	case ticket.SportBasketball:
		if market == ticket.MarketPoints {
			return r.Between(1.75, 2.05)
		}
		return r.Between(1.6, 2.6)
	case ticket.SportIceHockey:
		return r.Between(1.7, 2.7)
	default:
		return r.Between(1.6, 3.0)
	}
}

func footballOdds(r *ticket.Rand, market ticket.Market, selection string) float64 {
	switch market {
	case ticket.MarketMatchResult:
		if selection == "X" {
			return r.Between(3.1, 3.9)
		}
		if r.Float64() < 0.6 {
			return r.Between(1.5, 2.2)
		}
		return r.Between(2.3, 3.5)
	case ticket.MarketGoals:
		switch selection {
		case "0-2":
			return r.Between(1.7, 2.3)
		case "3+":
			return r.Between(1.6, 2.1)
		case "4+":
			return r.Between(2.3, 3.6)
		case "5+":
			return r.Between(3.8, 6.5)
		case "7+":
			return r.Between(12, 30)
		case "GG":
			return r.Between(1.7, 2.2)
		case "GG3+":
			return r.Between(2.0, 3.0)
		}
	case ticket.MarketHalfFull:
		switch selection {
		case "1-1":
			return r.Between(2.4, 3.8)
		case "2-2":
			return r.Between(2.8, 4.5)
		case "X-X":
			return r.Between(4.0, 5.5)
		}
		return r.Between(5.0, 12.0)
	}
	return r.Between(1.5, 3.0)
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
