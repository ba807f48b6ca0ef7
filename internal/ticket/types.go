package ticket

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidIndex is returned by the editor operations when the leg index is
// outside the ticket. The ticket returned alongside it is the unmodified input.
var ErrInvalidIndex = errors.New("leg index out of range")

type Sport string

const (
	SportFootball         Sport = "Football"
	SportBasketball       Sport = "Basketball"
	SportTennis           Sport = "Tennis"
	SportIceHockey        Sport = "Ice Hockey"
	SportBaseball         Sport = "Baseball"
	SportAmericanFootball Sport = "American Football"
)

type Market string

const (
	MarketMatchResult Market = "Match Result"
	MarketGoals       Market = "Goals"
	MarketHalfFull    Market = "Half Time/Full Time"
	MarketPoints      Market = "Points"
	MarketSpecial     Market = "Special"
	MarketHandicap    Market = "Handicap"
	MarketTotal       Market = "Total"
)

// Leg is one candidate entry of the event pool. Legs are values; the core
// never mutates them.
type Leg struct {
	ID          string    `json:"id"`
	Sport       Sport     `json:"sport"`
	Competition string    `json:"competition"`
	Teams       string    `json:"teams"`
	Market      Market    `json:"market"`
	Selection   string    `json:"selection"`
	Odds        float64   `json:"odds"`
	StartTime   time.Time `json:"start_time"`
}

// FixtureKey identifies the real-world event behind the leg. Two legs with the
// same key are mutually exclusive on a ticket.
func (l Leg) FixtureKey() string {
	return fmt.Sprintf("%s|%s|%d", l.Competition, l.Teams, l.StartTime.UnixMilli())
}

// EndsAt is the expected finish of the leg's event given its duration.
func (l Leg) EndsAt(d time.Duration) time.Time {
	return l.StartTime.Add(d)
}

// IsSpecial reports whether the leg belongs to the high-variance special market.
func (l Leg) IsSpecial() bool {
	return l.Market == MarketSpecial
}

// Window is the inclusive target range for a ticket's odds product.
type Window struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

func (w Window) Contains(product float64) bool {
	return product >= w.Low && product <= w.High
}

// TargetLog is the log of the window midpoint, the value every search steers to.
func (w Window) TargetLog() float64 {
	return math.Log((w.Low + w.High) / 2)
}

// Constraints are the caller-supplied diversity limits. MinSpecials and
// MaxSpecials are intersected with SpecialBounds of the ticket size.
type Constraints struct {
	CategoryCap int `json:"category_cap"`
	MaxSpecials int `json:"max_specials"`
	MinSpecials int `json:"min_specials"`
}

// specialRange returns the effective special-leg bounds for a ticket of n legs.
func (c Constraints) specialRange(n int) Bounds {
	b := SpecialBounds(n)
	return Bounds{
		Min: max(c.MinSpecials, b.Min),
		Max: min(c.MaxSpecials, b.Max),
	}
}

// Ticket is an ordered selection of legs plus its odds product.
type Ticket struct {
	Legs      []Leg   `json:"legs"`
	Product   float64 `json:"product"`
	InRange   bool    `json:"in_range"`
	Requested int     `json:"requested"`
}

// Short reports whether the pool ran out before the requested size was reached.
func (t Ticket) Short() bool {
	return len(t.Legs) < t.Requested
}

// SpecialCount returns the number of special legs on the ticket.
func (t Ticket) SpecialCount() int {
	n := 0
	for _, l := range t.Legs {
		if l.IsSpecial() {
			n++
		}
	}
	return n
}

// EndsAt returns the latest finish across the legs, looking up each event's
// duration by sport. The zero time means the ticket is empty.
func (t Ticket) EndsAt(duration func(Sport) time.Duration) time.Time {
	var last time.Time
	for _, l := range t.Legs {
		if end := l.EndsAt(duration(l.Sport)); end.After(last) {
			last = end
		}
	}
	return last
}

// CategoryCounts returns how many legs each competition contributes.
func (t Ticket) CategoryCounts() map[string]int {
	counts := make(map[string]int, len(t.Legs))
	for _, l := range t.Legs {
		counts[l.Competition]++
	}
	return counts
}

func (t Ticket) clone() Ticket {
	legs := make([]Leg, len(t.Legs))
	copy(legs, t.Legs)
	t.Legs = legs
	return t
}

// Product multiplies the odds of the given legs. An empty slice yields 1.
func Product(legs []Leg) float64 {
	p := 1.0
	for _, l := range legs {
		p *= l.Odds
	}
	return p
}
