package ticket

import (
	"fmt"
	"time"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func testLeg(id, comp string, fixture int, market Market, selection string, odds float64) Leg {
	return Leg{
		ID:          id,
		Sport:       SportFootball,
		Competition: comp,
		Teams:       fmt.Sprintf("Home%d vs Away%d", fixture, fixture),
		Market:      market,
		Selection:   selection,
		Odds:        odds,
		StartTime:   baseTime.Add(time.Duration(fixture) * time.Hour),
	}
}

// gridPool has ten competitions of five fixtures with a spread of odds; every
// seventh leg is a special.
func gridPool() []Leg {
	odds := []float64{1.3, 1.5, 1.8, 2.1, 2.6, 3.2, 4.5, 6.0, 9.0, 15.0, 1.45, 2.4, 3.8}
	var pool []Leg
	n := 0
	for c := 0; c < 10; c++ {
		comp := fmt.Sprintf("League %d", c)
		for f := 0; f < 5; f++ {
			market, sel := MarketMatchResult, "1"
			if n%7 == 3 {
				market, sel = MarketSpecial, "PENALTY IN MATCH"
			}
			pool = append(pool, testLeg(fmt.Sprintf("g%d", n), comp, f, market, sel, odds[n%len(odds)]))
			n++
		}
	}
	return pool
}

var million = Window{Low: 900000, High: 1100000}

func defaultConstraints(n int) Constraints {
	return Constraints{CategoryCap: 3, MaxSpecials: 3, MinSpecials: SpecialBounds(n).Min}
}
