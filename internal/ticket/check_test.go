package ticket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestViolations(t *testing.T) {
	a := testLeg("a", "A", 0, MarketMatchResult, "1", 2.0)
	a2 := testLeg("a2", "A", 0, MarketGoals, "3+", 2.0)
	a3 := testLeg("a3", "A", 1, MarketGoals, "3+", 2.0)
	s1 := testLeg("s1", "S", 2, MarketSpecial, "OWN GOAL", 9.0)
	s2 := testLeg("s2", "T", 3, MarketSpecial, "OWN GOAL", 9.0)
	s3 := testLeg("s3", "U", 4, MarketSpecial, "OWN GOAL", 9.0)

	c := Constraints{CategoryCap: 2, MaxSpecials: 3}

	assert.Empty(t, Violations(ticketOf(a, a3, s1), c))

	tests := []struct {
		name string
		tk   Ticket
	}{
		{name: "duplicate fixture", tk: ticketOf(a, a2)},
		{name: "category cap", tk: ticketOf(a, a3, testLeg("a4", "A", 7, MarketGoals, "4+", 3.0))},
		{name: "too many specials", tk: ticketOf(s1, s2, s3)},
		{name: "short", tk: Ticket{Legs: []Leg{a}, Product: 2, Requested: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, Violations(tt.tk, c), 1)
		})
	}
}

func TestTicketEndsAt(t *testing.T) {
	durations := map[Sport]time.Duration{SportFootball: 2 * time.Hour, SportBaseball: 3 * time.Hour}
	lookup := func(s Sport) time.Duration { return durations[s] }

	early := testLeg("a", "A", 0, MarketMatchResult, "1", 2.0)
	early.Sport = SportBaseball
	late := testLeg("b", "B", 2, MarketMatchResult, "1", 2.0)

	assert.Equal(t, baseTime.Add(3*time.Hour), early.EndsAt(3*time.Hour))
	assert.Equal(t, baseTime.Add(4*time.Hour), ticketOf(early, late).EndsAt(lookup))
	assert.Equal(t, baseTime.Add(3*time.Hour), ticketOf(early).EndsAt(lookup))
	assert.True(t, Ticket{}.EndsAt(lookup).IsZero())
}
