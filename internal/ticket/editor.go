package ticket

import (
	"fmt"
	"math"
)

// RemoveLeg drops the leg at index and recomputes the product from the
// remaining legs. On an invalid index the input ticket is returned unchanged
// with ErrInvalidIndex.
func RemoveLeg(t Ticket, index int, w Window) (Ticket, error) {
	if index < 0 || index >= len(t.Legs) {
		return t, fmt.Errorf("%w: %d (ticket has %d legs)", ErrInvalidIndex, index, len(t.Legs))
	}

	legs := make([]Leg, 0, len(t.Legs)-1)
	legs = append(legs, t.Legs[:index]...)
	legs = append(legs, t.Legs[index+1:]...)

	p := Product(legs)
	return Ticket{
		Legs:      legs,
		Product:   p,
		InRange:   w.Contains(p),
		Requested: len(legs),
	}, nil
}

// FindReplacement searches pool for the legal leg whose odds are closest in
// log ratio to the leg at index. The candidate must differ from the replaced
// leg in identity, fixture and (market, selection), must not collide with the
// fixture of any other leg, and must keep the category cap and special bounds
// for the ticket's current size. It reports false when nothing qualifies.
func FindReplacement(pool []Leg, t Ticket, index int, c Constraints) (Leg, bool) {
	if index < 0 || index >= len(t.Legs) {
		return Leg{}, false
	}
	old := t.Legs[index]
	oldKey := old.FixtureKey()
	specials := c.specialRange(len(t.Legs))

	categories := make(map[string]int, len(t.Legs))
	fixtures := make(map[string]struct{}, len(t.Legs))
	spc := 0
	for i, l := range t.Legs {
		if i == index {
			continue
		}
		categories[l.Competition]++
		fixtures[l.FixtureKey()] = struct{}{}
		if l.IsSpecial() {
			spc++
		}
	}

	best, bestD, found := Leg{}, math.Inf(1), false
	for _, l := range pool {
		if l.ID == old.ID {
			continue
		}
		key := l.FixtureKey()
		if key == oldKey {
			continue
		}
		if _, held := fixtures[key]; held {
			continue
		}
		if l.Market == old.Market && l.Selection == old.Selection {
			continue
		}
		if categories[l.Competition]+1 > c.CategoryCap {
			continue
		}
		next := spc
		if l.IsSpecial() {
			next++
		}
		if next < specials.Min || next > specials.Max {
			continue
		}
		if d := LogDistance(l.Odds, old.Odds); d < bestD {
			best, bestD, found = l, d, true
		}
	}
	return best, found
}

// ReplaceLeg substitutes repl at index and updates the product incrementally.
// On an invalid index the input ticket is returned unchanged with
// ErrInvalidIndex.
func ReplaceLeg(t Ticket, index int, repl Leg, w Window) (Ticket, error) {
	if index < 0 || index >= len(t.Legs) {
		return t, fmt.Errorf("%w: %d (ticket has %d legs)", ErrInvalidIndex, index, len(t.Legs))
	}

	out := t.clone()
	old := out.Legs[index]
	out.Legs[index] = repl
	out.Product = t.Product / old.Odds * repl.Odds
	out.InRange = w.Contains(out.Product)
	return out, nil
}
