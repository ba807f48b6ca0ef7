package ticket

import "fmt"

// Violations lists every ticket invariant that t breaks under c. A short
// ticket is reported too, since callers have to handle it explicitly.
func Violations(t Ticket, c Constraints) []string {
	var out []string

	if t.Short() {
		out = append(out, fmt.Sprintf("ticket has %d of %d requested legs", len(t.Legs), t.Requested))
	}

	fixtures := make(map[string]struct{}, len(t.Legs))
	for _, l := range t.Legs {
		key := l.FixtureKey()
		if _, dup := fixtures[key]; dup {
			out = append(out, fmt.Sprintf("duplicate fixture %s", key))
		}
		fixtures[key] = struct{}{}
	}

	for comp, n := range t.CategoryCounts() {
		if n > c.CategoryCap {
			out = append(out, fmt.Sprintf("competition %s has %d legs, cap is %d", comp, n, c.CategoryCap))
		}
	}

	bounds := c.specialRange(len(t.Legs))
	if n := t.SpecialCount(); n < bounds.Min || n > bounds.Max {
		out = append(out, fmt.Sprintf("%d special legs outside [%d, %d]", n, bounds.Min, bounds.Max))
	}

	return out
}
