package ticket

// MaxRefineRounds bounds the local search in Refine.
const MaxRefineRounds = 200

// Refine pulls t toward w by single-leg swaps against pool.
//
// Every round evaluates all (position, candidate) pairs and applies only the
// one swap that most reduces the log distance to target, so the distance never
// increases. The search stops as soon as the product is in range, when no
// legal swap improves it, or after MaxRefineRounds rounds. The best state
// reached is returned; an unreachable window leaves InRange false.
//
// A ticket that is already in range is returned unchanged.
func Refine(pool []Leg, t Ticket, w Window, c Constraints) Ticket {
	out := t.clone()
	out.Requested = max(t.Requested, len(t.Legs))
	out.InRange = w.Contains(out.Product)
	if out.InRange || len(out.Legs) == 0 {
		return out
	}

	targetLog := w.TargetLog()
	specials := c.specialRange(len(out.Legs))
	st := stateFromTicket(out, c.CategoryCap, specials.Max)

	for round := 0; round < MaxRefineRounds; round++ {
		idx, repl, ok := st.bestSwap(pool, targetLog, specials)
		if !ok {
			break
		}
		st.replace(idx, repl)
		if w.Contains(st.product) {
			break
		}
	}

	out.Legs = st.legs
	out.Product = st.product
	out.InRange = w.Contains(st.product)
	return out
}

// bestSwap returns the single strictly improving swap with the largest gain.
func (s *builderState) bestSwap(pool []Leg, targetLog float64, specials Bounds) (int, Leg, bool) {
	cur := logError(s.product, targetLog)
	bestGain, bestIdx, best := 0.0, -1, Leg{}

	for i, old := range s.legs {
		oldKey := old.FixtureKey()
		without := s.product / old.Odds

		for _, l := range pool {
			if l.ID == old.ID {
				continue
			}
			if _, held := s.used[l.ID]; held {
				continue
			}
			if key := l.FixtureKey(); key != oldKey {
				if _, held := s.fixtures[key]; held {
					continue
				}
			}
			if s.categoryAfterSwap(old, l) > s.categoryCap {
				continue
			}

			next := s.specials
			if old.IsSpecial() {
				next--
			}
			if l.IsSpecial() {
				next++
			}
			if next < specials.Min || next > specials.Max {
				continue
			}

			if gain := cur - logError(without*l.Odds, targetLog); gain > bestGain {
				bestGain, bestIdx, best = gain, i, l
			}
		}
	}
	return bestIdx, best, bestIdx >= 0
}
