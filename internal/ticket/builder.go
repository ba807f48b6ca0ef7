package ticket

import "math"

const (
	openerChance    = 0.08
	spiceChanceLong = 0.22
	spiceChance     = 0.15
	spiceLongFrom   = 12
)

type buildOptions struct {
	rng *Rand
}

// BuildOption customises Build.
type BuildOption func(*buildOptions)

// WithSeed seeds the builder's generator explicitly.
func WithSeed(seed uint32) BuildOption {
	return func(o *buildOptions) {
		o.rng = NewRand(seed)
	}
}

// DefaultSeed derives the builder seed from its inputs so that the same pool
// and size always produce the same ticket.
func DefaultSeed(pool []Leg, legCount int) uint32 {
	first := uint32(17)
	if len(pool) > 0 {
		first = uint32(int64(math.Floor(pool[0].Odds)))
	}
	return uint32(len(pool)) ^ uint32(legCount) ^ first
}

// builderState holds the running aggregates of a ticket under construction or
// repair. It is owned by a single Build or Refine call.
type builderState struct {
	categoryCap int
	maxSpecials int

	legs       []Leg
	product    float64
	specials   int
	used       map[string]struct{}
	fixtures   map[string]struct{}
	categories map[string]int
}

func newBuilderState(categoryCap, maxSpecials, capacity int) *builderState {
	return &builderState{
		categoryCap: categoryCap,
		maxSpecials: maxSpecials,
		legs:        make([]Leg, 0, capacity),
		product:     1,
		used:        make(map[string]struct{}, capacity),
		fixtures:    make(map[string]struct{}, capacity),
		categories:  make(map[string]int, capacity),
	}
}

// stateFromTicket seeds the aggregates from an existing ticket, keeping its
// product as-is.
func stateFromTicket(t Ticket, categoryCap, maxSpecials int) *builderState {
	s := newBuilderState(categoryCap, maxSpecials, len(t.Legs))
	for _, l := range t.Legs {
		s.track(l)
		s.legs = append(s.legs, l)
	}
	s.product = t.Product
	return s
}

func (s *builderState) track(l Leg) {
	s.used[l.ID] = struct{}{}
	s.fixtures[l.FixtureKey()] = struct{}{}
	s.categories[l.Competition]++
	if l.IsSpecial() {
		s.specials++
	}
}

func (s *builderState) untrack(l Leg) {
	delete(s.used, l.ID)
	delete(s.fixtures, l.FixtureKey())
	s.categories[l.Competition] = max(0, s.categories[l.Competition]-1)
	if l.IsSpecial() {
		s.specials--
	}
}

func (s *builderState) add(l Leg) {
	s.track(l)
	s.legs = append(s.legs, l)
	s.product *= l.Odds
}

func (s *builderState) replace(i int, l Leg) {
	old := s.legs[i]
	s.untrack(old)
	s.track(l)
	s.legs[i] = l
	s.product = s.product / old.Odds * l.Odds
}

// legal reports whether l may be appended to the ticket.
func (s *builderState) legal(l Leg) bool {
	if _, ok := s.used[l.ID]; ok {
		return false
	}
	if _, ok := s.fixtures[l.FixtureKey()]; ok {
		return false
	}
	if s.categories[l.Competition] >= s.categoryCap {
		return false
	}
	next := s.specials
	if l.IsSpecial() {
		next++
	}
	return next <= s.maxSpecials
}

func (s *builderState) allowed(pool []Leg) []Leg {
	out := make([]Leg, 0, len(pool))
	for _, l := range pool {
		if s.legal(l) {
			out = append(out, l)
		}
	}
	return out
}

// categoryAfterSwap is the count l's competition would reach if it replaced old.
func (s *builderState) categoryAfterSwap(old, l Leg) int {
	n := s.categories[l.Competition] + 1
	if old.Competition == l.Competition {
		n--
	}
	return n
}

// bestSpecialSwap finds the non-special leg whose replacement by an unused
// special most reduces the distance to target.
func (s *builderState) bestSpecialSwap(pool []Leg, targetLog float64) (int, Leg, bool) {
	cur := logError(s.product, targetLog)
	bestGain, bestIdx, best := 0.0, -1, Leg{}
	for i, old := range s.legs {
		if old.IsSpecial() {
			continue
		}
		without := s.product / old.Odds
		for _, l := range pool {
			if !l.IsSpecial() {
				continue
			}
			if _, ok := s.used[l.ID]; ok {
				continue
			}
			if _, ok := s.fixtures[l.FixtureKey()]; ok {
				continue
			}
			if s.categoryAfterSwap(old, l) > s.categoryCap {
				continue
			}
			if gain := cur - logError(without*l.Odds, targetLog); gain > bestGain {
				bestGain, bestIdx, best = gain, i, l
			}
		}
	}
	return bestIdx, best, bestIdx >= 0
}

type bucketNeed map[OddsBucket]int

func newBucketNeed(legCount int) bucketNeed {
	n := float64(legCount)
	return bucketNeed{
		BucketShort: int(math.Ceil(n * 0.35)),
		BucketMid:   int(math.Ceil(n * 0.45)),
		BucketLong:  int(math.Ceil(n * 0.2)),
	}
}

func (b bucketNeed) outstanding() bool {
	return b[BucketShort] > 0 || b[BucketMid] > 0 || b[BucketLong] > 0
}

func (b bucketNeed) preferred(cands []Leg) []Leg {
	out := make([]Leg, 0, len(cands))
	for _, l := range cands {
		if b[Bucket(l.Odds)] > 0 {
			out = append(out, l)
		}
	}
	return out
}

// spicePick draws against chance once every bucket quota is met and, on a
// hit, returns the in-band candidate farthest from want. No draw is taken
// while quotas are outstanding.
func spicePick(rng *Rand, need bucketNeed, cands []Leg, want, chance float64) (Leg, bool) {
	if need.outstanding() || rng.Float64() >= chance {
		return Leg{}, false
	}
	return farthestByLogRatio(cands, want)
}

func isOpener(l Leg) bool {
	return l.Sport == SportFootball && l.Market == MarketGoals && l.Selection == "7+"
}

// Build greedily assembles a ticket of legCount legs whose odds product aims
// at the middle of w.
//
// Each slot takes the legal candidate closest in log space to the odds that,
// repeated over the remaining slots, would land exactly on target. Early slots
// prefer odds buckets that are still under quota; once the quotas are met a
// seeded "spice" draw occasionally takes the farthest candidate instead.
// Slots that cannot be filled that way are filled in pool order, and a final
// pass swaps in specials until the minimum is met.
//
// Build never fails. A pool that runs dry yields a ticket with fewer legs
// than requested (see Ticket.Short); InRange reports whether w was reached.
func Build(pool []Leg, legCount int, w Window, c Constraints, opts ...BuildOption) Ticket {
	o := buildOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	rng := o.rng
	if rng == nil {
		rng = NewRand(DefaultSeed(pool, legCount))
	}

	if legCount <= 0 {
		return Ticket{Legs: []Leg{}, Product: 1, InRange: w.Contains(1)}
	}

	targetLog := w.TargetLog()
	specials := c.specialRange(legCount)
	st := newBuilderState(c.CategoryCap, specials.Max, legCount)
	need := newBucketNeed(legCount)

	if rng.Float64() < openerChance {
		var hot []Leg
		for _, l := range pool {
			if isOpener(l) && st.legal(l) {
				hot = append(hot, l)
			}
		}
		if len(hot) > 0 {
			st.add(Pick(rng, hot))
		}
	}

	spice := spiceChance
	if legCount >= spiceLongFrom {
		spice = spiceChanceLong
	}

	for len(st.legs) < legCount {
		rem := legCount - len(st.legs)
		want := math.Exp((targetLog - math.Log(st.product)) / float64(rem))

		allowed := st.allowed(pool)
		if len(allowed) == 0 {
			break
		}

		cands := allowed
		if need.outstanding() {
			if pref := need.preferred(allowed); len(pref) > 0 {
				cands = pref
			}
		}

		if far, ok := spicePick(rng, need, cands, want, spice); ok {
			st.add(far)
			need[Bucket(far.Odds)]--
			continue
		}

		pick, ok := ClosestByLogRatio(cands, want)
		if !ok {
			break
		}
		st.add(pick)
		need[Bucket(pick.Odds)]--
	}

	for _, l := range pool {
		if len(st.legs) >= legCount {
			break
		}
		if st.legal(l) {
			st.add(l)
		}
	}

	for st.specials < specials.Min {
		idx, repl, ok := st.bestSpecialSwap(pool, targetLog)
		if !ok {
			break
		}
		st.replace(idx, repl)
	}

	return Ticket{
		Legs:      st.legs,
		Product:   st.product,
		InRange:   w.Contains(st.product),
		Requested: legCount,
	}
}
