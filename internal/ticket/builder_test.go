package ticket

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertStructure(t *testing.T, tk Ticket, c Constraints) {
	t.Helper()

	fixtures := map[string]bool{}
	ids := map[string]bool{}
	for _, l := range tk.Legs {
		assert.False(t, fixtures[l.FixtureKey()], "duplicate fixture %s", l.FixtureKey())
		assert.False(t, ids[l.ID], "duplicate leg %s", l.ID)
		fixtures[l.FixtureKey()] = true
		ids[l.ID] = true
	}
	for comp, n := range tk.CategoryCounts() {
		assert.LessOrEqual(t, n, c.CategoryCap, "competition %s over cap", comp)
	}
	assert.LessOrEqual(t, tk.SpecialCount(), c.specialRange(len(tk.Legs)).Max)
	assert.InEpsilon(t, Product(tk.Legs), tk.Product, 1e-9)
}

func TestBuildZeroLegs(t *testing.T) {
	tk := Build(gridPool(), 0, million, defaultConstraints(0))

	assert.Empty(t, tk.Legs)
	assert.Equal(t, 1.0, tk.Product)
	assert.False(t, tk.InRange)
	assert.False(t, tk.Short())
}

func TestBuildRespectsConstraints(t *testing.T) {
	pool := gridPool()
	for _, n := range []int{7, 10, 12, 15} {
		c := defaultConstraints(n)
		for seed := uint32(1); seed <= 20; seed++ {
			t.Run(fmt.Sprintf("n=%d/seed=%d", n, seed), func(t *testing.T) {
				tk := Build(pool, n, million, c, WithSeed(seed))

				require.Len(t, tk.Legs, n)
				assert.Equal(t, n, tk.Requested)
				assert.False(t, tk.Short())
				assert.Equal(t, million.Contains(tk.Product), tk.InRange)
				assertStructure(t, tk, c)
			})
		}
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	pool := gridPool()
	c := defaultConstraints(12)

	assert.Equal(t, Build(pool, 12, million, c), Build(pool, 12, million, c))
	assert.Equal(t, Build(pool, 12, million, c, WithSeed(9)), Build(pool, 12, million, c, WithSeed(9)))
	assert.Equal(t,
		Build(pool, 12, million, c),
		Build(pool, 12, million, c, WithSeed(DefaultSeed(pool, 12))))
}

func TestDefaultSeed(t *testing.T) {
	assert.Equal(t, uint32(17)^uint32(5), DefaultSeed(nil, 5))

	pool := []Leg{{Odds: 3.7}, {Odds: 1.2}}
	assert.Equal(t, uint32(2)^uint32(5)^uint32(3), DefaultSeed(pool, 5))
}

func TestBuildShortPool(t *testing.T) {
	pool := []Leg{
		testLeg("a", "A", 0, MarketMatchResult, "1", 2.0),
		testLeg("b", "B", 1, MarketMatchResult, "1", 3.0),
		testLeg("c", "C", 2, MarketMatchResult, "1", 1.5),
	}

	tk := Build(pool, 5, million, defaultConstraints(5))

	assert.Len(t, tk.Legs, 3)
	assert.True(t, tk.Short())
	assert.InDelta(t, 9.0, tk.Product, 1e-9)
	assert.False(t, tk.InRange)
}

func TestBuildCategoryCap(t *testing.T) {
	var pool []Leg
	for f := 0; f < 6; f++ {
		pool = append(pool, testLeg(fmt.Sprintf("l%d", f), "Only League", f, MarketMatchResult, "1", 2.0))
	}

	tk := Build(pool, 5, million, Constraints{CategoryCap: 2, MaxSpecials: 2})

	assert.Len(t, tk.Legs, 2)
	assert.True(t, tk.Short())
}

func TestBuildFixtureUniqueness(t *testing.T) {
	pool := []Leg{
		testLeg("a1", "A", 0, MarketMatchResult, "1", 2.0),
		testLeg("a2", "A", 0, MarketGoals, "3+", 1.9),
		testLeg("a3", "A", 0, MarketHalfFull, "1-1", 3.1),
	}

	tk := Build(pool, 3, million, defaultConstraints(3))

	assert.Len(t, tk.Legs, 1)
}

func TestBuildCapsSpecials(t *testing.T) {
	var pool []Leg
	for i := 0; i < 6; i++ {
		pool = append(pool, testLeg(fmt.Sprintf("s%d", i), fmt.Sprintf("C%d", i), i, MarketSpecial, "HEADED GOAL", 3.0))
	}

	tk := Build(pool, 6, million, defaultConstraints(6))

	assert.Len(t, tk.Legs, SpecialBounds(6).Max)
	assert.Equal(t, 2, tk.SpecialCount())
}

func TestBuildLandsOnSmallWindow(t *testing.T) {
	var pool []Leg
	for i := 0; i < 12; i++ {
		pool = append(pool, testLeg(fmt.Sprintf("n%d", i), fmt.Sprintf("C%d", i), i, MarketMatchResult, "1", 1.5))
	}
	pool = append(pool, testLeg("spec", "Specials", 99, MarketSpecial, "PENALTY IN MATCH", 2.6))

	w := Window{Low: 90, High: 110}
	tk := Build(pool, 10, w, defaultConstraints(10))

	require.Len(t, tk.Legs, 10)
	assert.Equal(t, 1, tk.SpecialCount())
	assert.True(t, tk.InRange)
	assert.InDelta(t, math.Pow(1.5, 9)*2.6, tk.Product, 1e-6)
}

func TestBestSpecialSwap(t *testing.T) {
	st := newBuilderState(3, 3, 10)
	for i := 0; i < 10; i++ {
		st.add(testLeg(fmt.Sprintf("n%d", i), fmt.Sprintf("C%d", i), i, MarketMatchResult, "1", 1.5))
	}
	pool := append([]Leg{}, st.legs...)
	pool = append(pool,
		testLeg("far", "S1", 50, MarketSpecial, "OWN GOAL", 12),
		testLeg("near", "S2", 51, MarketSpecial, "HEADED GOAL", 2.6),
	)

	idx, repl, ok := st.bestSpecialSwap(pool, math.Log(100))
	require.True(t, ok)
	assert.Equal(t, "near", repl.ID)
	assert.GreaterOrEqual(t, idx, 0)

	st.replace(idx, repl)
	assert.Equal(t, 1, st.specials)
	assert.InDelta(t, math.Pow(1.5, 9)*2.6, st.product, 1e-9)
}

func TestBucketNeed(t *testing.T) {
	need := newBucketNeed(12)
	assert.Equal(t, bucketNeed{BucketShort: 5, BucketMid: 6, BucketLong: 3}, need)

	need = newBucketNeed(7)
	assert.Equal(t, bucketNeed{BucketShort: 3, BucketMid: 4, BucketLong: 2}, need)

	cands := []Leg{{ID: "s", Odds: 1.4}, {ID: "m", Odds: 2.2}, {ID: "l", Odds: 6}}
	need[BucketShort] = 0
	need[BucketLong] = 0
	assert.Equal(t, []Leg{{ID: "m", Odds: 2.2}}, need.preferred(cands))
	assert.True(t, need.outstanding())

	need[BucketMid] = 0
	assert.False(t, need.outstanding())
}

func TestBuildOpener(t *testing.T) {
	pool := append(gridPool(), testLeg("opener", "Opener Cup", 99, MarketGoals, "7+", 20))
	c := defaultConstraints(7)

	// Seed 7 opens with a draw of 0.0117, under the 8% opener chance
	tk := Build(pool, 7, million, c, WithSeed(7))
	require.NotEmpty(t, tk.Legs)
	assert.Equal(t, "opener", tk.Legs[0].ID)
	assertStructure(t, tk, c)

	// Seed 1 opens with 0.627; the first slot goes to the closest odds instead
	tk = Build(pool, 7, million, c, WithSeed(1))
	require.NotEmpty(t, tk.Legs)
	assert.NotEqual(t, "opener", tk.Legs[0].ID)
	assert.Equal(t, 6.0, tk.Legs[0].Odds)
}

func TestSpicePick(t *testing.T) {
	cands := []Leg{{ID: "a", Odds: 1.5}, {ID: "b", Odds: 2.0}, {ID: "c", Odds: 9.0}, {ID: "d", Odds: 30}}
	met := bucketNeed{}

	// Draw 0.0117 hits; 1.5 and 30 fall outside the spice band
	far, ok := spicePick(NewRand(7), met, cands, 2.2, spiceChance)
	require.True(t, ok)
	assert.Equal(t, "c", far.ID)

	// Draw 0.627 misses
	_, ok = spicePick(NewRand(1), met, cands, 2.2, spiceChanceLong)
	assert.False(t, ok)

	// Outstanding quotas skip the draw entirely
	rng := NewRand(7)
	_, ok = spicePick(rng, bucketNeed{BucketMid: 1}, cands, 2.2, 1)
	assert.False(t, ok)
	assert.Equal(t, NewRand(7).Float64(), rng.Float64())

	_, ok = spicePick(NewRand(7), met, []Leg{{ID: "x", Odds: 40}}, 2.2, 1)
	assert.False(t, ok)
}

// The quotas always sum to at least the ticket size, so Build fills every
// slot while some quota is still positive.
func TestBucketQuotasCoverTicket(t *testing.T) {
	for n := 1; n <= 40; n++ {
		need := newBucketNeed(n)
		assert.GreaterOrEqual(t, need[BucketShort]+need[BucketMid]+need[BucketLong], n, "n=%d", n)
	}
}
