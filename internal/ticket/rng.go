package ticket

// RandVersion identifies the pseudo-random algorithm used for ticket
// construction. Changing the algorithm or its output mapping changes every
// seeded ticket and must bump this value.
const RandVersion = "mulberry32-v1"

// Rand is a Mulberry32 generator.
//
// State advance: the 32-bit state is incremented by 0x6D2B79F5 (mod 2^32)
// before each draw, then mixed:
//
//	t = state
//	t = (t ^ t>>15) * (t | 1)
//	t ^= t + (t ^ t>>7) * (t | 61)
//	out = t ^ t>>14
//
// All arithmetic wraps at 32 bits. Float64 maps out to out / 2^32, which lies
// in [0, 1).
type Rand struct {
	state uint32
}

func NewRand(seed uint32) *Rand {
	return &Rand{state: seed}
}

func (r *Rand) Uint32() uint32 {
	r.state += 0x6d2b79f5
	t := r.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return t ^ (t >> 14)
}

func (r *Rand) Float64() float64 {
	return float64(r.Uint32()) / 4294967296.0
}

// Intn returns floor(Float64() * n). It panics if n <= 0.
func (r *Rand) Intn(n int) int {
	if n <= 0 {
		panic("ticket: Intn called with non-positive n")
	}
	return int(r.Float64() * float64(n))
}

// Between draws uniformly from [lo, hi) and rounds to two decimals.
func (r *Rand) Between(lo, hi float64) float64 {
	return round2(lo + (hi-lo)*r.Float64())
}

// Pick returns a uniformly chosen element of items.
func Pick[T any](r *Rand, items []T) T {
	return items[r.Intn(len(items))]
}
