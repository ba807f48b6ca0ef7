package ticket

import "math"

// Bounds is an inclusive integer range.
type Bounds struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// SpecialBounds returns how many special legs a ticket of the given size may
// carry. Longer tickets must carry at least one and may carry one more.
func SpecialBounds(legs int) Bounds {
	if legs >= 10 {
		return Bounds{Min: 1, Max: 3}
	}
	return Bounds{Min: 0, Max: 2}
}

type OddsBucket string

const (
	BucketShort OddsBucket = "short"
	BucketMid   OddsBucket = "mid"
	BucketLong  OddsBucket = "long"
)

func Bucket(odds float64) OddsBucket {
	switch {
	case odds < 1.75:
		return BucketShort
	case odds < 3.5:
		return BucketMid
	default:
		return BucketLong
	}
}

// LogDistance is |ln a - ln b|, the distance used by every search in this package.
func LogDistance(a, b float64) float64 {
	return math.Abs(math.Log(a) - math.Log(b))
}

// logError measures how far a product is from the target in log space.
func logError(product, targetLog float64) float64 {
	return math.Abs(math.Log(math.Max(1e-12, product)) - targetLog)
}

const (
	closestMinOdds = 1.2
	closestMaxOdds = 40.0
	spiceMinOdds   = 1.6
	spiceMaxOdds   = 25.0
)

// ClosestByLogRatio returns the candidate whose odds are nearest to want in
// log space, ignoring odds outside [1.2, 40]. Ties keep the earliest candidate.
func ClosestByLogRatio(cands []Leg, want float64) (Leg, bool) {
	lw := math.Log(want)
	best, bestD, found := Leg{}, math.Inf(1), false
	for _, l := range cands {
		if l.Odds < closestMinOdds || l.Odds > closestMaxOdds {
			continue
		}
		if d := math.Abs(math.Log(l.Odds) - lw); d < bestD {
			best, bestD, found = l, d, true
		}
	}
	return best, found
}

// farthestByLogRatio is the spice counterpart of ClosestByLogRatio, limited to
// odds in [1.6, 25].
func farthestByLogRatio(cands []Leg, want float64) (Leg, bool) {
	lw := math.Log(want)
	far, farD, found := Leg{}, -1.0, false
	for _, l := range cands {
		if l.Odds < spiceMinOdds || l.Odds > spiceMaxOdds {
			continue
		}
		if d := math.Abs(math.Log(l.Odds) - lw); d > farD {
			far, farD, found = l, d, true
		}
	}
	return far, found
}

func round2(x float64) float64 {
	return math.Floor(x*100+0.5) / 100
}
