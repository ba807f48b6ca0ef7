package payout

import (
	"github.com/shopspring/decimal"
)

// BonusTier grants Pct percent on top of the base payout for tickets with at
// least MinLegs legs.
type BonusTier struct {
	MinLegs int `json:"min_legs"`
	Pct     int `json:"pct"`
}

// DefaultBonusTable is ordered by MinLegs ascending.
var DefaultBonusTable = []BonusTier{
	{MinLegs: 7, Pct: 12},
	{MinLegs: 8, Pct: 16},
	{MinLegs: 9, Pct: 22},
	{MinLegs: 10, Pct: 28},
	{MinLegs: 11, Pct: 33},
	{MinLegs: 12, Pct: 38},
	{MinLegs: 13, Pct: 43},
	{MinLegs: 14, Pct: 50},
	{MinLegs: 15, Pct: 55},
	{MinLegs: 16, Pct: 60},
	{MinLegs: 17, Pct: 65},
	{MinLegs: 18, Pct: 70},
	{MinLegs: 19, Pct: 75},
	{MinLegs: 20, Pct: 80},
}

// Breakdown is a payout in whole currency units.
type Breakdown struct {
	Stake int64 `json:"stake"`
	Base  int64 `json:"base"`
	Bonus int64 `json:"bonus"`
	Total int64 `json:"total"`
	Pct   int   `json:"pct"`
}

// BonusPct returns the bonus percentage for a ticket with n legs.
func BonusPct(n int) int {
	pct := 0
	for _, t := range DefaultBonusTable {
		if n >= t.MinLegs {
			pct = t.Pct
		}
	}
	return pct
}

// Compute returns the payout of a ticket with the given odds product. Base and
// bonus are each rounded half away from zero.
func Compute(product float64, legs int, stake int64) Breakdown {
	pct := BonusPct(legs)
	base := decimal.NewFromFloat(product).Mul(decimal.NewFromInt(stake)).Round(0)
	bonus := base.Mul(decimal.NewFromInt(int64(pct))).Div(decimal.NewFromInt(100)).Round(0)
	return Breakdown{
		Stake: stake,
		Base:  base.IntPart(),
		Bonus: bonus.IntPart(),
		Total: base.Add(bonus).IntPart(),
		Pct:   pct,
	}
}

// Single returns the potential payout of a one-leg bet, without bonus.
func Single(odds float64, stake int64) int64 {
	return decimal.NewFromFloat(odds).Mul(decimal.NewFromInt(stake)).Round(0).IntPart()
}
