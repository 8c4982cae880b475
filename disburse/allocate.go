/*
allocate.go - Percentage to amount allocation

PURPOSE:
  Converts a phase's percentage share into an absolute rupee amount at
  submission time. Currency is a whole-rupee count with no sub-units, so
  every allocation rounds to the nearest rupee, half up.

  Allocation is one-directional: amounts are derived from percentages,
  never the reverse.
*/
package disburse

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Allocate computes round(total * percentage / 100) with half-up rounding.
// decimal.Round rounds half away from zero, which is half-up for the
// non-negative amounts handled here.
func Allocate(total int64, percentage int) int64 {
	return decimal.NewFromInt(total).
		Mul(decimal.NewFromInt(int64(percentage))).
		Div(hundred).
		Round(0).
		IntPart()
}

// AllocateTimeline maps every phase to its rupee allocation against the
// given total, keyed by phase id.
func AllocateTimeline(t Timeline, total int64) map[int]int64 {
	amounts := make(map[int]int64, len(t.Phases))
	for _, p := range t.Phases {
		amounts[p.ID] = Allocate(total, p.Percentage)
	}
	return amounts
}
