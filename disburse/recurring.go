/*
recurring.go - Recurring payout schedule expansion

PURPOSE:
  Expands a recurring configuration (period, cycle count, per-cycle amount,
  start date) into a finite schedule of dated payments. The expansion is a
  pure function of its inputs and can be re-run at any time.

DATE RULE:
  Cycle i is dated startDate + i * period months, computed from the start
  date each cycle with day-of-month clamping. Jan 31 monthly therefore runs
  Jan 31, Feb 28, Mar 31, Apr 30, ... The anchor day is never permanently
  lost to a short month.

REMAINDER RULE:
  Expand keeps a constant per-cycle amount. ExpandWithTotal absorbs the
  rounding remainder into the final cycle so the schedule sums exactly to
  the approved total.
*/
package disburse

import "github.com/shopspring/decimal"

// Period is the cadence of a recurring payout.
type Period string

const (
	PeriodMonthly      Period = "monthly"
	PeriodQuarterly    Period = "quarterly"
	PeriodSemiAnnually Period = "semi_annually"
	PeriodAnnually     Period = "annually"
)

// MaxPayments caps the number of cycles in a recurring schedule.
const MaxPayments = 60

// Months returns the period length in calendar months.
func (p Period) Months() (int, error) {
	switch p {
	case PeriodMonthly:
		return 1, nil
	case PeriodQuarterly:
		return 3, nil
	case PeriodSemiAnnually:
		return 6, nil
	case PeriodAnnually:
		return 12, nil
	default:
		return 0, ErrInvalidPeriod
	}
}

// RecurringConfig describes a fixed-amount, fixed-cadence payment series.
// It complements or replaces a discrete phase timeline in an approval.
type RecurringConfig struct {
	Period           Period `json:"period"`
	NumberOfPayments int    `json:"numberOfPayments"`
	AmountPerPayment int64  `json:"amountPerPayment"`
	StartDate        Date   `json:"startDate"`
}

// Validate checks the config invariants: a known period, 1..MaxPayments
// cycles, a positive amount, and a start date.
func (c RecurringConfig) Validate() error {
	if _, err := c.Period.Months(); err != nil {
		return err
	}
	if c.NumberOfPayments < 1 || c.NumberOfPayments > MaxPayments {
		return ErrInvalidPaymentCount
	}
	if c.AmountPerPayment <= 0 {
		return ErrInvalidPaymentAmount
	}
	if c.StartDate.IsZero() {
		return ErrMissingStartDate
	}
	return nil
}

// CyclePayment is one entry of an expanded schedule.
type CyclePayment struct {
	Cycle  int   `json:"cycle"`
	Date   Date  `json:"date"`
	Amount int64 `json:"amount"`
}

// Expand produces the full schedule with a constant per-cycle amount.
// Length is exactly NumberOfPayments.
func Expand(c RecurringConfig) ([]CyclePayment, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	months, _ := c.Period.Months()

	schedule := make([]CyclePayment, c.NumberOfPayments)
	for i := 0; i < c.NumberOfPayments; i++ {
		schedule[i] = CyclePayment{
			Cycle:  i,
			Date:   c.StartDate.AddMonths(i * months),
			Amount: c.AmountPerPayment,
		}
	}
	return schedule, nil
}

// ExpandWithTotal produces the same schedule but adjusts the final cycle so
// the amounts sum exactly to total. With a derived per-cycle amount the
// rounding remainder would otherwise be silently dropped or overpaid.
func ExpandWithTotal(c RecurringConfig, total int64) ([]CyclePayment, error) {
	schedule, err := Expand(c)
	if err != nil {
		return nil, err
	}
	n := len(schedule)
	paidBeforeFinal := c.AmountPerPayment * int64(n-1)
	schedule[n-1].Amount = total - paidBeforeFinal
	return schedule, nil
}

// DeriveAmountPerPayment computes the default per-cycle amount,
// round-half-up of total / payments. The caller may override it.
func DeriveAmountPerPayment(total int64, payments int) int64 {
	if payments < 1 {
		return 0
	}
	return decimal.NewFromInt(total).
		Div(decimal.NewFromInt(int64(payments))).
		Round(0).
		IntPart()
}
