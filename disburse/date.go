/*
Package disburse provides the core disbursement timeline engine.

PURPOSE:
  This package contains the value types and calculations behind grant
  disbursement planning: dated installment phases, percentage validation,
  amount allocation, and recurring payout expansion. Everything here is a
  pure transformation over caller-held values. The package has no knowledge
  of HTTP, storage, or the surrounding workflow.

KEY CONCEPTS IN THIS FILE (date.go):
  - Date: A calendar day (no time-of-day), always UTC
  - Resolve: Anchor date + day offset, the basis for template due dates
  - Clamped month arithmetic for recurring schedules

DESIGN PRINCIPLES:
  1. Immutability: Operations return new values, never mutate in place
  2. Precision: Currency math goes through decimal.Decimal (see allocate.go)
  3. Explicit invariants: Rules live in the model, not in call sites

SEE ALSO:
  - phase.go: Phase and Timeline value types
  - recurring.go: Recurring payout schedule expansion
  - template.go: Scheme default templates
*/
package disburse

import (
	"encoding/json"
	"fmt"
	"time"
)

// ISODate is the transport format for all calendar dates.
const ISODate = "2006-01-02"

// Date is a calendar day with no time component, normalized to UTC.
// The zero value is the zero time and reports IsZero.
type Date struct {
	Time time.Time
}

// Constructors

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current calendar day in UTC.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), now.Month(), now.Day())
}

// ParseDate parses an ISO YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(ISODate, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return NewDate(t.Year(), t.Month(), t.Day()), nil
}

// FromTime truncates a time.Time to its calendar day.
func FromTime(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), u.Month(), u.Day())
}

// Comparison

func (d Date) Before(other Date) bool { return d.normalize().Before(other.normalize()) }
func (d Date) After(other Date) bool  { return d.normalize().After(other.normalize()) }
func (d Date) Equal(other Date) bool  { return d.normalize().Equal(other.normalize()) }
func (d Date) IsZero() bool           { return d.Time.IsZero() }

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Properties

func (d Date) Year() int         { return d.Time.Year() }
func (d Date) Month() time.Month { return d.Time.Month() }
func (d Date) Day() int          { return d.Time.Day() }

// AddDays returns the date n calendar days later. Negative n resolves to
// past dates; backdating is an administrative reality, not an error.
func (d Date) AddDays(n int) Date {
	t := d.normalize().AddDate(0, 0, n)
	return Date{Time: t}
}

// AddMonths returns the date n calendar months later, clamping the day of
// month to the target month's length. Unlike time.AddDate, Jan 31 plus one
// month is Feb 28 (or 29), never a normalized Mar 2/3.
func (d Date) AddMonths(n int) Date {
	months := int(d.Time.Month()) - 1 + n
	year := d.Time.Year() + months/12
	months %= 12
	if months < 0 {
		months += 12
		year--
	}
	month := time.Month(months + 1)

	day := d.Time.Day()
	if last := DaysInMonth(year, month); day > last {
		day = last
	}
	return NewDate(year, month, day)
}

// DaysBetween returns the number of calendar days from one date to another.
func DaysBetween(from, to Date) int {
	return int(to.normalize().Sub(from.normalize()).Hours() / 24)
}

// DaysInMonth returns the length of a month in days.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Resolve computes anchor + daysFromAnchor calendar days. This is the date
// offset used when materializing scheme templates, where each phase carries a
// day offset relative to the approval date.
func Resolve(anchor Date, daysFromAnchor int) Date {
	return anchor.AddDays(daysFromAnchor)
}

// String returns the ISO form.
func (d Date) String() string {
	return d.normalize().Format(ISODate)
}

// JSON round-trips as an ISO string so wire payloads carry "YYYY-MM-DD".

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
