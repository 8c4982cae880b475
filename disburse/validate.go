/*
validate.go - Percentage gates for timeline submission

PURPOSE:
  Sums phase percentages and answers the two questions that gate submission:
  - Direct approval: does the timeline cover exactly 100%?
  - Template configuration: does it stay at or under 100%?

  A failed gate disables the calling action; it is not an internal error.
  GateForApproval / GateForTemplate return the structured PercentageError
  for callers that need the actual total in their message.
*/
package disburse

// TotalPercentage sums the percentage of every phase. Empty timeline is 0.
func TotalPercentage(t Timeline) int {
	total := 0
	for _, p := range t.Phases {
		total += p.Percentage
	}
	return total
}

// CompleteForDirectApproval reports whether the timeline covers exactly 100%
// of the approved amount. 99 and 101 both fail.
func CompleteForDirectApproval(t Timeline) bool {
	return TotalPercentage(t) == 100
}

// ValidForTemplate reports whether the timeline stays at or under 100%.
// Templates may be completed later by a downstream committee.
func ValidForTemplate(t Timeline) bool {
	return TotalPercentage(t) <= 100
}

// GateForApproval returns a PercentageError unless the timeline totals
// exactly 100.
func GateForApproval(t Timeline) error {
	if err := t.CheckPercentages(); err != nil {
		return err
	}
	if total := TotalPercentage(t); total != 100 {
		return &PercentageError{Total: total, Limit: 100}
	}
	return nil
}

// GateForTemplate returns a PercentageError if the timeline exceeds 100.
func GateForTemplate(t Timeline) error {
	if err := t.CheckPercentages(); err != nil {
		return err
	}
	if total := TotalPercentage(t); total > 100 {
		return &PercentageError{Total: total, Limit: 100}
	}
	return nil
}
