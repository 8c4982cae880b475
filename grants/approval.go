/*
approval.go - Decision assembly and the approval wire payload

PURPOSE:
  An approval decision carries the approved amount, reviewer comments, the
  distribution timeline, and optionally a recurring payout config. This file
  validates the decision and flattens it into the payload shape the
  disbursement backend consumes.

GATES:
  - Comments are mandatory for both approval and rejection
  - Direct approval requires the timeline to total exactly 100%
  - Forwarding to committee only requires the soft template gate (<= 100%),
    since the committee completes the remainder
  - A recurring config, when present, must validate on its own

ALLOCATION:
  Phase amounts are derived once, here, from percentage against the approved
  amount. Loading a persisted payload and rebuilding it against the same
  total reproduces the amounts exactly.
*/
package grants

import (
	"errors"
	"strings"

	"github.com/sahayog/grant-engine/disburse"
)

var (
	// ErrMissingComments is returned when a decision has no remarks.
	ErrMissingComments = errors.New("comments are required")

	// ErrMissingTimeline is returned when a direct approval carries no phases.
	ErrMissingTimeline = errors.New("distribution timeline is required")

	// ErrInvalidAmount is returned for a non-positive approved amount.
	ErrInvalidAmount = errors.New("approved amount must be positive")

	// ErrNotDecidable is returned when the application status does not allow
	// a decision.
	ErrNotDecidable = errors.New("application is not awaiting a decision")
)

// Decision is an approval submission before it is flattened to the wire.
type Decision struct {
	ApprovedAmount     int64
	Comments           string
	Timeline           disburse.Timeline
	Recurring          *disburse.RecurringConfig
	ForwardToCommittee bool
}

// Validate applies the submission gates. Validation failures never reach
// persistence; the caller surfaces them and leaves its state untouched.
func (d Decision) Validate() error {
	if strings.TrimSpace(d.Comments) == "" {
		return ErrMissingComments
	}
	if d.ApprovedAmount <= 0 {
		return ErrInvalidAmount
	}
	if d.Timeline.Len() == 0 {
		return ErrMissingTimeline
	}
	if d.ForwardToCommittee {
		if err := disburse.GateForTemplate(d.Timeline); err != nil {
			return err
		}
	} else {
		if err := disburse.GateForApproval(d.Timeline); err != nil {
			return err
		}
	}
	if d.Recurring != nil {
		if err := d.Recurring.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// WIRE PAYLOAD
// =============================================================================

// PhasePayload is one timeline entry as submitted to the backend.
type PhasePayload struct {
	Description  string        `json:"description"`
	Percentage   int           `json:"percentage"`
	Amount       int64         `json:"amount"`
	ExpectedDate disburse.Date `json:"expectedDate"`
}

// RecurringPayload mirrors the recurring config on the wire.
type RecurringPayload struct {
	Period                  disburse.Period `json:"period"`
	NumberOfPayments        int             `json:"numberOfPayments"`
	AmountPerPayment        int64           `json:"amountPerPayment"`
	StartDate               disburse.Date   `json:"startDate"`
	HasDistributionTimeline bool            `json:"hasDistributionTimeline"`
}

// ApprovalPayload is the full approval submission.
type ApprovalPayload struct {
	ApprovedAmount       int64             `json:"approvedAmount,omitempty"`
	Comments             string            `json:"comments"`
	DistributionTimeline []PhasePayload    `json:"distributionTimeline"`
	IsRecurring          bool              `json:"isRecurring,omitempty"`
	RecurringConfig      *RecurringPayload `json:"recurringConfig,omitempty"`
	ForwardToCommittee   bool              `json:"forwardToCommittee,omitempty"`
}

// BuildApprovalPayload validates the decision and maps each phase through
// the allocator against the approved amount.
func BuildApprovalPayload(d Decision) (ApprovalPayload, error) {
	if err := d.Validate(); err != nil {
		return ApprovalPayload{}, err
	}

	entries := make([]PhasePayload, 0, d.Timeline.Len())
	for _, p := range d.Timeline.Phases {
		entries = append(entries, PhasePayload{
			Description:  p.Description,
			Percentage:   p.Percentage,
			Amount:       disburse.Allocate(d.ApprovedAmount, p.Percentage),
			ExpectedDate: p.DueDate,
		})
	}

	payload := ApprovalPayload{
		ApprovedAmount:       d.ApprovedAmount,
		Comments:             d.Comments,
		DistributionTimeline: entries,
		ForwardToCommittee:   d.ForwardToCommittee,
	}
	if d.Recurring != nil {
		payload.IsRecurring = true
		payload.RecurringConfig = &RecurringPayload{
			Period:                  d.Recurring.Period,
			NumberOfPayments:        d.Recurring.NumberOfPayments,
			AmountPerPayment:        d.Recurring.AmountPerPayment,
			StartDate:               d.Recurring.StartDate,
			HasDistributionTimeline: d.Timeline.Len() > 0,
		}
	}
	return payload, nil
}

// TimelineFromPayload seeds an editable timeline from a persisted payload,
// for example when reopening an approved application. Amounts are dropped:
// they are re-derived from percentages on the next save.
func TimelineFromPayload(entries []PhasePayload) disburse.Timeline {
	t := disburse.Timeline{}
	for _, e := range entries {
		t, _ = t.Append(disburse.Phase{
			Description: e.Description,
			Percentage:  e.Percentage,
			DueDate:     e.ExpectedDate,
		})
	}
	return t
}

// =============================================================================
// REJECTION
// =============================================================================

// Rejection records a refusal with mandatory remarks.
type Rejection struct {
	Remarks    string
	RejectedBy string
}

func (r Rejection) Validate() error {
	if strings.TrimSpace(r.Remarks) == "" {
		return ErrMissingComments
	}
	return nil
}
