// Package grants implements the grant application approval domain.
// It uses the disburse engine for timeline math and owns the decision
// workflow: which submissions are valid, what the approval payload looks
// like, and which status transitions are legal.
package grants

// =============================================================================
// APPLICATION LIFECYCLE
// =============================================================================

// ApplicationStatus is the lifecycle state of a grant application.
type ApplicationStatus string

const (
	StatusPending     ApplicationStatus = "pending"
	StatusUnderReview ApplicationStatus = "under_review"
	StatusApproved    ApplicationStatus = "approved"
	StatusRejected    ApplicationStatus = "rejected"
	StatusForwarded   ApplicationStatus = "forwarded_to_committee"
	StatusDisbursing  ApplicationStatus = "disbursing"
	StatusClosed      ApplicationStatus = "closed"
)

// transitions lists the legal next states for each status. Terminal states
// have no entry.
var transitions = map[ApplicationStatus][]ApplicationStatus{
	StatusPending:     {StatusUnderReview, StatusApproved, StatusRejected, StatusForwarded},
	StatusUnderReview: {StatusApproved, StatusRejected, StatusForwarded},
	StatusForwarded:   {StatusApproved, StatusRejected},
	StatusApproved:    {StatusDisbursing, StatusClosed},
	StatusDisbursing:  {StatusClosed},
}

// CanTransition reports whether an application may move from one status to
// another.
func CanTransition(from, to ApplicationStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Decidable reports whether an application can still be approved, rejected,
// or forwarded.
func Decidable(s ApplicationStatus) bool {
	return s == StatusPending || s == StatusUnderReview || s == StatusForwarded
}
