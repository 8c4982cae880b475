package grants_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahayog/grant-engine/disburse"
	"github.com/sahayog/grant-engine/grants"
)

func fullTimeline() disburse.Timeline {
	return disburse.NewTimeline(
		disburse.Phase{ID: 1, Description: "Advance", Percentage: 40, DueDate: disburse.NewDate(2026, time.February, 1)},
		disburse.Phase{ID: 2, Description: "Midterm", Percentage: 30, DueDate: disburse.NewDate(2026, time.May, 1)},
		disburse.Phase{ID: 3, Description: "Completion", Percentage: 30, DueDate: disburse.NewDate(2026, time.August, 1)},
	)
}

// =============================================================================
// DECISION GATE TESTS
// =============================================================================

func TestDecision_Validate_DirectApproval(t *testing.T) {
	d := grants.Decision{
		ApprovedAmount: 500000,
		Comments:       "verified field report",
		Timeline:       fullTimeline(),
	}
	assert.NoError(t, d.Validate())
}

func TestDecision_Validate_Failures(t *testing.T) {
	base := grants.Decision{
		ApprovedAmount: 500000,
		Comments:       "ok",
		Timeline:       fullTimeline(),
	}

	tests := []struct {
		name    string
		mutate  func(d *grants.Decision)
		wantErr error
	}{
		{"blank comments", func(d *grants.Decision) { d.Comments = "   " }, grants.ErrMissingComments},
		{"zero amount", func(d *grants.Decision) { d.ApprovedAmount = 0 }, grants.ErrInvalidAmount},
		{"no phases", func(d *grants.Decision) { d.Timeline = disburse.Timeline{} }, grants.ErrMissingTimeline},
		{"partial sum on direct approval", func(d *grants.Decision) {
			d.Timeline = disburse.NewTimeline(disburse.Phase{ID: 1, Percentage: 90})
		}, disburse.ErrIncompleteTimeline},
		{"over-allocated", func(d *grants.Decision) {
			d.Timeline = disburse.NewTimeline(disburse.Phase{ID: 1, Percentage: 101})
		}, disburse.ErrOverAllocated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := base
			tt.mutate(&d)
			assert.ErrorIs(t, d.Validate(), tt.wantErr)
		})
	}
}

func TestDecision_Validate_ForwardAllowsPartialSum(t *testing.T) {
	// GIVEN: A 60% timeline
	// WHEN: Forwarding to committee
	// THEN: The template gate applies, so a partial sum passes

	d := grants.Decision{
		ApprovedAmount:     500000,
		Comments:           "needs committee review",
		Timeline:           disburse.NewTimeline(disburse.Phase{ID: 1, Percentage: 60}),
		ForwardToCommittee: true,
	}
	assert.NoError(t, d.Validate())

	d.Timeline = disburse.NewTimeline(disburse.Phase{ID: 1, Percentage: 110})
	assert.ErrorIs(t, d.Validate(), disburse.ErrOverAllocated)
}

func TestDecision_Validate_RecurringConfig(t *testing.T) {
	d := grants.Decision{
		ApprovedAmount: 120000,
		Comments:       "monthly stipend",
		Timeline:       fullTimeline(),
		Recurring: &disburse.RecurringConfig{
			Period:           "fortnightly",
			NumberOfPayments: 12,
			AmountPerPayment: 10000,
			StartDate:        disburse.NewDate(2026, time.February, 1),
		},
	}
	assert.ErrorIs(t, d.Validate(), disburse.ErrInvalidPeriod)
}

// =============================================================================
// WIRE PAYLOAD TESTS
// =============================================================================

func TestBuildApprovalPayload_AllocatesPerPhase(t *testing.T) {
	d := grants.Decision{
		ApprovedAmount: 100001,
		Comments:       "approved",
		Timeline: disburse.NewTimeline(
			disburse.Phase{ID: 1, Description: "Advance", Percentage: 34, DueDate: disburse.NewDate(2026, time.February, 1)},
			disburse.Phase{ID: 2, Description: "Final", Percentage: 66, DueDate: disburse.NewDate(2026, time.June, 1)},
		),
	}

	payload, err := grants.BuildApprovalPayload(d)
	require.NoError(t, err)
	require.Len(t, payload.DistributionTimeline, 2)

	// 34% of 100001 = 34000.34 -> 34000; 66% = 66000.66 -> 66001
	assert.Equal(t, int64(34000), payload.DistributionTimeline[0].Amount)
	assert.Equal(t, int64(66001), payload.DistributionTimeline[1].Amount)
	assert.False(t, payload.IsRecurring)
	assert.Nil(t, payload.RecurringConfig)
}

func TestBuildApprovalPayload_RecurringFlags(t *testing.T) {
	d := grants.Decision{
		ApprovedAmount: 120000,
		Comments:       "stipend plus milestones",
		Timeline:       fullTimeline(),
		Recurring: &disburse.RecurringConfig{
			Period:           disburse.PeriodMonthly,
			NumberOfPayments: 12,
			AmountPerPayment: 10000,
			StartDate:        disburse.NewDate(2026, time.February, 1),
		},
	}

	payload, err := grants.BuildApprovalPayload(d)
	require.NoError(t, err)
	require.NotNil(t, payload.RecurringConfig)
	assert.True(t, payload.IsRecurring)
	assert.True(t, payload.RecurringConfig.HasDistributionTimeline)
	assert.Equal(t, disburse.PeriodMonthly, payload.RecurringConfig.Period)
}

func TestApprovalPayload_JSONShape(t *testing.T) {
	// The backend contract uses camelCase keys and ISO dates.
	d := grants.Decision{
		ApprovedAmount: 50000,
		Comments:       "approved",
		Timeline: disburse.NewTimeline(
			disburse.Phase{ID: 1, Description: "Full", Percentage: 100, DueDate: disburse.NewDate(2026, time.March, 15)},
		),
	}
	payload, err := grants.BuildApprovalPayload(d)
	require.NoError(t, err)

	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Contains(t, doc, "approvedAmount")
	assert.Contains(t, doc, "distributionTimeline")

	entry := doc["distributionTimeline"].([]any)[0].(map[string]any)
	assert.Equal(t, "2026-03-15", entry["expectedDate"])
	assert.Equal(t, float64(50000), entry["amount"])
}

func TestTimelineFromPayload_RoundTrip(t *testing.T) {
	// GIVEN: An approved application re-opened for editing
	// WHEN: The stored payload is loaded back into a timeline and
	//       resubmitted unchanged
	// THEN: The rebuilt payload matches the original

	original, err := grants.BuildApprovalPayload(grants.Decision{
		ApprovedAmount: 100000,
		Comments:       "approved",
		Timeline:       fullTimeline(),
	})
	require.NoError(t, err)

	reloaded := grants.TimelineFromPayload(original.DistributionTimeline)
	rebuilt, err := grants.BuildApprovalPayload(grants.Decision{
		ApprovedAmount: 100000,
		Comments:       "approved",
		Timeline:       reloaded,
	})
	require.NoError(t, err)

	assert.Equal(t, original, rebuilt)
}

// =============================================================================
// REJECTION TESTS
// =============================================================================

func TestRejection_Validate(t *testing.T) {
	assert.ErrorIs(t, grants.Rejection{Remarks: "  "}.Validate(), grants.ErrMissingComments)
	assert.NoError(t, grants.Rejection{Remarks: "documents inconsistent"}.Validate())
}

// =============================================================================
// STATUS TRANSITION TESTS
// =============================================================================

func TestCanTransition(t *testing.T) {
	assert.True(t, grants.CanTransition(grants.StatusPending, grants.StatusApproved))
	assert.True(t, grants.CanTransition(grants.StatusForwarded, grants.StatusRejected))
	assert.False(t, grants.CanTransition(grants.StatusRejected, grants.StatusApproved))
	assert.False(t, grants.CanTransition(grants.StatusClosed, grants.StatusPending))
}

func TestDecidable(t *testing.T) {
	assert.True(t, grants.Decidable(grants.StatusPending))
	assert.True(t, grants.Decidable(grants.StatusUnderReview))
	assert.True(t, grants.Decidable(grants.StatusForwarded))
	assert.False(t, grants.Decidable(grants.StatusApproved))
	assert.False(t, grants.Decidable(grants.StatusRejected))
}
