package disburse_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sahayog/grant-engine/disburse"
)

// =============================================================================
// PERCENTAGE GATE TESTS
// =============================================================================

func TestTotalPercentage(t *testing.T) {
	assert.Equal(t, 0, disburse.TotalPercentage(disburse.Timeline{}))
	assert.Equal(t, 100, disburse.TotalPercentage(disburse.NewTimeline(phase(1, 40), phase(2, 60))))
}

func TestGateForApproval(t *testing.T) {
	tests := []struct {
		name    string
		total   []int
		wantErr error
	}{
		{"exactly 100 passes", []int{40, 30, 30}, nil},
		{"99 is incomplete", []int{40, 30, 29}, disburse.ErrIncompleteTimeline},
		{"101 is over-allocated", []int{40, 30, 31}, disburse.ErrOverAllocated},
		{"empty is incomplete", nil, disburse.ErrIncompleteTimeline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timeline := disburse.Timeline{}
			for _, pct := range tt.total {
				timeline, _ = timeline.Append(disburse.Phase{Percentage: pct})
			}

			err := disburse.GateForApproval(timeline)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGateForTemplate_AllowsPartialSum(t *testing.T) {
	// A forwarded timeline may be partial; the committee completes it.
	timeline := disburse.NewTimeline(phase(1, 50), phase(2, 40))

	assert.NoError(t, disburse.GateForTemplate(timeline))
	assert.True(t, disburse.ValidForTemplate(timeline))
	assert.False(t, disburse.CompleteForDirectApproval(timeline))
}

func TestGateForTemplate_RejectsOverAllocation(t *testing.T) {
	timeline := disburse.NewTimeline(phase(1, 70), phase(2, 40))

	err := disburse.GateForTemplate(timeline)
	assert.ErrorIs(t, err, disburse.ErrOverAllocated)
}

func TestPercentageError_CarriesTotal(t *testing.T) {
	timeline := disburse.NewTimeline(phase(1, 70), phase(2, 40))

	err := disburse.GateForApproval(timeline)

	var pctErr *disburse.PercentageError
	if !errors.As(err, &pctErr) {
		t.Fatalf("expected *PercentageError, got %T", err)
	}
	assert.Equal(t, 110, pctErr.Total)
}

func TestIsClientError(t *testing.T) {
	timeline := disburse.NewTimeline(phase(1, 10))

	assert.True(t, disburse.IsClientError(disburse.GateForApproval(timeline)))
	assert.True(t, disburse.IsClientError(disburse.ErrLastPhase))
	assert.False(t, disburse.IsClientError(errors.New("disk on fire")))
	assert.False(t, disburse.IsClientError(nil))
}
