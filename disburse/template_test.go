package disburse_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahayog/grant-engine/disburse"
)

// =============================================================================
// TEMPLATE TESTS
// =============================================================================

func TestTemplate_Materialize(t *testing.T) {
	// GIVEN: A 40/30/30 template at day offsets 0/90/180
	// WHEN: Materialized against an approval date
	// THEN: Each phase resolves to anchor + offset with sequential ids

	tpl := disburse.Template{Phases: []disburse.TemplatePhase{
		{Description: "Advance", Percentage: 40, DaysFromApproval: 0},
		{Description: "Midterm", Percentage: 30, DaysFromApproval: 90},
		{Description: "Completion", Percentage: 30, DaysFromApproval: 180},
	}}

	anchor := disburse.NewDate(2026, time.January, 20)
	timeline := tpl.Materialize(anchor)

	require.Equal(t, 3, timeline.Len())
	assert.Equal(t, 1, timeline.Phases[0].ID)
	assert.True(t, timeline.Phases[0].DueDate.Equal(anchor))
	assert.True(t, timeline.Phases[1].DueDate.Equal(disburse.NewDate(2026, time.April, 20)))
	assert.True(t, timeline.Phases[2].DueDate.Equal(disburse.NewDate(2026, time.July, 19)))
	assert.Equal(t, 100, disburse.TotalPercentage(timeline))
}

func TestTemplate_MaterializeNamesBlankPhases(t *testing.T) {
	tpl := disburse.Template{Phases: []disburse.TemplatePhase{
		{Percentage: 50, DaysFromApproval: 0},
		{Percentage: 50, DaysFromApproval: 30},
	}}

	timeline := tpl.Materialize(disburse.Today())

	assert.Equal(t, "Phase 1", timeline.Phases[0].Description)
	assert.Equal(t, "Phase 2", timeline.Phases[1].Description)
}

func TestTemplate_Validate(t *testing.T) {
	over := disburse.Template{Phases: []disburse.TemplatePhase{
		{Percentage: 60}, {Percentage: 50},
	}}
	assert.ErrorIs(t, over.Validate(), disburse.ErrOverAllocated)

	partial := disburse.Template{Phases: []disburse.TemplatePhase{
		{Percentage: 60}, {Percentage: 30},
	}}
	assert.NoError(t, partial.Validate())

	negative := disburse.Template{Phases: []disburse.TemplatePhase{
		{Percentage: -5}, {Percentage: 50},
	}}
	assert.ErrorIs(t, negative.Validate(), disburse.ErrInvalidPercentage)
}

func TestFallbackTemplate(t *testing.T) {
	tpl := disburse.FallbackTemplate()

	require.NoError(t, tpl.Validate())
	var sum int
	for _, p := range tpl.Phases {
		sum += p.Percentage
	}
	assert.Equal(t, 100, sum)

	timeline := tpl.Materialize(disburse.NewDate(2026, time.March, 1))
	assert.True(t, disburse.CompleteForDirectApproval(timeline))
}
