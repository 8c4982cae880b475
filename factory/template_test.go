package factory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahayog/grant-engine/disburse"
	"github.com/sahayog/grant-engine/factory"
)

// =============================================================================
// TEMPLATE PARSING TESTS
// =============================================================================

func TestParseTemplate_Valid(t *testing.T) {
	raw := `{
		"distributionTimeline": [
			{"description": "Advance", "percentage": 40, "daysFromApproval": 0},
			{"description": "Midterm", "percentage": 30, "daysFromApproval": 90},
			{"description": "Completion", "percentage": 30, "daysFromApproval": 180}
		]
	}`

	tpl, err := factory.ParseTemplate(raw)
	require.NoError(t, err)
	require.Len(t, tpl.Phases, 3)
	assert.Equal(t, "Advance", tpl.Phases[0].Description)
	assert.Equal(t, 90, tpl.Phases[1].DaysFromApproval)
}

func TestParseTemplate_ZeroValuesAreValid(t *testing.T) {
	// Zero percentage and zero offset are legal values, distinct from the
	// field being absent.
	raw := `{"distributionTimeline": [{"percentage": 0, "daysFromApproval": 0}]}`

	tpl, err := factory.ParseTemplate(raw)
	require.NoError(t, err)
	assert.Equal(t, 0, tpl.Phases[0].Percentage)
}

func TestParseTemplate_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty document", ""},
		{"not json", "{nope"},
		{"no timeline key", `{"phases": []}`},
		{"empty timeline", `{"distributionTimeline": []}`},
		{"missing percentage", `{"distributionTimeline": [{"daysFromApproval": 0}]}`},
		{"missing offset", `{"distributionTimeline": [{"percentage": 50}]}`},
		{"over 100 total", `{"distributionTimeline": [
			{"percentage": 60, "daysFromApproval": 0},
			{"percentage": 50, "daysFromApproval": 30}
		]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := factory.ParseTemplate(tt.raw)
			assert.ErrorIs(t, err, factory.ErrMalformedTemplate)
		})
	}
}

func TestEncodeTemplate_RoundTrip(t *testing.T) {
	tpl := disburse.Template{Phases: []disburse.TemplatePhase{
		{Description: "First Installment", Percentage: 34, DaysFromApproval: 0},
		{Description: "Second Installment", Percentage: 33, DaysFromApproval: 90, RequiresVerification: true},
		{Description: "Third Installment", Percentage: 33, DaysFromApproval: 180, Notes: "hold for audit"},
	}}

	raw, err := factory.EncodeTemplate(tpl)
	require.NoError(t, err)

	back, err := factory.ParseTemplate(raw)
	require.NoError(t, err)
	assert.Equal(t, tpl, back)
}

func TestEncodeTemplate_RejectsInvalid(t *testing.T) {
	over := disburse.Template{Phases: []disburse.TemplatePhase{
		{Percentage: 70}, {Percentage: 40},
	}}

	_, err := factory.EncodeTemplate(over)
	assert.Error(t, err)
}
