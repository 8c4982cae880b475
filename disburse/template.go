/*
template.go - Scheme default timeline templates

PURPOSE:
  A scheme carries a default disbursement template: phases defined by
  percentage and day offset from approval rather than by concrete dates.
  Materialize copies the template into a dated timeline anchored on the
  approval date, which is what "load scheme defaults" produces.

  Templates are held to the soft gate (sum <= 100); a downstream committee
  may complete the remainder.
*/
package disburse

import "fmt"

// TemplatePhase is one phase of a scheme template. DaysFromApproval is
// relative to the (future) approval date; negative offsets resolve to past
// dates and are permitted.
type TemplatePhase struct {
	Description          string `json:"description"`
	Percentage           int    `json:"percentage"`
	DaysFromApproval     int    `json:"daysFromApproval"`
	RequiresVerification bool   `json:"requiresVerification,omitempty"`
	Notes                string `json:"notes,omitempty"`
}

// Template is a scheme's default distribution timeline.
type Template struct {
	Phases []TemplatePhase `json:"distributionTimeline"`
}

// Validate applies the template gate: every percentage in range and the
// total at or under 100.
func (tpl Template) Validate() error {
	total := 0
	for _, p := range tpl.Phases {
		if p.Percentage < 0 || p.Percentage > 100 {
			return ErrInvalidPercentage
		}
		total += p.Percentage
	}
	if total > 100 {
		return &PercentageError{Total: total, Limit: 100}
	}
	return nil
}

// Materialize resolves the template into a dated timeline anchored on the
// given date. Phase ids are assigned sequentially; blank descriptions
// default to "Phase N".
func (tpl Template) Materialize(anchor Date) Timeline {
	t := Timeline{}
	for i, tp := range tpl.Phases {
		desc := tp.Description
		if desc == "" {
			desc = fmt.Sprintf("Phase %d", i+1)
		}
		t, _ = t.Append(Phase{
			Description:          desc,
			Percentage:           tp.Percentage,
			DueDate:              Resolve(anchor, tp.DaysFromApproval),
			RequiresVerification: tp.RequiresVerification,
			Notes:                tp.Notes,
		})
	}
	return t
}

// FallbackTemplate is the hard-coded seed used when a scheme defines no
// template of its own: three equal-third installments at 0/90/180 days.
func FallbackTemplate() Template {
	return Template{Phases: []TemplatePhase{
		{Description: "First Installment", Percentage: 34, DaysFromApproval: 0},
		{Description: "Second Installment", Percentage: 33, DaysFromApproval: 90},
		{Description: "Third Installment", Percentage: 33, DaysFromApproval: 180},
	}}
}
