/*
Package factory converts stored JSON template definitions into
disburse.Template values.

PURPOSE:
  Scheme templates are configured as JSON and stored alongside the scheme
  record, so administrators can change distribution defaults without code
  changes. This package is the single boundary where that JSON is parsed,
  validated, and defaulted.

JSON SCHEMA:
  {
    "distributionTimeline": [
      {
        "description": "First Installment",
        "percentage": 40,
        "daysFromApproval": 0,
        "requiresVerification": false,
        "notes": ""
      }
    ]
  }

FAIL FAST:
  There is exactly one accepted shape. Anything else fails with a
  MalformedTemplateError instead of probing alternate layouts; tolerating
  several shapes here is how silent data corruption starts.
*/
package factory

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sahayog/grant-engine/disburse"
)

// ErrMalformedTemplate is the sentinel for any template that does not match
// the accepted schema.
var ErrMalformedTemplate = errors.New("malformed distribution template")

// MalformedTemplateError carries the reason a template was rejected.
type MalformedTemplateError struct {
	Reason string
}

func (e *MalformedTemplateError) Error() string {
	return fmt.Sprintf("malformed distribution template: %s", e.Reason)
}

func (e *MalformedTemplateError) Unwrap() error { return ErrMalformedTemplate }

// templateJSON is the accepted wire/storage shape.
type templateJSON struct {
	DistributionTimeline []templatePhaseJSON `json:"distributionTimeline"`
}

type templatePhaseJSON struct {
	Description          string `json:"description"`
	Percentage           *int   `json:"percentage"`
	DaysFromApproval     *int   `json:"daysFromApproval"`
	RequiresVerification bool   `json:"requiresVerification,omitempty"`
	Notes                string `json:"notes,omitempty"`
}

// ParseTemplate decodes and validates a stored template. An empty string
// is not a template; callers wanting a default should use
// disburse.FallbackTemplate explicitly.
func ParseTemplate(raw string) (disburse.Template, error) {
	if raw == "" {
		return disburse.Template{}, &MalformedTemplateError{Reason: "empty document"}
	}

	var doc templateJSON
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return disburse.Template{}, &MalformedTemplateError{Reason: err.Error()}
	}
	if len(doc.DistributionTimeline) == 0 {
		return disburse.Template{}, &MalformedTemplateError{Reason: "distributionTimeline is missing or empty"}
	}

	tpl := disburse.Template{Phases: make([]disburse.TemplatePhase, 0, len(doc.DistributionTimeline))}
	for i, p := range doc.DistributionTimeline {
		if p.Percentage == nil {
			return disburse.Template{}, &MalformedTemplateError{
				Reason: fmt.Sprintf("phase %d: percentage is required", i+1),
			}
		}
		if p.DaysFromApproval == nil {
			return disburse.Template{}, &MalformedTemplateError{
				Reason: fmt.Sprintf("phase %d: daysFromApproval is required", i+1),
			}
		}
		tpl.Phases = append(tpl.Phases, disburse.TemplatePhase{
			Description:          p.Description,
			Percentage:           *p.Percentage,
			DaysFromApproval:     *p.DaysFromApproval,
			RequiresVerification: p.RequiresVerification,
			Notes:                p.Notes,
		})
	}

	if err := tpl.Validate(); err != nil {
		return disburse.Template{}, &MalformedTemplateError{Reason: err.Error()}
	}
	return tpl, nil
}

// EncodeTemplate serializes a validated template back to its storage form.
func EncodeTemplate(tpl disburse.Template) (string, error) {
	if err := tpl.Validate(); err != nil {
		return "", err
	}
	doc := templateJSON{DistributionTimeline: make([]templatePhaseJSON, len(tpl.Phases))}
	for i, p := range tpl.Phases {
		pct := p.Percentage
		days := p.DaysFromApproval
		doc.DistributionTimeline[i] = templatePhaseJSON{
			Description:          p.Description,
			Percentage:           &pct,
			DaysFromApproval:     &days,
			RequiresVerification: p.RequiresVerification,
			Notes:                p.Notes,
		}
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
